package execution

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/pulkyeet/amm-arb/internal/arbitrage"
)

// Options configure how swap calls become transactions
type Options struct {
	ChainID  *big.Int
	GasLimit uint64
	GasPrice *big.Int
	// first nonce of the bundle
	Nonce uint64
	// hex private key, empty leaves transactions unsigned
	Key string
}

// Bundle collects the legs of one attempt as ordered transactions.
// it is the arbitrage.Executor used by the scanner and backtests
type Bundle struct {
	mu     sync.Mutex
	opts   Options
	key    *ecdsa.PrivateKey
	signer types.Signer
	calls  []arbitrage.SwapCall
	txs    []*types.Transaction
}

var _ arbitrage.Executor = (*Bundle)(nil)

func NewBundle(opts Options) (*Bundle, error) {
	if opts.ChainID == nil {
		opts.ChainID = big.NewInt(1)
	}
	if opts.GasPrice == nil {
		opts.GasPrice = big.NewInt(30e9)
	}
	if opts.GasLimit == 0 {
		opts.GasLimit = 200000
	}

	b := &Bundle{opts: opts, signer: types.LatestSignerForChainID(opts.ChainID)}
	if opts.Key != "" {
		key, err := crypto.HexToECDSA(strings.TrimPrefix(opts.Key, "0x"))
		if err != nil {
			return nil, fmt.Errorf("parse executor key: %w", err)
		}
		b.key = key
	}
	return b, nil
}

// From is the signing account, zero when the bundle is unsigned
func (b *Bundle) From() common.Address {
	if b.key == nil {
		return common.Address{}
	}
	return crypto.PubkeyToAddress(b.key.PublicKey)
}

func (b *Bundle) Submit(ctx context.Context, call arbitrage.SwapCall) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	to := call.Pool
	tx := types.NewTx(&types.LegacyTx{
		Nonce:    b.opts.Nonce + uint64(len(b.txs)),
		To:       &to,
		Value:    big.NewInt(0),
		Gas:      b.opts.GasLimit,
		GasPrice: b.opts.GasPrice,
		Data:     call.Data,
	})
	if b.key != nil {
		signed, err := types.SignTx(tx, b.signer, b.key)
		if err != nil {
			return fmt.Errorf("sign leg %d: %w", len(b.txs)+1, err)
		}
		tx = signed
	}

	b.calls = append(b.calls, call)
	b.txs = append(b.txs, tx)
	return nil
}

func (b *Bundle) Calls() []arbitrage.SwapCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]arbitrage.SwapCall(nil), b.calls...)
}

func (b *Bundle) Transactions() []*types.Transaction {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*types.Transaction(nil), b.txs...)
}

// TxSender is satisfied by eth.Client
type TxSender interface {
	SendTransaction(ctx context.Context, tx *types.Transaction) error
}

// Send broadcasts the legs in order and stops at the first failure
func (b *Bundle) Send(ctx context.Context, s TxSender) ([]common.Hash, error) {
	if b.key == nil {
		return nil, fmt.Errorf("bundle is unsigned")
	}
	txs := b.Transactions()
	hashes := make([]common.Hash, 0, len(txs))
	for i, tx := range txs {
		if err := s.SendTransaction(ctx, tx); err != nil {
			return hashes, fmt.Errorf("send leg %d: %w", i+1, err)
		}
		hashes = append(hashes, tx.Hash())
	}
	return hashes, nil
}
