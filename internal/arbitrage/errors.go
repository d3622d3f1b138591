package arbitrage

import "errors"

var (
	ErrNoArbitrageOpportunity = errors.New("no arbitrage opportunity")
	ErrInvalidAccount         = errors.New("invalid account data")
	ErrTokenMintMismatch      = errors.New("token mismatch")
	ErrOverflow               = errors.New("arithmetic overflow")
	ErrInsufficientLiquidity  = errors.New("insufficient liquidity")
	ErrVerificationFailed     = errors.New("arbitrage verification failed")
	ErrExecutionFailed        = errors.New("swap execution failed")
	ErrNoExecutor             = errors.New("pool has no executor")
)
