package ledger

import (
	"fmt"

	"emberchain/native/common"
)

var (
	ErrAmountNotPositive     = fmt.Errorf("ledger: amount must be positive: %w", common.ErrValidation)
	ErrZeroAddress           = fmt.Errorf("ledger: zero address: %w", common.ErrValidation)
	ErrInsufficientBalance   = fmt.Errorf("ledger: insufficient balance: %w", common.ErrState)
	ErrInsufficientAllowance = fmt.Errorf("ledger: insufficient allowance: %w", common.ErrState)
	ErrInsufficientCustody   = fmt.Errorf("ledger: insufficient custody pool: %w", common.ErrState)
	ErrEngineRebind          = fmt.Errorf("ledger: engine already bound: %w", common.ErrAlreadyConfigured)
)
