package emission

import (
	"fmt"

	"emberchain/native/common"
)

var (
	ErrAmountNotPositive     = fmt.Errorf("emission: amount must be positive: %w", common.ErrValidation)
	ErrNilCollaborator       = fmt.Errorf("emission: nil collaborator: %w", common.ErrValidation)
	ErrCollaboratorRebind    = fmt.Errorf("emission: collaborator already bound: %w", common.ErrAlreadyConfigured)
	ErrNoActiveStake         = fmt.Errorf("emission: no active stake: %w", common.ErrState)
	ErrInsufficientStake     = fmt.Errorf("emission: unstake exceeds staked amount: %w", common.ErrState)
	ErrCooldownActive        = fmt.Errorf("emission: claim cooldown not expired: %w", common.ErrState)
	ErrLedgerNotConfigured   = fmt.Errorf("emission: ledger not configured: %w", common.ErrState)
	ErrRegistryNotConfigured = fmt.Errorf("emission: certificate registry not configured: %w", common.ErrState)
	ErrHalvingNotConfigured  = fmt.Errorf("emission: halving controller not configured: %w", common.ErrState)
	ErrReentrantCall         = fmt.Errorf("emission: operation already in progress: %w", common.ErrState)
)
