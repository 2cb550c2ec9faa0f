package halving

import (
	"fmt"

	"emberchain/native/common"
)

var (
	ErrUnauthorized         = fmt.Errorf("halving: caller is not owner or reward engine: %w", common.ErrAuthorization)
	ErrRateNotPositive      = fmt.Errorf("halving: rate reduction must be positive: %w", common.ErrValidation)
	ErrNilCollaborator      = fmt.Errorf("halving: nil collaborator: %w", common.ErrValidation)
	ErrZeroAddress          = fmt.Errorf("halving: zero address: %w", common.ErrValidation)
	ErrCollaboratorRebind   = fmt.Errorf("halving: collaborator already bound: %w", common.ErrAlreadyConfigured)
	ErrShieldAbsent         = fmt.Errorf("halving: shield not held: %w", common.ErrState)
	ErrStatsNotConfigured   = fmt.Errorf("halving: emission stats source not configured: %w", common.ErrState)
	ErrStakeNotConfigured   = fmt.Errorf("halving: stake view not configured: %w", common.ErrState)
	ErrRestoreExceedsAccrued = fmt.Errorf("halving: restore exceeds accrued reduction: %w", common.ErrState)
)
