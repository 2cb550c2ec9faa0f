package certificate

import (
	"fmt"

	"emberchain/native/common"
)

var (
	ErrZeroAddress    = fmt.Errorf("certificate: zero address: %w", common.ErrValidation)
	ErrInvalidRecord  = fmt.Errorf("certificate: invalid record: %w", common.ErrValidation)
	ErrEngineRebind   = fmt.Errorf("certificate: engine already bound: %w", common.ErrAlreadyConfigured)
	ErrRecordNotFound = fmt.Errorf("certificate: record not found: %w", common.ErrState)
)
