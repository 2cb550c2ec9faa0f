package emission

import "fmt"

// Params controls the reward engine's emission schedule and cooldown curve.
type Params struct {
	// BaseRatePerHour is the base-unit reward accrued per hour of wait time
	// before boosts and tier multipliers.
	BaseRatePerHour uint64
	// CooldownCeilingSeconds is the claim cooldown with an empty activity
	// window.
	CooldownCeilingSeconds uint64
	// CooldownFloorSeconds bounds how far congestion can shrink the cooldown.
	CooldownFloorSeconds uint64
	// CooldownPerActiveSeconds is the reduction applied per active
	// participant.
	CooldownPerActiveSeconds uint64
	// ActivityWindowSeconds is the rolling window in which a participant
	// counts as active.
	ActivityWindowSeconds uint64
}

// DefaultParams returns the production emission parameters: one base unit per
// hour, a 15 minute cooldown shrinking by 12s per active participant down to
// one minute, and a 24 hour activity window.
func DefaultParams() Params {
	return Params{
		BaseRatePerHour:          1,
		CooldownCeilingSeconds:   900,
		CooldownFloorSeconds:     60,
		CooldownPerActiveSeconds: 12,
		ActivityWindowSeconds:    24 * 60 * 60,
	}
}

// Validate ensures the supplied parameters fall within safe operating ranges.
func (p Params) Validate() error {
	if p.BaseRatePerHour == 0 {
		return fmt.Errorf("base rate per hour must be positive")
	}
	if p.CooldownFloorSeconds == 0 || p.CooldownCeilingSeconds < p.CooldownFloorSeconds {
		return fmt.Errorf("cooldown ceiling must be at least the floor and the floor positive")
	}
	if p.ActivityWindowSeconds == 0 {
		return fmt.Errorf("activity window must be positive")
	}
	return nil
}
