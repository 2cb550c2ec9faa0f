package events

import (
	"encoding/hex"
	"math/big"
	"strconv"

	"emberchain/core/types"
)

const (
	// TypeStaked is emitted when a participant locks balance with the engine.
	TypeStaked = "emission.staked"
	// TypeUnstaked is emitted when a participant withdraws locked balance.
	TypeUnstaked = "emission.unstaked"
	// TypeRewardClaimed is emitted after a successful claim settles.
	TypeRewardClaimed = "emission.reward_claimed"
	// TypeBurnedForBoost is emitted when a burn-boost record is issued.
	TypeBurnedForBoost = "emission.burned_for_boost"
	// TypeHalvingTriggered is emitted when the emission threshold is crossed
	// and recomputed.
	TypeHalvingTriggered = "halving.triggered"
	// TypeShieldGranted is emitted when an epic claim tier grants the
	// anti-halving shield.
	TypeShieldGranted = "halving.shield_granted"
	// TypeShieldConsumed is emitted when a held shield is spent.
	TypeShieldConsumed = "halving.shield_consumed"
	// TypeRateReduced is emitted when the cumulative emission-rate reduction
	// accumulator advances.
	TypeRateReduced = "halving.rate_reduced"
)

func addrAttr(addr [20]byte) string {
	return "0x" + hex.EncodeToString(addr[:])
}

func amountAttr(amount *big.Int) string {
	if amount == nil {
		return "0"
	}
	return amount.String()
}

// NewStaked builds the event recorded for a successful stake.
func NewStaked(addr [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: TypeStaked, Attributes: map[string]string{
		"participant": addrAttr(addr),
		"amount":      amountAttr(amount),
	}}
}

// NewUnstaked builds the event recorded for a successful unstake.
func NewUnstaked(addr [20]byte, amount *big.Int) *types.Event {
	return &types.Event{Type: TypeUnstaked, Attributes: map[string]string{
		"participant": addrAttr(addr),
		"amount":      amountAttr(amount),
	}}
}

// NewRewardClaimed builds the event describing a settled claim.
func NewRewardClaimed(addr [20]byte, elapsed uint64, staked, effectiveMintPower, finalReward *big.Int, tierID uint8, cooldownUsed uint64) *types.Event {
	return &types.Event{Type: TypeRewardClaimed, Attributes: map[string]string{
		"participant":        addrAttr(addr),
		"elapsedSeconds":     strconv.FormatUint(elapsed, 10),
		"stakedAmount":       amountAttr(staked),
		"effectiveMintPower": amountAttr(effectiveMintPower),
		"finalReward":        amountAttr(finalReward),
		"tier":               strconv.FormatUint(uint64(tierID), 10),
		"cooldownUsed":       strconv.FormatUint(cooldownUsed, 10),
	}}
}

// NewBurnedForBoost builds the event recorded when a burn-boost certificate is
// issued.
func NewBurnedForBoost(addr [20]byte, amount *big.Int, recordID string) *types.Event {
	return &types.Event{Type: TypeBurnedForBoost, Attributes: map[string]string{
		"participant": addrAttr(addr),
		"amount":      amountAttr(amount),
		"recordId":    recordID,
	}}
}

// NewHalvingTriggered builds the event recorded when a halving fires.
func NewHalvingTriggered(newThreshold *big.Int, newRate uint64, count uint64) *types.Event {
	return &types.Event{Type: TypeHalvingTriggered, Attributes: map[string]string{
		"newThreshold": amountAttr(newThreshold),
		"newRate":      strconv.FormatUint(newRate, 10),
		"count":        strconv.FormatUint(count, 10),
	}}
}

// NewShieldGranted builds the event recorded when a shield is granted.
func NewShieldGranted(addr [20]byte) *types.Event {
	return &types.Event{Type: TypeShieldGranted, Attributes: map[string]string{
		"participant": addrAttr(addr),
	}}
}

// NewShieldConsumed builds the event recorded when a shield is spent.
func NewShieldConsumed(addr [20]byte) *types.Event {
	return &types.Event{Type: TypeShieldConsumed, Attributes: map[string]string{
		"participant": addrAttr(addr),
	}}
}

// NewRateReduced builds the event recorded when the rate-reduction
// accumulator advances.
func NewRateReduced(delta, cumulative uint64) *types.Event {
	return &types.Event{Type: TypeRateReduced, Attributes: map[string]string{
		"delta":      strconv.FormatUint(delta, 10),
		"cumulative": strconv.FormatUint(cumulative, 10),
	}}
}
