package halving

import (
	"math/big"
	"sync"

	"emberchain/core/events"
	"emberchain/core/types"
	"emberchain/native/fixedpoint"
	"emberchain/observability/metrics"
)

const (
	// baseRatePercent is the halving rate before the staking-ratio adjustment.
	baseRatePercent = 50
	// rateCeilingPercent caps the advisory adjusted rate.
	rateCeilingPercent = 80
)

var (
	// initialThreshold is the minted total at which the first halving fires:
	// 21,000,000 whole tokens.
	initialThreshold = new(big.Int).Mul(big.NewInt(21_000_000), fixedpoint.TokenScale())
	// burnScale normalises the global burned total when recomputing the
	// threshold: 2,100,000,000 whole tokens.
	burnScale = new(big.Int).Mul(big.NewInt(2_100_000_000), fixedpoint.TokenScale())
)

// StatsSource exposes the global emission statistics the controller reads.
// The totals are monotonic; the controller never writes through this view.
type StatsSource interface {
	TotalMinted() *big.Int
	TotalBurned() *big.Int
	TotalSupply() *big.Int
}

// StakeView exposes the engine-wide staked total used by the adjusted rate.
type StakeView interface {
	TotalStaked() *big.Int
}

// Controller owns the emission-threshold and emission-rate state. Thresholds
// only move upward from cumulative burns, the halving count and the rate-cut
// accumulator only grow, and shields are simple per-participant flags.
type Controller struct {
	mu          sync.Mutex
	owner       [20]byte
	engine      [20]byte
	engineBound bool
	stats       StatsSource
	stake       StakeView

	threshold *big.Int
	count     uint64
	// rateCutPercent is the cumulative emission-rate reduction accumulated
	// from legendary claim tiers. Unbounded here; the adjusted rate clamps.
	rateCutPercent uint64
	shields        map[[20]byte]struct{}

	recorder  types.Recorder
	telemetry *metrics.EmissionMetrics
}

// NewController constructs a controller bound to the owner identity with the
// threshold at its initial value.
func NewController(owner [20]byte, recorder types.Recorder) *Controller {
	return &Controller{
		owner:     owner,
		threshold: new(big.Int).Set(initialThreshold),
		shields:   make(map[[20]byte]struct{}),
		recorder:  recorder,
		telemetry: metrics.Emission(),
	}
}

// SetRewardEngine registers the reward engine identity. One-time binding:
// re-setting the same address is a no-op, a different address is rejected.
func (c *Controller) SetRewardEngine(engine [20]byte) error {
	if engine == ([20]byte{}) {
		return ErrZeroAddress
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.engineBound {
		if c.engine == engine {
			return nil
		}
		return ErrCollaboratorRebind
	}
	c.engine = engine
	c.engineBound = true
	return nil
}

// SetStatsSource binds the global emission statistics view.
func (c *Controller) SetStatsSource(stats StatsSource) error {
	if stats == nil {
		return ErrNilCollaborator
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stats != nil {
		if c.stats == stats {
			return nil
		}
		return ErrCollaboratorRebind
	}
	c.stats = stats
	return nil
}

// SetStakeView binds the staked-total view.
func (c *Controller) SetStakeView(stake StakeView) error {
	if stake == nil {
		return ErrNilCollaborator
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stake != nil {
		if c.stake == stake {
			return nil
		}
		return ErrCollaboratorRebind
	}
	c.stake = stake
	return nil
}

func (c *Controller) authorizedLocked(caller [20]byte) bool {
	if caller == c.owner {
		return true
	}
	return c.engineBound && caller == c.engine
}

// CheckAndApply recomputes the threshold when the minted total has crossed
// it. Returns true when a halving fired.
func (c *Controller) CheckAndApply(caller [20]byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedLocked(caller) {
		return false, ErrUnauthorized
	}
	if c.stats == nil {
		return false, ErrStatsNotConfigured
	}
	minted := c.stats.TotalMinted()
	if minted == nil || minted.Cmp(c.threshold) < 0 {
		return false, nil
	}
	rate, err := c.adjustedRateLocked()
	if err != nil {
		return false, err
	}
	c.count++
	burned := c.stats.TotalBurned()
	if burned == nil {
		burned = big.NewInt(0)
	}
	precision := fixedpoint.RatioPrecision()
	// newThreshold = INITIAL * (PRECISION + burned*PRECISION/BURN_SCALE) / PRECISION
	growth := new(big.Int).Mul(burned, precision)
	growth.Quo(growth, burnScale)
	growth.Add(growth, precision)
	next := new(big.Int).Mul(initialThreshold, growth)
	next.Quo(next, precision)
	c.threshold = next

	if c.recorder != nil {
		c.recorder.AppendEvent(events.NewHalvingTriggered(new(big.Int).Set(c.threshold), rate, c.count))
	}
	c.telemetry.ObserveHalving()
	return true, nil
}

// GrantShield flags the participant as shield holder. Granting an already
// held shield is a no-op success; the boolean reports whether the flag was
// newly set.
func (c *Controller) GrantShield(caller, id [20]byte) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedLocked(caller) {
		return false, ErrUnauthorized
	}
	if _, held := c.shields[id]; held {
		return false, nil
	}
	c.shields[id] = struct{}{}
	if c.recorder != nil {
		c.recorder.AppendEvent(events.NewShieldGranted(id))
	}
	c.telemetry.ObserveShieldGranted()
	return true, nil
}

// ConsumeShield clears the participant's shield flag, failing when none is
// held.
func (c *Controller) ConsumeShield(caller, id [20]byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.authorizedLocked(caller) {
		return ErrUnauthorized
	}
	if _, held := c.shields[id]; !held {
		return ErrShieldAbsent
	}
	delete(c.shields, id)
	if c.recorder != nil {
		c.recorder.AppendEvent(events.NewShieldConsumed(id))
	}
	c.telemetry.ObserveShieldConsumed()
	return nil
}

// HasShield reports whether the participant currently holds a shield.
func (c *Controller) HasShield(id [20]byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, held := c.shields[id]
	return held
}

// ReduceRate accumulates a cumulative emission-rate reduction. The
// accumulator is unbounded at this layer; AdjustedRate bounds the result.
func (c *Controller) ReduceRate(pct uint64) error {
	if pct == 0 {
		return ErrRateNotPositive
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.rateCutPercent += pct
	if c.recorder != nil {
		c.recorder.AppendEvent(events.NewRateReduced(pct, c.rateCutPercent))
	}
	c.telemetry.ObserveRateReduction()
	return nil
}

// RestoreRate backs out a reduction applied inside an operation that
// subsequently failed. Restricted to the registered reward engine so the
// accumulator stays monotonic for every committed operation.
func (c *Controller) RestoreRate(caller [20]byte, pct uint64) error {
	if pct == 0 {
		return ErrRateNotPositive
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if !(c.engineBound && caller == c.engine) {
		return ErrUnauthorized
	}
	if pct > c.rateCutPercent {
		return ErrRestoreExceedsAccrued
	}
	c.rateCutPercent -= pct
	return nil
}

// AdjustedRate reports the advisory emission rate in whole percent: the base
// rate lifted by the staking ratio, lowered by the accumulated reductions,
// floored at zero and capped at the ceiling.
func (c *Controller) AdjustedRate() (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.adjustedRateLocked()
}

func (c *Controller) adjustedRateLocked() (uint64, error) {
	if c.stake == nil {
		return 0, ErrStakeNotConfigured
	}
	if c.stats == nil {
		return 0, ErrStatsNotConfigured
	}
	precision := fixedpoint.RatioPrecision()
	supply := c.stats.TotalSupply()
	ratio := big.NewInt(0)
	if supply != nil && supply.Sign() > 0 {
		staked := c.stake.TotalStaked()
		if staked == nil {
			staked = big.NewInt(0)
		}
		ratio = new(big.Int).Mul(staked, precision)
		ratio.Quo(ratio, supply)
	}
	// rate = 50 * (PRECISION + ratio/10) / PRECISION
	boosted := new(big.Int).Quo(ratio, big.NewInt(10))
	boosted.Add(boosted, precision)
	boosted.Mul(boosted, big.NewInt(baseRatePercent))
	boosted.Quo(boosted, precision)
	rate := boosted.Uint64()
	if c.rateCutPercent >= rate {
		rate = 0
	} else {
		rate -= c.rateCutPercent
	}
	if rate > rateCeilingPercent {
		rate = rateCeilingPercent
	}
	return rate, nil
}

// Threshold returns the current halving threshold.
func (c *Controller) Threshold() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return new(big.Int).Set(c.threshold)
}

// Count returns the number of halvings applied so far.
func (c *Controller) Count() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

// RateCutPercent returns the cumulative emission-rate reduction.
func (c *Controller) RateCutPercent() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rateCutPercent
}

// InitialThreshold returns the genesis halving threshold.
func InitialThreshold() *big.Int {
	return new(big.Int).Set(initialThreshold)
}
