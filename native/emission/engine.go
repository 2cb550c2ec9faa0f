package emission

import (
	"math/big"
	"sync"
	"time"

	"emberchain/core/events"
	"emberchain/core/types"
	"emberchain/native/fixedpoint"
	"emberchain/observability/metrics"
)

const (
	secondsPerHour  = 3600
	timeRewardHours = 24
	// legendaryRateCutPercent is the cumulative rate reduction a legendary
	// tier applies on the halving controller.
	legendaryRateCutPercent = 3
)

// Ledger is the balance collaborator the engine moves value through. All
// amounts are wei-style integers at 10^18 scale. The totals are monotonic.
type Ledger interface {
	TransferIn(from [20]byte, amount *big.Int) error
	TransferOut(to [20]byte, amount *big.Int) error
	Mint(to [20]byte, amount *big.Int) error
	BurnFrom(from [20]byte, amount *big.Int) error
	BurnedAmountOf(addr [20]byte) *big.Int
	TotalMinted() *big.Int
	TotalBurned() *big.Int
	TotalSupply() *big.Int
}

// CertificateRegistry persists the immutable burn-boost records.
type CertificateRegistry interface {
	Issue(burner [20]byte, amountBurned, mintPowerBeforeBurn, daoPoints, airdropRights *big.Int, createdAt uint64) (string, error)
}

// HalvingController receives the tier side effects and the post-claim
// threshold check. Calls carry the engine identity as the caller.
type HalvingController interface {
	CheckAndApply(caller [20]byte) (bool, error)
	GrantShield(caller, id [20]byte) (bool, error)
	ConsumeShield(caller, id [20]byte) error
	ReduceRate(pct uint64) error
	RestoreRate(caller [20]byte, pct uint64) error
}

type participantAccount struct {
	staked    *big.Int
	lastClaim uint64
}

// Engine is the emission state machine: stake and unstake bookkeeping, the
// cooldown-gated claim flow, boost composition, tier application and the
// burn-boost recording flow. Every public mutating operation runs under an
// exclusive non-reentrant guard and either commits completely or leaves no
// observable change.
type Engine struct {
	// opMu is the operation guard. It is only ever acquired with TryLock so
	// a collaborator calling back into the engine is rejected instead of
	// deadlocking.
	opMu sync.Mutex
	// stateMu protects the participant map and totals for concurrent
	// readers while an operation is in flight.
	stateMu sync.RWMutex

	addr     [20]byte
	params   Params
	now      func() time.Time
	ledger   Ledger
	registry CertificateRegistry
	halving  HalvingController

	activity *ActivityTracker
	selector *TierSelector

	accounts    map[[20]byte]*participantAccount
	totalStaked *big.Int

	recorder  types.Recorder
	telemetry *metrics.EmissionMetrics
}

// NewEngine constructs an engine operating under the given identity. The
// entropy source may be nil, in which case OS randomness is used.
func NewEngine(addr [20]byte, params Params, entropy EntropySource, recorder types.Recorder) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	return &Engine{
		addr:        addr,
		params:      params,
		now:         time.Now,
		activity:    NewActivityTracker(params.ActivityWindowSeconds),
		selector:    NewTierSelector(entropy),
		accounts:    make(map[[20]byte]*participantAccount),
		totalStaked: big.NewInt(0),
		recorder:    recorder,
		telemetry:   metrics.Emission(),
	}, nil
}

// Address returns the engine identity used when calling collaborators.
func (e *Engine) Address() [20]byte {
	return e.addr
}

// SetClock replaces the time source. Intended for tests and simulations.
func (e *Engine) SetClock(now func() time.Time) {
	if now != nil {
		e.now = now
	}
}

// SetLedger binds the balance ledger. One-time: rebinding a different ledger
// fails, rebinding the same one is a no-op.
func (e *Engine) SetLedger(ledger Ledger) error {
	if ledger == nil {
		return ErrNilCollaborator
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.ledger != nil {
		if e.ledger == ledger {
			return nil
		}
		return ErrCollaboratorRebind
	}
	e.ledger = ledger
	return nil
}

// SetCertificateRegistry binds the burn-boost certificate collaborator.
func (e *Engine) SetCertificateRegistry(registry CertificateRegistry) error {
	if registry == nil {
		return ErrNilCollaborator
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.registry != nil {
		if e.registry == registry {
			return nil
		}
		return ErrCollaboratorRebind
	}
	e.registry = registry
	return nil
}

// SetHalvingController binds the halving controller.
func (e *Engine) SetHalvingController(halving HalvingController) error {
	if halving == nil {
		return ErrNilCollaborator
	}
	e.stateMu.Lock()
	defer e.stateMu.Unlock()
	if e.halving != nil {
		if e.halving == halving {
			return nil
		}
		return ErrCollaboratorRebind
	}
	e.halving = halving
	return nil
}

func (e *Engine) acquire() error {
	if !e.opMu.TryLock() {
		return ErrReentrantCall
	}
	return nil
}

func (e *Engine) nowUnix() uint64 {
	ts := e.now().UTC().Unix()
	if ts < 0 {
		return 0
	}
	return uint64(ts)
}

// Stake locks amount from the participant's ledger balance into engine
// custody. No reward side effects: the claim timestamp only initialises when
// the account is first created.
func (e *Engine) Stake(id [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.opMu.Unlock()
	if e.ledger == nil {
		return ErrLedgerNotConfigured
	}
	if err := e.ledger.TransferIn(id, amount); err != nil {
		return err
	}
	e.stateMu.Lock()
	account, ok := e.accounts[id]
	if !ok {
		account = &participantAccount{staked: big.NewInt(0), lastClaim: e.nowUnix()}
		e.accounts[id] = account
	}
	account.staked.Add(account.staked, amount)
	e.totalStaked.Add(e.totalStaked, amount)
	e.stateMu.Unlock()
	if e.recorder != nil {
		e.recorder.AppendEvent(events.NewStaked(id, amount))
	}
	return nil
}

// Unstake returns amount from engine custody to the participant. The claim
// timestamp is untouched.
func (e *Engine) Unstake(id [20]byte, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return ErrAmountNotPositive
	}
	if err := e.acquire(); err != nil {
		return err
	}
	defer e.opMu.Unlock()
	if e.ledger == nil {
		return ErrLedgerNotConfigured
	}
	e.stateMu.RLock()
	account := e.accounts[id]
	insufficient := account == nil || account.staked.Cmp(amount) < 0
	e.stateMu.RUnlock()
	if insufficient {
		return ErrInsufficientStake
	}
	if err := e.ledger.TransferOut(id, amount); err != nil {
		return err
	}
	e.stateMu.Lock()
	account.staked.Sub(account.staked, amount)
	e.totalStaked.Sub(e.totalStaked, amount)
	e.stateMu.Unlock()
	if e.recorder != nil {
		e.recorder.AppendEvent(events.NewUnstaked(id, amount))
	}
	return nil
}

// ClaimReward settles a cooldown-gated claim: time reward capped at 24 hours,
// stake and burn boosts, randomized tier, mint, and the tier's halving side
// effect. The operation is all-or-nothing: any collaborator failure restores
// every mutation made on the way.
func (e *Engine) ClaimReward(id [20]byte) (*big.Int, Tier, error) {
	if err := e.acquire(); err != nil {
		return nil, Tier{}, err
	}
	defer e.opMu.Unlock()
	if e.ledger == nil {
		return nil, Tier{}, ErrLedgerNotConfigured
	}
	if e.halving == nil {
		return nil, Tier{}, ErrHalvingNotConfigured
	}

	e.stateMu.RLock()
	account := e.accounts[id]
	noStake := account == nil || account.staked.Sign() == 0
	e.stateMu.RUnlock()
	if noStake {
		return nil, Tier{}, ErrNoActiveStake
	}

	now := e.nowUnix()
	cooldown := e.cooldownSeconds()
	if now < account.lastClaim+cooldown {
		return nil, Tier{}, ErrCooldownActive
	}

	// Snapshot the state the claim mutates so a failed external call can
	// unwind to exactly the pre-claim picture.
	prevLastClaim := account.lastClaim
	prevNonce := e.selector.NonceOf(id)
	prevEntries, prevIndex := e.activity.snapshot()
	restoreLocal := func() {
		e.stateMu.Lock()
		account.lastClaim = prevLastClaim
		e.selector.setNonce(id, prevNonce)
		e.activity.restore(prevEntries, prevIndex)
		e.stateMu.Unlock()
	}

	e.stateMu.Lock()
	e.activity.Refresh(id, now)
	activeCount := e.activity.ActiveCount()

	elapsed := now - account.lastClaim
	timeReward := timeRewardFor(elapsed, e.params.BaseRatePerHour)
	stakeBoost := stakeBoostOf(account.staked)
	burnBoost := e.burnBoostScaled(id)

	rawMintPower := new(big.Int).Mul(timeReward, new(big.Int).SetUint64(stakeBoost))
	effectiveMintPower := new(big.Int).Mul(rawMintPower, burnBoost)
	effectiveMintPower.Quo(effectiveMintPower, fixedpoint.RatioPrecision())

	finalReward, tier := e.selector.Draw(id, effectiveMintPower, now)
	account.lastClaim = now
	stakedSnapshot := new(big.Int).Set(account.staked)
	e.stateMu.Unlock()

	// Tier side effects run before the mint so both halves can be unwound:
	// the shield via consume, the rate cut via restore, the mint not at all.
	shieldNewlyGranted := false
	switch tier.ID {
	case 2:
		granted, err := e.halving.GrantShield(e.addr, id)
		if err != nil {
			restoreLocal()
			return nil, Tier{}, err
		}
		shieldNewlyGranted = granted
	case 3:
		if err := e.halving.ReduceRate(legendaryRateCutPercent); err != nil {
			restoreLocal()
			return nil, Tier{}, err
		}
	}

	mintAmount := new(big.Int).Mul(finalReward, fixedpoint.TokenScale())
	if err := e.ledger.Mint(id, mintAmount); err != nil {
		if shieldNewlyGranted {
			_ = e.halving.ConsumeShield(e.addr, id)
		}
		if tier.ID == 3 {
			_ = e.halving.RestoreRate(e.addr, legendaryRateCutPercent)
		}
		restoreLocal()
		return nil, Tier{}, err
	}

	if e.recorder != nil {
		e.recorder.AppendEvent(events.NewRewardClaimed(id, elapsed, stakedSnapshot, effectiveMintPower, finalReward, tier.ID, cooldown))
	}
	e.telemetry.ObserveClaim(tier.ID, float64(finalReward.Uint64()))
	e.telemetry.SetActiveParticipants(activeCount)
	e.telemetry.SetCooldownSeconds(e.cooldownSeconds())
	return finalReward, tier, nil
}

// BoostBurn destroys amount from the participant's balance and issues the
// certificate snapshotting the mint power as of just before the burn. The
// burn runs first so insufficient balance or allowance fails fast; the
// pre-burn cumulative is then recovered from the post-burn reading.
func (e *Engine) BoostBurn(id [20]byte, amount *big.Int) (string, error) {
	if amount == nil || amount.Sign() <= 0 {
		return "", ErrAmountNotPositive
	}
	if err := e.acquire(); err != nil {
		return "", err
	}
	defer e.opMu.Unlock()
	if e.ledger == nil {
		return "", ErrLedgerNotConfigured
	}
	if e.registry == nil {
		return "", ErrRegistryNotConfigured
	}

	if err := e.ledger.BurnFrom(id, amount); err != nil {
		return "", err
	}
	cumulativeBefore := new(big.Int).Sub(e.ledger.BurnedAmountOf(id), amount)

	e.stateMu.RLock()
	staked := big.NewInt(0)
	if account := e.accounts[id]; account != nil {
		staked = new(big.Int).Set(account.staked)
	}
	e.stateMu.RUnlock()

	stakeBoost := stakeBoostOf(staked)
	burnBoost := burnBoostScaledFrom(cumulativeBefore)

	// Snapshot metric uses the canonical 24h reward ceiling, not actual
	// elapsed time.
	mintPowerBeforeBurn := new(big.Int).SetUint64(e.params.BaseRatePerHour * timeRewardHours)
	mintPowerBeforeBurn.Mul(mintPowerBeforeBurn, new(big.Int).SetUint64(stakeBoost))
	mintPowerBeforeBurn.Mul(mintPowerBeforeBurn, burnBoost)
	mintPowerBeforeBurn.Quo(mintPowerBeforeBurn, fixedpoint.RatioPrecision())

	amountBase := new(big.Int).Quo(amount, fixedpoint.TokenScale())
	daoPoints := new(big.Int).Mul(amountBase, big.NewInt(4))
	airdropRights := new(big.Int).Set(amountBase)

	recordID, err := e.registry.Issue(id, amount, mintPowerBeforeBurn, daoPoints, airdropRights, e.nowUnix())
	if err != nil {
		return "", err
	}
	if e.recorder != nil {
		e.recorder.AppendEvent(events.NewBurnedForBoost(id, amount, recordID))
	}
	e.telemetry.ObserveBurnBoost()
	return recordID, nil
}

// CheckHalving asks the halving controller to evaluate the minted total
// against the current threshold under the engine's authority.
func (e *Engine) CheckHalving() (bool, error) {
	if err := e.acquire(); err != nil {
		return false, err
	}
	defer e.opMu.Unlock()
	if e.halving == nil {
		return false, ErrHalvingNotConfigured
	}
	return e.halving.CheckAndApply(e.addr)
}

// Cooldown returns the congestion-adjusted claim cooldown in seconds.
func (e *Engine) Cooldown() uint64 {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.cooldownSeconds()
}

func (e *Engine) cooldownSeconds() uint64 {
	reduction := e.params.CooldownPerActiveSeconds * uint64(e.activity.ActiveCount())
	if reduction >= e.params.CooldownCeilingSeconds {
		return e.params.CooldownFloorSeconds
	}
	cooldown := e.params.CooldownCeilingSeconds - reduction
	if cooldown < e.params.CooldownFloorSeconds {
		return e.params.CooldownFloorSeconds
	}
	return cooldown
}

// StakedAmountOf returns the participant's locked balance.
func (e *Engine) StakedAmountOf(id [20]byte) *big.Int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	if account := e.accounts[id]; account != nil {
		return new(big.Int).Set(account.staked)
	}
	return big.NewInt(0)
}

// LastClaimOf returns the participant's last claim timestamp in unix seconds.
func (e *Engine) LastClaimOf(id [20]byte) uint64 {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	if account := e.accounts[id]; account != nil {
		return account.lastClaim
	}
	return 0
}

// TotalStaked returns the engine-wide staked total. Implements the halving
// controller's stake view.
func (e *Engine) TotalStaked() *big.Int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return new(big.Int).Set(e.totalStaked)
}

// ActiveParticipants returns the current activity-window population.
func (e *Engine) ActiveParticipants() int {
	e.stateMu.RLock()
	defer e.stateMu.RUnlock()
	return e.activity.ActiveCount()
}

// timeRewardFor converts elapsed wait into base units, capped at the 24 hour
// ceiling. Any positive wait yields at least one unit once eligibility is
// met.
func timeRewardFor(elapsedSeconds, baseRatePerHour uint64) *big.Int {
	elapsed := new(big.Int).SetUint64(elapsedSeconds)
	rate := new(big.Int).SetUint64(baseRatePerHour)
	reward := new(big.Int).Mul(elapsed, rate)
	reward.Quo(reward, big.NewInt(secondsPerHour))
	ceiling := new(big.Int).Mul(rate, big.NewInt(timeRewardHours))
	if reward.Cmp(ceiling) > 0 {
		reward = ceiling
	}
	if elapsedSeconds > 0 && reward.Sign() == 0 {
		reward = big.NewInt(1)
	}
	return reward
}

// stakeBoostOf derives the integer stake multiplier from the staked amount:
// one for sub-unit stakes, otherwise one plus the decade bracket of the
// staked base units plus one.
func stakeBoostOf(staked *big.Int) uint64 {
	base := new(big.Int).Quo(staked, fixedpoint.TokenScale())
	if base.Sign() == 0 {
		return 1
	}
	return 1 + fixedpoint.DecadeBracket(new(big.Int).Add(base, big.NewInt(1)))
}

func (e *Engine) burnBoostScaled(id [20]byte) *big.Int {
	return burnBoostScaledFrom(e.ledger.BurnedAmountOf(id))
}

// burnBoostScaledFrom computes PRECISION + 0.7*sqrt(burned base units),
// expressed at PRECISION scale. The sqrt input is pre-scaled by PRECISION^2
// so the root comes out at PRECISION scale directly.
func burnBoostScaledFrom(cumulativeBurned *big.Int) *big.Int {
	precision := fixedpoint.RatioPrecision()
	if cumulativeBurned == nil || cumulativeBurned.Sign() <= 0 {
		return precision
	}
	base := new(big.Int).Quo(cumulativeBurned, fixedpoint.TokenScale())
	if base.Sign() == 0 {
		return precision
	}
	scaled := new(big.Int).Mul(base, precision)
	scaled.Mul(scaled, precision)
	root, err := fixedpoint.Sqrt(scaled)
	if err != nil {
		return precision
	}
	boost := new(big.Int).Mul(root, big.NewInt(7))
	boost.Quo(boost, big.NewInt(10))
	boost.Add(boost, precision)
	return boost
}
