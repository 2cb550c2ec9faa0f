package metrics

import (
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// EmissionMetrics captures telemetry for the reward engine and the halving
// controller.
type EmissionMetrics struct {
	claims             *prometheus.CounterVec
	rewardsMinted      prometheus.Counter
	burnBoosts         prometheus.Counter
	activeParticipants prometheus.Gauge
	cooldownSeconds    prometheus.Gauge
	halvings           prometheus.Counter
	shieldsGranted     prometheus.Counter
	shieldsConsumed    prometheus.Counter
	rateReductions     prometheus.Counter
}

var (
	emissionOnce     sync.Once
	emissionRegistry *EmissionMetrics
)

// Emission returns the lazily-initialised emission metrics registry.
func Emission() *EmissionMetrics {
	emissionOnce.Do(func() {
		emissionRegistry = &EmissionMetrics{
			claims: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "emission_claims_total",
				Help: "Count of settled reward claims segmented by tier.",
			}, []string{"tier"}),
			rewardsMinted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "emission_rewards_minted_base_units_total",
				Help: "Total reward emission in base token units.",
			}),
			burnBoosts: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "emission_burn_boosts_total",
				Help: "Count of burn-boost certificates issued.",
			}),
			activeParticipants: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "emission_active_participants",
				Help: "Participants inside the rolling activity window.",
			}),
			cooldownSeconds: prometheus.NewGauge(prometheus.GaugeOpts{
				Name: "emission_cooldown_seconds",
				Help: "Current congestion-adjusted claim cooldown.",
			}),
			halvings: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "halving_triggered_total",
				Help: "Count of halving threshold crossings.",
			}),
			shieldsGranted: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "halving_shields_granted_total",
				Help: "Count of anti-halving shields granted by epic tiers.",
			}),
			shieldsConsumed: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "halving_shields_consumed_total",
				Help: "Count of anti-halving shields spent.",
			}),
			rateReductions: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "halving_rate_reductions_total",
				Help: "Count of cumulative emission-rate reductions.",
			}),
		}
		prometheus.MustRegister(
			emissionRegistry.claims,
			emissionRegistry.rewardsMinted,
			emissionRegistry.burnBoosts,
			emissionRegistry.activeParticipants,
			emissionRegistry.cooldownSeconds,
			emissionRegistry.halvings,
			emissionRegistry.shieldsGranted,
			emissionRegistry.shieldsConsumed,
			emissionRegistry.rateReductions,
		)
	})
	return emissionRegistry
}

// ObserveClaim records a settled claim and its payout in base units.
func (m *EmissionMetrics) ObserveClaim(tier uint8, rewardBaseUnits float64) {
	if m == nil {
		return
	}
	m.claims.WithLabelValues(strconv.FormatUint(uint64(tier), 10)).Inc()
	if rewardBaseUnits > 0 {
		m.rewardsMinted.Add(rewardBaseUnits)
	}
}

// ObserveBurnBoost records an issued burn-boost certificate.
func (m *EmissionMetrics) ObserveBurnBoost() {
	if m == nil {
		return
	}
	m.burnBoosts.Inc()
}

// SetActiveParticipants publishes the current activity-window population.
func (m *EmissionMetrics) SetActiveParticipants(count int) {
	if m == nil {
		return
	}
	m.activeParticipants.Set(float64(count))
}

// SetCooldownSeconds publishes the current claim cooldown.
func (m *EmissionMetrics) SetCooldownSeconds(seconds uint64) {
	if m == nil {
		return
	}
	m.cooldownSeconds.Set(float64(seconds))
}

// ObserveHalving records a halving threshold crossing.
func (m *EmissionMetrics) ObserveHalving() {
	if m == nil {
		return
	}
	m.halvings.Inc()
}

// ObserveShieldGranted records a shield grant.
func (m *EmissionMetrics) ObserveShieldGranted() {
	if m == nil {
		return
	}
	m.shieldsGranted.Inc()
}

// ObserveShieldConsumed records a shield spend.
func (m *EmissionMetrics) ObserveShieldConsumed() {
	if m == nil {
		return
	}
	m.shieldsConsumed.Inc()
}

// ObserveRateReduction records an emission-rate reduction.
func (m *EmissionMetrics) ObserveRateReduction() {
	if m == nil {
		return
	}
	m.rateReductions.Inc()
}
