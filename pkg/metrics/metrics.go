package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records activity-trace and settlement outcomes.
type Metrics struct {
	samplesRecorded    *prometheus.CounterVec
	settlements        *prometheus.CounterVec
	settlementDuration prometheus.Histogram
	verificationMails  *prometheus.CounterVec
}

// New registers the service metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	samples := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_samples_recorded",
		Help: "Activity trace samples accepted, by write outcome.",
	}, []string{"outcome"})
	settlements := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "activity_settlements",
		Help: "Session settlement runs by result.",
	}, []string{"result"})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "activity_settlement_duration_seconds",
		Help:    "Duration of session settlements in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	mails := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verification_mails_sent",
		Help: "Verification emails sent, by mode.",
	}, []string{"mode"})
	reg.MustRegister(samples, settlements, duration, mails)
	return &Metrics{
		samplesRecorded:    samples,
		settlements:        settlements,
		settlementDuration: duration,
		verificationMails:  mails,
	}
}

// IncSampleRecorded counts one trace write with the given outcome
// ("stored" or "duplicate").
func (m *Metrics) IncSampleRecorded(outcome string) {
	if m == nil || m.samplesRecorded == nil {
		return
	}
	m.samplesRecorded.WithLabelValues(normalizeLabel(outcome)).Inc()
}

// IncSettlement counts one settlement run with the given result
// ("settled", "empty" or "failed").
func (m *Metrics) IncSettlement(result string) {
	if m == nil || m.settlements == nil {
		return
	}
	m.settlements.WithLabelValues(normalizeLabel(result)).Inc()
}

// ObserveSettlementDuration records how long a settlement took.
func (m *Metrics) ObserveSettlementDuration(duration time.Duration) {
	if m == nil || m.settlementDuration == nil {
		return
	}
	m.settlementDuration.Observe(duration.Seconds())
}

// IncVerificationMail counts one verification email for the given mode.
func (m *Metrics) IncVerificationMail(mode string) {
	if m == nil || m.verificationMails == nil {
		return
	}
	m.verificationMails.WithLabelValues(normalizeLabel(mode)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
