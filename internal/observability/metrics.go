package observability

import "github.com/prometheus/client_golang/prometheus"

// Pickup scan outcomes, used as the "outcome" label of PickupScans.
const (
	ScanValid     = "valid"
	ScanInvalid   = "invalid"
	ScanForbidden = "forbidden"
	ScanRedeemed  = "redeemed"
	ScanReplayed  = "already_collected"
)

var (
	// RequestTransitions counts request lifecycle transitions by target status.
	// "pending" counts newly filed requests.
	RequestTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_request_transitions_total",
			Help: "Request lifecycle transitions by target status.",
		},
		[]string{"to"},
	)

	// PickupScans counts pickup-code validation and redemption attempts.
	PickupScans = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "exchange_pickup_scans_total",
			Help: "Pickup code scans and redemptions by outcome.",
		},
		[]string{"outcome"},
	)
)

func init() {
	prometheus.MustRegister(RequestTransitions, PickupScans)
}

// RecordTransition increments the transition counter for status to.
func RecordTransition(to string) { RequestTransitions.WithLabelValues(to).Inc() }

// RecordScan increments the scan counter for outcome.
func RecordScan(outcome string) { PickupScans.WithLabelValues(outcome).Inc() }
