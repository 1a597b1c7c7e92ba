// Package services – relay instrumentation
//
// Prometheus counters for both directions of the relay. Labels are
// restricted to small enumerations (pipeline outcomes and admin-reply
// results) to keep cardinality bounded.
package services

import "github.com/prometheus/client_golang/prometheus"

var (
	// userMessages counts inbound user messages by pipeline outcome.
	userMessages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_user_messages_total",
			Help: "Inbound user messages by pipeline outcome.",
		},
		[]string{"outcome"},
	)

	// adminReplies counts inbound admin-chat replies by handling result.
	adminReplies = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "relay_admin_replies_total",
			Help: "Inbound admin-chat replies by handling result.",
		},
		[]string{"result"},
	)
)

// Outcome label values for userMessages.
const (
	outcomeRelayed       = "relayed"
	outcomeBanned        = "banned"
	outcomeThrottled     = "throttled"
	outcomeSoftBanned    = "soft_banned"
	outcomeNeedsCategory = "needs_category"
	outcomeForwardFailed = "forward_failed"
	outcomeStoreError    = "store_error"
)

// Result label values for adminReplies.
const (
	resultIgnored     = "ignored"
	resultUnsupported = "unsupported"
	resultBan         = "ban"
	resultLog         = "log"
	resultReplied     = "replied"
	resultError       = "error"
)

func init() {
	prometheus.MustRegister(userMessages, adminReplies)
}
