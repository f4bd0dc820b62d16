// Package metrics exposes prometheus counters for security-relevant session events.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "auth"

var (
	Logins = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "logins_total",
		Help:      "Login attempts by result.",
	}, []string{"result"})

	Refreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refreshes_total",
		Help:      "Refresh token rotations by result.",
	}, []string{"result"})

	RefreshReuseDetected = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "refresh_reuse_detected_total",
		Help:      "Refresh attempts presenting a token that no longer exists.",
	})

	GlobalRevocations = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "global_revocations_total",
		Help:      "Calls that advanced a user's token version.",
	})

	VerificationTokens = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "verification_tokens_total",
		Help:      "Single-use token events by type and result.",
	}, []string{"type", "result"})

	TokensSwept = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "tokens_swept_total",
		Help:      "Tokens removed by the periodic sweeper.",
	}, []string{"kind"})
)

// Registry holds only this service's collectors plus the Go runtime ones.
var Registry = prometheus.NewRegistry()

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		Logins,
		Refreshes,
		RefreshReuseDetected,
		GlobalRevocations,
		VerificationTokens,
		TokensSwept,
	)
}

// Handler serves the registry in the prometheus exposition format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}
