// Package metrics holds the prometheus collectors of the admin client.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// TokenRefreshes counts refresh attempts by outcome
	// (success, no_token, unauthorized, transient).
	TokenRefreshes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restoadmin",
		Name:      "token_refresh_total",
		Help:      "Access token refresh attempts by outcome.",
	}, []string{"outcome"})

	// ProfileFetches counts profile fetches by outcome.
	ProfileFetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restoadmin",
		Name:      "profile_fetch_total",
		Help:      "Current-user profile fetches by outcome.",
	}, []string{"outcome"})

	// RequestReplays counts requests replayed after a successful refresh.
	RequestReplays = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "restoadmin",
		Name:      "request_replay_total",
		Help:      "Upstream requests replayed once after a 401 and a successful refresh.",
	})

	// APIRequests counts requests served by the local API.
	APIRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "restoadmin",
		Name:      "api_requests_total",
		Help:      "Local API requests by method and status.",
	}, []string{"method", "status"})
)
