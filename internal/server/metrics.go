package server

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	apiRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "destek_api_requests_total",
		Help: "API requests served, by method and path.",
	}, []string{"method", "path"})

	turnsLogged = promauto.NewCounter(prometheus.CounterOpts{
		Name: "destek_conversation_turns_total",
		Help: "Conversation turns written through the API.",
	})

	codesIssued = promauto.NewCounter(prometheus.CounterOpts{
		Name: "destek_admin_codes_issued_total",
		Help: "Admin authentication codes issued.",
	})

	codesRedeemed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "destek_admin_codes_redeemed_total",
		Help: "Admin authentication codes successfully redeemed.",
	})
)

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if route := muxCurrentRoute(r); route != "" {
			path = route
		}
		apiRequests.WithLabelValues(r.Method, path).Inc()
		next.ServeHTTP(w, r)
	})
}

// muxCurrentRoute labels metrics with the route template instead of the
// raw path so user ids do not explode the label set.
func muxCurrentRoute(r *http.Request) string {
	route := mux.CurrentRoute(r)
	if route == nil {
		return ""
	}
	tpl, err := route.GetPathTemplate()
	if err != nil {
		return ""
	}
	return tpl
}
