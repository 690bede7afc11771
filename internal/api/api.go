// Copyright (c) 2015-present Mattermost, Inc. All Rights Reserved.
// See LICENSE.txt for license information.
//

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Register registers the operational HTTP surface on the given router:
// Subscription CRUD, read-only Event inspection, a health endpoint, and a
// Prometheus scrape endpoint.
func Register(rootRouter *mux.Router, context *Context, registerer prometheus.Gatherer) {
	apiRouter := rootRouter.PathPrefix("/api").Subrouter()

	initSubscription(apiRouter, context)
	initEvent(apiRouter, context)

	rootRouter.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	rootRouter.Handle("/metrics", promhttp.HandlerFor(registerer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
}

// handleHealthz reports process liveness. It deliberately does not probe
// the database or any Subscription endpoint: spec.md's health endpoint is
// a liveness check for the process, not a dependency check.
func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
