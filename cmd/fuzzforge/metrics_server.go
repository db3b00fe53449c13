// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gorilla/handlers"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serveMetrics exposes every worker's private registry on addr under
// /metrics, combined through a prometheus.Gatherers fan-in since each
// Driver registers its collectors on its own registry rather than the
// global default one. Every scrape is access-logged through
// gorilla/handlers, the same middleware the web-fuzzer teacher uses for
// its own dashboard HTTP traffic.
func serveMetrics(addr string, registries []*prometheus.Registry) *http.Server {
	gatherers := make(prometheus.Gatherers, len(registries))
	for i, r := range registries {
		gatherers[i] = r
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(gatherers, promhttp.HandlerOpts{}))

	srv := &http.Server{
		Addr:    addr,
		Handler: handlers.LoggingHandler(os.Stdout, mux),
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("metrics server: " + err.Error() + "\n")
		}
	}()
	return srv
}

func shutdownMetrics(srv *http.Server) {
	if srv == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
}
