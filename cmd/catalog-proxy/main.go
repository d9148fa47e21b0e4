// catalog-proxy exposes the Zuora catalog client over local HTTP:
// GET passthrough for catalog reads, plus health, readiness, cache
// stats, and Prometheus metrics endpoints.
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/viper"

	"github.com/catalogtools/zuora-catalog-client/pkg/client"
	"github.com/catalogtools/zuora-catalog-client/pkg/logging"
)

func main() {
	logger := logging.SetupFromEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	port := v.GetString("PORT")

	cfg := client.LoadConfig()
	zuoraClient, err := client.New(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create Zuora client")
	}
	defer zuoraClient.Close()

	status := zuoraClient.CheckConnection(context.Background())
	if status.Connected {
		logger.Info().
			Str("environment", status.Environment).
			Str("base_url", status.BaseURL).
			Msg("Connected to Zuora")
	} else {
		// Still serve; readiness reports the state and requests retry
		// authentication lazily.
		logger.Warn().Str("message", status.Message).Msg("Zuora connection not established")
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", healthHandler)
	mux.HandleFunc("/ready", readyHandler(zuoraClient))
	mux.HandleFunc("/cache/stats", cacheStatsHandler(zuoraClient))
	mux.HandleFunc("/catalog/", catalogProxyHandler(zuoraClient))
	mux.Handle("/metrics", promhttp.Handler())

	addr := ":" + port
	logger.Info().
		Str("addr", addr).
		Str("environment", cfg.Environment).
		Msg("Starting catalog proxy server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		logger.Fatal().Err(err).Msg("Server failed")
	}
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprint(w, "OK")
}

// readyHandler reports Zuora connectivity, authenticating if needed.
func readyHandler(zuoraClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		status := zuoraClient.CheckConnection(ctx)

		w.Header().Set("Content-Type", "application/json")
		if !status.Connected {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		json.NewEncoder(w).Encode(status)
	}
}

// cacheStatsHandler serves the response cache counters as JSON.
func cacheStatsHandler(zuoraClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(zuoraClient.Cache().Stats())
	}
}

// catalogProxyHandler forwards GET requests under /catalog/ to the
// Zuora catalog API. /catalog/v1/catalog/products maps to
// /v1/catalog/products; query parameters pass through and responses are
// cached per the client's cache policy.
func catalogProxyHandler(zuoraClient *client.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "only GET is proxied", http.StatusMethodNotAllowed)
			return
		}

		endpoint := strings.TrimPrefix(r.URL.Path, "/catalog")
		if endpoint == "" || endpoint == "/" {
			http.Error(w, "missing catalog path", http.StatusBadRequest)
			return
		}

		var params map[string]any
		if query := r.URL.Query(); len(query) > 0 {
			params = make(map[string]any, len(query))
			for key := range query {
				params[key] = query.Get(key)
			}
		}

		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()

		result, err := zuoraClient.Request(ctx, http.MethodGet, endpoint, nil, params, true)
		if err != nil {
			var apiErr *client.APIError
			if errors.As(err, &apiErr) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(apiErr.StatusCode)
				json.NewEncoder(w).Encode(map[string]any{"message": apiErr.Message})
				return
			}
			http.Error(w, fmt.Sprintf("zuora request failed: %v", err), http.StatusBadGateway)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(result.StatusCode)
		w.Write(result.Raw)
	}
}
