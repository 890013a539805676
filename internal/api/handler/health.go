package handler

import (
	"net/http"

	"github.com/aidevlab/aidev-chat/internal/api/response"
	"github.com/aidevlab/aidev-chat/internal/llm"
	mongorepo "github.com/aidevlab/aidev-chat/internal/repository/mongo"
	redisrepo "github.com/aidevlab/aidev-chat/internal/repository/redis"
)

// HealthCheck returns a simple health check response
func HealthCheck(w http.ResponseWriter, r *http.Request) {
	response.OK(w, map[string]string{
		"status": "ok",
	})
}

// ReadyCheck returns readiness status including store connectivity
func ReadyCheck(db *mongorepo.DB, redisClient *redisrepo.Client) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "store not ready")
			return
		}
		if err := redisClient.Ping(r.Context()); err != nil {
			response.Error(w, http.StatusServiceUnavailable, "bus not ready")
			return
		}

		response.OK(w, map[string]string{
			"status": "ready",
		})
	}
}

// ListLLMProviders returns the configured inference providers
func ListLLMProviders(gateway *llm.Gateway, defaultProvider string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		names := gateway.ListProviders()

		providers := make([]map[string]any, 0, len(names))
		for _, name := range names {
			providers = append(providers, map[string]any{
				"name":    name,
				"default": name == defaultProvider,
			})
		}

		response.OK(w, map[string]any{
			"providers": providers,
		})
	}
}
