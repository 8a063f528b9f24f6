package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns service health status",
		Tags:        []string{"Health"},
	}, s.handleHealth)
}

// ProviderHealth reports one provider's state.
type ProviderHealth struct {
	Name              string `json:"name" doc:"Provider name"`
	Status            string `json:"status" doc:"ok, or cooling_down after a rate-limit response"`
	CooldownRemaining string `json:"cooldown_remaining,omitempty" doc:"Time left before requests resume"`
}

// HealthResponse contains health check data.
type HealthResponse struct {
	Status        string           `json:"status" doc:"Overall health status"`
	Providers     []ProviderHealth `json:"providers" doc:"Providers in priority order"`
	BlocklistSize int              `json:"blocklist_size" doc:"Number of block-listed tags in force"`
}

// HealthOutput wraps the health check response for Huma.
type HealthOutput struct {
	Body HealthResponse
}

func (s *Server) handleHealth(_ context.Context, _ *struct{}) (*HealthOutput, error) {
	resp := HealthResponse{
		Status:    "healthy",
		Providers: []ProviderHealth{},
	}

	if s.services.Registry != nil {
		for _, name := range s.services.Registry.Names() {
			ph := ProviderHealth{Name: name, Status: "ok"}
			if s.services.Client != nil {
				if d := s.services.Client.CooldownRemaining(name); d > 0 {
					ph.Status = "cooling_down"
					ph.CooldownRemaining = d.Round(100 * time.Millisecond).String()
				}
			}
			resp.Providers = append(resp.Providers, ph)
		}
	}

	cooling := 0
	for _, p := range resp.Providers {
		if p.Status != "ok" {
			cooling++
		}
	}
	switch {
	case len(resp.Providers) == 0:
		resp.Status = "unhealthy"
	case cooling == len(resp.Providers):
		resp.Status = "degraded"
	}

	if s.services.Guard != nil {
		resp.BlocklistSize = s.services.Guard.Policy().Size()
	}

	return &HealthOutput{Body: resp}, nil
}
