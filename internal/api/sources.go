package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/streamctl/internal/api/models"
	"github.com/smazurov/streamctl/internal/streams"
)

// registerSourceRoutes registers source probing and network discovery.
func (s *Server) registerSourceRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "probe-source",
		Method:      http.MethodPost,
		Path:        "/api/probe",
		Summary:     "Probe Source",
		Description: "Check that the source behind a url or connection string is reachable",
		Tags:        []string{"sources"},
		Errors:      []int{400, 401, 502},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.ProbeRequest) (*models.ProbeResponse, error) {
		if err := s.streamService.ProbeSource(ctx, input.Body.URL); err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.ProbeResponse{
			Body: models.ProbeData{
				Reachable: true,
				Address:   streams.RedactAddress(streams.Decode(input.Body.URL).SourceAddress),
				Message:   "Stream is reachable",
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "discover-sources",
		Method:      http.MethodPost,
		Path:        "/api/discover",
		Summary:     "Discover Sources",
		Description: "Scan the local network for hosts accepting RTSP connections",
		Tags:        []string{"sources"},
		Errors:      []int{400, 401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.DiscoverResponse, error) {
		found, err := s.streamService.DiscoverSources(ctx)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		sources := make([]models.DiscoveredSourceData, len(found))
		for i, src := range found {
			sources[i] = models.DiscoveredSourceData{Address: src.Address, URL: src.URL}
		}
		return &models.DiscoverResponse{
			Body: models.DiscoverData{Sources: sources, Count: len(sources)},
		}, nil
	})
}
