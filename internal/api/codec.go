package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/streamctl/internal/api/models"
	"github.com/smazurov/streamctl/internal/streams"
)

// registerCodecRoutes exposes the connection string codec without touching
// the registry, for editors that build strings client-side.
func (s *Server) registerCodecRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "encode-config",
		Method:      http.MethodPost,
		Path:        "/api/codec/encode",
		Summary:     "Encode Config",
		Description: "Encode a structured config into a connection string",
		Tags:        []string{"codec"},
		Errors:      []int{400, 401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.EncodeRequest) (*models.EncodeResponse, error) {
		cfg := apiToConfig(input.Body)
		conn, err := s.streamService.EncodeConfig(cfg)
		if err != nil {
			return nil, s.mapStreamError(err)
		}
		return &models.EncodeResponse{
			Body: models.EncodeData{
				URL:     conn,
				Profile: string(streams.Classify(streams.Decode(conn))),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "decode-connection",
		Method:      http.MethodPost,
		Path:        "/api/codec/decode",
		Summary:     "Decode Connection String",
		Description: "Decode a connection string and classify it into a profile",
		Tags:        []string{"codec"},
		Errors:      []int{401},
		Security:    withAuth(),
	}, func(_ context.Context, input *models.DecodeRequest) (*models.DecodeResponse, error) {
		cfg, profile := s.streamService.DecodeConnection(input.Body.URL)
		return &models.DecodeResponse{
			Body: models.DecodeData{
				Config:  configToAPI(cfg),
				Profile: string(profile),
			},
		}, nil
	})
}
