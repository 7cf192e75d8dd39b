package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/streamctl/internal/api/models"
	"github.com/smazurov/streamctl/internal/streams"
)

// registerStreamRoutes registers all stream-related endpoints
func (s *Server) registerStreamRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "list-streams",
		Method:      http.MethodGet,
		Path:        "/api/streams",
		Summary:     "List Streams",
		Description: "List all stored streams with their decoded configuration",
		Tags:        []string{"streams"},
		Errors:      []int{401, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, _ *struct{}) (*models.StreamListResponse, error) {
		list, err := s.streamService.ListStreams(ctx)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		apiStreams := make([]models.StreamData, len(list))
		for i, stream := range list {
			apiStreams[i] = domainToAPIStream(stream)
		}

		return &models.StreamListResponse{
			Body: models.StreamListData{
				Streams: apiStreams,
				Count:   len(apiStreams),
			},
		}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "create-stream",
		Method:        http.MethodPost,
		Path:          "/api/streams",
		Summary:       "Create Stream",
		Description:   "Store a stream from a raw connection string or a structured config",
		Tags:          []string{"streams"},
		DefaultStatus: http.StatusCreated,
		Errors:        []int{400, 401, 409, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *models.StreamRequest) (*models.StreamResponse, error) {
		params, err := apiToParams(input.Body)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		stream, err := s.streamService.CreateStream(ctx, params)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: domainToAPIStream(*stream)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "get-stream",
		Method:      http.MethodGet,
		Path:        "/api/streams/{name}",
		Summary:     "Get Stream",
		Description: "Get a stream with its decoded configuration and profile",
		Tags:        []string{"streams"},
		Errors:      []int{401, 404, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" example:"cam1" doc:"Stream name"`
	}) (*models.StreamResponse, error) {
		stream, err := s.streamService.GetStream(ctx, input.Name)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: domainToAPIStream(*stream)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID: "update-stream",
		Method:      http.MethodPut,
		Path:        "/api/streams/{name}",
		Summary:     "Update Stream",
		Description: "Replace the connection string of a stream. A different name in the body renames it.",
		Tags:        []string{"streams"},
		Errors:      []int{400, 401, 404, 409, 500},
		Security:    withAuth(),
	}, func(ctx context.Context, input *models.StreamUpdateRequest) (*models.StreamResponse, error) {
		params, err := apiToParams(input.Body)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		stream, err := s.streamService.UpdateStream(ctx, input.Name, params)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		return &models.StreamResponse{Body: domainToAPIStream(*stream)}, nil
	})

	huma.Register(s.api, huma.Operation{
		OperationID:   "delete-stream",
		Method:        http.MethodDelete,
		Path:          "/api/streams/{name}",
		Summary:       "Delete Stream",
		Description:   "Remove a stream from the registry",
		Tags:          []string{"streams"},
		DefaultStatus: http.StatusNoContent,
		Errors:        []int{401, 404, 500},
		Security:      withAuth(),
	}, func(ctx context.Context, input *struct {
		Name string `path:"name" example:"cam1" doc:"Stream name"`
	}) (*struct{}, error) {
		if err := s.streamService.DeleteStream(ctx, input.Name); err != nil {
			return nil, s.mapStreamError(err)
		}
		return &struct{}{}, nil
	})
}

func apiToParams(body models.StreamRequestData) (streams.StreamParams, error) {
	params := streams.StreamParams{
		Name:          body.Name,
		URL:           body.URL,
		SourceAddress: body.SourceAddress,
		Mode:          streams.Mode(body.Mode),
	}
	if body.Profile != "" {
		profile, err := streams.ParseProfile(body.Profile)
		if err != nil {
			return streams.StreamParams{}, err
		}
		params.Profile = profile
	}
	if body.Transcode != nil {
		params.Transcode = apiToTranscode(*body.Transcode)
	}
	return params, nil
}

func apiToTranscode(t models.TranscodeData) streams.TranscodeParams {
	return streams.TranscodeParams{
		VideoCodec: t.VideoCodec,
		AudioCodec: t.AudioCodec,
		HWAccel:    t.HWAccel,
		Preset:     streams.Preset(t.Preset),
		Extra:      t.Extra,
	}
}

func apiToConfig(c models.StreamConfigData) streams.StreamConfig {
	return streams.StreamConfig{
		SourceAddress: c.SourceAddress,
		Mode:          streams.Mode(c.Mode),
		Transcode:     apiToTranscode(c.Transcode),
	}
}

func configToAPI(cfg streams.StreamConfig) models.StreamConfigData {
	return models.StreamConfigData{
		SourceAddress: cfg.SourceAddress,
		Mode:          string(cfg.Mode),
		Transcode: models.TranscodeData{
			VideoCodec: cfg.Transcode.VideoCodec,
			AudioCodec: cfg.Transcode.AudioCodec,
			HWAccel:    cfg.Transcode.HWAccel,
			Preset:     string(cfg.Transcode.Preset),
			Extra:      cfg.Transcode.Extra,
		},
	}
}

// domainToAPIStream converts a domain stream to API stream data
func domainToAPIStream(stream streams.Stream) models.StreamData {
	return models.StreamData{
		Name:    stream.Name,
		URL:     stream.ConnectionString,
		Config:  configToAPI(stream.Config),
		Profile: string(stream.Profile),
	}
}
