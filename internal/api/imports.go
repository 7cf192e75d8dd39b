package api

import (
	"context"
	"fmt"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/smazurov/streamctl/internal/api/models"
	"github.com/smazurov/streamctl/internal/streams"
)

const importFileField = "file"

func (s *Server) registerImportRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID:  "import-streams",
		Method:       http.MethodPost,
		Path:         "/api/streams/import",
		Summary:      "Import Streams",
		Description:  "Bulk-create streams from a CSV file with name and url columns. Rows fail independently.",
		Tags:         []string{"streams"},
		Errors:       []int{400, 401, 413},
		Security:     withAuth(),
		MaxBodyBytes: s.options.MaxUploadBytes,
	}, func(ctx context.Context, input *models.ImportRequest) (*models.ImportResponse, error) {
		files := input.RawBody.File[importFileField]
		if len(files) == 0 {
			return nil, huma.Error400BadRequest(fmt.Sprintf("missing multipart field '%s'", importFileField))
		}

		f, err := files[0].Open()
		if err != nil {
			return nil, huma.Error400BadRequest("cannot read uploaded file", err)
		}
		defer f.Close()

		rows, err := streams.ParseCSV(f)
		if err != nil {
			return nil, s.mapStreamError(err)
		}

		s.logger.Info("Importing streams", "file", files[0].Filename, "rows", len(rows))
		result := s.streamService.ImportStreams(ctx, rows)

		return &models.ImportResponse{
			Body: models.ImportResultData{
				BatchID: result.BatchID,
				Success: result.SuccessCount,
				Failed:  result.FailureCount,
				Errors:  result.Errors,
			},
		}, nil
	})
}
