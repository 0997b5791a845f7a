package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"casework/internal/config"
	"casework/internal/engine"
)

const isoDate = "2006-01-02"

func fileOutput(doc engine.Document) *FileOutput {
	return &FileOutput{
		ContentType:        doc.ContentType,
		ContentDisposition: fmt.Sprintf("attachment; filename=%q", doc.Filename),
		Body:               doc.Body,
	}
}

func binaryResponses(contentType string) map[string]*huma.Response {
	return map[string]*huma.Response{
		"200": {
			Description: "Generated document",
			Content:     map[string]*huma.MediaType{contentType: {}},
		},
	}
}

// visitRange parses the report window. A missing start defaults to the
// first day of the current month and a missing end to today.
func visitRange(now time.Time, start, end string) (time.Time, time.Time, error) {
	now = now.UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	var err error
	if start != "" {
		if from, err = time.Parse(isoDate, start); err != nil {
			return from, to, engine.InvalidValueError{Field: "start", Value: start}
		}
	}
	if end != "" {
		if to, err = time.Parse(isoDate, end); err != nil {
			return from, to, engine.InvalidValueError{Field: "end", Value: end}
		}
	}
	return from, to, nil
}

func registerReports(api huma.API, e engine.Engine) {
	export := func(op huma.Operation, contentType string, run func(ctx context.Context, actorID string) (engine.Document, error)) {
		op.Tags = []string{"reports"}
		op.Responses = binaryResponses(contentType)
		huma.Register(api, op, func(ctx context.Context, _ *struct{}) (*FileOutput, error) {
			p, err := requirePermission(ctx, e, config.PermReportsExport)
			if err != nil {
				return nil, err
			}
			doc, err := run(ctx, p.ActorID)
			if err != nil {
				return nil, handleError(err)
			}
			return fileOutput(doc), nil
		})
	}

	export(huma.Operation{
		OperationID: "report-families-pdf",
		Method:      http.MethodGet,
		Path:        "/reports/families.pdf",
		Summary:     "Family list as PDF",
	}, "application/pdf", e.ExportFamiliesPDF)

	export(huma.Operation{
		OperationID: "report-families-csv",
		Method:      http.MethodGet,
		Path:        "/reports/families.csv",
		Summary:     "Family list as CSV",
	}, "text/csv", e.ExportFamiliesCSV)

	export(huma.Operation{
		OperationID: "report-statistics-pdf",
		Method:      http.MethodGet,
		Path:        "/reports/statistics.pdf",
		Summary:     "Statistics summary as PDF",
	}, "application/pdf", e.ExportStatistics)

	huma.Register(api, huma.Operation{
		OperationID: "report-visits-pdf",
		Method:      http.MethodGet,
		Path:        "/reports/visits.pdf",
		Summary:     "Visits in a date range as PDF",
		Tags:        []string{"reports"},
		Responses:   binaryResponses("application/pdf"),
	}, func(ctx context.Context, input *struct {
		Start string `query:"start" doc:"First day, YYYY-MM-DD"`
		End   string `query:"end" doc:"Last day, YYYY-MM-DD"`
	}) (*FileOutput, error) {
		p, err := requirePermission(ctx, e, config.PermReportsExport)
		if err != nil {
			return nil, err
		}
		start, end, err := visitRange(e.Now(), input.Start, input.End)
		if err != nil {
			return nil, handleError(err)
		}
		doc, err := e.ExportVisits(ctx, start, end, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return fileOutput(doc), nil
	})

	huma.Register(api, huma.Operation{
		OperationID: "report-family-pdf",
		Method:      http.MethodGet,
		Path:        "/families/{id}/report.pdf",
		Summary:     "Registration sheet of one family",
		Tags:        []string{"reports"},
		Responses:   binaryResponses("application/pdf"),
	}, func(ctx context.Context, input *idInput) (*FileOutput, error) {
		p, err := requirePermission(ctx, e, config.PermReportsExport)
		if err != nil {
			return nil, err
		}
		doc, err := e.ExportFamily(ctx, input.ID, p.ActorID)
		if err != nil {
			return nil, handleError(err)
		}
		return fileOutput(doc), nil
	})
}
