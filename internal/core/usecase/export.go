package usecase

import (
	"context"
	"strings"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
	"github.com/ethioguide/procedure-gateway/internal/core/normalize"
	"github.com/ethioguide/procedure-gateway/internal/core/ports"
)

const exportPageSize = 100

// maxExportItems caps a single export so one request cannot walk an
// unbounded upstream collection.
const maxExportItems = 10000

// ExportUseCase collects every feedback page for a procedure and renders the
// admin spreadsheet. Reads go straight to the upstream, not through the
// cache; exports want the full current state, not a 10-item page copy.
type ExportUseCase struct {
	source  ports.ProcedureSource
	builder ports.WorkbookBuilder
}

func NewExportUseCase(source ports.ProcedureSource, builder ports.WorkbookBuilder) *ExportUseCase {
	return &ExportUseCase{source: source, builder: builder}
}

func (uc *ExportUseCase) Export(ctx context.Context, procedureID, authToken string) ([]byte, error) {
	if strings.TrimSpace(procedureID) == "" {
		return nil, domain.WrapError(domain.ErrInvalidInput, "export feedback", errProcedureIDRequired)
	}
	if authToken == "" {
		return nil, domain.WrapError(domain.ErrUnauthorized, "export feedback", errTokenRequired)
	}

	items, err := uc.collect(ctx, procedureID, authToken)
	if err != nil {
		return nil, err
	}
	return uc.builder.BuildFeedbackWorkbook(procedureID, items)
}

func (uc *ExportUseCase) collect(ctx context.Context, procedureID, authToken string) ([]domain.FeedbackItem, error) {
	var items []domain.FeedbackItem

	for page := 1; ; page++ {
		raw, err := uc.source.FetchFeedbackPage(ctx, procedureID, page, exportPageSize, "", authToken)
		if err != nil {
			return nil, err
		}
		feedbackPage := normalize.MapFeedbackPage(raw)
		if len(feedbackPage.Feedbacks) == 0 {
			break
		}
		items = append(items, feedbackPage.Feedbacks...)

		if len(items) >= maxExportItems {
			items = items[:maxExportItems]
			break
		}
		// A defaulted total equals the page's item count and would end the
		// walk after any full page; only a stated total is trusted.
		if normalize.FeedbackPageHasExplicitTotal(raw) && feedbackPage.Total > 0 && page*exportPageSize >= feedbackPage.Total {
			break
		}
	}
	return items, nil
}
