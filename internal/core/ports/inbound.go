package ports

import (
	"context"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

// ProcedureDirectory is the read surface the HTTP adapter serves from.
type ProcedureDirectory interface {
	List(ctx context.Context, query domain.ProcedureListQuery) (*domain.ProcedureList, error)
	Get(ctx context.Context, id string) (*domain.Procedure, error)
}

// FeedbackService covers the feedback read and write operations.
type FeedbackService interface {
	List(ctx context.Context, procedureID string, page, limit int, status, authToken string) (*domain.FeedbackPage, error)
	Submit(ctx context.Context, params domain.SubmitFeedbackParams) (*domain.FeedbackItem, error)
	Respond(ctx context.Context, params domain.RespondFeedbackParams) (string, error)
}

// FeedbackExporter builds the admin XLSX export of a procedure's feedback.
type FeedbackExporter interface {
	Export(ctx context.Context, procedureID, authToken string) ([]byte, error)
}
