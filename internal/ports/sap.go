package ports

import (
	"context"

	"github.com/schrico/PM-SAP-sub001/internal/domain"
)

// SAPClient is the upstream project source. Every method may fail with a
// transport error; a missing subproject yields ErrNotFound.
type SAPClient interface {
	ListProjects(ctx context.Context) ([]domain.UpstreamProject, error)
	GetSubProjectDetails(ctx context.Context, projectID int64, subProjectID string) (domain.SubProjectDetail, error)
	GetInstructions(ctx context.Context, projectID int64, subProjectID string) ([]domain.Instruction, error)
}
