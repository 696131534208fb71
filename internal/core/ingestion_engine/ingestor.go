package ingestion_engine

import (
	"context"

	"github.com/markdave123-py/integraldb/internal/models"
)

// Ingestor runs one sync pass. The scheduler and the HTTP trigger depend on this, not on Orchestrator.
type Ingestor interface {
	Run(ctx context.Context) (*models.RunReport, error)
}

var _ Ingestor = (*Orchestrator)(nil)
