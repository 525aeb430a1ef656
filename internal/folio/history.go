package folio

import (
	"context"
	"fmt"

	"folio-go/internal/database/sqlc"
)

// GetHistory returns the most recent operations, ordered newest first.
func (s *IngestService) GetHistory(ctx context.Context, limit int) ([]*sqlc.Operation, error) {
	ops, err := s.database.ListOperations(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	return ops, nil
}
