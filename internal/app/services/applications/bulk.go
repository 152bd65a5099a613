package applications

import (
	"context"

	"github.com/hirewire/pipeline/internal/app/domain/application"
	"github.com/hirewire/pipeline/internal/app/metrics"
)

// BulkError records why one item of a bulk update failed.
type BulkError struct {
	ApplicationID string `json:"application_id"`
	Error         string `json:"error"`
}

// BulkSummary totals the outcome of a bulk update.
type BulkSummary struct {
	Total      int `json:"total"`
	Successful int `json:"successful"`
	Failed     int `json:"failed"`
}

// BulkResult reports per-item outcomes of a bulk status update.
type BulkResult struct {
	Updated []application.Application `json:"updated"`
	Errors  []BulkError               `json:"errors,omitempty"`
	Summary BulkSummary               `json:"summary"`
}

// BulkUpdate applies the same transition to every listed application. Items
// are processed independently: each failure is recorded and the rest
// continue, so a bulk call never aborts halfway.
func (s *Service) BulkUpdate(ctx context.Context, actorID string, ids []string, in TransitionInput) (BulkResult, error) {
	result := BulkResult{Summary: BulkSummary{Total: len(ids)}}
	for _, id := range ids {
		updated, err := s.UpdateStatus(ctx, actorID, id, in)
		if err != nil {
			result.Errors = append(result.Errors, BulkError{ApplicationID: id, Error: err.Error()})
			result.Summary.Failed++
			metrics.ObserveBulkItem("failed")
			continue
		}
		result.Updated = append(result.Updated, updated)
		result.Summary.Successful++
		metrics.ObserveBulkItem("ok")
	}
	s.log.WithField("total", result.Summary.Total).
		WithField("successful", result.Summary.Successful).
		WithField("failed", result.Summary.Failed).
		Info("bulk status update finished")
	return result, nil
}
