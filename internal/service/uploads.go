package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/edupay/remit-orders/internal/storage"
)

// BatchFailure records one item a batch operation could not process.
type BatchFailure struct {
	ObjectKey string
	Err       error
}

// BatchResult summarizes a batch operation that continues past
// per-item failures.
type BatchResult struct {
	Total     int
	Succeeded int
	Failures  []BatchFailure
}

// Partial reports whether some, but not all, items failed.
func (r BatchResult) Partial() bool {
	return len(r.Failures) > 0 && r.Succeeded > 0
}

// UploadService sweeps document objects that were placed in storage
// but never submitted with an order.
type UploadService struct {
	store   Store
	objects storage.Remover
}

func NewUploadService(store Store, objects storage.Remover) *UploadService {
	return &UploadService{store: store, objects: objects}
}

// CleanupAbandoned deletes pending upload objects older than the
// retention window. A failed deletion is recorded and the sweep moves
// on; the upload row is only removed once the object is gone, so a
// failed item is retried on the next run.
func (s *UploadService) CleanupAbandoned(ctx context.Context, olderThan time.Duration, limit int32) (BatchResult, error) {
	cutoff := time.Now().UTC().Add(-olderThan)
	uploads, err := s.store.ListPendingUploadsBefore(ctx, cutoff, limit)
	if err != nil {
		return BatchResult{}, err
	}

	result := BatchResult{Total: len(uploads)}
	for _, u := range uploads {
		if err := s.objects.Remove(ctx, u.ObjectKey); err != nil {
			result.Failures = append(result.Failures, BatchFailure{ObjectKey: u.ObjectKey, Err: err})
			zap.L().Warn("abandoned upload removal failed",
				zap.String("object_key", u.ObjectKey),
				zap.String("order_id", u.OrderID.String()),
				zap.Error(err))
			continue
		}
		if err := s.store.DeleteUpload(ctx, u.ID); err != nil {
			result.Failures = append(result.Failures, BatchFailure{ObjectKey: u.ObjectKey, Err: err})
			continue
		}
		result.Succeeded++
	}
	return result, nil
}
