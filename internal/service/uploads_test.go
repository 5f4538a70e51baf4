package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edupay/remit-orders/internal/models"
	"github.com/edupay/remit-orders/internal/service"
	"github.com/edupay/remit-orders/internal/testutil/memstore"
)

type fakeRemover struct {
	removed []string
	failOn  map[string]error
}

func (f *fakeRemover) Remove(_ context.Context, key string) error {
	if err := f.failOn[key]; err != nil {
		return err
	}
	f.removed = append(f.removed, key)
	return nil
}

func seedPendingUpload(store *memstore.Store, key string, age time.Duration) models.Upload {
	u := models.Upload{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		ObjectKey: key,
		Status:    models.UploadStatusPending,
		CreatedAt: time.Now().UTC().Add(-age),
	}
	store.SeedUpload(u)
	return u
}

func TestCleanupAbandoned_RemovesOldPendingUploads(t *testing.T) {
	store := memstore.New()
	remover := &fakeRemover{}
	svc := service.NewUploadService(store, remover)

	old := seedPendingUpload(store, "docs/old.pdf", 96*time.Hour)
	seedPendingUpload(store, "docs/fresh.pdf", time.Hour)

	result, err := svc.CleanupAbandoned(context.Background(), 72*time.Hour, 100)
	require.NoError(t, err)

	assert.Equal(t, 1, result.Total)
	assert.Equal(t, 1, result.Succeeded)
	assert.Empty(t, result.Failures)
	assert.Equal(t, []string{"docs/old.pdf"}, remover.removed)

	_, ok := store.Upload(old.ID)
	assert.False(t, ok, "swept upload row is removed")
}

func TestCleanupAbandoned_ContinuesPastFailures(t *testing.T) {
	store := memstore.New()
	remover := &fakeRemover{failOn: map[string]error{
		"docs/b.pdf": errors.New("permission denied"),
	}}
	svc := service.NewUploadService(store, remover)

	seedPendingUpload(store, "docs/a.pdf", 96*time.Hour)
	failed := seedPendingUpload(store, "docs/b.pdf", 95*time.Hour)
	seedPendingUpload(store, "docs/c.pdf", 94*time.Hour)

	result, err := svc.CleanupAbandoned(context.Background(), 72*time.Hour, 100)
	require.NoError(t, err)

	assert.Equal(t, 3, result.Total)
	assert.Equal(t, 2, result.Succeeded)
	require.Len(t, result.Failures, 1)
	assert.Equal(t, "docs/b.pdf", result.Failures[0].ObjectKey)
	assert.True(t, result.Partial())

	// The failed row stays for the next sweep.
	_, ok := store.Upload(failed.ID)
	assert.True(t, ok)
}

func TestCleanupAbandoned_SubmittedUploadsUntouched(t *testing.T) {
	store := memstore.New()
	remover := &fakeRemover{}
	svc := service.NewUploadService(store, remover)

	u := models.Upload{
		ID:        uuid.New(),
		OrderID:   uuid.New(),
		ObjectKey: "docs/submitted.pdf",
		Status:    models.UploadStatusSubmitted,
		CreatedAt: time.Now().UTC().Add(-96 * time.Hour),
	}
	store.SeedUpload(u)

	result, err := svc.CleanupAbandoned(context.Background(), 72*time.Hour, 100)
	require.NoError(t, err)
	assert.Equal(t, 0, result.Total)
	assert.Empty(t, remover.removed)
}
