//go:build integration

package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupItemForEmbeddingJob(ctx context.Context, t *testing.T, tenantRepo *TenantRepository, itemRepo *ItemRepository) *domain.Item {
	tenant := &domain.Tenant{
		ID:        uuid.NewString(),
		Name:      "tenant-for-embedding-jobs-" + uuid.NewString()[:8],
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, tenantRepo.Create(ctx, tenant))

	item := &domain.Item{
		ID:        uuid.NewString(),
		TenantID:  tenant.ID,
		Title:     "Item for Embedding",
		Content:   "Content that needs an embedding.",
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
		UpdatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, itemRepo.Create(ctx, item))
	return item
}

func TestEmbeddingJobRepository_Create(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusPending,
		Retries:   0,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}

	err := jobRepo.Create(ctx, job)
	require.NoError(t, err)

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, job.ID, retrieved.ID)
	assert.Equal(t, job.ItemID, retrieved.ItemID)
	assert.Equal(t, job.TenantID, retrieved.TenantID)
	assert.Equal(t, domain.EmbeddingJobStatusPending, retrieved.Status)
	assert.Equal(t, int32(0), retrieved.Retries)
	assert.Empty(t, retrieved.Error)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_GetByID_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewEmbeddingJobRepository(pool)

	_, err := jobRepo.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_ClaimPending(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job1 := &domain.EmbeddingJob{ID: uuid.NewString(), ItemID: item.ID, TenantID: item.TenantID, Status: domain.EmbeddingJobStatusPending, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}
	job2 := &domain.EmbeddingJob{ID: uuid.NewString(), ItemID: item.ID, TenantID: item.TenantID, Status: domain.EmbeddingJobStatusPending, CreatedAt: time.Now().UTC().Add(time.Second).Truncate(time.Microsecond)}
	job3 := &domain.EmbeddingJob{ID: uuid.NewString(), ItemID: item.ID, TenantID: item.TenantID, Status: domain.EmbeddingJobStatusProcessing, CreatedAt: time.Now().UTC().Truncate(time.Microsecond)}

	require.NoError(t, jobRepo.Create(ctx, job1))
	require.NoError(t, jobRepo.Create(ctx, job2))
	require.NoError(t, jobRepo.Create(ctx, job3))

	claimed, err := jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	for _, job := range claimed {
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, job.Status)

		retrieved, err := jobRepo.GetByID(ctx, job.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.EmbeddingJobStatusProcessing, retrieved.Status)
	}

	// Nothing pending is left, so a second claim comes back empty.
	claimed, err = jobRepo.ClaimPending(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, claimed)
}

func TestEmbeddingJobRepository_ClaimPending_OldestFirst(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	var ids []string
	for i := 0; i < 5; i++ {
		job := &domain.EmbeddingJob{
			ID:        uuid.NewString(),
			ItemID:    item.ID,
			TenantID:  item.TenantID,
			Status:    domain.EmbeddingJobStatusPending,
			CreatedAt: time.Now().UTC().Add(time.Duration(i) * time.Second).Truncate(time.Microsecond),
		}
		require.NoError(t, jobRepo.Create(ctx, job))
		ids = append(ids, job.ID)
	}

	claimed, err := jobRepo.ClaimPending(ctx, 2)
	require.NoError(t, err)
	require.Len(t, claimed, 2)

	claimedIDs := map[string]bool{claimed[0].ID: true, claimed[1].ID: true}
	assert.True(t, claimedIDs[ids[0]])
	assert.True(t, claimedIDs[ids[1]])
}

func TestEmbeddingJobRepository_ClaimPending_ClearsPreviousFailure(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusProcessing,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	// Fail the job, put it back to pending, then reclaim it. The claim must
	// wipe the stale error and processed_at from the failed attempt.
	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "model timeout"))
	require.NoError(t, jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusPending, ""))

	claimed, err := jobRepo.ClaimPending(ctx, 1)
	require.NoError(t, err)
	require.Len(t, claimed, 1)

	retrieved, err := jobRepo.GetByID(ctx, claimed[0].ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusProcessing, retrieved.Status)
	assert.Empty(t, retrieved.Error)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_UpdateStatus(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusPending,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	err := jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusProcessing, "")
	require.NoError(t, err)

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusProcessing, retrieved.Status)
	assert.Nil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_UpdateStatus_Completed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusProcessing,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	err := jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusCompleted, "")
	require.NoError(t, err)

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusCompleted, retrieved.Status)
	assert.NotNil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_UpdateStatus_Failed(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusProcessing,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	err := jobRepo.UpdateStatus(ctx, job.ID, domain.EmbeddingJobStatusFailed, "embedding API error")
	require.NoError(t, err)

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.EmbeddingJobStatusFailed, retrieved.Status)
	assert.Equal(t, "embedding API error", retrieved.Error)
	assert.NotNil(t, retrieved.ProcessedAt)
}

func TestEmbeddingJobRepository_UpdateStatus_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewEmbeddingJobRepository(pool)

	err := jobRepo.UpdateStatus(ctx, uuid.NewString(), domain.EmbeddingJobStatusCompleted, "")
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}

func TestEmbeddingJobRepository_IncrementRetries(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	tenantRepo := NewTenantRepository(pool)
	itemRepo := NewItemRepository(pool)
	jobRepo := NewEmbeddingJobRepository(pool)

	item := setupItemForEmbeddingJob(ctx, t, tenantRepo, itemRepo)

	job := &domain.EmbeddingJob{
		ID:        uuid.NewString(),
		ItemID:    item.ID,
		TenantID:  item.TenantID,
		Status:    domain.EmbeddingJobStatusPending,
		Retries:   0,
		CreatedAt: time.Now().UTC().Truncate(time.Microsecond),
	}
	require.NoError(t, jobRepo.Create(ctx, job))

	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))
	require.NoError(t, jobRepo.IncrementRetries(ctx, job.ID))

	retrieved, err := jobRepo.GetByID(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, int32(2), retrieved.Retries)
}

func TestEmbeddingJobRepository_IncrementRetries_NotFound(t *testing.T) {
	ctx := context.Background()
	pc := testutil.NewPostgresContainer(ctx, t)
	defer pc.Terminate(ctx)

	pool := testutil.NewTestPool(ctx, t, pc, "../../migrations")
	defer pool.Close()

	jobRepo := NewEmbeddingJobRepository(pool)

	err := jobRepo.IncrementRetries(ctx, uuid.NewString())
	assert.ErrorIs(t, err, ErrEmbeddingJobNotFound)
}
