package repository

import (
	"context"
	"errors"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/pagination"
	"github.com/halcyondata/recall/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ItemRepository persists content items. Row-targeted reads and writes take a
// tenantScope: the caller's visible tenant, or "" for an unscoped service
// identity. Rows outside the scope behave exactly like missing rows.
type ItemRepository struct {
	db dbtx
}

func NewItemRepository(pool *pgxpool.Pool) *ItemRepository {
	return &ItemRepository{db: pool}
}

func NewItemRepositoryWithTx(tx pgx.Tx) *ItemRepository {
	return &ItemRepository{db: tx}
}

func (r *ItemRepository) Create(ctx context.Context, item *domain.Item) error {
	metadata, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO items (id, tenant_id, user_id, title, content, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		item.ID, item.TenantID, nullableString(item.UserID), item.Title, item.Content, metadata, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil && isForeignKeyViolation(err) {
		return domain.ErrTenantNotFound
	}
	return err
}

func (r *ItemRepository) GetByID(ctx context.Context, id, tenantScope string) (*domain.Item, error) {
	var item domain.Item
	var userID *string
	var metadata []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, user_id, title, content, metadata, created_at, updated_at
		 FROM items
		 WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		id, nullableString(tenantScope),
	).Scan(&item.ID, &item.TenantID, &userID, &item.Title, &item.Content, &metadata, &item.CreatedAt, &item.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrItemNotFound
		}
		return nil, err
	}
	if userID != nil {
		item.UserID = *userID
	}
	if item.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &item, nil
}

// ListWithCursor pages items newest-first. tenantScope is the caller's
// visible tenant, tenantFilter the caller-requested one; both are ANDed so a
// scoped caller requesting a foreign tenant gets zero rows, not an error.
func (r *ItemRepository) ListWithCursor(ctx context.Context, tenantScope, tenantFilter string, cursor *pagination.Cursor, limit int) (*service.ItemPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, user_id, title, content, metadata, created_at, updated_at
			 FROM items
			 WHERE ($1::uuid IS NULL OR tenant_id = $1::uuid)
			   AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
			   AND (updated_at, id) < ($3, $4)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $5`,
			nullableString(tenantScope), nullableString(tenantFilter), cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, user_id, title, content, metadata, created_at, updated_at
			 FROM items
			 WHERE ($1::uuid IS NULL OR tenant_id = $1::uuid)
			   AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $3`,
			nullableString(tenantScope), nullableString(tenantFilter), limit+1,
		)
	}

	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items, err := scanItemRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(items) > limit
	if hasMore {
		items = items[:limit]
	}

	var nextCursor string
	if hasMore && len(items) > 0 {
		lastItem := items[len(items)-1]
		nextCursor = pagination.EncodeCursor(lastItem.ID, lastItem.UpdatedAt)
	}

	return &service.ItemPageResult{
		Items:      items,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

// Update writes title, content, and metadata. tenant_id is immutable and is
// deliberately absent from the SET list.
func (r *ItemRepository) Update(ctx context.Context, item *domain.Item, tenantScope string) error {
	metadata, err := marshalMetadata(item.Metadata)
	if err != nil {
		return err
	}
	item.UpdatedAt = time.Now().UTC()
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE items SET title = $1, content = $2, metadata = $3, updated_at = $4
		 WHERE id = $5 AND ($6::uuid IS NULL OR tenant_id = $6::uuid)`,
		item.Title, item.Content, metadata, item.UpdatedAt, item.ID, nullableString(tenantScope),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

// Delete removes the item; dependent chunks, jobs, and graph edges go with it
// through ON DELETE CASCADE in the same statement.
func (r *ItemRepository) Delete(ctx context.Context, id, tenantScope string) error {
	cmdTag, err := r.db.Exec(ctx,
		`DELETE FROM items
		 WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		id, nullableString(tenantScope),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrItemNotFound
	}
	return nil
}

func scanItemRows(rows pgx.Rows) ([]*domain.Item, error) {
	var results []*domain.Item
	for rows.Next() {
		var item domain.Item
		var userID *string
		var metadata []byte
		if err := rows.Scan(&item.ID, &item.TenantID, &userID, &item.Title, &item.Content, &metadata, &item.CreatedAt, &item.UpdatedAt); err != nil {
			return nil, err
		}
		if userID != nil {
			item.UserID = *userID
		}
		var err error
		if item.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &item)
	}
	return results, rows.Err()
}
