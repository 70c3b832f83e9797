package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/pagination"
	"github.com/halcyondata/recall/internal/service"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SessionRepository persists agent sessions and their checkpoints.
type SessionRepository struct {
	db dbtx
}

func NewSessionRepository(pool *pgxpool.Pool) *SessionRepository {
	return &SessionRepository{db: pool}
}

func NewSessionRepositoryWithTx(tx pgx.Tx) *SessionRepository {
	return &SessionRepository{db: tx}
}

func (r *SessionRepository) Create(ctx context.Context, session *domain.Session) error {
	metadata, err := marshalMetadata(session.Metadata)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx,
		`INSERT INTO sessions (id, tenant_id, user_id, agent, title, status, metadata, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		session.ID, session.TenantID, nullableString(session.UserID), session.Agent,
		nullableString(session.Title), session.Status, metadata, session.CreatedAt, session.UpdatedAt,
	)
	return err
}

func (r *SessionRepository) GetByID(ctx context.Context, id, tenantScope string) (*domain.Session, error) {
	var session domain.Session
	var userID, title *string
	var metadata []byte
	err := r.db.QueryRow(ctx,
		`SELECT id, tenant_id, user_id, agent, title, status, metadata, created_at, updated_at
		 FROM sessions
		 WHERE id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)`,
		id, nullableString(tenantScope),
	).Scan(&session.ID, &session.TenantID, &userID, &session.Agent, &title, &session.Status, &metadata, &session.CreatedAt, &session.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, err
	}
	if userID != nil {
		session.UserID = *userID
	}
	if title != nil {
		session.Title = *title
	}
	if session.Metadata, err = unmarshalMetadata(metadata); err != nil {
		return nil, err
	}
	return &session, nil
}

func (r *SessionRepository) ListWithCursor(ctx context.Context, tenantScope, tenantFilter string, cursor *pagination.Cursor, limit int) (*service.SessionPageResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var rows pgx.Rows
	var err error

	if cursor != nil {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, user_id, agent, title, status, metadata, created_at, updated_at
			 FROM sessions
			 WHERE ($1::uuid IS NULL OR tenant_id = $1::uuid)
			   AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
			   AND (updated_at, id) < ($3, $4)
			 ORDER BY updated_at DESC, id DESC
			 LIMIT $5`,
			nullableString(tenantScope), nullableString(tenantFilter), cursor.Timestamp, cursor.LastID, limit+1,
		)
	} else {
		rows, err = r.db.Query(ctx,
			`SELECT id, tenant_id, user_id, agent, title, status, metadata, created_at, updated_at
			 FROM sessions
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

	sessions, err := scanSessionRows(rows)
	if err != nil {
		return nil, err
	}

	hasMore := len(sessions) > limit
	if hasMore {
		sessions = sessions[:limit]
	}

	var nextCursor string
	if hasMore && len(sessions) > 0 {
		last := sessions[len(sessions)-1]
		nextCursor = pagination.EncodeCursor(last.ID, last.UpdatedAt)
	}

	return &service.SessionPageResult{
		Items:      sessions,
		NextCursor: nextCursor,
		HasMore:    hasMore,
	}, nil
}

func (r *SessionRepository) UpdateStatus(ctx context.Context, id, tenantScope string, status domain.SessionStatus) error {
	cmdTag, err := r.db.Exec(ctx,
		`UPDATE sessions SET status = $1, updated_at = $2
		 WHERE id = $3 AND ($4::uuid IS NULL OR tenant_id = $4::uuid)`,
		status, time.Now().UTC(), id, nullableString(tenantScope),
	)
	if err != nil {
		return err
	}
	if cmdTag.RowsAffected() == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// AppendCheckpoint assigns the next per-session seq inside the insert
// statement. Concurrent appends race on UNIQUE (session_id, seq); the loser
// retries with a freshly computed seq.
func (r *SessionRepository) AppendCheckpoint(ctx context.Context, cp *domain.Checkpoint) error {
	state, err := json.Marshal(cp.State)
	if err != nil {
		return err
	}

	const maxAttempts = 3
	for attempt := 0; attempt < maxAttempts; attempt++ {
		err = r.db.QueryRow(ctx,
			`INSERT INTO session_checkpoints (id, session_id, tenant_id, seq, state, created_at)
			 SELECT $1, $2, $3, COALESCE(MAX(seq), 0) + 1, $4, $5
			 FROM session_checkpoints
			 WHERE session_id = $2
			 RETURNING seq`,
			cp.ID, cp.SessionID, cp.TenantID, state, cp.CreatedAt,
		).Scan(&cp.Seq)
		if err == nil {
			break
		}
		if !isUniqueViolation(err) {
			return err
		}
	}
	if err != nil {
		return err
	}

	_, err = r.db.Exec(ctx,
		`UPDATE sessions SET updated_at = $1 WHERE id = $2`,
		time.Now().UTC(), cp.SessionID,
	)
	return err
}

func (r *SessionRepository) ListCheckpoints(ctx context.Context, sessionID, tenantScope string) ([]*domain.Checkpoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, tenant_id, seq, state, created_at
		 FROM session_checkpoints
		 WHERE session_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
		 ORDER BY seq ASC`,
		sessionID, nullableString(tenantScope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var checkpoints []*domain.Checkpoint
	for rows.Next() {
		cp, err := scanCheckpoint(rows)
		if err != nil {
			return nil, err
		}
		checkpoints = append(checkpoints, cp)
	}
	return checkpoints, rows.Err()
}

func (r *SessionRepository) GetLatestCheckpoint(ctx context.Context, sessionID, tenantScope string) (*domain.Checkpoint, error) {
	rows, err := r.db.Query(ctx,
		`SELECT id, session_id, tenant_id, seq, state, created_at
		 FROM session_checkpoints
		 WHERE session_id = $1 AND ($2::uuid IS NULL OR tenant_id = $2::uuid)
		 ORDER BY seq DESC
		 LIMIT 1`,
		sessionID, nullableString(tenantScope),
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, domain.ErrCheckpointNotFound
	}
	return scanCheckpoint(rows)
}

func scanSessionRows(rows pgx.Rows) ([]*domain.Session, error) {
	var results []*domain.Session
	for rows.Next() {
		var session domain.Session
		var userID, title *string
		var metadata []byte
		if err := rows.Scan(&session.ID, &session.TenantID, &userID, &session.Agent, &title, &session.Status, &metadata, &session.CreatedAt, &session.UpdatedAt); err != nil {
			return nil, err
		}
		if userID != nil {
			session.UserID = *userID
		}
		if title != nil {
			session.Title = *title
		}
		var err error
		if session.Metadata, err = unmarshalMetadata(metadata); err != nil {
			return nil, err
		}
		results = append(results, &session)
	}
	return results, rows.Err()
}

func scanCheckpoint(rows pgx.Rows) (*domain.Checkpoint, error) {
	var cp domain.Checkpoint
	var state []byte
	if err := rows.Scan(&cp.ID, &cp.SessionID, &cp.TenantID, &cp.Seq, &state, &cp.CreatedAt); err != nil {
		return nil, err
	}
	if len(state) > 0 {
		if err := json.Unmarshal(state, &cp.State); err != nil {
			return nil, err
		}
	}
	return &cp, nil
}
