package service

import (
	"context"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/pagination"
	"github.com/halcyondata/recall/internal/telemetry"
)

// SessionRepositoryInterface defines the repository interface for session persistence
type SessionRepositoryInterface interface {
	Create(ctx context.Context, session *domain.Session) error
	GetByID(ctx context.Context, id, tenantScope string) (*domain.Session, error)
	ListWithCursor(ctx context.Context, tenantScope, tenantFilter string, cursor *pagination.Cursor, limit int) (*SessionPageResult, error)
	UpdateStatus(ctx context.Context, id, tenantScope string, status domain.SessionStatus) error
	AppendCheckpoint(ctx context.Context, cp *domain.Checkpoint) error
	ListCheckpoints(ctx context.Context, sessionID, tenantScope string) ([]*domain.Checkpoint, error)
	GetLatestCheckpoint(ctx context.Context, sessionID, tenantScope string) (*domain.Checkpoint, error)
}

type SessionPageResult struct {
	Items      []*domain.Session
	NextCursor string
	HasMore    bool
}

// SessionService handles business logic for agent sessions and checkpoints
type SessionService struct {
	sessionRepo SessionRepositoryInterface
	uuidGen     UUIDGenerator
}

// NewSessionService creates a new SessionService instance
func NewSessionService(sessionRepo SessionRepositoryInterface) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		uuidGen:     &DefaultUUIDGenerator{},
	}
}

// NewSessionServiceWithUUIDGen creates a new SessionService with custom UUID generator (for testing)
func NewSessionServiceWithUUIDGen(sessionRepo SessionRepositoryInterface, uuidGen UUIDGenerator) *SessionService {
	return &SessionService{
		sessionRepo: sessionRepo,
		uuidGen:     uuidGen,
	}
}

// CreateSessionInput represents the input for starting a session
type CreateSessionInput struct {
	TenantID string
	UserID   string
	Agent    string
	Title    string
	Metadata map[string]any
}

type ListSessionsInput struct {
	TenantFilter string
	Cursor       string
	Limit        int
}

type ListSessionsOutput struct {
	Items   []*domain.Session
	Cursor  string
	HasMore bool
}

// Create starts a new active session for the tenant.
func (s *SessionService) Create(ctx context.Context, input CreateSessionInput) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.Create", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "create",
	})
	defer span.End()

	if _, err := writerClaims(ctx); err != nil {
		return nil, err
	}

	if input.TenantID == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required")
	}
	if input.Agent == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "session agent is required")
	}

	session := domain.NewSession(
		s.uuidGen.NewString(),
		input.TenantID,
		input.UserID,
		input.Agent,
		input.Title,
		input.Metadata,
		time.Now().UTC(),
	)

	if err := domain.ValidateSession(session); err != nil {
		return nil, err
	}

	if err := s.sessionRepo.Create(ctx, session); err != nil {
		return nil, err
	}

	return session, nil
}

// GetByID retrieves a session visible to the caller.
func (s *SessionService) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.GetByID", telemetry.SpanAttributes{
		SessionID: id,
		Operation: "get",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	return s.sessionRepo.GetByID(ctx, id, claims.TenantScope())
}

// List pages sessions newest-first under the caller's scope.
func (s *SessionService) List(ctx context.Context, input ListSessionsInput) (*ListSessionsOutput, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.List", telemetry.SpanAttributes{
		TenantID:  input.TenantFilter,
		Operation: "list",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	cursor, _ := pagination.DecodeCursor(input.Cursor)
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}

	result, err := s.sessionRepo.ListWithCursor(ctx, claims.TenantScope(), input.TenantFilter, cursor, limit)
	if err != nil {
		return nil, err
	}

	return &ListSessionsOutput{
		Items:   result.Items,
		Cursor:  result.NextCursor,
		HasMore: result.HasMore,
	}, nil
}

// End marks a session ended. Ending twice is an error so callers notice
// double teardown.
func (s *SessionService) End(ctx context.Context, id string) (*domain.Session, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.End", telemetry.SpanAttributes{
		SessionID: id,
		Operation: "end",
	})
	defer span.End()

	claims, err := writerClaims(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, id, claims.TenantScope())
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusEnded {
		return nil, domain.ErrSessionEnded
	}

	if err := s.sessionRepo.UpdateStatus(ctx, id, claims.TenantScope(), domain.SessionStatusEnded); err != nil {
		return nil, err
	}

	session.Status = domain.SessionStatusEnded
	session.UpdatedAt = time.Now().UTC()
	return session, nil
}

// AppendCheckpoint snapshots state onto an active session. The store assigns
// the next seq; callers never pick one.
func (s *SessionService) AppendCheckpoint(ctx context.Context, sessionID string, state map[string]any) (*domain.Checkpoint, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.AppendCheckpoint", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "checkpoint",
	})
	defer span.End()

	claims, err := writerClaims(ctx)
	if err != nil {
		return nil, err
	}

	session, err := s.sessionRepo.GetByID(ctx, sessionID, claims.TenantScope())
	if err != nil {
		return nil, err
	}
	if session.Status == domain.SessionStatusEnded {
		return nil, domain.ErrSessionEnded
	}

	if state == nil {
		state = map[string]any{}
	}

	cp := &domain.Checkpoint{
		ID:        s.uuidGen.NewString(),
		SessionID: session.ID,
		TenantID:  session.TenantID,
		State:     state,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.sessionRepo.AppendCheckpoint(ctx, cp); err != nil {
		return nil, err
	}

	return cp, nil
}

// ListCheckpoints returns a session's checkpoints in seq order.
func (s *SessionService) ListCheckpoints(ctx context.Context, sessionID string) ([]*domain.Checkpoint, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.ListCheckpoints", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "list",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessionRepo.GetByID(ctx, sessionID, claims.TenantScope()); err != nil {
		return nil, err
	}

	return s.sessionRepo.ListCheckpoints(ctx, sessionID, claims.TenantScope())
}

// GetLatestCheckpoint returns the highest-seq checkpoint, the one an agent
// resumes from.
func (s *SessionService) GetLatestCheckpoint(ctx context.Context, sessionID string) (*domain.Checkpoint, error) {
	ctx, span := telemetry.StartSpan(ctx, "SessionService.GetLatestCheckpoint", telemetry.SpanAttributes{
		SessionID: sessionID,
		Operation: "get",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := s.sessionRepo.GetByID(ctx, sessionID, claims.TenantScope()); err != nil {
		return nil, err
	}

	return s.sessionRepo.GetLatestCheckpoint(ctx, sessionID, claims.TenantScope())
}
