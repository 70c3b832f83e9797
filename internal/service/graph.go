package service

import (
	"context"
	"time"

	"github.com/halcyondata/recall/internal/domain"
	"github.com/halcyondata/recall/internal/telemetry"
)

// GraphRepositoryInterface defines the repository interface for call-graph persistence
type GraphRepositoryInterface interface {
	UpsertEdges(ctx context.Context, edges []*domain.GraphEdge) error
	ListByCaller(ctx context.Context, tenantID, caller string) ([]*domain.GraphEdge, error)
	Paths(ctx context.Context, tenantID, from, to string, maxDepth int) ([]*domain.GraphPath, error)
}

// GraphService handles business logic for per-tenant call graphs
type GraphService struct {
	graphRepo GraphRepositoryInterface
	uuidGen   UUIDGenerator
}

// NewGraphService creates a new GraphService instance
func NewGraphService(graphRepo GraphRepositoryInterface) *GraphService {
	return &GraphService{
		graphRepo: graphRepo,
		uuidGen:   &DefaultUUIDGenerator{},
	}
}

// NewGraphServiceWithUUIDGen creates a new GraphService with custom UUID generator (for testing)
func NewGraphServiceWithUUIDGen(graphRepo GraphRepositoryInterface, uuidGen UUIDGenerator) *GraphService {
	return &GraphService{
		graphRepo: graphRepo,
		uuidGen:   uuidGen,
	}
}

// EdgeInput is one caller->callee relation to upsert.
type EdgeInput struct {
	Caller string
	Callee string
	File   string
	Line   int
}

// AddEdgesInput represents the input for bulk edge upserts
type AddEdgesInput struct {
	TenantID string
	ItemID   string
	Edges    []EdgeInput
}

// PathsInput represents one path query. TenantID is required for service
// keys; readers always traverse their own tenant's graph.
type PathsInput struct {
	TenantID string
	From     string
	To       string
	MaxDepth int
}

// AddEdges upserts caller->callee edges for a tenant. Re-adding an existing
// edge refreshes its item, file and line rather than erroring.
func (s *GraphService) AddEdges(ctx context.Context, input AddEdgesInput) ([]*domain.GraphEdge, error) {
	ctx, span := telemetry.StartSpan(ctx, "GraphService.AddEdges", telemetry.SpanAttributes{
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
	if len(input.Edges) == 0 {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "at least one edge is required")
	}

	now := time.Now().UTC()
	edges := make([]*domain.GraphEdge, 0, len(input.Edges))
	for _, e := range input.Edges {
		edge := &domain.GraphEdge{
			ID:        s.uuidGen.NewString(),
			TenantID:  input.TenantID,
			ItemID:    input.ItemID,
			Caller:    e.Caller,
			Callee:    e.Callee,
			File:      e.File,
			Line:      e.Line,
			CreatedAt: now,
		}
		if err := domain.ValidateGraphEdge(edge); err != nil {
			return nil, err
		}
		edges = append(edges, edge)
	}

	if err := s.graphRepo.UpsertEdges(ctx, edges); err != nil {
		return nil, err
	}

	return edges, nil
}

// ListByCaller returns a caller's outgoing edges within the resolved tenant.
func (s *GraphService) ListByCaller(ctx context.Context, tenantID, caller string) ([]*domain.GraphEdge, error) {
	ctx, span := telemetry.StartSpan(ctx, "GraphService.ListByCaller", telemetry.SpanAttributes{
		TenantID:  tenantID,
		Operation: "list",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if caller == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "caller symbol is required")
	}

	tenant, ok := resolveGraphTenant(claims, tenantID)
	if !ok {
		return []*domain.GraphEdge{}, nil
	}

	return s.graphRepo.ListByCaller(ctx, tenant, caller)
}

// Paths walks caller->callee chains from a starting symbol. A traversal
// never crosses tenants, so service keys must name the tenant to walk.
func (s *GraphService) Paths(ctx context.Context, input PathsInput) ([]*domain.GraphPath, error) {
	ctx, span := telemetry.StartSpan(ctx, "GraphService.Paths", telemetry.SpanAttributes{
		TenantID:  input.TenantID,
		Operation: "paths",
	})
	defer span.End()

	claims, err := callerClaims(ctx)
	if err != nil {
		return nil, err
	}

	if input.From == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "from symbol is required")
	}

	tenant, ok := resolveGraphTenant(claims, input.TenantID)
	if !ok {
		return []*domain.GraphPath{}, nil
	}
	if tenant == "" {
		return nil, domain.NewDomainError(domain.ErrCodeValidation, "tenant ID is required for path queries")
	}

	depth := domain.ClampPathDepth(input.MaxDepth)
	return s.graphRepo.Paths(ctx, tenant, input.From, input.To, depth)
}

// resolveGraphTenant decides which tenant's graph the caller may touch.
// Scoped callers get their own tenant; asking for a different one yields
// no rows (ok=false) rather than an error, matching list semantics.
func resolveGraphTenant(claims domain.Claims, requested string) (string, bool) {
	scope := claims.TenantScope()
	if scope == "" {
		return requested, true
	}
	if requested != "" && requested != scope {
		return "", false
	}
	return scope, true
}
