package authz

import (
	"context"
	"errors"
	"log/slog"

	identitymodels "pitchfund/internal/identity/models"
	"pitchfund/internal/platform/metrics"
	"pitchfund/internal/portfolio/models"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/sentinel"
	"pitchfund/pkg/requestcontext"
)

// EntityStore is the portfolio storage surface the gateway needs. Both store
// backends satisfy it.
type EntityStore interface {
	SaveCompany(ctx context.Context, company *models.Company) error
	FindCompanyByID(ctx context.Context, companyID id.CompanyID) (*models.Company, error)
	ExecuteCompany(ctx context.Context, companyID id.CompanyID,
		validate func(*models.Company) error, mutate func(*models.Company)) (*models.Company, error)

	SaveFounder(ctx context.Context, founder *models.Founder) error
	FindFounderByID(ctx context.Context, founderID id.FounderID) (*models.Founder, error)
	ExecuteFounder(ctx context.Context, founderID id.FounderID,
		validate func(*models.Founder) error, mutate func(*models.Founder)) (*models.Founder, error)

	SaveUpdate(ctx context.Context, update *models.Update) error
	FindUpdateByID(ctx context.Context, updateID id.UpdateID) (*models.Update, error)
	ExecuteUpdate(ctx context.Context, updateID id.UpdateID,
		validate func(*models.Update) error, mutate func(*models.Update)) (*models.Update, error)

	SaveMetric(ctx context.Context, point *models.MetricPoint) error
	FindMetricByID(ctx context.Context, metricID id.MetricID) (*models.MetricPoint, error)

	SaveCompanyFounder(ctx context.Context, rel *models.CompanyFounder) error
	SaveCompanyInvestor(ctx context.Context, rel *models.CompanyInvestor) error
}

// IdentityStore is the identity storage surface the gateway needs for
// identity-kind reads and writes.
type IdentityStore interface {
	FindByID(ctx context.Context, identityID id.IdentityID) (*identitymodels.Identity, error)
	Execute(ctx context.Context, identityID id.IdentityID,
		validate func(*identitymodels.Identity) error,
		mutate func(*identitymodels.Identity)) (*identitymodels.Identity, error)
}

// TagValidator is the taxonomy surface the gateway needs: validate governed
// tag arrays on the write path and record unseen open-field values after a
// write commits.
type TagValidator interface {
	Validate(field id.TagField, values []string) error
	EnsureOpenValues(ctx context.Context, field id.TagField, values []string) error
}

// Gateway is the single entry point for entity reads and writes. It resolves
// the caller's role from the request context, redacts field groups the role
// may not see, masks forbidden reads as not-found, and routes every governed
// tag array through the taxonomy engine before it can land on an entity.
type Gateway struct {
	entities   EntityStore
	identities IdentityStore
	tags       TagValidator
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

// Option configures optional gateway collaborators.
type Option func(*Gateway)

func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) { g.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(g *Gateway) { g.metrics = m }
}

func NewGateway(entities EntityStore, identities IdentityStore, tags TagValidator, opts ...Option) (*Gateway, error) {
	if entities == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "entity store is required")
	}
	if identities == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "identity store is required")
	}
	if tags == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "tag validator is required")
	}
	g := &Gateway{
		entities:   entities,
		identities: identities,
		tags:       tags,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ReadEntity loads one entity and returns the union of the requested field
// groups the caller's role may read. Groups the role may not see are omitted
// without error; a kind the role may not see at all comes back as not-found,
// indistinguishable from a missing row. An empty groups argument requests
// everything readable.
func (g *Gateway) ReadEntity(ctx context.Context, kind id.EntityKind, rawID string, groups []id.FieldGroup) (map[string]any, error) {
	role := requestcontext.Role(ctx)

	readable := ReadableGroups(role, kind)
	if kind == id.KindIdentity && len(readable) == 0 && g.isSelf(ctx, rawID) {
		readable = []id.FieldGroup{id.GroupPublic, id.GroupRestricted}
	}
	if len(readable) == 0 {
		g.countReadDenied(kind)
		g.logger.InfoContext(ctx, "entity read masked",
			"kind", kind.String(), "role", role.String())
		return nil, dErrors.New(dErrors.CodeNotFound, "not found")
	}

	rendered, err := g.loadGroups(ctx, kind, rawID)
	if err != nil {
		return nil, err
	}

	requested := groups
	if len(requested) == 0 {
		requested = readable
	}
	out := make(map[string]any)
	for _, group := range requested {
		if !containsGroup(readable, group) {
			continue
		}
		for field, value := range rendered[group] {
			out[field] = value
		}
	}
	return out, nil
}

func (g *Gateway) loadGroups(ctx context.Context, kind id.EntityKind, rawID string) (map[id.FieldGroup]map[string]any, error) {
	switch kind {
	case id.KindCompany:
		companyID, err := id.ParseCompanyID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
		}
		c, err := g.entities.FindCompanyByID(ctx, companyID)
		if err != nil {
			return nil, wrapLoadErr(err)
		}
		return c.FieldGroups(), nil

	case id.KindFounder:
		founderID, err := id.ParseFounderID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
		}
		f, err := g.entities.FindFounderByID(ctx, founderID)
		if err != nil {
			return nil, wrapLoadErr(err)
		}
		return f.FieldGroups(), nil

	case id.KindUpdate:
		updateID, err := id.ParseUpdateID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
		}
		u, err := g.entities.FindUpdateByID(ctx, updateID)
		if err != nil {
			return nil, wrapLoadErr(err)
		}
		return u.FieldGroups(), nil

	case id.KindMetricPoint:
		metricID, err := id.ParseMetricID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
		}
		m, err := g.entities.FindMetricByID(ctx, metricID)
		if err != nil {
			return nil, wrapLoadErr(err)
		}
		return m.FieldGroups(), nil

	case id.KindIdentity:
		identityID, err := id.ParseIdentityID(rawID)
		if err != nil {
			return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
		}
		ident, err := g.identities.FindByID(ctx, identityID)
		if err != nil {
			return nil, wrapLoadErr(err)
		}
		return renderIdentity(ident), nil

	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind")
	}
}

// isSelf reports whether rawID names the authenticated caller's own identity
// record. Self-scope lets every identity read its own record regardless of
// role.
func (g *Gateway) isSelf(ctx context.Context, rawID string) bool {
	identityID, err := id.ParseIdentityID(rawID)
	if err != nil || identityID.IsNil() {
		return false
	}
	return identityID == requestcontext.IdentityID(ctx)
}

func renderIdentity(ident *identitymodels.Identity) map[id.FieldGroup]map[string]any {
	return map[id.FieldGroup]map[string]any{
		id.GroupPublic: {
			"id": ident.ID.String(),
		},
		id.GroupRestricted: {
			"role":       ident.Role.String(),
			"active":     ident.Active,
			"created_at": ident.CreatedAt,
			"updated_at": ident.UpdatedAt,
		},
	}
}

func containsGroup(groups []id.FieldGroup, group id.FieldGroup) bool {
	for _, g := range groups {
		if g == group {
			return true
		}
	}
	return false
}

func wrapLoadErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "not found")
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load entity")
	}
}

func (g *Gateway) countReadDenied(kind id.EntityKind) {
	if g.metrics != nil {
		g.metrics.ReadsDenied.WithLabelValues(kind.String()).Inc()
	}
}

func (g *Gateway) countWriteDenied(kind id.EntityKind) {
	if g.metrics != nil {
		g.metrics.WritesDenied.WithLabelValues(kind.String()).Inc()
	}
}
