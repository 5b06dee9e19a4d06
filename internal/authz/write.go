package authz

import (
	"context"
	"errors"
	"time"

	identitymodels "pitchfund/internal/identity/models"
	"pitchfund/internal/portfolio/models"
	"pitchfund/internal/taxonomy"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/platform/sentinel"
	"pitchfund/pkg/requestcontext"

	"github.com/google/uuid"
)

// patchTagFields maps patch keys to the governed tag field they carry.
var patchTagFields = map[string]id.TagField{
	"industries":      id.TagFieldIndustry,
	"business_models": id.TagFieldBusinessModel,
	"keywords":        id.TagFieldKeyword,
	"co_investors":    id.TagFieldCoInvestor,
}

// WriteEntity applies a partial update to one entity. Unlike reads, a caller
// without write permission gets an explicit access-denied error. Governed tag
// arrays in the patch are normalized and validated before the entity mutates;
// open-field values unseen so far join the vocabulary only after the mutation
// committed.
//
// Identity self-scope mirrors the read side: an identity may write its own
// record regardless of role, but role changes stay admin-only.
func (g *Gateway) WriteEntity(ctx context.Context, kind id.EntityKind, rawID string, patch map[string]any) (map[string]any, error) {
	role := requestcontext.Role(ctx)
	selfScoped := kind == id.KindIdentity && g.isSelf(ctx, rawID)
	if !CanWrite(role, kind) && !selfScoped {
		g.countWriteDenied(kind)
		g.logger.InfoContext(ctx, "entity write denied",
			"kind", kind.String(), "role", role.String())
		return nil, dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}
	if len(patch) == 0 {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "patch cannot be empty")
	}

	switch kind {
	case id.KindCompany:
		return g.writeCompany(ctx, rawID, patch)
	case id.KindFounder:
		return g.writeFounder(ctx, rawID, patch)
	case id.KindUpdate:
		return g.writeUpdate(ctx, rawID, patch)
	case id.KindMetricPoint:
		return g.writeMetric(ctx, rawID, patch)
	case id.KindIdentity:
		return g.writeIdentity(ctx, rawID, patch)
	default:
		return nil, dErrors.New(dErrors.CodeInvalidInput, "unknown entity kind")
	}
}

func (g *Gateway) writeCompany(ctx context.Context, rawID string, patch map[string]any) (map[string]any, error) {
	companyID, err := id.ParseCompanyID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
	}
	p, err := g.parseCompanyPatch(patch)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	updated, err := g.entities.ExecuteCompany(ctx, companyID,
		func(*models.Company) error { return nil },
		func(c *models.Company) {
			if p.name != nil {
				c.Name = *p.name
			}
			if p.tagline != nil {
				c.Tagline = *p.tagline
			}
			if p.website != nil {
				c.Website = *p.website
			}
			if p.roundTerms != nil {
				c.RoundTerms = *p.roundTerms
			}
			if p.investedUSD != nil {
				c.InvestedUSD = *p.investedUSD
			}
			for field, values := range p.tags {
				c.SetTags(field, values)
			}
			c.UpdatedAt = now
		})
	if err != nil {
		return nil, wrapWriteErr(err)
	}

	if err := g.ensureOpenTags(ctx, p.tags); err != nil {
		return nil, err
	}
	return flattenGroups(updated.FieldGroups()), nil
}

func (g *Gateway) writeFounder(ctx context.Context, rawID string, patch map[string]any) (map[string]any, error) {
	founderID, err := id.ParseFounderID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
	}

	var name, role, email, linkedin *string
	for key, value := range patch {
		switch key {
		case "name":
			if name, err = asString(key, value); err != nil {
				return nil, err
			}
			if *name == "" {
				return nil, dErrors.NewField(dErrors.CodeValidation, "name", "cannot be empty")
			}
		case "role":
			if role, err = asString(key, value); err != nil {
				return nil, err
			}
		case "email":
			if email, err = asString(key, value); err != nil {
				return nil, err
			}
		case "linkedin":
			if linkedin, err = asString(key, value); err != nil {
				return nil, err
			}
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := g.entities.ExecuteFounder(ctx, founderID,
		func(*models.Founder) error { return nil },
		func(f *models.Founder) {
			if name != nil {
				f.Name = *name
			}
			if role != nil {
				f.Role = *role
			}
			if email != nil {
				f.Email = *email
			}
			if linkedin != nil {
				f.LinkedIn = *linkedin
			}
			f.UpdatedAt = now
		})
	if err != nil {
		return nil, wrapWriteErr(err)
	}
	return flattenGroups(updated.FieldGroups()), nil
}

func (g *Gateway) writeUpdate(ctx context.Context, rawID string, patch map[string]any) (map[string]any, error) {
	updateID, err := id.ParseUpdateID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
	}

	var rawText, summary *string
	var sentiment *float64
	var clearSentiment bool
	var topics []string
	var topicsSet bool

	for key, value := range patch {
		switch key {
		case "raw_text":
			if rawText, err = asString(key, value); err != nil {
				return nil, err
			}
		case "summary":
			if summary, err = asString(key, value); err != nil {
				return nil, err
			}
		case "sentiment":
			if value == nil {
				clearSentiment = true
				continue
			}
			v, ok := value.(float64)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a number or null")
			}
			if v < -1 || v > 1 {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be between -1 and 1")
			}
			sentiment = &v
		case "topics":
			topics, err = g.normalizeTags(id.TagFieldKeyword, key, value)
			if err != nil {
				return nil, err
			}
			topicsSet = true
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := g.entities.ExecuteUpdate(ctx, updateID,
		func(*models.Update) error { return nil },
		func(u *models.Update) {
			if rawText != nil {
				u.RawText = *rawText
			}
			if summary != nil {
				u.Summary = *summary
			}
			if clearSentiment {
				u.Sentiment = nil
			} else if sentiment != nil {
				u.Sentiment = sentiment
			}
			if topicsSet {
				u.Topics = topics
			}
			u.UpdatedAt = now
		})
	if err != nil {
		return nil, wrapWriteErr(err)
	}

	if topicsSet {
		if err := g.tags.EnsureOpenValues(ctx, id.TagFieldKeyword, topics); err != nil {
			return nil, err
		}
	}
	return flattenGroups(updated.FieldGroups()), nil
}

func (g *Gateway) writeMetric(ctx context.Context, rawID string, patch map[string]any) (map[string]any, error) {
	metricID, err := id.ParseMetricID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
	}

	var value *float64
	for key, raw := range patch {
		switch key {
		case "value":
			v, ok := raw.(float64)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a number")
			}
			value = &v
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}

	m, err := g.entities.FindMetricByID(ctx, metricID)
	if err != nil {
		return nil, wrapWriteErr(err)
	}
	if value != nil {
		m.Value = *value
	}
	if err := g.entities.SaveMetric(ctx, m); err != nil {
		return nil, wrapWriteErr(err)
	}
	return flattenGroups(m.FieldGroups()), nil
}

func (g *Gateway) writeIdentity(ctx context.Context, rawID string, patch map[string]any) (map[string]any, error) {
	identityID, err := id.ParseIdentityID(rawID)
	if err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "invalid entity id")
	}

	var newRole *id.Role
	var deactivate bool
	for key, value := range patch {
		switch key {
		case "role":
			if requestcontext.Role(ctx) != id.RoleAdmin {
				// Self-scope never extends to role escalation.
				g.countWriteDenied(id.KindIdentity)
				return nil, dErrors.New(dErrors.CodeAccessDenied, "access denied")
			}
			s, ok := value.(string)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a string")
			}
			r, err := id.ParseRole(s)
			if err != nil {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a supported role")
			}
			newRole = &r
		case "active":
			b, ok := value.(bool)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a boolean")
			}
			if b {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "identities cannot be reactivated")
			}
			deactivate = true
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}

	now := requestcontext.Now(ctx)
	updated, err := g.identities.Execute(ctx, identityID,
		func(ident *identitymodels.Identity) error {
			if newRole != nil {
				if err := ident.CanChangeRole(*newRole); err != nil {
					return err
				}
			}
			if deactivate {
				return ident.CanDeactivate()
			}
			return nil
		},
		func(ident *identitymodels.Identity) {
			if newRole != nil {
				ident.ApplyRoleChange(*newRole, now)
			}
			if deactivate {
				ident.ApplyDeactivation(now)
			}
		})
	if err != nil {
		return nil, wrapWriteErr(err)
	}
	return flattenGroups(renderIdentity(updated)), nil
}

// ---------------------------------------------------------------------------
// Creation
// ---------------------------------------------------------------------------

// CreateCompany provisions a new company and applies an optional initial
// patch through the same validation path as WriteEntity.
func (g *Gateway) CreateCompany(ctx context.Context, name string, patch map[string]any) (map[string]any, error) {
	if err := g.requireWrite(ctx, id.KindCompany); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	c, err := models.NewCompany(id.CompanyID(uuid.New()), name, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid company")
	}

	p, err := g.parseCompanyPatch(patch)
	if err != nil {
		return nil, err
	}
	if p.name != nil {
		c.Name = *p.name
	}
	if p.tagline != nil {
		c.Tagline = *p.tagline
	}
	if p.website != nil {
		c.Website = *p.website
	}
	if p.roundTerms != nil {
		c.RoundTerms = *p.roundTerms
	}
	if p.investedUSD != nil {
		c.InvestedUSD = *p.investedUSD
	}
	for field, values := range p.tags {
		c.SetTags(field, values)
	}

	if err := g.entities.SaveCompany(ctx, c); err != nil {
		return nil, wrapWriteErr(err)
	}
	if err := g.ensureOpenTags(ctx, p.tags); err != nil {
		return nil, err
	}
	return flattenGroups(c.FieldGroups()), nil
}

// CreateFounder provisions a new founder.
func (g *Gateway) CreateFounder(ctx context.Context, name, role string) (map[string]any, error) {
	if err := g.requireWrite(ctx, id.KindFounder); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	f, err := models.NewFounder(id.FounderID(uuid.New()), name, role, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid founder")
	}
	if err := g.entities.SaveFounder(ctx, f); err != nil {
		return nil, wrapWriteErr(err)
	}
	return flattenGroups(f.FieldGroups()), nil
}

// CreateUpdate records a founder update for one reporting period. Content
// fields arrive through the patch and run the same validation as WriteEntity.
func (g *Gateway) CreateUpdate(ctx context.Context, companyID id.CompanyID, founderID id.FounderID,
	periodStart, periodEnd time.Time, patch map[string]any) (map[string]any, error) {
	if err := g.requireWrite(ctx, id.KindUpdate); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	u, err := models.NewUpdate(id.UpdateID(uuid.New()), companyID, founderID, periodStart, periodEnd, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid update")
	}

	var topics []string
	var topicsSet bool
	for key, value := range patch {
		switch key {
		case "raw_text":
			s, err := asString(key, value)
			if err != nil {
				return nil, err
			}
			u.RawText = *s
		case "summary":
			s, err := asString(key, value)
			if err != nil {
				return nil, err
			}
			u.Summary = *s
		case "sentiment":
			if value == nil {
				continue
			}
			v, ok := value.(float64)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a number or null")
			}
			if v < -1 || v > 1 {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be between -1 and 1")
			}
			u.Sentiment = &v
		case "topics":
			topics, err = g.normalizeTags(id.TagFieldKeyword, key, value)
			if err != nil {
				return nil, err
			}
			u.Topics = topics
			topicsSet = true
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}

	if err := g.entities.SaveUpdate(ctx, u); err != nil {
		return nil, wrapWriteErr(err)
	}
	if topicsSet {
		if err := g.tags.EnsureOpenValues(ctx, id.TagFieldKeyword, topics); err != nil {
			return nil, err
		}
	}
	return flattenGroups(u.FieldGroups()), nil
}

// CreateMetricPoint records one KPI reading.
func (g *Gateway) CreateMetricPoint(ctx context.Context, companyID id.CompanyID, name string,
	periodEnd time.Time, value float64) (map[string]any, error) {
	if err := g.requireWrite(ctx, id.KindMetricPoint); err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	m, err := models.NewMetricPoint(id.MetricID(uuid.New()), companyID, name, periodEnd, value, now)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeValidation, "invalid metric point")
	}
	if err := g.entities.SaveMetric(ctx, m); err != nil {
		return nil, wrapWriteErr(err)
	}
	return flattenGroups(m.FieldGroups()), nil
}

// LinkFounder attaches a founder to a company.
func (g *Gateway) LinkFounder(ctx context.Context, companyID id.CompanyID, founderID id.FounderID, role string) error {
	if err := g.requireWrite(ctx, id.KindCompany); err != nil {
		return err
	}
	if _, err := g.entities.FindCompanyByID(ctx, companyID); err != nil {
		return wrapWriteErr(err)
	}
	if _, err := g.entities.FindFounderByID(ctx, founderID); err != nil {
		return wrapWriteErr(err)
	}

	now := requestcontext.Now(ctx)
	rel := &models.CompanyFounder{
		CompanyID: companyID,
		FounderID: founderID,
		Role:      role,
		Active:    true,
		StartedAt: now,
	}
	if err := g.entities.SaveCompanyFounder(ctx, rel); err != nil {
		return wrapWriteErr(err)
	}
	return nil
}

// RecordInvestment attaches a co-investor to a company. The investor key is a
// governed co-investor vocabulary value and goes through normalization and
// open-field expansion like any other tag.
func (g *Gateway) RecordInvestment(ctx context.Context, companyID id.CompanyID, investor string,
	amountUSD int64, firstRoundAt time.Time) error {
	if err := g.requireWrite(ctx, id.KindCompany); err != nil {
		return err
	}
	if amountUSD < 0 {
		return dErrors.NewField(dErrors.CodeValidation, "amount_usd", "cannot be negative")
	}
	if _, err := g.entities.FindCompanyByID(ctx, companyID); err != nil {
		return wrapWriteErr(err)
	}

	key := taxonomy.Normalize(investor)
	if err := g.tags.Validate(id.TagFieldCoInvestor, []string{key}); err != nil {
		return err
	}

	rel := &models.CompanyInvestor{
		CompanyID:    companyID,
		InvestorKey:  key,
		AmountUSD:    amountUSD,
		Active:       true,
		FirstRoundAt: firstRoundAt,
	}
	if err := g.entities.SaveCompanyInvestor(ctx, rel); err != nil {
		return wrapWriteErr(err)
	}
	return g.tags.EnsureOpenValues(ctx, id.TagFieldCoInvestor, []string{key})
}

// ---------------------------------------------------------------------------
// Patch plumbing
// ---------------------------------------------------------------------------

type companyPatch struct {
	name        *string
	tagline     *string
	website     *string
	roundTerms  *string
	investedUSD *int64
	tags        map[id.TagField][]string
}

func (g *Gateway) parseCompanyPatch(patch map[string]any) (*companyPatch, error) {
	p := &companyPatch{tags: make(map[id.TagField][]string)}
	var err error
	for key, value := range patch {
		if field, ok := patchTagFields[key]; ok {
			p.tags[field], err = g.normalizeTags(field, key, value)
			if err != nil {
				return nil, err
			}
			continue
		}
		switch key {
		case "name":
			if p.name, err = asString(key, value); err != nil {
				return nil, err
			}
			if *p.name == "" {
				return nil, dErrors.NewField(dErrors.CodeValidation, "name", "cannot be empty")
			}
		case "tagline":
			if p.tagline, err = asString(key, value); err != nil {
				return nil, err
			}
		case "website":
			if p.website, err = asString(key, value); err != nil {
				return nil, err
			}
		case "round_terms":
			if p.roundTerms, err = asString(key, value); err != nil {
				return nil, err
			}
		case "invested_usd":
			v, ok := value.(float64)
			if !ok || v != float64(int64(v)) {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be an integer")
			}
			if v < 0 {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "cannot be negative")
			}
			n := int64(v)
			p.investedUSD = &n
		default:
			return nil, dErrors.NewField(dErrors.CodeValidation, key, "unknown field")
		}
	}
	return p, nil
}

// normalizeTags coerces a patch value into a canonical, deduplicated tag
// array and validates it against the field's vocabulary and cardinality.
func (g *Gateway) normalizeTags(field id.TagField, key string, value any) ([]string, error) {
	raw, err := asStringSlice(key, value)
	if err != nil {
		return nil, err
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]bool, len(raw))
	for _, v := range raw {
		normalized := taxonomy.Normalize(v)
		if seen[normalized] {
			continue
		}
		seen[normalized] = true
		out = append(out, normalized)
	}
	if err := g.tags.Validate(field, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (g *Gateway) ensureOpenTags(ctx context.Context, tags map[id.TagField][]string) error {
	for field, values := range tags {
		if err := g.tags.EnsureOpenValues(ctx, field, values); err != nil {
			return err
		}
	}
	return nil
}

func (g *Gateway) requireWrite(ctx context.Context, kind id.EntityKind) error {
	role := requestcontext.Role(ctx)
	if !CanWrite(role, kind) {
		g.countWriteDenied(kind)
		g.logger.InfoContext(ctx, "entity write denied",
			"kind", kind.String(), "role", role.String())
		return dErrors.New(dErrors.CodeAccessDenied, "access denied")
	}
	return nil
}

func flattenGroups(rendered map[id.FieldGroup]map[string]any) map[string]any {
	out := make(map[string]any)
	for _, group := range rendered {
		for field, value := range group {
			out[field] = value
		}
	}
	return out
}

func asString(key string, value any) (*string, error) {
	s, ok := value.(string)
	if !ok {
		return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be a string")
	}
	return &s, nil
}

func asStringSlice(key string, value any) ([]string, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case []string:
		return v, nil
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be an array of strings")
			}
			out = append(out, s)
		}
		return out, nil
	default:
		return nil, dErrors.NewField(dErrors.CodeValidation, key, "must be an array of strings")
	}
}

func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	var de *dErrors.Error
	if errors.As(err, &de) {
		return err
	}
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to write entity")
}
