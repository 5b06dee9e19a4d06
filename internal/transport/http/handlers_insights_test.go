package httptransport

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"pitchfund/internal/insights"
	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
	"pitchfund/pkg/testutil"
)

type fakeInsights struct {
	err error

	timeline  *insights.FounderTimeline
	progress  *insights.CompanyProgress
	insight   *insights.FounderInsights
	timelines []*insights.FounderTimeline
	summaries []*insights.CompanyProgress
	insightsA []*insights.FounderInsights
}

func (f *fakeInsights) FounderTimeline(context.Context, id.FounderID) (*insights.FounderTimeline, error) {
	return f.timeline, f.err
}

func (f *fakeInsights) CompanyProgress(context.Context, id.CompanyID) (*insights.CompanyProgress, error) {
	return f.progress, f.err
}

func (f *fakeInsights) FounderInsights(context.Context, id.FounderID) (*insights.FounderInsights, error) {
	return f.insight, f.err
}

func (f *fakeInsights) AllFounderTimelines(context.Context) ([]*insights.FounderTimeline, error) {
	return f.timelines, f.err
}

func (f *fakeInsights) AllCompanyProgress(context.Context) ([]*insights.CompanyProgress, error) {
	return f.summaries, f.err
}

func (f *fakeInsights) AllFounderInsights(context.Context) ([]*insights.FounderInsights, error) {
	return f.insightsA, f.err
}

func newInsightsRouter(service InsightsService) chi.Router {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	r := chi.NewRouter()
	NewInsightsHandler(service, logger).Register(r)
	return r
}

func TestInsightsRoutes(t *testing.T) {
	founderID := id.FounderID(uuid.New())
	router := newInsightsRouter(&fakeInsights{
		timeline: &insights.FounderTimeline{FounderID: founderID, FounderName: "Dana Vu"},
		timelines: []*insights.FounderTimeline{
			{FounderID: founderID, FounderName: "Dana Vu"},
		},
		summaries: []*insights.CompanyProgress{
			{CompanyName: "Acme Robotics"}, {CompanyName: "Beta Health"},
		},
	})

	t.Run("per-founder timeline", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/insights/founders/"+founderID.String()+"/timeline")
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleLP))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[insights.FounderTimeline](t, rr)
		assert.Equal(t, "Dana Vu", resp.FounderName)
	})

	t.Run("portfolio timelines", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/insights/timelines")
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleLP))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Len(t, (*resp)["timelines"], 1)
	})

	t.Run("portfolio company progress", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/insights/companies")
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleLP))

		testutil.AssertStatus(t, rr, http.StatusOK)
		resp := testutil.UnmarshalResponse[map[string]any](t, rr)
		assert.Len(t, (*resp)["companies"], 2)
	})

	t.Run("bad founder id is a 400", func(t *testing.T) {
		req := testutil.NewRequest(t, http.MethodGet, "/insights/founders/not-a-uuid/timeline")
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RoleLP))

		testutil.AssertStatus(t, rr, http.StatusBadRequest)
		testutil.AssertErrorCode(t, rr, "invalid_input")
	})
}

func TestInsightsDenialMapsTo403(t *testing.T) {
	router := newInsightsRouter(&fakeInsights{
		err: dErrors.New(dErrors.CodeAccessDenied, "access denied"),
	})

	for _, target := range []string{
		"/insights/timelines",
		"/insights/founders",
		"/insights/companies",
	} {
		req := testutil.NewRequest(t, http.MethodGet, target)
		rr := testutil.DoRequest(router, testutil.AsRole(req, id.RolePublic))

		testutil.AssertStatus(t, rr, http.StatusForbidden)
		testutil.AssertErrorCode(t, rr, "access_denied")
	}
}
