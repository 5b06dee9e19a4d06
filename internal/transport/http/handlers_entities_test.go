package httptransport

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	id "pitchfund/pkg/domain"
	dErrors "pitchfund/pkg/domain-errors"
)

// fakeGateway records calls and returns canned responses.
type fakeGateway struct {
	readKind   id.EntityKind
	readID     string
	readGroups []id.FieldGroup
	readResult map[string]any
	readErr    error

	writeKind  id.EntityKind
	writePatch map[string]any
	writeErr   error

	created map[string]any
}

func (f *fakeGateway) ReadEntity(_ context.Context, kind id.EntityKind, rawID string, groups []id.FieldGroup) (map[string]any, error) {
	f.readKind, f.readID, f.readGroups = kind, rawID, groups
	return f.readResult, f.readErr
}

func (f *fakeGateway) WriteEntity(_ context.Context, kind id.EntityKind, rawID string, patch map[string]any) (map[string]any, error) {
	f.writeKind, f.writePatch = kind, patch
	if f.writeErr != nil {
		return nil, f.writeErr
	}
	return patch, nil
}

func (f *fakeGateway) CreateCompany(_ context.Context, name string, patch map[string]any) (map[string]any, error) {
	f.created = map[string]any{"name": name}
	return f.created, nil
}

func (f *fakeGateway) CreateFounder(_ context.Context, name, role string) (map[string]any, error) {
	f.created = map[string]any{"name": name, "role": role}
	return f.created, nil
}

func (f *fakeGateway) CreateUpdate(_ context.Context, companyID id.CompanyID, founderID id.FounderID,
	periodStart, periodEnd time.Time, patch map[string]any) (map[string]any, error) {
	f.created = map[string]any{"company_id": companyID.String()}
	return f.created, nil
}

func (f *fakeGateway) CreateMetricPoint(_ context.Context, companyID id.CompanyID, name string,
	periodEnd time.Time, value float64) (map[string]any, error) {
	f.created = map[string]any{"name": name, "value": value}
	return f.created, nil
}

func (f *fakeGateway) LinkFounder(context.Context, id.CompanyID, id.FounderID, string) error {
	return nil
}

func (f *fakeGateway) RecordInvestment(context.Context, id.CompanyID, string, int64, time.Time) error {
	return nil
}

type EntityHandlerSuite struct {
	suite.Suite

	gateway *fakeGateway
	router  chi.Router
}

func TestEntityHandlerSuite(t *testing.T) {
	suite.Run(t, new(EntityHandlerSuite))
}

func (s *EntityHandlerSuite) SetupTest() {
	s.gateway = &fakeGateway{readResult: map[string]any{"name": "Acme"}}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s.router = chi.NewRouter()
	NewEntityHandler(s.gateway, logger).Register(s.router)
}

func (s *EntityHandlerSuite) do(method, target string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(encoded)
	}
	req := httptest.NewRequest(method, target, reader)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *EntityHandlerSuite) TestReadPassesGroups() {
	entityID := uuid.NewString()
	w := s.do(http.MethodGet, "/entities/company/"+entityID+"?groups=public,restricted", nil)

	s.Equal(http.StatusOK, w.Code)
	s.Equal(id.KindCompany, s.gateway.readKind)
	s.Equal(entityID, s.gateway.readID)
	s.Equal([]id.FieldGroup{id.GroupPublic, id.GroupRestricted}, s.gateway.readGroups)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("Acme", resp["name"])
}

func (s *EntityHandlerSuite) TestReadRejectsBadKindAndGroup() {
	w := s.do(http.MethodGet, "/entities/gadget/"+uuid.NewString(), nil)
	s.Equal(http.StatusBadRequest, w.Code)

	w = s.do(http.MethodGet, "/entities/company/"+uuid.NewString()+"?groups=secret", nil)
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *EntityHandlerSuite) TestReadMapsNotFound() {
	s.gateway.readErr = dErrors.New(dErrors.CodeNotFound, "not found")

	w := s.do(http.MethodGet, "/entities/company/"+uuid.NewString(), nil)
	s.Equal(http.StatusNotFound, w.Code)

	var resp map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal("not_found", resp["error"])
}

func (s *EntityHandlerSuite) TestWrite() {
	s.Run("patch flows through", func() {
		w := s.do(http.MethodPatch, "/entities/company/"+uuid.NewString(),
			map[string]any{"tagline": "new"})

		s.Equal(http.StatusOK, w.Code)
		s.Equal(id.KindCompany, s.gateway.writeKind)
		s.Equal(map[string]any{"tagline": "new"}, s.gateway.writePatch)
	})

	s.Run("denial maps to 403", func() {
		s.gateway.writeErr = dErrors.New(dErrors.CodeAccessDenied, "access denied")

		w := s.do(http.MethodPatch, "/entities/company/"+uuid.NewString(),
			map[string]any{"tagline": "new"})
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("missing body is invalid input", func() {
		w := s.do(http.MethodPatch, "/entities/company/"+uuid.NewString(), nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *EntityHandlerSuite) TestCreateCompany() {
	w := s.do(http.MethodPost, "/companies", CreateCompanyRequest{Name: "Beta Health"})

	s.Equal(http.StatusCreated, w.Code)
	s.Equal(map[string]any{"name": "Beta Health"}, s.gateway.created)
}

func (s *EntityHandlerSuite) TestCreateUpdateRejectsBadIDs() {
	w := s.do(http.MethodPost, "/updates", CreateUpdateRequest{
		CompanyID: "not-a-uuid",
		FounderID: uuid.NewString(),
	})
	s.Equal(http.StatusBadRequest, w.Code)
}

func (s *EntityHandlerSuite) TestLinkFounder() {
	companyID := uuid.NewString()
	w := s.do(http.MethodPost, "/companies/"+companyID+"/founders", LinkFounderRequest{
		FounderID: uuid.NewString(),
		Role:      "CTO",
	})

	s.Equal(http.StatusCreated, w.Code)

	var resp map[string]string
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &resp))
	s.Equal(companyID, resp["company_id"])
}
