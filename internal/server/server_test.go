package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"github.com/orbitalworks/foundry/internal/accountctx"
	"github.com/orbitalworks/foundry/internal/authgw"
	"github.com/orbitalworks/foundry/internal/config"
	"github.com/orbitalworks/foundry/internal/events"
	facilitydomain "github.com/orbitalworks/foundry/internal/facility/domain"
	jobdomain "github.com/orbitalworks/foundry/internal/job/domain"
	"github.com/orbitalworks/foundry/internal/registry"
	"go.uber.org/zap"
)

type stubAuth struct{}

func (stubAuth) Authorize(ctx context.Context, credential string) (accountctx.Identity, error) {
	switch credential {
	case "owner-token":
		return accountctx.Identity{AccountID: "acct-owner"}, nil
	case "admin-token":
		return accountctx.Identity{AccountID: "acct-admin", Privileged: true}, nil
	default:
		return accountctx.Identity{}, authgw.ErrUnauthorized
	}
}

func (stubAuth) ServiceToken(ctx context.Context) (string, error) {
	return "svc-token", nil
}

type stubJobService struct {
	submitted []jobdomain.SubmitRequest
}

func (s *stubJobService) Submit(ctx context.Context, req jobdomain.SubmitRequest) (*jobdomain.Job, error) {
	identity, ok := accountctx.FromContext(ctx)
	if !ok {
		return nil, authgw.ErrUnauthorized
	}
	s.submitted = append(s.submitted, req)
	node, _ := snowflake.NewNode(1)
	return &jobdomain.Job{
		ID:         node.Generate(),
		FacilityID: req.FacilityID,
		AccountID:  identity.AccountID,
		Action:     jobdomain.Action(req.Action),
		Target:     req.Target,
		Quantity:   req.Quantity,
		Status:     jobdomain.StatusQueued,
		CreatedAt:  time.Now().UTC(),
	}, nil
}

func (s *stubJobService) Get(ctx context.Context, id string) (*jobdomain.Job, error) {
	return nil, jobdomain.ErrNotFound
}

func (s *stubJobService) List(ctx context.Context, all bool) ([]jobdomain.Job, error) {
	return nil, nil
}

func (s *stubJobService) Cancel(ctx context.Context, id string) error {
	return jobdomain.ErrCancellationUnsupported
}

type stubFacilityService struct {
	facilities []facilitydomain.Facility
}

func (s *stubFacilityService) Build(ctx context.Context, req facilitydomain.BuildRequest) (*facilitydomain.Facility, error) {
	f := facilitydomain.Facility{ID: req.ID, BlueprintID: req.BlueprintID, AccountID: req.AccountID}
	s.facilities = append(s.facilities, f)
	return &f, nil
}

func (s *stubFacilityService) Destroy(ctx context.Context, id string) error {
	return nil
}

func (s *stubFacilityService) Get(ctx context.Context, id string) (*facilitydomain.Facility, error) {
	for i := range s.facilities {
		if s.facilities[i].ID == id {
			return &s.facilities[i], nil
		}
	}
	return nil, facilitydomain.ErrNotFound
}

func (s *stubFacilityService) List(ctx context.Context) ([]facilitydomain.Facility, error) {
	return s.facilities, nil
}

func newTestServer(t *testing.T) (*Server, *stubJobService, *stubFacilityService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	engine := gin.New()
	engine.Use(ErrorHandlingMiddleware())

	jobSvc := &stubJobService{}
	facSvc := &stubFacilityService{}
	srv := NewServer(ServerParams{
		Gin:         engine,
		Cfg:         config.Config{HTTPPort: "0"},
		Log:         zap.NewNop(),
		AuthSvc:     stubAuth{},
		FacilitySvc: facSvc,
		JobSvc:      jobSvc,
		Registry:    registry.New(),
		Hub:         events.NewHub(),
	})
	return srv, jobSvc, facSvc
}

func doRequest(srv *Server, method, path, token, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	srv.engine.ServeHTTP(w, req)
	return w
}

func TestRoutesRequireAuthentication(t *testing.T) {
	srv, _, _ := newTestServer(t)

	for _, path := range []string{"/jobs", "/facilities", "/spodb"} {
		w := doRequest(srv, http.MethodGet, path, "", "")
		if w.Code != http.StatusUnauthorized {
			t.Fatalf("GET %s without token: expected 401, got %d", path, w.Code)
		}
	}
}

func TestSubmitJobReturnsCreated(t *testing.T) {
	srv, jobSvc, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/jobs", "owner-token",
		`{"facility":"fac-1","action":"manufacture","target":"widget","quantity":2}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(jobSvc.submitted) != 1 || jobSvc.submitted[0].Target != "widget" {
		t.Fatalf("expected submitted job, got %+v", jobSvc.submitted)
	}
}

func TestSubmitJobRejectsMalformedBody(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/jobs", "owner-token", `{"facility":`)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", w.Code)
	}
}

func TestCancelJobLooksAbsent(t *testing.T) {
	srv, _, _ := newTestServer(t)

	w := doRequest(srv, http.MethodDelete, "/jobs/1234", "owner-token", "")
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", w.Code)
	}
}

func TestBuildFacilityForOtherAccountRequiresPrivilege(t *testing.T) {
	srv, _, facSvc := newTestServer(t)

	w := doRequest(srv, http.MethodPost, "/facilities/fac-1", "owner-token",
		`{"blueprint":"factory","account":"acct-other"}`)
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodPost, "/facilities/fac-1", "admin-token",
		`{"blueprint":"factory","account":"acct-other"}`)
	if w.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", w.Code, w.Body.String())
	}
	if len(facSvc.facilities) != 1 || facSvc.facilities[0].AccountID != "acct-other" {
		t.Fatalf("expected facility built for acct-other, got %+v", facSvc.facilities)
	}
}

func TestListFacilitiesIsScopedToCaller(t *testing.T) {
	srv, _, facSvc := newTestServer(t)
	facSvc.facilities = []facilitydomain.Facility{
		{ID: "fac-1", BlueprintID: "factory", AccountID: "acct-owner"},
		{ID: "fac-2", BlueprintID: "factory", AccountID: "acct-other"},
	}

	w := doRequest(srv, http.MethodGet, "/facilities", "owner-token", "")
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "fac-1") || strings.Contains(body, "fac-2") {
		t.Fatalf("expected only the caller's facilities, got %s", body)
	}

	// Privileged callers may list everything.
	w = doRequest(srv, http.MethodGet, "/facilities?all=true", "admin-token", "")
	body = w.Body.String()
	if !strings.Contains(body, "fac-1") || !strings.Contains(body, "fac-2") {
		t.Fatalf("expected every facility for privileged all=true, got %s", body)
	}
}

func TestDestroyFacilityRequiresOwnership(t *testing.T) {
	srv, _, facSvc := newTestServer(t)
	facSvc.facilities = []facilitydomain.Facility{
		{ID: "fac-1", BlueprintID: "factory", AccountID: "acct-other"},
	}

	w := doRequest(srv, http.MethodDelete, "/facilities/fac-1", "owner-token", "")
	if w.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", w.Code)
	}

	w = doRequest(srv, http.MethodDelete, "/facilities/fac-1", "admin-token", "")
	if w.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", w.Code)
	}
}
