package httpadapter

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

type directoryFake struct {
	list    *domain.ProcedureList
	proc    *domain.Procedure
	err     error
	lastGet string
	query   domain.ProcedureListQuery
}

func (f *directoryFake) List(_ context.Context, query domain.ProcedureListQuery) (*domain.ProcedureList, error) {
	f.query = query
	return f.list, f.err
}

func (f *directoryFake) Get(_ context.Context, id string) (*domain.Procedure, error) {
	f.lastGet = id
	return f.proc, f.err
}

type feedbackFake struct {
	page          *domain.FeedbackPage
	item          *domain.FeedbackItem
	message       string
	err           error
	submitParams  *domain.SubmitFeedbackParams
	respondParams *domain.RespondFeedbackParams
	listToken     string
}

func (f *feedbackFake) List(_ context.Context, _ string, _, _ int, _, authToken string) (*domain.FeedbackPage, error) {
	f.listToken = authToken
	return f.page, f.err
}

func (f *feedbackFake) Submit(_ context.Context, params domain.SubmitFeedbackParams) (*domain.FeedbackItem, error) {
	f.submitParams = &params
	return f.item, f.err
}

func (f *feedbackFake) Respond(_ context.Context, params domain.RespondFeedbackParams) (string, error) {
	f.respondParams = &params
	return f.message, f.err
}

type exporterFake struct {
	raw   []byte
	err   error
	id    string
	token string
}

func (f *exporterFake) Export(_ context.Context, procedureID, authToken string) ([]byte, error) {
	f.id = procedureID
	f.token = authToken
	return f.raw, f.err
}

func newTestRouter(directory *directoryFake, feedback *feedbackFake, exporter *exporterFake, proxy http.Handler) http.Handler {
	if directory == nil {
		directory = &directoryFake{}
	}
	if feedback == nil {
		feedback = &feedbackFake{}
	}
	if exporter == nil {
		exporter = &exporterFake{}
	}
	return NewRouter(directory, feedback, exporter, proxy, TrafficConfig{}, nil).Handler()
}

func TestHealthz(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestListProcedures(t *testing.T) {
	directory := &directoryFake{
		list: &domain.ProcedureList{
			Procedures: []domain.Procedure{{ID: "a", Title: "First"}},
			Pagination: domain.Pagination{Page: 2, Limit: 10, Total: 11, TotalPages: 2, HasNext: false},
		},
	}
	handler := newTestRouter(directory, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/procedures?page=2&limit=10&name=passport", nil)
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", res.Code, res.Body.String())
	}
	if directory.query.Page != 2 || directory.query.Limit != 10 || directory.query.Name != "passport" {
		t.Fatalf("query = %+v", directory.query)
	}

	var body domain.ProcedureList
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(body.Procedures) != 1 || body.Procedures[0].ID != "a" {
		t.Fatalf("body = %+v", body)
	}
}

func TestGetProcedure(t *testing.T) {
	directory := &directoryFake{proc: &domain.Procedure{ID: "p1", Title: "Passport Renewal"}}
	handler := newTestRouter(directory, nil, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/procedures/p1", nil))

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if directory.lastGet != "p1" {
		t.Fatalf("requested id = %q", directory.lastGet)
	}
}

func TestGetProcedureNotFoundMapsTo404(t *testing.T) {
	directory := &directoryFake{
		err: domain.WrapError(domain.ErrProcedureNotFound, "fetch procedure", context.Canceled),
	}
	handler := newTestRouter(directory, nil, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/procedures/missing", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestErrorKindStatusMapping(t *testing.T) {
	tests := []struct {
		kind error
		want int
	}{
		{domain.ErrInvalidInput, http.StatusBadRequest},
		{domain.ErrUnauthorized, http.StatusUnauthorized},
		{domain.ErrProcedureNotFound, http.StatusNotFound},
		{domain.ErrTemporary, http.StatusServiceUnavailable},
		{domain.ErrUpstream, http.StatusBadGateway},
	}

	for _, tt := range tests {
		directory := &directoryFake{err: domain.WrapError(tt.kind, "op", context.Canceled)}
		handler := newTestRouter(directory, nil, nil, nil)

		res := httptest.NewRecorder()
		handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/procedures/p1", nil))
		if res.Code != tt.want {
			t.Fatalf("kind %v mapped to %d, want %d", tt.kind, res.Code, tt.want)
		}
	}
}

func TestSubmitFeedback(t *testing.T) {
	feedback := &feedbackFake{
		item: &domain.FeedbackItem{ID: "fb-1", Content: "Slow office", Type: domain.FeedbackImprovement},
	}
	handler := newTestRouter(nil, feedback, nil, nil)

	req := httptest.NewRequest(
		http.MethodPost,
		"/api/v1/procedures/p1/feedback",
		strings.NewReader(`{"content":"Slow office","type":"improvement","tags":["speed"]}`),
	)
	req.Header.Set("Authorization", "Bearer tok")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusCreated {
		t.Fatalf("status = %d body = %s", res.Code, res.Body.String())
	}
	if feedback.submitParams == nil {
		t.Fatalf("expected Submit call")
	}
	if feedback.submitParams.ProcedureID != "p1" || feedback.submitParams.Content != "Slow office" {
		t.Fatalf("params = %+v", feedback.submitParams)
	}
	if feedback.submitParams.AuthToken != "tok" {
		t.Fatalf("auth token = %q", feedback.submitParams.AuthToken)
	}
}

func TestSubmitFeedbackRejectsBadJSON(t *testing.T) {
	handler := newTestRouter(nil, &feedbackFake{}, nil, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/procedures/p1/feedback", strings.NewReader("{nope"))
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if res.Code != http.StatusBadRequest {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestListFeedbackPassesBearerToken(t *testing.T) {
	feedback := &feedbackFake{page: &domain.FeedbackPage{Page: 1, Limit: 10}}
	handler := newTestRouter(nil, feedback, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/procedures/p1/feedback?page=1&limit=10", nil)
	req.Header.Set("Authorization", "Bearer secret")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if feedback.listToken != "secret" {
		t.Fatalf("token = %q", feedback.listToken)
	}
}

func TestRespondFeedback(t *testing.T) {
	feedback := &feedbackFake{message: "feedback updated"}
	handler := newTestRouter(nil, feedback, nil, nil)

	req := httptest.NewRequest(
		http.MethodPatch,
		"/api/v1/feedback/fb-1",
		strings.NewReader(`{"admin_response":"fixed","status":"closed","procedureID":"p1"}`),
	)
	req.Header.Set("Authorization", "Bearer admin")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", res.Code, res.Body.String())
	}
	if feedback.respondParams == nil {
		t.Fatalf("expected Respond call")
	}
	if feedback.respondParams.FeedbackID != "fb-1" || feedback.respondParams.ProcedureID != "p1" {
		t.Fatalf("params = %+v", feedback.respondParams)
	}

	var body map[string]string
	_ = json.NewDecoder(res.Body).Decode(&body)
	if body["message"] != "feedback updated" {
		t.Fatalf("body = %v", body)
	}
}

func TestExportFeedback(t *testing.T) {
	exporter := &exporterFake{raw: []byte("xlsx-bytes")}
	handler := newTestRouter(nil, nil, exporter, nil)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/procedures/p1/feedback/export", nil)
	req.Header.Set("Authorization", "Bearer admin")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if got := res.Header().Get("Content-Type"); !strings.Contains(got, "spreadsheetml") {
		t.Fatalf("content type = %q", got)
	}
	if exporter.id != "p1" || exporter.token != "admin" {
		t.Fatalf("exporter args = %q %q", exporter.id, exporter.token)
	}
	if res.Body.String() != "xlsx-bytes" {
		t.Fatalf("body = %q", res.Body.String())
	}
}

func TestUnhandledAPIRouteGoesToProxy(t *testing.T) {
	proxied := false
	proxy := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		proxied = true
		w.WriteHeader(http.StatusTeapot)
	})
	handler := newTestRouter(nil, nil, nil, proxy)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodPost, "/api/v1/auth/login", nil))

	if !proxied {
		t.Fatalf("expected proxy to handle the request")
	}
	if res.Code != http.StatusTeapot {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestUnknownRouteWithoutProxyIs404(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if res.Code != http.StatusNotFound {
		t.Fatalf("status = %d", res.Code)
	}
}

func TestRequestIDHeaderIsSet(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	res := httptest.NewRecorder()
	handler.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if res.Header().Get(requestIDHeader) == "" {
		t.Fatalf("expected request id header")
	}
}

func TestRequestIDHeaderPreservesInbound(t *testing.T) {
	handler := newTestRouter(nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set(requestIDHeader, "req-abc")
	res := httptest.NewRecorder()
	handler.ServeHTTP(res, req)
	if got := res.Header().Get(requestIDHeader); got != "req-abc" {
		t.Fatalf("request id = %q, want the caller's value kept", got)
	}
}
