package httpadapter

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestUpstreamProxyRewritesPath(t *testing.T) {
	var gotPath, gotQuery string
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		w.WriteHeader(http.StatusOK)
	}))
	defer backend.Close()

	proxy, err := NewUpstreamProxy(backend.URL + "/api/v1")
	if err != nil {
		t.Fatalf("NewUpstreamProxy() error = %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/auth/login?next=home", nil)
	res := httptest.NewRecorder()
	proxy.ServeHTTP(res, req)

	if res.Code != http.StatusOK {
		t.Fatalf("status = %d", res.Code)
	}
	if gotPath != "/api/v1/auth/login" {
		t.Fatalf("backend path = %q", gotPath)
	}
	if gotQuery != "next=home" {
		t.Fatalf("backend query = %q", gotQuery)
	}
}

func TestUpstreamProxyRejectsRelativeURL(t *testing.T) {
	if _, err := NewUpstreamProxy("/just/a/path"); err == nil {
		t.Fatalf("expected error for relative upstream url")
	}
}

func TestUpstreamProxyBadGatewayOnFailure(t *testing.T) {
	proxy, err := NewUpstreamProxy("http://127.0.0.1:1")
	if err != nil {
		t.Fatalf("NewUpstreamProxy() error = %v", err)
	}

	res := httptest.NewRecorder()
	proxy.ServeHTTP(res, httptest.NewRequest(http.MethodGet, "/api/v1/anything", nil))
	if res.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", res.Code)
	}
}
