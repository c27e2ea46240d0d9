package adminapi

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestServerRoutesHealthzAndState(t *testing.T) {
	server := NewServer(":0", fakeStateSource{count: 3})
	ts := httptest.NewServer(server.http.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("GET /healthz: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("/healthz status = %d, want 200", resp.StatusCode)
	}

	resp2, err := http.Get(ts.URL + "/state")
	if err != nil {
		t.Fatalf("GET /state: %v", err)
	}
	defer resp2.Body.Close()
	if resp2.StatusCode != http.StatusOK {
		t.Errorf("/state status = %d, want 200", resp2.StatusCode)
	}
}

func TestServerUnknownRouteIs404(t *testing.T) {
	server := NewServer(":0", fakeStateSource{})
	ts := httptest.NewServer(server.http.Handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("/nope status = %d, want 404", resp.StatusCode)
	}
}
