package retriever

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestOriginAuthenticateDecodesResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity/authenticate" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		if r.URL.Query().Get("token") != "tok-123" {
			t.Errorf("unexpected token: %s", r.URL.Query().Get("token"))
		}
		json.NewEncoder(w).Encode(authenticateResponse{Email: "player@example.com", DisplayName: "Shepard"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	email, name, err := c.OriginAuthenticate(context.Background(), "tok-123")
	if err != nil {
		t.Fatalf("OriginAuthenticate: %v", err)
	}
	if email != "player@example.com" || name != "Shepard" {
		t.Errorf("got (%q, %q)", email, name)
	}
}

func TestOriginAuthenticateNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, _, err := c.OriginAuthenticate(context.Background(), "bad-token"); err == nil {
		t.Error("expected error for non-200 response")
	}
}

func TestOriginGetSettingsDecodesMap(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/identity/settings" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]string{"cls": "Soldier", "rnk": "5"})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	settings, err := c.OriginGetSettings(context.Background())
	if err != nil {
		t.Fatalf("OriginGetSettings: %v", err)
	}
	if settings["cls"] != "Soldier" || settings["rnk"] != "5" {
		t.Errorf("unexpected settings: %+v", settings)
	}
}

func TestOriginGetSettingsNonOKStatusErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second)
	if _, err := c.OriginGetSettings(context.Background()); err == nil {
		t.Error("expected error for non-200 response")
	}
}
