package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestValidateNoOpWhenUnconfigured(t *testing.T) {
	v := New(http.DefaultClient, "")
	if err := v.Validate(context.Background(), "anything"); err != nil {
		t.Errorf("expected nil error with no validate URL, got %v", err)
	}
}

func TestValidateAcceptsOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer good-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	v := New(http.DefaultClient, srv.URL)
	if err := v.Validate(context.Background(), "good-token"); err != nil {
		t.Errorf("expected success, got %v", err)
	}
}

func TestValidateRejectsOnFailureStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	v := New(http.DefaultClient, srv.URL)
	if err := v.Validate(context.Background(), "bad-token"); err == nil {
		t.Errorf("expected an error for a rejected token")
	}
}
