package subscription_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"bank-webhook-gateway/internal/model"
	"bank-webhook-gateway/internal/ssrfguard"
	"bank-webhook-gateway/internal/subscription"
	"bank-webhook-gateway/pkg/log"
)

func testLogger() log.Logger {
	return log.Init(log.ZapConfig{Level: "error", Mode: "debug", Encoding: "console"})
}

func newTestManager(t *testing.T, serverURL string) *subscription.Manager {
	t.Helper()
	mgr, err := subscription.NewManager(subscription.Config{
		Environment: model.EnvironmentMock,
		MockURL:     serverURL,
	}, ssrfguard.New("/v2"), testLogger())
	if err != nil {
		t.Fatalf("failed to build manager: %v", err)
	}
	return mgr
}

func TestManagerLifecycle(t *testing.T) {
	deleted := map[string]bool{}

	mux := http.NewServeMux()
	mux.HandleFunc("/v2/webhooks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		if r.Header.Get("Authorization") != "Bearer token-1" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var req subscription.CreateWebhookRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.URL == "" {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"error":"url is required"}`))
			return
		}
		json.NewEncoder(w).Encode(subscription.Webhook{
			ID:         "wh_123",
			Secret:     "whsec_once",
			Status:     "active",
			URL:        req.URL,
			EventTypes: req.EventTypes,
		})
	})
	mux.HandleFunc("/v2/webhook/wh_123", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			if deleted["wh_123"] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			// Secret is never returned after creation.
			json.NewEncoder(w).Encode(subscription.Webhook{ID: "wh_123", Status: "active"})
		case http.MethodDelete:
			if deleted["wh_123"] {
				w.WriteHeader(http.StatusNotFound)
				return
			}
			deleted["wh_123"] = true
			w.WriteHeader(http.StatusNoContent)
		}
	})
	mux.HandleFunc("/v2/webhook/wh_gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	ts := httptest.NewServer(mux)
	defer ts.Close()

	now := time.Unix(1_700_000_000, 0)
	mgr := newTestManager(t, ts.URL).WithClock(func() time.Time { return now })
	ctx := context.Background()
	creds := model.Credentials{AccessToken: "token-1"}
	params := model.SubscriptionParameters{EventTypes: []string{"transaction.created"}}

	var sub *model.Subscription

	t.Run("create captures external id and one-time secret", func(t *testing.T) {
		var err error
		sub, err = mgr.Create(ctx, "https://gateway.example.com/webhook/finbank", params, creds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sub.ExternalID != "wh_123" {
			t.Errorf("unexpected external id: %s", sub.ExternalID)
		}
		if sub.Secret != "whsec_once" {
			t.Errorf("secret not captured: %q", sub.Secret)
		}
		if sub.Status != "active" {
			t.Errorf("unexpected status: %s", sub.Status)
		}
		if want := now.Add(30 * 24 * time.Hour); !sub.ExpiresAt.Equal(want) {
			t.Errorf("unexpected expiry: %v, want %v", sub.ExpiresAt, want)
		}
	})

	t.Run("refresh recomputes expiry and keeps secret", func(t *testing.T) {
		now = now.Add(24 * time.Hour)
		refreshed, err := mgr.Refresh(ctx, *sub, creds)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if refreshed.Secret != "whsec_once" {
			t.Errorf("refresh must not drop the stored secret, got %q", refreshed.Secret)
		}
		if want := now.Add(30 * 24 * time.Hour); !refreshed.ExpiresAt.Equal(want) {
			t.Errorf("unexpected expiry: %v, want %v", refreshed.ExpiresAt, want)
		}
	})

	t.Run("refresh of missing webhook is WEBHOOK_NOT_FOUND", func(t *testing.T) {
		gone := *sub
		gone.ExternalID = "wh_gone"
		_, err := mgr.Refresh(ctx, gone, creds)
		var subErr *subscription.Error
		if !errors.As(err, &subErr) || subErr.Code != subscription.CodeWebhookNotFound {
			t.Fatalf("want WEBHOOK_NOT_FOUND, got %v", err)
		}
		if subErr.Retryable() {
			t.Error("WEBHOOK_NOT_FOUND must not be marked retryable")
		}
	})

	t.Run("delete is idempotent across duplicate teardown", func(t *testing.T) {
		if err := mgr.Delete(ctx, *sub, creds); err != nil {
			t.Fatalf("first delete failed: %v", err)
		}
		// Second delete hits the provider 404 path and must still succeed.
		if err := mgr.Delete(ctx, *sub, creds); err != nil {
			t.Fatalf("second delete failed: %v", err)
		}
	})
}

func TestManagerCredentials(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("provider must not be called without credentials")
	}))
	defer ts.Close()

	mgr := newTestManager(t, ts.URL)
	ctx := context.Background()

	cases := []struct {
		name  string
		creds model.Credentials
	}{
		{"missing token", model.Credentials{}},
		{"expired token", model.Credentials{AccessToken: "tok", ExpiresAt: time.Now().Add(-time.Hour).Unix()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := mgr.Create(ctx, "https://gateway.example.com/webhook/finbank", model.SubscriptionParameters{}, tc.creds)
			var subErr *subscription.Error
			if !errors.As(err, &subErr) || subErr.Code != subscription.CodeMissingCredentials {
				t.Fatalf("want MISSING_CREDENTIALS, got %v", err)
			}
		})
	}
}

func TestManagerProviderRejections(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"invalid endpoint"}`))
	}))
	defer ts.Close()

	mgr := newTestManager(t, ts.URL)
	ctx := context.Background()
	creds := model.Credentials{AccessToken: "tok"}

	t.Run("creation rejection carries provider response", func(t *testing.T) {
		_, err := mgr.Create(ctx, "https://bad.example.com", model.SubscriptionParameters{}, creds)
		var subErr *subscription.Error
		if !errors.As(err, &subErr) || subErr.Code != subscription.CodeWebhookCreationFailed {
			t.Fatalf("want WEBHOOK_CREATION_FAILED, got %v", err)
		}
		if subErr.ProviderStatus != http.StatusUnprocessableEntity {
			t.Errorf("provider status not captured: %d", subErr.ProviderStatus)
		}
		if subErr.ProviderResponse == "" {
			t.Error("provider response body not captured")
		}
		if subErr.Retryable() {
			t.Error("provider rejection must not be retryable")
		}
	})

	t.Run("deletion rejection is WEBHOOK_DELETION_FAILED", func(t *testing.T) {
		err := mgr.Delete(ctx, model.Subscription{ExternalID: "wh_x"}, creds)
		var subErr *subscription.Error
		if !errors.As(err, &subErr) || subErr.Code != subscription.CodeWebhookDeletionFailed {
			t.Fatalf("want WEBHOOK_DELETION_FAILED, got %v", err)
		}
	})
}

func TestManagerNetworkError(t *testing.T) {
	// Unroutable loopback port: connection refused on every call.
	mgr := newTestManager(t, "http://127.0.0.1:1")
	ctx := context.Background()
	creds := model.Credentials{AccessToken: "tok"}

	_, err := mgr.Create(ctx, "https://gateway.example.com/webhook/finbank", model.SubscriptionParameters{}, creds)
	var subErr *subscription.Error
	if !errors.As(err, &subErr) || subErr.Code != subscription.CodeNetworkError {
		t.Fatalf("want NETWORK_ERROR, got %v", err)
	}
	if !subErr.Retryable() {
		t.Error("network errors must be retryable")
	}
}

func TestManagerEnvironmentResolution(t *testing.T) {
	guard := ssrfguard.New("/v2")
	l := testLogger()

	t.Run("production and sandbox use fixed URLs", func(t *testing.T) {
		prod, err := subscription.NewManager(subscription.Config{Environment: model.EnvironmentProduction}, guard, l)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if prod.BaseURL() != subscription.ProductionBaseURL {
			t.Errorf("unexpected production URL: %s", prod.BaseURL())
		}
		sandbox, err := subscription.NewManager(subscription.Config{Environment: model.EnvironmentSandbox}, guard, l)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if sandbox.BaseURL() != subscription.SandboxBaseURL {
			t.Errorf("unexpected sandbox URL: %s", sandbox.BaseURL())
		}
	})

	t.Run("mock URL goes through the SSRF guard", func(t *testing.T) {
		_, err := subscription.NewManager(subscription.Config{
			Environment: model.EnvironmentMock,
			MockURL:     "http://192.168.1.1:8080",
		}, guard, l)
		if !errors.Is(err, ssrfguard.ErrPrivateAddressNotAllowed) {
			t.Fatalf("want ErrPrivateAddressNotAllowed, got %v", err)
		}
	})

	t.Run("unknown environment is rejected", func(t *testing.T) {
		_, err := subscription.NewManager(subscription.Config{Environment: "staging"}, guard, l)
		if err == nil {
			t.Fatal("expected error for unknown environment")
		}
	})
}
