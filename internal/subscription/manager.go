package subscription

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bank-webhook-gateway/internal/model"
	"bank-webhook-gateway/internal/ssrfguard"
	"bank-webhook-gateway/pkg/log"
)

// Fixed provider endpoints. Only the mock environment takes an
// operator-supplied URL, and that one goes through the SSRF guard.
const (
	ProductionBaseURL = "https://api.finbank.io/v2"
	SandboxBaseURL    = "https://sandbox.finbank.io/v2"

	// APIPathSuffix is appended to validated mock URLs when absent.
	APIPathSuffix = "/v2"

	// subscriptionTTL is the local soft expiry used to schedule proactive
	// refresh. The provider does not enforce it.
	subscriptionTTL = 30 * 24 * time.Hour
)

// Config selects the provider environment for the Manager.
type Config struct {
	Environment model.Environment
	MockURL     string // required when Environment is mock
}

// Manager owns the webhook registration at finbank: it creates, refreshes
// and deletes the subscription and is the only component that mutates it.
type Manager struct {
	client *Client
	l      log.Logger
	now    func() time.Time
}

// NewManager resolves the provider base URL and builds a Manager.
// Mock URLs are validated by the SSRF guard before any authenticated
// request is allowed to target them.
func NewManager(cfg Config, guard *ssrfguard.Guard, l log.Logger) (*Manager, error) {
	var baseURL string
	switch cfg.Environment {
	case model.EnvironmentProduction:
		baseURL = ProductionBaseURL
	case model.EnvironmentSandbox:
		baseURL = SandboxBaseURL
	case model.EnvironmentMock:
		validated, err := guard.Validate(cfg.MockURL)
		if err != nil {
			return nil, fmt.Errorf("mock URL rejected: %w", err)
		}
		baseURL = validated
	default:
		return nil, fmt.Errorf("unknown finbank environment %q", cfg.Environment)
	}

	return &Manager{
		client: NewClient(baseURL),
		l:      l,
		now:    time.Now,
	}, nil
}

// WithClock overrides the time source. Used by tests.
func (m *Manager) WithClock(now func() time.Time) *Manager {
	m.now = now
	return m
}

// BaseURL returns the resolved provider base URL.
func (m *Manager) BaseURL() string {
	return m.client.baseURL
}

// Create registers endpoint at finbank and returns the new Subscription.
// The secret in the response exists only here — the caller must persist it
// immediately, the provider will never return it again.
func (m *Manager) Create(ctx context.Context, endpoint string, params model.SubscriptionParameters, creds model.Credentials) (*model.Subscription, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}

	webhook, err := m.client.CreateWebhook(ctx, creds.AccessToken, CreateWebhookRequest{
		URL:         endpoint,
		EventTypes:  params.EventTypes,
		FilterPaths: params.FilterPaths,
	})
	if err != nil {
		var provider *apiError
		if errors.As(err, &provider) {
			return nil, newProviderError(CodeWebhookCreationFailed,
				"finbank rejected webhook creation", provider.status, provider.body)
		}
		return nil, newError(CodeNetworkError, "webhook creation request failed", err)
	}

	if webhook.Secret == "" {
		// Terminal configuration problem, not retryable: without the
		// one-time secret every delivery on this subscription is forgeable.
		m.l.Warnf(ctx, "finbank returned no signing secret for webhook %s — signature validation disabled, webhook is forgeable", webhook.ID)
	}

	return &model.Subscription{
		Endpoint:   endpoint,
		ExternalID: webhook.ID,
		Secret:     webhook.Secret,
		Parameters: params,
		Status:     webhook.Status,
		ExpiresAt:  m.now().Add(subscriptionTTL),
	}, nil
}

// Refresh confirms the subscription is still live and recomputes the local
// soft expiry. A provider 404 means the webhook is gone and the caller must
// re-create it, not retry the refresh.
func (m *Manager) Refresh(ctx context.Context, sub model.Subscription, creds model.Credentials) (*model.Subscription, error) {
	if err := checkCredentials(creds); err != nil {
		return nil, err
	}

	webhook, err := m.client.GetWebhook(ctx, creds.AccessToken, sub.ExternalID)
	if err != nil {
		var provider *apiError
		if errors.As(err, &provider) {
			if provider.status == http.StatusNotFound {
				return nil, newProviderError(CodeWebhookNotFound,
					fmt.Sprintf("webhook %s no longer exists at finbank", sub.ExternalID),
					provider.status, provider.body)
			}
			return nil, newProviderError(CodeWebhookRefreshFailed,
				"finbank rejected webhook refresh", provider.status, provider.body)
		}
		return nil, newError(CodeNetworkError, "webhook refresh request failed", err)
	}

	refreshed := sub
	refreshed.Status = webhook.Status
	refreshed.ExpiresAt = m.now().Add(subscriptionTTL)
	return &refreshed, nil
}

// Delete removes the subscription at finbank. A 404 is success: the webhook
// is already gone, and duplicate teardown calls are expected.
func (m *Manager) Delete(ctx context.Context, sub model.Subscription, creds model.Credentials) error {
	if err := checkCredentials(creds); err != nil {
		return err
	}

	err := m.client.DeleteWebhook(ctx, creds.AccessToken, sub.ExternalID)
	if err != nil {
		var provider *apiError
		if errors.As(err, &provider) {
			if provider.status == http.StatusNotFound {
				m.l.Infof(ctx, "webhook %s already deleted at finbank", sub.ExternalID)
				return nil
			}
			return newProviderError(CodeWebhookDeletionFailed,
				"finbank rejected webhook deletion", provider.status, provider.body)
		}
		return newError(CodeNetworkError, "webhook deletion request failed", err)
	}
	return nil
}

// checkCredentials gates every lifecycle call on a usable access token.
func checkCredentials(creds model.Credentials) error {
	if !creds.Token().Valid() {
		return newError(CodeMissingCredentials, "access token is missing or expired", nil)
	}
	return nil
}
