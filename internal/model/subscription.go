package model

import (
	"time"

	"golang.org/x/oauth2"
)

// Environment selects which finbank API the gateway talks to.
type Environment string

const (
	EnvironmentProduction Environment = "production"
	EnvironmentSandbox    Environment = "sandbox"
	EnvironmentMock       Environment = "mock"
)

// SubscriptionParameters is the caller-chosen filter configuration sent
// to finbank when the webhook is registered.
type SubscriptionParameters struct {
	EventTypes  []string // e.g. ["transaction.created", "transaction.updated"]
	FilterPaths []string // JSON paths the provider should watch for changes
}

// Subscription represents one registered webhook at finbank.
//
// Secret is returned by the provider only at creation time and can never
// be fetched again; losing it means signature validation stays disabled
// until the subscription is recreated.
type Subscription struct {
	Endpoint   string
	ExternalID string
	Secret     string
	Parameters SubscriptionParameters
	Status     string
	ExpiresAt  time.Time // local soft expiry used to schedule refresh, not provider-enforced
}

// HasSecret reports whether signature verification is possible.
func (s Subscription) HasSecret() bool {
	return s.Secret != ""
}

// Credentials is the read-only view of the provider OAuth tokens.
// Token exchange and refresh happen outside this service.
type Credentials struct {
	AccessToken  string
	RefreshToken string
	ExpiresAt    int64 // epoch seconds, 0 means unknown
}

// Token converts to an oauth2 token so callers can reuse its validity check.
func (c Credentials) Token() *oauth2.Token {
	tok := &oauth2.Token{
		AccessToken:  c.AccessToken,
		RefreshToken: c.RefreshToken,
	}
	if c.ExpiresAt > 0 {
		tok.Expiry = time.Unix(c.ExpiresAt, 0)
	}
	return tok
}
