package dispatch

import (
	"bank-webhook-gateway/internal/model"
	"bank-webhook-gateway/internal/signature"
	pkgLog "bank-webhook-gateway/pkg/log"
)

// SubscriptionSource hands out the immutable subscription snapshot used to
// authenticate one delivery. Implemented by subscription.Holder.
type SubscriptionSource interface {
	Current() (model.Subscription, bool)
}

// Config holds dispatch settings.
type Config struct {
	OperationFilter  model.OperationFilter // all, created or updated
	DefaultEventType string                // event type assumed for unknown resource types; empty fails closed
	RateLimitPerMin  int
}

type Handler struct {
	subs             SubscriptionSource
	verifier         *signature.Verifier
	limiter          *rateLimiter
	consumer         Consumer
	operationFilter  model.OperationFilter
	defaultEventType string
	l                pkgLog.Logger
}

func NewHandler(
	subs SubscriptionSource,
	verifier *signature.Verifier,
	consumer Consumer,
	cfg Config,
	l pkgLog.Logger,
) *Handler {
	filter := cfg.OperationFilter
	if filter == "" {
		filter = model.FilterAll
	}
	return &Handler{
		subs:             subs,
		verifier:         verifier,
		limiter:          newRateLimiter(cfg.RateLimitPerMin),
		consumer:         consumer,
		operationFilter:  filter,
		defaultEventType: cfg.DefaultEventType,
		l:                l,
	}
}
