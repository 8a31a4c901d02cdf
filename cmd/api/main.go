package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"bank-webhook-gateway/config"
	_ "bank-webhook-gateway/docs" // Swagger docs
	"bank-webhook-gateway/internal/dispatch"
	"bank-webhook-gateway/internal/httpserver"
	"bank-webhook-gateway/internal/model"
	"bank-webhook-gateway/internal/signature"
	"bank-webhook-gateway/internal/ssrfguard"
	"bank-webhook-gateway/internal/subscription"
	"bank-webhook-gateway/pkg/log"
)

// refreshInterval paces the proactive liveness checks against the soft
// 30-day subscription TTL.
const refreshInterval = 12 * time.Hour

// @title       Bank Webhook Gateway API
// @description Receives, authenticates and normalizes finbank transaction-event webhooks.
// @version     1
// @host        localhost:8080
// @schemes     http
func main() {
	// 1. Configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Failed to load config: ", err)
		return
	}

	// 2. Logger
	logger := log.Init(log.ZapConfig{
		Level:        cfg.Logger.Level,
		Mode:         cfg.Logger.Mode,
		Encoding:     cfg.Logger.Encoding,
		ColorEnabled: cfg.Logger.ColorEnabled,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info(ctx, "Starting Bank Webhook Gateway...")
	logger.Infof(ctx, "Environment: %s", cfg.Environment.Name)
	logger.Infof(ctx, "Finbank environment: %s", cfg.Finbank.Environment)

	// 3. Subscription lifecycle
	guard := ssrfguard.New(subscription.APIPathSuffix)
	manager, err := subscription.NewManager(subscription.Config{
		Environment: cfg.Finbank.Environment,
		MockURL:     cfg.Finbank.MockURL,
	}, guard, logger)
	if err != nil {
		logger.Errorf(ctx, "Failed to initialize subscription manager: %v", err)
		return
	}
	logger.Infof(ctx, "Finbank API base URL: %s", manager.BaseURL())

	creds := model.Credentials{
		AccessToken:  cfg.Finbank.AccessToken,
		RefreshToken: cfg.Finbank.RefreshToken,
		ExpiresAt:    cfg.Finbank.TokenExpiresAt,
	}
	params := model.SubscriptionParameters{
		EventTypes:  cfg.Webhook.EventTypes,
		FilterPaths: cfg.Webhook.FilterPaths,
	}

	holder := subscription.NewHolder(nil)
	if cfg.Webhook.ExternalID != "" || cfg.Webhook.Secret != "" {
		// Pre-provisioned subscription; the secret was persisted at creation.
		holder.Store(model.Subscription{
			Endpoint:   cfg.Webhook.Endpoint,
			ExternalID: cfg.Webhook.ExternalID,
			Secret:     cfg.Webhook.Secret,
			Parameters: params,
		})
	}

	managed := false
	if cfg.Webhook.ManageSubscription {
		if cfg.Webhook.Endpoint == "" {
			logger.Warn(ctx, "webhook.manage_subscription is on but webhook.endpoint is empty, skipping registration")
		} else {
			sub, subErr := manager.Create(ctx, cfg.Webhook.Endpoint, params, creds)
			if subErr != nil {
				logger.Errorf(ctx, "Failed to register webhook at finbank: %v", subErr)
				return
			}
			holder.Store(*sub)
			managed = true
			logger.Infof(ctx, "Webhook %s registered at finbank (status %s)", sub.ExternalID, sub.Status)

			go refreshLoop(ctx, logger, manager, holder, params, creds)
		}
	}

	// 4. Dispatch
	operationFilter := model.OperationFilter(cfg.Webhook.OperationFilter)
	webhookHandler := dispatch.NewHandler(
		holder,
		signature.NewVerifier(),
		dispatch.NewLogConsumer(logger),
		dispatch.Config{
			OperationFilter:  operationFilter,
			DefaultEventType: cfg.Webhook.DefaultEventType,
			RateLimitPerMin:  cfg.Webhook.RateLimitPerMin,
		},
		logger,
	)

	// 5. HTTP Server
	httpServer, err := httpserver.New(logger, httpserver.Config{
		Logger:         logger,
		Port:           cfg.HTTPServer.Port,
		Mode:           cfg.HTTPServer.Mode,
		Environment:    cfg.Environment.Name,
		WebhookHandler: webhookHandler,
	})
	if err != nil {
		logger.Error(ctx, "Failed to initialize HTTP server: ", err)
		return
	}

	// 6. Run
	if err := httpServer.Run(ctx); err != nil {
		logger.Error(ctx, "Failed to run server: ", err)
	}

	// 7. Teardown: delete the managed registration. Idempotent at the
	// provider, so a duplicate teardown after a crash-restart is harmless.
	if managed {
		if sub, ok := holder.Current(); ok {
			teardownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
			defer cancel()
			if err := manager.Delete(teardownCtx, sub, creds); err != nil {
				logger.Errorf(teardownCtx, "Failed to delete webhook %s: %v", sub.ExternalID, err)
			} else {
				logger.Infof(teardownCtx, "Webhook %s deleted at finbank", sub.ExternalID)
			}
		}
	}

	logger.Info(ctx, "Server stopped gracefully")
}

// refreshLoop keeps the registration alive. A vanished webhook is
// re-created (new external id and secret); network errors wait for the
// next tick.
func refreshLoop(
	ctx context.Context,
	logger log.Logger,
	manager *subscription.Manager,
	holder *subscription.Holder,
	params model.SubscriptionParameters,
	creds model.Credentials,
) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		sub, ok := holder.Current()
		if !ok {
			continue
		}

		refreshed, err := manager.Refresh(ctx, sub, creds)
		if err == nil {
			holder.Store(*refreshed)
			logger.Infof(ctx, "Webhook %s refreshed (status %s, expires %s)",
				refreshed.ExternalID, refreshed.Status, refreshed.ExpiresAt.Format(time.RFC3339))
			continue
		}

		var subErr *subscription.Error
		if errors.As(err, &subErr) && subErr.Code == subscription.CodeWebhookNotFound {
			logger.Warnf(ctx, "Webhook %s vanished at finbank, re-creating", sub.ExternalID)
			recreated, createErr := manager.Create(ctx, sub.Endpoint, params, creds)
			if createErr != nil {
				logger.Errorf(ctx, "Failed to re-create webhook: %v", createErr)
				continue
			}
			holder.Store(*recreated)
			logger.Infof(ctx, "Webhook re-created as %s", recreated.ExternalID)
			continue
		}

		logger.Errorf(ctx, "Failed to refresh webhook %s: %v", sub.ExternalID, err)
	}
}
