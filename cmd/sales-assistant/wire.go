package main

import (
	"context"
	"fmt"

	"sales-assistant/internal/assistant"
	"sales-assistant/internal/backend"
	"sales-assistant/internal/common/cache"
	"sales-assistant/internal/common/config"
	"sales-assistant/internal/common/logger"
	"sales-assistant/internal/common/observability"
	"sales-assistant/internal/common/retry"
	"sales-assistant/internal/completion"
	"sales-assistant/internal/dispatch"
	"sales-assistant/internal/intent"
	"sales-assistant/internal/server"
	"sales-assistant/internal/workflows"

	commonhttp "sales-assistant/internal/common/http"
)

// app holds the wired assistant and the resources that need closing.
type app struct {
	assistant *assistant.Assistant
	obs       *observability.Observability
	redis     *cache.RedisClient
	checks    map[string]server.ReadinessCheck
	log       logger.Logger
}

func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	obs, err := observability.New(cfg.App.Name)
	if err != nil {
		return nil, fmt.Errorf("init observability: %w", err)
	}

	llm, err := completion.NewOpenAIClient(completion.Config{
		Provider:          cfg.Completion.Provider,
		Model:             cfg.Completion.Model,
		APIKey:            cfg.Completion.APIKey,
		BaseURL:           cfg.Completion.BaseURL,
		MaxTokens:         cfg.Completion.MaxTokens,
		Temperature:       cfg.Completion.Temperature,
		Timeout:           config.GetDuration(cfg.Completion.Timeout),
		RequestsPerSecond: cfg.Completion.RequestsPerSecond,
		Burst:             cfg.Completion.Burst,
	}, log)
	if err != nil {
		return nil, fmt.Errorf("init completion client: %w", err)
	}

	backendTimeout := config.GetDuration(cfg.Backend.Timeout)
	var httpClient *commonhttp.Client
	if cfg.Backend.OAuth.Enabled() {
		httpClient = commonhttp.NewClientWithCredentials(ctx, backendTimeout, commonhttp.CredentialsConfig{
			TokenURL:     cfg.Backend.OAuth.TokenURL,
			ClientID:     cfg.Backend.OAuth.ClientID,
			ClientSecret: cfg.Backend.OAuth.ClientSecret,
			Scopes:       cfg.Backend.OAuth.Scopes,
		})
	} else {
		httpClient = commonhttp.NewClient(backendTimeout)
	}

	a := &app{obs: obs, checks: map[string]server.ReadinessCheck{}, log: log}

	var gateway backend.Gateway = backend.NewClient(cfg.Backend.BaseURL, cfg.Backend.APIKey, httpClient)
	if cfg.Cache.Enabled {
		a.redis = cache.NewRedis(cfg.Redis)
		if err := a.redis.Ping(ctx); err != nil {
			log.Warn("redis unreachable at startup, cache calls will fall through", map[string]interface{}{
				"address": cfg.Redis.Address,
				"error":   err.Error(),
			})
		}
		gateway = backend.NewCachedGateway(gateway, a.redis, config.GetDuration(cfg.Cache.TTL), log)
		a.checks["redis"] = a.redis.Ping
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		MinWait:     config.GetDuration(cfg.Retry.MinWait),
	}
	svc := workflows.NewService(completion.WithRetry(llm, policy, log), gateway, log)

	// The classifier gets the bare client: one attempt, then the rule fallback.
	classifier := intent.NewClassifier(llm, intent.NewFallbackClassifier(intent.DefaultRules),
		config.GetDuration(cfg.Classifier.Timeout), log)

	a.assistant = assistant.New(classifier, dispatch.NewDispatcher(svc, log), obs, log)

	log.Info("assistant wired", map[string]interface{}{
		"provider": cfg.Completion.Provider,
		"model":    cfg.Completion.Model,
		"backend":  cfg.Backend.BaseURL,
		"cache":    cfg.Cache.Enabled,
	})
	return a, nil
}

func (a *app) Close(ctx context.Context) {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.log.Error("error closing redis", map[string]interface{}{"error": err.Error()})
		}
	}
	if err := a.obs.Shutdown(ctx); err != nil {
		a.log.Error("error shutting down observability", map[string]interface{}{"error": err.Error()})
	}
}

func serverOptions(cfg *config.Config, checks map[string]server.ReadinessCheck) server.Options {
	return server.Options{
		Address:      cfg.Server.Address,
		ReadTimeout:  config.GetDuration(cfg.Server.ReadTimeout),
		WriteTimeout: config.GetDuration(cfg.Server.WriteTimeout),
		Checks:       checks,
	}
}
