package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/interlingo/voice-gateway/internal/billing"
	"github.com/interlingo/voice-gateway/internal/config"
	"github.com/interlingo/voice-gateway/internal/credential"
	"github.com/interlingo/voice-gateway/internal/gateway"
	"github.com/interlingo/voice-gateway/internal/observability"
	"github.com/interlingo/voice-gateway/internal/session"
	"github.com/interlingo/voice-gateway/internal/stt"
	"github.com/interlingo/voice-gateway/internal/translate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		// Use fmt for fatal errors before logger is initialized
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.LogLevel, cfg.LogPretty)
	logger := observability.GetLogger()

	logger.Info().
		Str("port", cfg.Port).
		Int("credential_pool_size", len(cfg.DeepgramAPIKeys)).
		Str("source_language", cfg.SourceLanguage).
		Str("target_language", cfg.TargetLanguage).
		Str("log_level", cfg.LogLevel).
		Bool("metrics_enabled", cfg.MetricsEnabled).
		Msg("Voice Gateway Service starting")

	pool := credential.NewPool(cfg.DeepgramAPIKeys)
	dialer := &stt.DeepgramDialer{
		Model:    cfg.DeepgramModel,
		Language: cfg.DeepgramLanguage,
	}
	translator := translate.NewDeepLClient(cfg.TranslateAPIKey, cfg.TranslateAPIURL)

	var hooks billing.Hooks = billing.NoopHooks{}
	if cfg.BillingWebhookURL != "" {
		hooks = billing.NewWebhookHooks(cfg.BillingWebhookURL, logger)
		logger.Info().Str("url", cfg.BillingWebhookURL).Msg("Billing webhook enabled")
	}

	gw := gateway.New(&gateway.TokenAuthorizer{Token: cfg.AuthToken}, logger)

	manager := session.NewManager(session.Deps{
		Pool:       pool,
		Dialer:     dialer,
		Translator: translator,
		Emitter:    gw,
		Presence:   gw,
		Billing:    hooks,
		Audio: stt.AudioConfig{
			Encoding:   cfg.AudioEncoding,
			SampleRate: cfg.AudioSampleRate,
			Channels:   cfg.AudioChannels,
		},
		SourceLanguage: cfg.SourceLanguage,
		TargetLanguage: cfg.TargetLanguage,
		Logger:         logger,
	})
	gw.SetSessions(manager)

	mux := http.NewServeMux()
	mux.HandleFunc("/ws", gw.Handler())
	mux.HandleFunc("/health", observability.HealthCheckHandler())

	checks := map[string]observability.HealthCheckFunc{
		"credentials": func(ctx context.Context) (bool, error) {
			if pool.Size() == 0 {
				return false, fmt.Errorf("credential pool is empty")
			}
			return true, nil
		},
		"translator": func(ctx context.Context) (bool, error) {
			// Config-level check only; no paid API call on every probe
			if cfg.TranslateAPIKey == "" {
				return false, fmt.Errorf("translation key not configured")
			}
			return true, nil
		},
	}
	mux.HandleFunc("/ready", observability.ReadinessHandler(checks))

	if cfg.MetricsEnabled {
		mux.Handle("/metrics", promhttp.Handler())
		logger.Info().Msg("Prometheus metrics enabled at /metrics")
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info().
			Str("port", cfg.Port).
			Str("endpoint", fmt.Sprintf("ws://localhost:%s/ws", cfg.Port)).
			Msg("Server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error().Err(err).Msg("Server forced to shutdown")
	}

	manager.Shutdown()

	logger.Info().Msg("Server exited gracefully")
}
