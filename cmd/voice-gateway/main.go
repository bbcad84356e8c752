// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"

	voiceRouters "github.com/rapidaai/voice-gateway/api/routers"
	"github.com/rapidaai/voice-gateway/config"
	internal_callstore "github.com/rapidaai/voice-gateway/internal/callstore"
	internal_gateway "github.com/rapidaai/voice-gateway/internal/gateway"
	internal_session "github.com/rapidaai/voice-gateway/internal/session"
	internal_telephony_teler "github.com/rapidaai/voice-gateway/internal/telephony/teler"
	internal_transformer_claude "github.com/rapidaai/voice-gateway/internal/transformer/claude"
	internal_transformer_sarvam "github.com/rapidaai/voice-gateway/internal/transformer/sarvam"
	internal_vad "github.com/rapidaai/voice-gateway/internal/vad"
	"github.com/rapidaai/voice-gateway/pkg/commons"
)

func main() {
	if err := run(); err != nil {
		log.Printf("voice-gateway: %v", err)
		os.Exit(1)
	}
}

func run() error {
	vConfig, err := config.InitConfig()
	if err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	cfg, err := config.GetApplicationConfig(vConfig)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	loggerOpts := []commons.LoggerOption{commons.WithLevel(cfg.LogLevel)}
	if cfg.LogFile != "" {
		loggerOpts = append(loggerOpts, commons.WithRotatingFile(cfg.LogFile))
	}
	logger, err := commons.NewApplicationLogger(loggerOpts...)
	if err != nil {
		return fmt.Errorf("initializing logger: %w", err)
	}
	defer logger.Sync()

	logger.Infow("starting voice gateway",
		"service", cfg.Name, "version", cfg.Version,
		"host", cfg.Host, "port", cfg.Port, "environment", cfg.Environment)

	// Provider adapters. Missing credentials degrade to fallbacks
	// unless the deployment requires live providers.
	stt := internal_transformer_sarvam.NewSpeechToText(internal_transformer_sarvam.Options{
		Logger: logger, APIKey: cfg.SarvamAPIKey, BaseURL: cfg.SarvamBaseURL,
	})
	tts := internal_transformer_sarvam.NewTextToSpeech(internal_transformer_sarvam.Options{
		Logger: logger, APIKey: cfg.SarvamAPIKey, BaseURL: cfg.SarvamBaseURL,
	})
	llm := internal_transformer_claude.NewDialogue(internal_transformer_claude.Options{
		Logger: logger, APIKey: cfg.AnthropicAPIKey,
	})
	teler := internal_telephony_teler.NewClient(internal_telephony_teler.Options{
		Logger: logger, APIKey: cfg.TelerAPIKey, BaseURL: cfg.TelerBaseURL,
	})
	for _, probe := range []struct {
		name      string
		available bool
	}{
		{stt.Name(), stt.Available()},
		{tts.Name(), tts.Available()},
		{llm.Name(), llm.Available()},
		{teler.Name(), teler.Available()},
	} {
		if !probe.available {
			if cfg.RequireProviders {
				return fmt.Errorf("provider %s is not configured and REQUIRE_PROVIDERS is set", probe.name)
			}
			logger.Warnw("provider not configured, running degraded", "provider", probe.name)
		}
	}

	vadOpts := []internal_vad.Option{}
	if cfg.VADModelPath != "" {
		silero, err := internal_vad.NewSileroClassifier(cfg.VADModelPath, 8000)
		if err != nil {
			logger.Warnw("silero model unusable, using energy oracle", "path", cfg.VADModelPath, "error", err)
		} else {
			vadOpts = append(vadOpts, internal_vad.WithClassifier(silero))
		}
	} else if cfg.VADEnergyThreshold > 0 {
		vadOpts = append(vadOpts, internal_vad.WithClassifier(internal_vad.NewEnergyClassifier(cfg.VADEnergyThreshold)))
	}
	detector := internal_vad.NewDetector(logger, vadOpts...)
	defer detector.Close()

	var store internal_callstore.Store
	if cfg.HistoryStore == "sqlite" {
		store, err = internal_callstore.NewSqliteStore(logger, cfg.HistoryDBPath, cfg.HistoryRetention)
		if err != nil {
			return fmt.Errorf("opening call store: %w", err)
		}
	} else {
		store = internal_callstore.NewMemoryStore(logger, cfg.HistoryRetention)
	}
	defer store.Close()

	gateway := internal_gateway.NewGateway(internal_gateway.Options{
		Logger: logger,
		Session: internal_session.Config{
			DefaultLanguage:        cfg.DefaultLanguage,
			MaxHistory:             cfg.MaxConversationHistory,
			SilenceWarningInterval: time.Duration(cfg.SilenceWarningInterval) * time.Second,
			MaxSilenceWarnings:     cfg.MaxSilenceWarnings,
			MinAccumulation:        time.Duration(cfg.MinAccumulationMs) * time.Millisecond,
			MaxBuffer:              time.Duration(cfg.MaxBufferMs) * time.Millisecond,
			ShutdownGrace:          time.Duration(cfg.ShutdownGraceSeconds) * time.Second,
		},
		STT:      stt,
		Dialogue: llm,
		TTS:      tts,
		VAD:      detector,
	})

	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(cors.New(cors.Config{
		AllowAllOrigins:  true,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		MaxAge:           12 * time.Hour,
		AllowCredentials: false,
	}))

	voiceRouters.CallRoutes(cfg, engine, logger, teler, store, gateway)
	voiceRouters.AiRoutes(cfg, engine, logger, llm)
	voiceRouters.StreamRoutes(cfg, engine, logger, gateway, detector)

	server := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler: engine,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	grp, grpCtx := errgroup.WithContext(ctx)
	grp.Go(func() error {
		logger.Infow("listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving http: %w", err)
		}
		return nil
	})
	grp.Go(func() error {
		<-grpCtx.Done()
		logger.Info("shutdown signal received, draining")

		grace := time.Duration(cfg.ShutdownGraceSeconds)*time.Second + 5*time.Second
		drainCtx, cancel := context.WithTimeout(context.Background(), grace)
		defer cancel()
		gateway.Drain(drainCtx)
		return server.Shutdown(drainCtx)
	})

	if err := grp.Wait(); err != nil {
		return err
	}
	logger.Info("voice gateway stopped")
	return nil
}
