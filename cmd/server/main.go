package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/yichenlu/sensereader/internal/api"
	"github.com/yichenlu/sensereader/internal/config"
	"github.com/yichenlu/sensereader/internal/device"
	"github.com/yichenlu/sensereader/internal/emotion"
	"github.com/yichenlu/sensereader/internal/gateway"
	"github.com/yichenlu/sensereader/internal/health"
	"github.com/yichenlu/sensereader/internal/memory"
	"github.com/yichenlu/sensereader/internal/orchestrator"
	"github.com/yichenlu/sensereader/internal/provider"
	"github.com/yichenlu/sensereader/internal/runtime"
	"github.com/yichenlu/sensereader/internal/segmenter"
	"github.com/yichenlu/sensereader/internal/storage"
	"github.com/yichenlu/sensereader/internal/syncsvc"
	"github.com/yichenlu/sensereader/pkg/types"
)

const version = "0.3.0"

func main() {
	configPath := flag.String("config", "config/dev.example.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}

	logger := newLogger(cfg.Logging)
	logger.Info().Str("version", version).Str("config", *configPath).Msg("starting sensereader server")

	// Storage adapter backs memory persistence and the sync content set.
	storageAdapter, err := storage.NewAdapter(cfg.Storage)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create storage adapter")
	}
	defer storageAdapter.Close()
	logger.Info().Str("adapter", cfg.Storage.Adapter).Msg("storage adapter initialized")

	// Provider registry; a stub TTS keeps playback working with no remote
	// provider configured.
	providerReg := provider.NewRegistry()
	if err := providerReg.InitializeProviders(cfg.Providers); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize providers")
	}
	if len(providerReg.ListTTS()) == 0 {
		providerReg.RegisterTTS(provider.NewStubTTSProvider(types.ProviderConfig{Name: "local"}))
	}
	if len(providerReg.ListSTT()) == 0 {
		providerReg.RegisterSTT(provider.NewStubSTTProvider(types.ProviderConfig{Name: "local"}))
	}
	defer providerReg.Close()
	logger.Info().
		Strs("tts", providerReg.ListTTS()).
		Strs("stt", providerReg.ListSTT()).
		Msg("providers initialized")

	ctx := context.Background()
	memStore, err := memory.NewStore(ctx, storageAdapter, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize memory store")
	}

	segService := segmenter.NewService(logger)
	engine := emotion.NewEngine(
		providerReg.FirstText(),
		providerReg.FirstVision(),
		providerReg.FirstAudio(),
		logger,
	)

	sched := runtime.NewScheduler(runtime.DefaultWorkers, cfg.Orchestrator.MaxInflightPerSess)
	defer sched.Shutdown()

	deviceReg := device.NewRegistry(time.Duration(cfg.Devices.HeartbeatPeriodSec)*time.Second, logger)
	defer deviceReg.Close()
	registerBuiltinDevices(deviceReg, logger)

	fanout := device.NewFanout(deviceReg, sched, device.FanoutConfig{
		DispatchTimeout: time.Duration(cfg.Devices.DispatchTimeoutMs) * time.Millisecond,
		RetryInitial:    time.Duration(cfg.Devices.RetryInitialMs) * time.Millisecond,
		RetryMaxRetries: cfg.Devices.RetryMaxAttempts,
	}, logger)

	// Agents declare capabilities; the orchestrator is wired from whatever
	// produces the outputs it needs, not from concrete types.
	caps := runtime.NewCapabilityRegistry()
	caps.Register(runtime.Descriptor{
		Name: "reader", Inputs: []string{"text"}, Outputs: []string{"segments"},
	}, segService)
	caps.Register(runtime.Descriptor{
		Name: "emotion", Inputs: []string{"text", "image", "audio"}, Outputs: []string{"emotion_reading"},
		Connectors: []string{"http"},
	}, engine)
	caps.Register(runtime.Descriptor{
		Name: "memory", Inputs: []string{"user_id", "query"}, Outputs: []string{"preferences", "rag_results"},
	}, memStore)
	caps.Register(runtime.Descriptor{
		Name: "device", Inputs: []string{"emotion_reading"}, Outputs: []string{"dispatch_results"},
		Connectors: []string{"http"},
	}, fanout)

	readerAgent, err := caps.Resolve("segments")
	if err != nil {
		logger.Fatal().Err(err).Msg("capability wiring failed")
	}
	emotionAgent, _ := caps.Resolve("emotion_reading")
	memoryAgent, _ := caps.Resolve("preferences")
	deviceAgent, _ := caps.Resolve("dispatch_results")

	orch := orchestrator.New(
		readerAgent.Agent.(*segmenter.Service),
		emotionAgent.Agent.(*emotion.Engine),
		memoryAgent.Agent.(*memory.Store),
		deviceAgent.Agent.(*device.Fanout),
		providerReg,
		cfg.Orchestrator,
		logger,
	)
	defer orch.Close()

	syncSvc := syncsvc.NewService(storageAdapter, cfg.Sync, logger)
	defer syncSvc.Close()

	healthHandler := health.NewHandler(version)
	healthHandler.Register("storage", func(ctx context.Context) (health.Status, error) {
		if _, err := storageAdapter.Exists(ctx, ".healthcheck"); err != nil {
			return health.StatusUnhealthy, err
		}
		return health.StatusHealthy, nil
	})
	healthHandler.Register("providers", func(ctx context.Context) (health.Status, error) {
		if len(providerReg.ListTTS()) == 0 {
			return health.StatusDegraded, fmt.Errorf("no TTS providers registered")
		}
		return health.StatusHealthy, nil
	})
	healthHandler.Register("devices", func(ctx context.Context) (health.Status, error) {
		if len(deviceReg.Snapshot()) == 0 {
			return health.StatusDegraded, fmt.Errorf("no devices registered")
		}
		return health.StatusHealthy, nil
	})

	gw := gateway.New(cfg.Gateway, logger)
	handler := api.NewHandler(orch, segService, engine, memStore, providerReg, syncSvc, deviceReg, cfg.Orchestrator, logger)

	mux := http.NewServeMux()

	// Public endpoints
	mux.HandleFunc("/health", healthHandler.Full())
	mux.HandleFunc("/health/live", healthHandler.Liveness())
	mux.HandleFunc("/health/ready", healthHandler.Readiness())
	mux.Handle("/metrics", promhttp.Handler())

	// Protected endpoints
	protected := http.NewServeMux()
	protected.Handle("/orchestrator/play", gw.RequireQuota("play", http.HandlerFunc(handler.Play)))
	protected.HandleFunc("/orchestrator/pause", handler.Pause)
	protected.HandleFunc("/orchestrator/seek", handler.Seek)
	protected.HandleFunc("/orchestrator/summary", handler.Summary)
	protected.HandleFunc("/segment_text", handler.SegmentText)
	protected.HandleFunc("/generate_haptics", handler.GenerateHaptics)
	protected.HandleFunc("/haptic_patterns", handler.HapticPatterns)
	protected.Handle("/api/detect-emotion", gw.RequireQuota("image", http.HandlerFunc(handler.DetectEmotion)))
	protected.Handle("/api/tts", gw.RequireQuota("tts", http.HandlerFunc(handler.TTS)))
	protected.HandleFunc("/api/stt", handler.STT)
	protected.HandleFunc("/api/broadcast-to-devices", handler.BroadcastToDevices)
	protected.HandleFunc("/api/v1/devices/register", handler.RegisterDevice)
	protected.HandleFunc("/api/v1/devices/heartbeat", handler.HeartbeatDevice)
	protected.HandleFunc("/api/v1/devices", handler.ListDevices)
	protected.HandleFunc("/api/v1/voices", handler.Voices)
	protected.HandleFunc("/api/v1/providers", handler.Providers)
	protected.HandleFunc("/api/v1/preferences", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.SetPreferences(w, r)
		} else {
			handler.GetPreferences(w, r)
		}
	})
	protected.HandleFunc("/api/v1/bookmarks", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost {
			handler.AddBookmark(w, r)
		} else {
			handler.ListBookmarks(w, r)
		}
	})
	protected.HandleFunc("/api/v1/agents", func(w http.ResponseWriter, r *http.Request) {
		gateway.WriteJSON(w, map[string]any{"agents": caps.List()}, http.StatusOK)
	})
	protected.HandleFunc("/rag/query", handler.RAGQuery)
	protected.HandleFunc("/rag/upsert", handler.RAGUpsert)
	protected.HandleFunc("/rag/list", handler.RAGList)
	protected.HandleFunc("/rag/delete", handler.RAGDelete)
	protected.HandleFunc("/sync/manifest", handler.SyncManifest)
	protected.HandleFunc("/sync/file", handler.SyncFile)
	protected.HandleFunc("/ws/sync", handler.SyncWS)
	protected.HandleFunc("/ai/model-select", handler.ModelSelect)

	mux.Handle("/", gw.Middleware(protected))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info().Str("addr", addr).Msg("server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}

	logger.Info().Msg("server stopped")
}

// newLogger builds the process logger from config
func newLogger(cfg types.LoggingConfig) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || cfg.Level == "" {
		level = zerolog.InfoLevel
	}

	var logger zerolog.Logger
	if cfg.Pretty {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		logger = zerolog.New(os.Stderr)
	}
	return logger.Level(level).With().Timestamp().Logger()
}

// registerBuiltinDevices seeds the registry with the simulator devices the
// mobile clients pair against out of the box.
func registerBuiltinDevices(reg *device.Registry, logger zerolog.Logger) {
	builtins := []types.DeviceDescriptor{
		{ID: "apple_watch", Class: types.DeviceWatch},
		{ID: "aromajoin", Class: types.DeviceScent},
		{ID: "bhaptics_vest", Class: types.DeviceHapticVest},
		{ID: "xreal_glasses", Class: types.DeviceARGlasses},
	}
	for _, desc := range builtins {
		if err := reg.Register(desc, device.NewLoopbackPort(desc.ID, logger)); err != nil {
			logger.Warn().Err(err).Str("device_id", desc.ID).Msg("builtin device registration failed")
		}
	}
}
