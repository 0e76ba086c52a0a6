package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"thirdcoast.systems/clipforge/internal/acquire"
	"thirdcoast.systems/clipforge/internal/application"
	"thirdcoast.systems/clipforge/internal/captions"
	"thirdcoast.systems/clipforge/internal/config"
	"thirdcoast.systems/clipforge/internal/db"
	"thirdcoast.systems/clipforge/internal/jobs"
	"thirdcoast.systems/clipforge/internal/peaks"
	"thirdcoast.systems/clipforge/internal/pubsub"
	"thirdcoast.systems/clipforge/internal/render"
	"thirdcoast.systems/clipforge/internal/speakers"
	"thirdcoast.systems/clipforge/internal/transcribe"
	"thirdcoast.systems/clipforge/internal/web"
	"thirdcoast.systems/clipforge/pkg/ytdlp"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	slog.Info("Starting clipforge daemon")

	conf, err := config.LoadConfig(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	downloadsDir := filepath.Join(conf.WorkspaceRoot, "downloads")
	clipsDir := filepath.Join(conf.WorkspaceRoot, "clips")
	for _, dir := range []string{downloadsDir, clipsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			slog.Error("failed to create workspace dir", "dir", dir, "error", err)
			os.Exit(1)
		}
	}

	pool, err := application.OpenDBPoolWithRetry(ctx, *conf)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	dbc, err := db.NewDatabaseConnection(ctx, pool)
	if err != nil {
		slog.Error("failed to create database connection", "error", err)
		os.Exit(1)
	}
	defer dbc.Close()

	if err := dbc.Migrate(ctx); err != nil {
		slog.Error("failed to run migrations", "error", err)
		os.Exit(1)
	}

	client := ytdlp.New()
	client.Path = conf.YtdlpPath
	acquirer, err := acquire.New(&acquire.YTDLP{Client: client, Dir: downloadsDir}, downloadsDir)
	if err != nil {
		slog.Error("failed to init acquirer", "error", err)
		os.Exit(1)
	}

	var detector speakers.Detector
	if conf.FaceDetectorCmd != "" {
		detector = &speakers.CommandDetector{Cmd: conf.FaceDetectorCmd}
	} else {
		slog.Info("FACE_DETECTOR_CMD not set; using default speaker positions")
	}

	hub := pubsub.NewHub()
	var publisher pubsub.Publisher = hub
	if conf.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: conf.RedisAddr})
		publisher = pubsub.Fanout{hub, pubsub.NewRedisPublisher(rdb)}
		slog.Info("publishing progress to redis", "addr", conf.RedisAddr)
	}

	pipeline := render.NewPipeline(render.FFmpeg{})

	whisper := transcribe.NewWhisper(conf.WhisperCmd, conf.WhisperModel, conf.WhisperDevice, clipsDir)
	whisper.Language = conf.WhisperLanguage

	orch := jobs.New(jobs.Capabilities{
		Acquirer:    acquirer,
		Prober:      jobs.FFprobe{},
		Peaks:       peaks.New(),
		Planner:     speakers.NewPlanner(detector, clipsDir),
		Transcriber: whisper,
		Render:      pipeline,
		Engine:      captions.NewEngine(pipeline),
		Registry:    dbc.Queries(ctx),
		Publisher:   publisher,
	}, jobs.Config{
		ClipsDir:        clipsDir,
		AnonymousTTL:    time.Duration(conf.AnonymousTTLHours) * time.Hour,
		DefaultDuration: float64(conf.DefaultClipSeconds),
	})

	go orch.RunMaintenance(ctx, time.Duration(conf.SweepIntervalMinutes)*time.Minute)

	server := web.NewWebserver(orch, hub, web.NewSessionManager(conf.SessionSecret), clipsDir)
	go func() {
		if err := server.Start(conf.WebServerPort); err != nil {
			slog.Error("web server stopped", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("clipforge daemon stopping")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Warn("web server shutdown", "error", err)
	}
}
