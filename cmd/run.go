package cmd

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/moviebarn/rothbot/internal/audit"
	"github.com/moviebarn/rothbot/internal/bus"
	"github.com/moviebarn/rothbot/internal/config"
	"github.com/moviebarn/rothbot/internal/format"
	"github.com/moviebarn/rothbot/internal/history"
	"github.com/moviebarn/rothbot/internal/pipeline"
	"github.com/moviebarn/rothbot/internal/prompt"
	"github.com/moviebarn/rothbot/internal/providers"
	"github.com/moviebarn/rothbot/internal/ratelimit"
	"github.com/moviebarn/rothbot/internal/room"
	"github.com/moviebarn/rothbot/internal/trigger"
)

func runService() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel,
	})))

	cfgPath := resolveConfigPath()
	cfg, err := config.Load(cfgPath)
	if err != nil {
		slog.Error("failed to load config", "path", cfgPath, "error", err)
		os.Exit(1)
	}
	// A bad config is fatal: refuse to run rather than degrade silently.
	if err := cfg.Validate(); err != nil {
		slog.Error("config validation failed", "path", cfgPath, "error", err)
		os.Exit(1)
	}

	defs, err := cfg.BuildTriggers()
	if err != nil {
		// Unreachable after Validate, but keep the guard.
		slog.Error("failed to compile triggers", "error", err)
		os.Exit(1)
	}

	engine := trigger.NewEngine(cfg.Personality.CharacterName, cfg.Personality.NameVariations, defs, nil)
	limiter := ratelimit.New(ratelimit.Limits{
		GlobalMaxPerMinute:      cfg.RateLimits.GlobalMaxPerMinute,
		GlobalMaxPerHour:        cfg.RateLimits.GlobalMaxPerHour,
		GlobalCooldown:          time.Duration(cfg.RateLimits.GlobalCooldownSeconds) * time.Second,
		UserMaxPerHour:          cfg.RateLimits.UserMaxPerHour,
		UserCooldown:            time.Duration(cfg.RateLimits.UserCooldownSeconds) * time.Second,
		MentionCooldown:         time.Duration(cfg.RateLimits.MentionCooldownSeconds) * time.Second,
		AdminCooldownMultiplier: cfg.RateLimits.AdminCooldownMultiplier,
		AdminLimitMultiplier:    cfg.RateLimits.AdminLimitMultiplier,
		AdminRankThreshold:      cfg.RateLimits.AdminRankThreshold,
	}, defs, nil)

	hist := history.New(cfg.Personality.CharacterName, cfg.Context.ChatHistoryBuffer, cfg.Context.MaxVideoTitleLength)

	registry := providers.NewRegistry(cfg.DefaultProvider)
	for name, pc := range cfg.Providers {
		registry.Register(providers.NewOpenAI(providers.Options{
			Name:        name,
			BaseURL:     pc.BaseURL,
			APIKey:      pc.APIKey,
			Model:       pc.Model,
			MaxTokens:   pc.MaxTokens,
			Temperature: pc.Temperature,
			Timeout:     time.Duration(pc.TimeoutSeconds) * time.Second,
		}), pc.Fallback)
	}

	var sink audit.Sink = audit.Discard{}
	if cfg.Testing.LogResponses {
		path := cfg.Audit.Path
		if path == "" {
			path = cfg.Testing.LogFile
		}
		sink, err = audit.Open(cfg.Audit.Backend, path)
		if err != nil {
			slog.Error("failed to open audit sink", "backend", cfg.Audit.Backend, "error", err)
			os.Exit(1)
		}
	}
	defer sink.Close()

	var roomClient *room.Client
	pipe := pipeline.New(pipeline.Options{
		Engine:        engine,
		Limiter:       limiter,
		History:       hist,
		Prompts:       prompt.NewBuilder(cfg),
		Formatter:     format.New(cfg),
		Generator:     registry,
		Sender:        senderFunc(func(ctx context.Context, text string) error { return roomClient.SendChat(ctx, text) }),
		Audit:         sink,
		CharacterName: cfg.Personality.CharacterName,
		SplitDelay:    cfg.Message.SplitDelay(),
		PromptItems:   cfg.Context.PromptHistoryItems,
		DryRun:        cfg.Testing.DryRun,
		SendToChat:    cfg.Testing.SendToChat,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	roomClient = room.New(cfg.Room,
		func(msg bus.ChatMessage) { pipe.HandleChat(ctx, msg) },
		pipe.HandleMedia,
	)

	if cfg.Testing.DryRun {
		slog.Warn("DRY RUN MODE - responses will not be sent to chat")
	}
	slog.Info("rothbot starting",
		"version", Version,
		"character", cfg.Personality.CharacterName,
		"default_provider", cfg.DefaultProvider,
		"triggers", len(cfg.Triggers),
		"room", cfg.Room.URL, "channel", cfg.Room.Channel)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return roomClient.Run(gctx) })

	if err := g.Wait(); err != nil && ctx.Err() == nil {
		slog.Error("service stopped", "error", err)
		os.Exit(1)
	}
	slog.Info("rothbot stopped")
}

// senderFunc adapts a closure to pipeline.Sender.
type senderFunc func(ctx context.Context, text string) error

func (f senderFunc) SendChat(ctx context.Context, text string) error { return f(ctx, text) }
