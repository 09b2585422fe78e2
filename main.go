package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/doctor-appointment-agent/server/internal/agent/access"
	"github.com/doctor-appointment-agent/server/internal/agent/booking"
	"github.com/doctor-appointment-agent/server/internal/agent/clinic"
	"github.com/doctor-appointment-agent/server/internal/agent/graph"
	"github.com/doctor-appointment-agent/server/internal/agent/model"
	"github.com/doctor-appointment-agent/server/internal/agent/notify"
	"github.com/doctor-appointment-agent/server/internal/agent/repo"
	"github.com/doctor-appointment-agent/server/internal/api"
	"github.com/doctor-appointment-agent/server/internal/core"
	"github.com/doctor-appointment-agent/server/pkg/database"
	logx "github.com/doctor-appointment-agent/server/pkg/logger"
	pkgredis "github.com/doctor-appointment-agent/server/pkg/redis"
)

// AppConfig defines all configurable parameters of the assistant,
// sourced from environment variables (loaded from .env for local runs).
type AppConfig struct {
	Environment core.Environment `envconfig:"ENVIRONMENT" default:"development"`
	LogLevel    string           `envconfig:"LOG_LEVEL"`

	// Infrastructure
	Redis       pkgredis.Config
	Database    database.Config
	StoreDriver string `envconfig:"STORE_DRIVER" default:"postgres"`
	HTTPAddr    string `envconfig:"HTTP_ADDR" default:":8080"`

	// LLM provider
	APIKey  string `envconfig:"GEMINI_API_KEY" required:"true"`
	BaseURL string `envconfig:"GEMINI_BASE_URL"`

	// Agent configs
	Response     model.ResponseModelConfig
	Prompt       model.ResponsePromptConfig
	Conversation model.ConversationConfig
	Booking      model.BookingConfig
	Session      model.SessionConfig
	Mail         model.MailConfig
}

func main() {
	repl := flag.Bool("repl", false, "chat on stdin instead of serving HTTP")
	flag.Parse()

	if err := godotenv.Load(".env"); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env file: %v\n", err)
	}

	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "failed to process environment config: %v\n", err)
		os.Exit(1)
	}

	logx.Init(logx.LoggerOpts{Environment: cfg.Environment, Level: cfg.LogLevel})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, *repl); err != nil {
		logx.Fatal().Err(err).Msg("assistant stopped")
	}
}

func run(ctx context.Context, cfg AppConfig, repl bool) error {
	rdb, err := cfg.Redis.New(ctx)
	if err != nil {
		return fmt.Errorf("initialise redis: %w", err)
	}
	defer rdb.Close()
	logx.Info().Msg("connected to redis")

	store, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	loc, err := cfg.Booking.Location()
	if err != nil {
		return err
	}

	sender, err := notify.NewSender(ctx, cfg.Mail)
	if err != nil {
		return fmt.Errorf("initialise mail sender: %w", err)
	}

	workflow := booking.NewWorkflow(store, repo.NewRedisCheckpointRepository(rdb), notify.NewNotifier(sender), booking.Config{
		ConfirmationTTL: cfg.Booking.ConfirmationTTL,
		Location:        loc,
	})
	go booking.NewSweeper(workflow, cfg.Booking.SweepInterval).Run(ctx)

	sessions := access.NewSessions(
		repo.NewRedisSessionRepository(rdb),
		store,
		access.NewTokenIssuer(cfg.Session.Secret, cfg.Session.TTL),
	)
	dispatcher := clinic.NewDispatcher(access.NewGate(), sessions, store, workflow)

	runner, err := graph.BuildResponseGraph(ctx, graph.Config{
		APIKey:           cfg.APIKey,
		BaseURL:          cfg.BaseURL,
		ResponseModel:    cfg.Response,
		ResponsePrompt:   cfg.Prompt,
		Conversation:     cfg.Conversation,
		ConversationRepo: repo.NewRedisConversationRepository(rdb, cfg.Conversation.TTL, 4*cfg.Conversation.MaxTurns),
		Executor:         dispatcher,
		Sessions:         sessions,
		Bookings:         workflow,
	})
	if err != nil {
		return fmt.Errorf("build graph: %w", err)
	}

	if repl {
		return chatLoop(ctx, runner)
	}
	return serve(ctx, cfg.HTTPAddr, api.NewRouter(api.NewHandler(runner, dispatcher)))
}

func openStore(cfg AppConfig) (model.Store, error) {
	switch strings.ToLower(cfg.StoreDriver) {
	case "memory":
		logx.Warn().Msg("using in-memory store; data is lost on restart")
		return repo.NewMemoryStore(), nil
	case "", "postgres":
		db, err := cfg.Database.New()
		if err != nil {
			return nil, err
		}
		if err := database.Migrate(db); err != nil {
			_ = database.Close(db)
			return nil, err
		}
		logx.Info().Msg("connected to database")
		return repo.NewGormStore(db), nil
	}
	return nil, fmt.Errorf("unknown STORE_DRIVER %q", cfg.StoreDriver)
}

func serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logx.Info().Str("addr", addr).Msg("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	logx.Info().Msg("shutting down http server")
	return srv.Shutdown(shutdownCtx)
}

// chatLoop runs a single conversation against stdin until EOF or "exit".
func chatLoop(ctx context.Context, runner graph.Runner) error {
	conversationID := uuid.NewString()
	fmt.Printf("Conversation %s. Type \"exit\" to quit.\n", conversationID)

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == "exit" || line == "quit" {
			return nil
		}

		reply, err := runner.Invoke(ctx, model.QueryInput{ConversationID: conversationID, Query: line})
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logx.Error().Err(err).Str("conversation_id", conversationID).Msg("chat turn failed")
			fmt.Println("Sorry, something went wrong. Please try again.")
			continue
		}
		fmt.Println(reply.Reply)
	}
}
