package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/answerline/answerline/internal/dotenv"
	"github.com/answerline/answerline/pkg/gateway/auth"
	"github.com/answerline/answerline/pkg/gateway/config"
	"github.com/answerline/answerline/pkg/gateway/feed"
	"github.com/answerline/answerline/pkg/gateway/lifecycle"
	gatewayserver "github.com/answerline/answerline/pkg/gateway/server"
	"github.com/answerline/answerline/pkg/llm"
	"github.com/answerline/answerline/pkg/notify"
	"github.com/answerline/answerline/pkg/store"
	"github.com/answerline/answerline/pkg/voice"
)

type appDeps struct {
	loadConfig   func() (config.Config, error)
	openStore    func(context.Context, string, *slog.Logger) (*store.DB, error)
	signalNotify func(chan<- os.Signal, ...os.Signal)
	signalStop   func(chan<- os.Signal)
}

func defaultAppDeps() appDeps {
	return appDeps{
		loadConfig: config.LoadFromEnv,
		openStore:  store.Open,
		signalNotify: func(c chan<- os.Signal, sig ...os.Signal) {
			signal.Notify(c, sig...)
		},
		signalStop: signal.Stop,
	}
}

func buildHTTPServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
	}
}

func buildNotifier(cfg config.Config, logger *slog.Logger) *notify.Notifier {
	n := &notify.Notifier{Logger: logger}
	if cfg.SMTPAddr != "" {
		n.Email = notify.NewEmailNotifier(notify.EmailConfig{
			SMTPAddr:     cfg.SMTPAddr,
			Username:     cfg.SMTPUsername,
			Password:     cfg.SMTPPassword,
			From:         cfg.EmailFrom,
			To:           cfg.EmailTo,
			BusinessName: cfg.BusinessName,
		})
	}
	if cfg.POSBaseURL != "" {
		n.POS = notify.NewPOSClient(cfg.POSBaseURL, cfg.POSAPIKey, cfg.POSLocationID)
	}
	return n
}

func run(ctx context.Context, logger *slog.Logger, deps appDeps) error {
	if deps.loadConfig == nil || deps.openStore == nil {
		return errors.New("missing dependency")
	}
	if deps.signalNotify == nil || deps.signalStop == nil {
		return errors.New("missing signal dependency")
	}
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := deps.loadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := deps.openStore(ctx, cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer db.Close()

	adapter := &store.Adapter{DB: db}
	notifier := buildNotifier(cfg, logger)
	client := llm.New(cfg.OpenAIAPIKey, cfg.OpenAIModel)

	orch := &voice.Orchestrator{
		Store:     voice.NewStore(),
		Directory: adapter,
		Turns: voice.TurnProcessor{
			Responder: client,
			Timeout:   cfg.ResponderTimeout,
			Logger:    logger,
		},
		Gate: voice.Gate{
			Extractor: client,
			Recorder:  adapter,
			Notifier:  notifier,
			Timeout:   cfg.ExtractionTimeout,
			Logger:    logger,
		},
		Recorder:      adapter,
		Notifier:      notifier,
		Logger:        logger,
		LookupTimeout: cfg.LookupTimeout,
	}

	gw := gatewayserver.New(cfg, logger, gatewayserver.Deps{
		Accounts:   db,
		Calls:      db,
		Orders:     db,
		Businesses: db,
		Export:     db,
		Pinger:     db,
		Orch:       orch,
		Hub:        feed.NewHub(logger),
		Auth:       auth.NewManager(cfg.JWTSecret, cfg.JWTTTL),
		Lifecycle:  &lifecycle.Lifecycle{},
	})
	httpSrv := buildHTTPServer(cfg, gw.Handler())

	logger.Info("starting gateway", "addr", cfg.Addr)

	listenErrCh := make(chan error, 1)
	go func() {
		err := httpSrv.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErrCh <- err
			return
		}
		listenErrCh <- nil
	}()

	sigCh := make(chan os.Signal, 1)
	deps.signalNotify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer deps.signalStop(sigCh)

	select {
	case err := <-listenErrCh:
		if err != nil {
			return fmt.Errorf("serve: %w", err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case sig := <-sigCh:
		logger.Info("shutdown signal received", "signal", sig.String())
	}

	gw.SetDraining()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.ShutdownGracePeriod)
	defer shutdownCancel()
	gw.ShutdownFeed(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if err := <-listenErrCh; err != nil {
		return fmt.Errorf("serve: %w", err)
	}

	logger.Info("gateway stopped")
	return nil
}

func runMain(ctx context.Context, stderr io.Writer, deps appDeps) int {
	if stderr == nil {
		stderr = os.Stderr
	}
	logger := slog.New(slog.NewTextHandler(stderr, nil))

	if err := dotenv.LoadFile(".env"); err != nil {
		fmt.Fprintf(stderr, "answerline: %v\n", err)
		return 1
	}

	if err := run(ctx, logger, deps); err != nil {
		fmt.Fprintf(stderr, "answerline: %v\n", err)
		return 1
	}
	return 0
}

func main() {
	os.Exit(runMain(context.Background(), os.Stderr, defaultAppDeps()))
}
