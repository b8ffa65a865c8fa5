package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/erazemk/achados/internal/api"
	"github.com/erazemk/achados/internal/auth"
	"github.com/erazemk/achados/internal/catalog"
	"github.com/erazemk/achados/internal/config"
	"github.com/erazemk/achados/internal/db"
	"github.com/erazemk/achados/internal/gateway"
	"github.com/erazemk/achados/internal/logging"
	"github.com/erazemk/achados/internal/store"
	"github.com/erazemk/achados/internal/submission"
)

type flags struct {
	configPath string
	dbPath     string
	addr       string
	adminUser  string
	logPath    string
}

func parseFlags(args []string) (*flags, error) {
	fs := flag.NewFlagSet("achados", flag.ContinueOnError)
	f := &flags{}

	fs.StringVar(&f.configPath, "config", "", "")
	fs.StringVar(&f.configPath, "c", "", "")
	fs.StringVar(&f.dbPath, "db", "", "")
	fs.StringVar(&f.dbPath, "d", "", "")
	fs.StringVar(&f.addr, "addr", "", "")
	fs.StringVar(&f.addr, "a", "", "")
	fs.StringVar(&f.adminUser, "user", "", "")
	fs.StringVar(&f.adminUser, "u", "", "")
	fs.StringVar(&f.logPath, "log", "", "")
	fs.StringVar(&f.logPath, "l", "", "")

	fs.Usage = func() {
		fmt.Fprint(os.Stdout, `Usage: achados [flags]

Flags:
  -c, -config <path>      YAML config file (default: $CONFIG_PATH or ./config.yaml)
  -d, -db <path>          SQLite database path (default: achados.sqlite3)
  -a, -addr <host:port>   listen address (default: :8080)
  -u, -user <name>        admin username on first run (default: admin)
  -l, -log <path>         log file path (default: no file, stdout/stderr only)
  -h, -help               show this help and exit

Every setting can also be given in the config file or the environment.
`)
	}

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		fs.Usage()
		return nil, fmt.Errorf("unexpected argument: %s", fs.Arg(0))
	}
	return f, nil
}

// apply overrides cfg with the flags that were given.
func (f *flags) apply(cfg *config.Config) {
	if f.dbPath != "" {
		cfg.Database.Path = f.dbPath
	}
	if f.addr != "" {
		cfg.Server.Addr = f.addr
	}
	if f.adminUser != "" {
		cfg.Auth.AdminUser = f.adminUser
	}
	if f.logPath != "" {
		cfg.Log.File = f.logPath
	}
}

func main() {
	f, err := parseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	f.apply(cfg)

	// INFO/WARN go to stdout, ERROR to stderr, optionally also to a file.
	logger, closeLog, err := logging.New(cfg.Log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer closeLog()
	slog.SetDefault(logger)

	if err := run(cfg, logger); err != nil {
		slog.Error("fatal", "error", err)
		closeLog()
		os.Exit(1)
	}
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	database, err := db.Open(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer database.Close()

	if err := db.Migrate(ctx, database); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}
	slog.Info("database ready", "path", cfg.Database.Path)

	if err := ensureAdmin(ctx, database, cfg.Auth.AdminUser); err != nil {
		return err
	}

	secret := cfg.Auth.JWTSecret
	if secret == "" {
		// Generated on first run and kept in the database.
		if secret, err = store.GetJWTSecret(ctx, database); err != nil {
			return fmt.Errorf("loading jwt secret: %w", err)
		}
	}
	issuer := auth.NewIssuer(secret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)

	itemCache, closeCache, err := newItemCache(ctx, cfg.Cache)
	if err != nil {
		return err
	}
	defer closeCache()

	broker, err := newBroker(cfg.Realtime, logger)
	if err != nil {
		return err
	}
	defer broker.Close()

	gw := gateway.New(database, itemCache, broker, cfg.Server.PublicURL, logger)

	cat := catalog.New(gw, logger, gateway.Filters{Campus: cfg.Catalog.Campus, Limit: cfg.Catalog.PageSize})
	if err := cat.Reload(ctx); err != nil {
		// Browse retries on demand; the server still starts.
		slog.Warn("initial catalog load failed", "error", err)
	}

	workflow := submission.NewWorkflow(gw, cat, logger)

	var wg sync.WaitGroup
	wg.Add(3)
	go func() {
		defer wg.Done()
		if err := cat.Watch(ctx, cfg.Catalog.Campus); err != nil {
			slog.Error("catalog watch stopped", "error", err)
		}
	}()
	go func() {
		defer wg.Done()
		cat.Run(ctx, cfg.Catalog.RefreshInterval)
	}()
	go func() {
		defer wg.Done()
		purgeRevokedTokens(ctx, database, time.Hour)
	}()

	router := api.NewRouter(api.Deps{
		DB:        database,
		Issuer:    issuer,
		Gateway:   gw,
		Catalog:   cat,
		Workflow:  workflow,
		Sessions:  api.NewSessions(cfg.Submission.SessionTTL),
		RateLimit: cfg.Server.RateLimit,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           router,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout,
		ReadTimeout:       cfg.Server.ReadTimeout,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	// Graceful shutdown on SIGINT/SIGTERM.
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server forced to shutdown", "error", err)
		}
	}()

	slog.Info("server started", "addr", cfg.Server.Addr, "public_url", cfg.Server.PublicURL,
		"cache", cfg.Cache.Backend, "realtime", cfg.Realtime.Backend)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		wg.Wait()
		return fmt.Errorf("serving http: %w", err)
	}

	stop()
	wg.Wait()
	slog.Info("server stopped, closing database")
	return nil
}
