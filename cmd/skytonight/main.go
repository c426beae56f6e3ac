// Command skytonight lists the deep-sky objects and planets that stand high
// enough to observe tonight.
//
// Usage:
//
//	skytonight [run] [-config file] [-date YYYY-MM-DD] [-targets m31,m42] [-json]
//	skytonight serve [-config file]
//	skytonight catalog [-config file] [-type galaxy] [-json]
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/goccy/go-json"

	"github.com/star/skytonight/internal/api"
	"github.com/star/skytonight/internal/auth"
	"github.com/star/skytonight/internal/cache"
	"github.com/star/skytonight/internal/catalog"
	"github.com/star/skytonight/internal/config"
	"github.com/star/skytonight/internal/health"
	"github.com/star/skytonight/internal/logging"
	"github.com/star/skytonight/internal/metrics"
	"github.com/star/skytonight/internal/supervisor"
	"github.com/star/skytonight/internal/visibility"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

// run dispatches a subcommand and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	cmd := "run"
	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cmd, args = args[0], args[1:]
	}

	fs := flag.NewFlagSet("skytonight "+cmd, flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "config file (default $SKYTONIGHT_CONFIG or ./skytonight.yaml)")

	var (
		asJSON  *bool
		date    *string
		targets *string
		objType *string
	)
	switch cmd {
	case "run":
		asJSON = fs.Bool("json", false, "print the report as JSON")
		date = fs.String("date", "", "evening of the session, YYYY-MM-DD (default today)")
		targets = fs.String("targets", "", "comma-separated targets, overriding the config")
	case "catalog":
		asJSON = fs.Bool("json", false, "print the catalog as JSON")
		objType = fs.String("type", "", "only list objects of this type")
	case "serve":
	default:
		fmt.Fprintf(stderr, "unknown command %q (want run, serve or catalog)\n", cmd)
		return 2
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "config: %v\n", err)
		return 1
	}

	logOut := stderr
	if cmd == "serve" {
		logOut = stdout
	}
	logger := logging.New(logOut, cfg.Logging.Level, cfg.Logging.Format)

	a, err := newApp(cfg, logger)
	if err != nil {
		logger.Error("startup failed", "error", err)
		return 1
	}
	defer a.Close()

	switch cmd {
	case "serve":
		err = serve(ctx, a)
	case "catalog":
		err = listCatalog(stdout, a.store.Get(), catalog.ObjectType(strings.ToLower(*objType)), *asJSON)
	default:
		if *date != "" {
			cfg.Observer.Date = *date
		}
		if *targets != "" {
			cfg.Targets = splitTargets(*targets)
		}
		err = runReport(ctx, stdout, a, *asJSON)
	}
	if err != nil {
		logger.Error(cmd+" failed", "error", err)
		return 1
	}
	return 0
}

func splitTargets(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// runReport computes tonight's report for the configured observer.
func runReport(ctx context.Context, w io.Writer, a *app, asJSON bool) error {
	if len(a.cfg.Targets) == 0 {
		return errors.New("no targets configured")
	}
	report, err := a.engine.Run(ctx, visibility.Request{
		Observer: a.cfg.ObserverAt(time.Now()),
		Targets:  a.cfg.Targets,
	})
	if err != nil {
		return err
	}
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return renderReport(w, report)
}

// serve runs the HTTP API, the report cache sweeper and kv store GC under a
// supervisor until ctx is cancelled. SIGHUP reloads the catalog.
func serve(ctx context.Context, a *app) error {
	reports := cache.New(cache.Config{
		TTL:           a.cfg.Cache.TTL,
		MaxEntries:    a.cfg.Cache.MaxEntries,
		SweepInterval: a.cfg.Cache.SweepInterval,
	}, a.catalogVersion, a.logger)

	srv := api.NewServer(a.cfg.Server, auth.Config{
		Enabled: a.cfg.Auth.Enabled,
		Token:   a.cfg.Auth.Token,
	}, api.Deps{
		Engine:         a.engine,
		Objects:        a.objects,
		Cache:          reports,
		DefaultTargets: a.cfg.Targets,
		Ready:          []health.Check{a.catalogReady},

		LookupElevation: a.cfg.Observer.LookupElevation,
	}, a.logger)

	tree := supervisor.NewTree(a.logger, supervisor.TreeConfig{
		ShutdownTimeout: a.cfg.Server.ShutdownTimeout + time.Second,
	})
	tree.AddStorageService(a.kv)
	tree.AddStorageService(reports)
	tree.AddStorageService(&catalogReloader{app: a})
	tree.AddAPIService(srv)

	a.logger.Info("starting server",
		"addr", a.cfg.Server.Addr,
		"auth_enabled", a.cfg.Auth.Enabled,
		"rate_limit", a.cfg.Server.RateLimit,
		"report_cache_ttl_seconds", a.cfg.Cache.TTL.Seconds(),
	)
	err := tree.Serve(ctx)
	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			a.logger.Warn("service failed to stop within timeout", "service", svc.Name)
		}
	}
	a.logger.Info("server stopped")
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return nil
	}
	return err
}

// catalogAgeInterval is how often the catalog age gauge is refreshed.
const catalogAgeInterval = 10 * time.Second

// catalogReloader reloads the catalog on SIGHUP and keeps the catalog age
// gauge current. The report cache notices the new load time and drops
// reports computed against the old catalog.
type catalogReloader struct {
	app *app
}

func (r *catalogReloader) Serve(ctx context.Context) error {
	hup := make(chan os.Signal, 1)
	signal.Notify(hup, syscall.SIGHUP)
	defer signal.Stop(hup)

	ticker := time.NewTicker(catalogAgeInterval)
	defer ticker.Stop()
	r.reportAge()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.reportAge()
		case <-hup:
			if err := r.app.store.Load(r.app.cfg.Catalog.ExtraPath, r.app.logger); err != nil {
				r.app.logger.Error("catalog reload failed, keeping current catalog", "error", err)
			}
			r.reportAge()
		}
	}
}

func (r *catalogReloader) reportAge() {
	metrics.SetCatalogAge(r.app.store.AgeSeconds())
}

func (r *catalogReloader) String() string {
	return "catalog-reloader"
}
