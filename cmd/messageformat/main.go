package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/pitabwire/util"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/pitabwire/messageformat"
	"github.com/pitabwire/messageformat/catalog"
	"github.com/pitabwire/messageformat/config"
	"github.com/pitabwire/messageformat/data"
	"github.com/pitabwire/messageformat/localization"
	lhttp "github.com/pitabwire/messageformat/localization/interceptors/http"
	"github.com/pitabwire/messageformat/profiler"
	"github.com/pitabwire/messageformat/ratelimiter"
	"github.com/pitabwire/messageformat/version"
)

const (
	minArgsCommand  = 2
	shutdownTimeout = 10 * time.Second
	readTimeout     = 5 * time.Second
)

func main() {
	if len(os.Args) < minArgsCommand {
		usage()
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var err error
	switch os.Args[1] {
	case "get":
		err = cmdGet(ctx, os.Stdout, os.Args[2:])
	case "format":
		err = cmdFormat(ctx, os.Stdout, os.Args[2:])
	case "serve":
		err = cmdServe(ctx, os.Args[2:])
	case "version":
		fmt.Fprintln(os.Stdout, version.String())
	case "help", "-h", "--help":
		usage()
	default:
		// #nosec G705 -- CLI output is not rendered in an HTML context.
		fmt.Fprintf(os.Stderr, "unknown command: %q\n", os.Args[1])
		usage()
		os.Exit(1)
	}

	exitOnErr(err)
}

func usage() {
	fmt.Fprintln(os.Stdout, "messageformat <command> [flags] [args]")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Commands:")
	fmt.Fprintln(os.Stdout, "  get [--dir DIR] [--locales en-gb,en] [--format ini|toml|yaml] [--cache DSN] <key>")
	fmt.Fprintln(os.Stdout, "  format [--dir DIR] [--locales en-gb,en] [--format ini|toml|yaml] [--cache DSN] <key> [args...]")
	fmt.Fprintln(os.Stdout, "  serve [--dir DIR] [--locales en-gb,en,sw] [--default en] [--format ini|toml|yaml] [--cache DSN] [--port :8080]")
	fmt.Fprintln(os.Stdout, "  version")
	fmt.Fprintln(os.Stdout, "")
	fmt.Fprintln(os.Stdout, "Flags default to the LOG_*, CATALOG_*, LOCALES, DEFAULT_LOCALE, CACHE_* and HTTP_PORT environment variables.")
}

// bindFlags registers the flags shared by every command, defaulting to cfg.
func bindFlags(fs *flag.FlagSet, cfg *config.ConfigurationDefault) *string {
	locales := strings.Join(cfg.GetLocales(), ",")
	fs.StringVar(&cfg.CatalogDirectory, "dir", cfg.CatalogDirectory, "catalog directory")
	fs.StringVar(&cfg.CatalogFormat, "format", cfg.CatalogFormat, "catalog file format")
	fs.StringVar(&cfg.CacheURI, "cache", cfg.CacheURI, "catalog store DSN")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level")
	return fs.String("locales", locales, "comma separated locales, most preferred first")
}

func splitLocales(value string) []string {
	var locales []string
	for _, l := range strings.Split(value, ",") {
		if l = strings.TrimSpace(l); l != "" {
			locales = append(locales, l)
		}
	}
	return locales
}

// setup loads the environment configuration, lets fs override it and opens
// the catalog store.
func setup(
	ctx context.Context,
	fs *flag.FlagSet,
	args []string,
	extra func(*config.ConfigurationDefault),
) (context.Context, *config.ConfigurationDefault, *catalog.Loader, func(), error) {
	cfg, err := config.FromEnv[config.ConfigurationDefault]()
	if err != nil {
		return ctx, nil, nil, nil, fmt.Errorf("config: %w", err)
	}

	locales := bindFlags(fs, &cfg)
	if extra != nil {
		extra(&cfg)
	}
	if err = fs.Parse(args); err != nil {
		return ctx, nil, nil, nil, err
	}
	cfg.Locales = splitLocales(*locales)

	log := config.NewLogger(ctx, &cfg)
	ctx = util.ContextWithLogger(ctx, log)
	ctx = config.ToContext(ctx, &cfg)

	loader, closeStore, err := openLoader(ctx, &cfg)
	if err != nil {
		return ctx, nil, nil, nil, err
	}
	return ctx, &cfg, loader, closeStore, nil
}

func openLoader(ctx context.Context, cfg *config.ConfigurationDefault) (*catalog.Loader, func(), error) {
	parser, err := catalog.ParserFor(cfg.GetCatalogFormat())
	if err != nil {
		return nil, nil, err
	}

	store, err := catalog.OpenStore(ctx, cfg.CacheOptions()...)
	if err != nil {
		return nil, nil, fmt.Errorf("open catalog store %s: %w", redact(cfg.GetCacheURI()), err)
	}

	closeStore := func() {
		if closeErr := store.Close(); closeErr != nil {
			util.Log(ctx).WithError(closeErr).Warn("could not close catalog store")
		}
	}
	return catalog.NewLoader(store, catalog.WithParser(parser)), closeStore, nil
}

func redact(dsn data.DSN) string {
	if dsn.IsMem() {
		return dsn.String()
	}
	return dsn.Scheme() + "://" + dsn.Host()
}

func cmdGet(ctx context.Context, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("get", flag.ContinueOnError)
	ctx, cfg, loader, closeStore, err := setup(ctx, fs, args, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	if fs.NArg() < 1 {
		return errors.New("message key is required")
	}

	head, err := messageformat.Chain(loader, cfg.GetCatalogDirectory(), cfg.GetLocales())
	if err != nil {
		return err
	}

	template, err := head.Get(ctx, fs.Arg(0))
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, template)
	return err
}

func cmdFormat(ctx context.Context, out io.Writer, args []string) error {
	fs := flag.NewFlagSet("format", flag.ContinueOnError)
	ctx, cfg, loader, closeStore, err := setup(ctx, fs, args, nil)
	if err != nil {
		return err
	}
	defer closeStore()

	if fs.NArg() < 1 {
		return errors.New("message key is required")
	}

	head, err := messageformat.Chain(loader, cfg.GetCatalogDirectory(), cfg.GetLocales())
	if err != nil {
		return err
	}

	message, err := head.Format(ctx, fs.Arg(0), stringArgs(fs.Args()[1:])...)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, message)
	return err
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

func cmdServe(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	ctx, cfg, loader, closeStore, err := setup(ctx, fs, args, func(cfg *config.ConfigurationDefault) {
		fs.StringVar(&cfg.DefaultLocale, "default", cfg.DefaultLocale, "locale used when no preference matches")
		fs.StringVar(&cfg.HTTPServerPort, "port", cfg.HTTPServerPort, "http listen address")
		fs.IntVar(&cfg.PreloadConcurrency, "preload", cfg.PreloadConcurrency, "catalogs loaded in parallel at startup")
	})
	if err != nil {
		return err
	}
	defer closeStore()

	registry, err := localization.NewRegistry(loader, cfg.GetCatalogDirectory(), cfg.GetLocales(), cfg.GetDefaultLocale())
	if err != nil {
		return err
	}
	if err = registry.Preload(ctx, cfg.GetPreloadConcurrency()); err != nil {
		return err
	}

	limiter := ratelimiter.NewKeyedLimiter(cfg.RateLimiterConfig())
	defer func() { _ = limiter.Close() }()

	pprofServer := profiler.NewServer()
	if err = pprofServer.StartIfEnabled(ctx, cfg); err != nil {
		return err
	}
	defer func() { _ = pprofServer.Stop(context.WithoutCancel(ctx)) }()

	handler := otelhttp.NewHandler(
		ratelimiter.RateLimitMiddleware(limiter)(lhttp.LanguageHTTPMiddleware(newHandler(registry))),
		"messageformat",
	)
	srv := &http.Server{
		Addr:              cfg.HTTPPort(),
		Handler:           handler,
		ReadHeaderTimeout: readTimeout,
		BaseContext: func(_ net.Listener) context.Context {
			return ctx
		},
	}

	errCh := make(chan error, 1)
	go func() {
		util.Log(ctx).WithField("address", srv.Addr).
			WithField("locales", registry.Locales()).
			WithField("version", version.String()).
			Info("serving messages")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err = <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func exitOnErr(err error) {
	if err == nil {
		return
	}
	fmt.Fprintln(os.Stderr, err)
	os.Exit(1)
}
