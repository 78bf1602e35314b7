package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	coreapp "pathref/internal/core/app"
	"pathref/internal/core/config"
	"pathref/internal/core/ports"
	"pathref/internal/shared/observability"
	"pathref/internal/shared/util"
	"pathref/internal/shared/version"
	"pathref/internal/ui/api"
	"pathref/internal/ui/report"
)

func Run(args []string) int {
	opts, err := parseOptions(args)
	if err != nil {
		return 2
	}

	if opts.version {
		fmt.Printf("pathref v%s\n", version.Version)
		return 0
	}

	if err := opts.validate(); err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		return 1
	}

	cleanupLogs := configureLogging(opts.ui, opts.verbose)
	defer cleanupLogs()

	cwd, err := os.Getwd()
	if err != nil {
		slog.Error("failed to detect working directory", "error", err)
		return 1
	}

	cfg, cfgPath, err := loadConfig(opts.configPath, cwd)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		return 1
	}
	if len(opts.args) == 1 {
		cfg.Paths.ProjectRoot = opts.args[0]
	}

	paths, err := prepareConfig(cfg, cwd)
	if err != nil {
		slog.Error("failed to resolve runtime paths", "error", err)
		return 1
	}
	if opts.history && !cfg.DB.Enabled {
		fmt.Fprintln(os.Stderr, "--history requires db.enabled = true")
		return 1
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := observability.InitTracing(ctx, "pathref", version.Version, cfg.Observability.OTLPEndpoint)
	if err != nil {
		slog.Warn("tracing disabled", "error", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = shutdownTracing(shutdownCtx)
	}()

	app, err := coreapp.New(cfg)
	if err != nil {
		slog.Error("failed to initialize app", "error", err)
		return 1
	}
	defer func() {
		if err := app.Close(context.Background()); err != nil {
			slog.Warn("failed to close app", "error", err)
		}
	}()

	if done, code := runSingleCommand(ctx, app, opts, cwd, os.Stdout); done {
		return code
	}

	if _, err := app.Scan(ctx); err != nil {
		slog.Error("initial scan failed", "error", err)
		return 1
	}
	writeOutputs(ctx, app, cfg.Output, paths.ProjectRoot)

	if opts.history {
		if err := runHistoryMode(ctx, opts, app, os.Stdout); err != nil {
			slog.Error("history mode failed", "error", err)
			return 1
		}
	}

	if !opts.ui {
		snap, err := app.Snapshot(ctx)
		if err != nil {
			slog.Error("failed to collect snapshot", "error", err)
			return 1
		}
		if err := report.WriteSummary(os.Stdout, snap, opts.limit); err != nil {
			slog.Error("failed to print summary", "error", err)
			return 1
		}
	}

	if opts.singleShot() {
		return 0
	}

	if cfg.Observability.Enabled || opts.serve {
		server, err := api.NewServer(
			cfg.Observability.Address,
			app,
			coreapp.NewHealthService(app),
			cfg.Observability.RateLimit,
			cfg.Observability.Burst,
		)
		if err != nil {
			slog.Error("failed to create api server", "error", err)
			return 1
		}
		if trusted, err := cfg.Observability.TrustedProxyPrefixes(); err == nil {
			server.TrustProxies(trusted)
		}
		if err := server.Start(ctx); err != nil {
			slog.Error("failed to start api server", "error", err)
			return 1
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = server.Stop(stopCtx)
		}()
	}

	if cfgPath != "" {
		cfgWatcher := config.NewWatcher(cfgPath, func(next *config.Config) {
			reloadConfig(app, next, cwd, cfg.Paths.ProjectRoot)
		})
		if err := cfgWatcher.Start(ctx); err != nil {
			slog.Warn("config watcher disabled", "error", err)
		} else {
			defer cfgWatcher.Stop()
		}
	}

	if err := app.StartWatcher(ctx); err != nil {
		slog.Error("failed to start watcher", "error", err)
		return 1
	}

	if opts.ui {
		if err := runUI(ctx, app, projectName(cfg, paths)); err != nil {
			slog.Error("failed to run UI", "error", err)
			return 1
		}
		return 0
	}

	app.SetUpdateHandler(func(update ports.WatchUpdate) {
		slog.Info("references updated",
			"changed", len(update.Changed),
			"rebuilt", update.WorkspaceRebuilt,
			"unresolved", update.Snapshot.Result.Unresolved,
		)
		writeOutputs(ctx, app, app.Config().Output, paths.ProjectRoot)
	})

	<-ctx.Done()
	slog.Info("shutting down")
	return 0
}

// runSingleCommand handles the modes that answer one query without a full
// scan.
func runSingleCommand(ctx context.Context, svc ports.ReferenceService, opts cliOptions, cwd string, w io.Writer) (bool, int) {
	switch {
	case strings.TrimSpace(opts.roots) != "":
		res, err := svc.Roots(ctx, ports.RootsRequest{
			Module:           strings.TrimSpace(opts.roots),
			IncludeLibraries: opts.libraries,
		})
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		if err := report.WriteRoots(w, res); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		return true, 0
	case strings.TrimSpace(opts.refs) != "":
		path := config.ResolveRelative(cwd, opts.refs)
		res, err := svc.FileReferences(ctx, path)
		if err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		if err := report.WriteFileReferences(w, res); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			return true, 1
		}
		return true, 0
	}
	return false, 0
}

// prepareConfig applies env overrides and makes every configured path
// absolute against the resolved project root.
func prepareConfig(cfg *config.Config, cwd string) (config.ResolvedPaths, error) {
	config.ApplyEnvOverrides(cfg)
	paths, err := config.ResolvePaths(cfg, cwd)
	if err != nil {
		return config.ResolvedPaths{}, err
	}
	config.AbsolutizeModules(cfg, paths.ProjectRoot)
	cfg.Paths.ProjectRoot = paths.ProjectRoot
	cfg.DB.Path = paths.DBPath
	return paths, nil
}

func reloadConfig(app *coreapp.App, next *config.Config, cwd, projectRoot string) {
	if strings.TrimSpace(next.Paths.ProjectRoot) == "" {
		next.Paths.ProjectRoot = projectRoot
	}
	if _, err := prepareConfig(next, cwd); err != nil {
		slog.Error("failed to resolve reloaded config paths", "error", err)
		return
	}
	if err := app.ReloadConfig(next); err != nil {
		slog.Error("failed to apply reloaded config", "error", err)
		return
	}
	if _, err := app.Scan(context.Background()); err != nil {
		slog.Error("rescan after config reload failed", "error", err)
	}
}

func writeOutputs(ctx context.Context, svc ports.ReferenceService, out config.Output, projectRoot string) {
	snap, err := svc.Snapshot(ctx)
	if err != nil {
		slog.Error("failed to collect snapshot", "error", err)
		return
	}
	written, err := report.WriteOutputs(out, projectRoot, snap)
	if err != nil {
		slog.Error("failed to generate outputs", "error", err)
	}
	if len(written) > 0 {
		slog.Info("reports written", "paths", written)
	}
}

func projectName(cfg *config.Config, paths config.ResolvedPaths) string {
	if cfg.DB.Project != "" && cfg.DB.Project != "default" {
		return cfg.DB.Project
	}
	return filepath.Base(paths.ProjectRoot)
}

func loadConfig(path, cwd string) (*config.Config, string, error) {
	if path != defaultConfigPath {
		cfg, err := config.Load(path)
		if err != nil {
			return nil, "", err
		}
		return cfg, path, nil
	}

	candidates, err := discoverDefaultConfig(cwd)
	if err != nil {
		return nil, "", err
	}

	for _, candidate := range candidates {
		cfg, loadErr := config.Load(candidate)
		if loadErr == nil {
			return cfg, candidate, nil
		}
		if errors.Is(loadErr, os.ErrNotExist) {
			continue
		}
		return nil, "", loadErr
	}

	slog.Info("no config file found, using defaults with Go module discovery")
	cfg := config.DefaultConfig()
	cfg.Discovery.GoModules = true
	return cfg, "", nil
}

func discoverDefaultConfig(cwd string) ([]string, error) {
	if strings.TrimSpace(cwd) == "" {
		return nil, fmt.Errorf("cwd must not be empty")
	}
	return []string{
		filepath.Clean(filepath.Join(cwd, "data/config/pathref.toml")),
		filepath.Clean(filepath.Join(cwd, "pathref.toml")),
		filepath.Clean(filepath.Join(cwd, "data/config/pathref.example.toml")),
	}, nil
}

func parseSince(value string) (time.Time, error) {
	raw := strings.TrimSpace(value)
	if raw == "" {
		return time.Time{}, nil
	}

	rfc3339, err := time.Parse(time.RFC3339, raw)
	if err == nil {
		return rfc3339.UTC(), nil
	}

	dateOnly, err := time.Parse("2006-01-02", raw)
	if err == nil {
		return dateOnly.UTC(), nil
	}

	return time.Time{}, fmt.Errorf("--since must be RFC3339 or YYYY-MM-DD, got %q", value)
}

// runHistoryMode prints recorded scans as TSV, or writes them to
// --history-tsv (JSON when the path ends in .json).
func runHistoryMode(ctx context.Context, opts cliOptions, svc ports.ReferenceService, w io.Writer) error {
	since, err := parseSince(opts.since)
	if err != nil {
		return err
	}
	scans, err := svc.History(ctx, since)
	if err != nil {
		return err
	}
	if len(scans) == 0 {
		fmt.Fprintln(w, "History: no scans matched the requested time window.")
		return nil
	}

	first, last := scans[0], scans[len(scans)-1]
	fmt.Fprintf(w, "History: %d scans from %s to %s\n",
		len(scans),
		first.Timestamp.Format("2006-01-02 15:04:05"),
		last.Timestamp.Format("2006-01-02 15:04:05"),
	)
	fmt.Fprintf(w, "Latest: references=%d unresolved=%d (%+d) stale_roots=%d\n",
		last.ReferenceCount,
		last.UnresolvedCount,
		last.UnresolvedCount-first.UnresolvedCount,
		last.StaleRootCount,
	)

	var data []byte
	if strings.EqualFold(filepath.Ext(opts.historyTSV), ".json") {
		data, err = report.RenderHistoryJSON(scans)
	} else {
		data, err = report.RenderHistoryTSV(scans)
	}
	if err != nil {
		return fmt.Errorf("render history: %w", err)
	}

	if opts.historyTSV == "" {
		_, err = w.Write(data)
		return err
	}
	if err := util.WriteFileWithDirs(opts.historyTSV, data, 0o644); err != nil {
		return fmt.Errorf("write history %q: %w", opts.historyTSV, err)
	}
	return nil
}

func configureLogging(uiMode, verbose bool) func() {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}

	output := os.Stderr
	closeFn := func() {}
	if uiMode {
		logPath := resolveLogPath()
		if err := os.MkdirAll(filepath.Dir(logPath), 0o700); err != nil {
			fmt.Fprintf(os.Stderr, "warning: failed to create log dir for %s: %v\n", logPath, err)
		} else if fi, err := os.Lstat(logPath); err == nil && (fi.Mode()&os.ModeSymlink) != 0 {
			fmt.Fprintf(os.Stderr, "warning: refusing to write logs to symlink path %s\n", logPath)
		} else {
			f, err := os.OpenFile(logPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
			if err == nil {
				output = f
				closeFn = func() { _ = f.Close() }
			} else {
				fmt.Fprintf(os.Stderr, "warning: failed to open log file %s: %v\n", logPath, err)
			}
		}
	}

	logger := slog.New(slog.NewTextHandler(output, &slog.HandlerOptions{Level: logLevel}))
	slog.SetDefault(logger)
	return closeFn
}

func resolveLogPath() string {
	if xdg := os.Getenv("XDG_STATE_HOME"); xdg != "" {
		return filepath.Join(xdg, "pathref", "pathref.log")
	}

	home, err := os.UserHomeDir()
	if err == nil && home != "" {
		return filepath.Join(home, ".local", "state", "pathref", "pathref.log")
	}

	return "pathref.log"
}
