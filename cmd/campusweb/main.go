package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"campusweb/internal/auth"
	"campusweb/internal/calendar"
	"campusweb/internal/config"
	"campusweb/internal/content"
	appLog "campusweb/internal/log"
	"campusweb/internal/scheduler"
	"campusweb/internal/web"
)

const version = "0.1.0"

// flagConfig holds the flags shared by every subcommand.
type flagConfig struct {
	configPath string
	listen     string
}

func main() {
	cmd := "serve"
	args := os.Args[1:]
	if len(args) > 0 && len(args[0]) > 0 && args[0][0] != '-' {
		cmd, args = args[0], args[1:]
	}

	var err error
	switch cmd {
	case "serve":
		err = runServe(args)
	case "upcoming":
		err = runUpcoming(args)
	case "render-pdf":
		err = runRenderPDF(args)
	case "hash-password":
		err = runHashPassword(args)
	case "version":
		fmt.Println("campusweb", version)
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", cmd)
		usage()
		os.Exit(2)
	}
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(2)
		}
		appLog.Error("campusweb: "+cmd+" failed", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprint(os.Stderr, `usage: campusweb <command> [flags]

commands:
  serve          run the web server (default)
  upcoming       print upcoming calendar events
  render-pdf     render the print calendar page to PDF
  hash-password  print an Argon2id hash for admin.password_hash
  version        print the version
`)
}

func addCommonFlags(fs *flag.FlagSet, cfg *flagConfig) {
	fs.StringVar(&cfg.configPath, "config", "config.yaml", "Path to config file (created with defaults if missing)")
	fs.StringVar(&cfg.listen, "listen", "", "HTTP listen address (overrides config if set)")
}

// loadConfig loads the config file and initializes logging from it.
func loadConfig(flags flagConfig) (*config.Config, error) {
	conf, err := config.Load(flags.configPath)
	if err != nil {
		if conf == nil {
			return nil, fmt.Errorf("load config %s: %w", flags.configPath, err)
		}
		// First run where the default file could not be written.
		appLog.Warn("could not write default config; continuing with defaults",
			"config_path", flags.configPath, "error", err.Error())
	}
	conf.ApplyEnv()

	if flags.listen != "" {
		conf.Listen = flags.listen
	}
	if err := appLog.Init(conf.Log.Level, conf.Log.Format); err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return conf, nil
}

// newCalendar builds the loader and the service and performs the first
// load. A failed first load is logged and leaves the calendar unavailable.
func newCalendar(ctx context.Context, conf *config.Config) (*calendar.Service, *calendar.Loader, error) {
	loc, err := conf.Location()
	if err != nil {
		appLog.Warn("unknown timezone; using local time", "timezone", conf.Timezone, "error", err.Error())
	}

	loader, err := calendar.NewLoader(conf.Calendar, loc)
	if err != nil {
		return nil, nil, err
	}
	svc := calendar.NewService(calendar.Options{
		Location:       loc,
		StaleAfterDays: conf.Calendar.StaleAfterDays,
	})
	_ = svc.Reload(ctx, loader)
	return svc, loader, nil
}

func runServe(args []string) error {
	var flags flagConfig
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addCommonFlags(fs, &flags)
	if err := fs.Parse(args); err != nil {
		return err
	}

	conf, err := loadConfig(flags)
	if err != nil {
		return err
	}

	defer appLog.Sync()

	appLog.Info("campusweb starting", "version", version)
	appLog.Info("effective config",
		"listen", conf.Listen,
		"timezone", conf.Timezone,
		"calendar_variant", conf.Calendar.Variant,
		"calendar_file", conf.Calendar.File,
		"ics_count", len(conf.Calendar.ICS),
		"refresh", conf.Calendar.Refresh,
		"session_store", conf.SessionStore.Backend,
		"admin", conf.AdminEnabled(),
	)

	// Root context with cancellation on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		appLog.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	cal, loader, err := newCalendar(ctx, conf)
	if err != nil {
		return err
	}

	catalog, err := content.Load(conf.ContentFile)
	if err != nil {
		return fmt.Errorf("load content: %w", err)
	}

	sched := scheduler.New(cal.Location())

	var store auth.Store
	switch conf.SessionStore.Backend {
	case config.StoreRedis:
		rs, err := auth.NewRedisStore(conf.SessionStore)
		if err != nil {
			return err
		}
		defer rs.Close()
		store = rs
	default:
		ms := auth.NewMemoryStore()
		if err := sched.Add("session-sweep", "@every 10m", scheduler.SweepJob(ms)); err != nil {
			return err
		}
		store = ms
	}

	if conf.Calendar.Refresh != "" {
		if err := sched.Add("calendar-reload", conf.Calendar.Refresh, scheduler.ReloadJob(cal, loader)); err != nil {
			return fmt.Errorf("calendar.refresh: %w", err)
		}
	}
	if err := sched.Add("calendar-staleness", "@daily", scheduler.StalenessJob(cal)); err != nil {
		return err
	}

	srv, err := web.NewServer(web.Options{
		Config:   conf,
		Calendar: cal,
		Loader:   loader,
		Catalog:  catalog,
		Sessions: auth.NewManager(conf.Auth, store),
		Identity: auth.NewGoogleClient(conf.Auth),
	})
	if err != nil {
		return err
	}
	httpSrv := srv.HTTPServer()

	sched.Start()

	errCh := make(chan error, 1)
	go func() {
		appLog.Info("http server listening", "addr", conf.Listen)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			sched.Stop(context.Background())
			return fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	// Stop scheduled jobs before draining HTTP connections.
	sched.Stop(shutdownCtx)
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		appLog.Error("http server shutdown failed", err)
	}

	appLog.Info("campusweb exiting")
	return nil
}
