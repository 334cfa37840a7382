package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AndrewLester/timesync/internal/config"
	"github.com/AndrewLester/timesync/internal/metrics"
	"github.com/AndrewLester/timesync/internal/rpc"
	"github.com/AndrewLester/timesync/internal/system/timeauthority"
	"github.com/AndrewLester/timesync/pkg/timesync"
	"github.com/jonboulle/clockwork"
	"github.com/lmittmann/tint"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sevlyar/go-daemon"
	flag "github.com/spf13/pflag"
)

var (
	// Set by LDFLAGS
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	showVersionFlag := flag.Bool("version", false, "show version and exit")
	verboseFlag := flag.Bool("verbose", false, "verbose mode - show debug logs")
	configFlag := flag.String("config", config.DefaultPath, "path to the INI configuration file")
	socketFlag := flag.String("socket", rpc.DefaultSocket, "unix socket for the status RPC server")
	metricsAddrFlag := flag.String("metrics-addr", "", "address to listen on for prometheus metrics (disabled when empty)")
	noDaemonFlag := flag.Bool("no-daemon", false, "don't run timesyncd as a daemon")
	dryRunFlag := flag.Bool("dry-run", false, "measure the clock offset without adjusting the clock")
	queryFlag := flag.StringP("query", "q", "", "query a time server, print the offset and exit")
	statusFlag := flag.Bool("status", false, "show the status of the running daemon")
	flag.Parse()

	if *showVersionFlag {
		fmt.Printf("version: %s, commit: %s, date: %s\n", version, commit, date)
		return nil
	}
	if *queryFlag != "" {
		return handleQueryCommand(*queryFlag, config.DefaultQueryTimeout)
	}
	if *statusFlag {
		return handleStatusUI(*socketFlag)
	}

	if !*noDaemonFlag {
		d, err := daemonCtx.Reborn()
		if err != nil {
			if errors.Is(err, daemon.ErrWouldBlock) {
				if err := killDaemon(); err != nil {
					return err
				}
				fmt.Printf("Successfully stopped %s daemon.\n", daemonName)
				return nil
			}
			return fmt.Errorf("unable to run: %w", err)
		}
		if d != nil {
			fmt.Printf("Daemon process (%s, %d) started successfully.\n", daemonName, d.Pid)
			return nil
		}
		defer func() { _ = daemonCtx.Release() }()
	}

	log := newLogger(*verboseFlag, *noDaemonFlag)
	if !*noDaemonFlag {
		log.Info("daemon started", "args", os.Args)
	}

	cfg, err := config.Load(*configFlag)
	if err != nil {
		log.Error("failed to load config, using defaults", "path", *configFlag, "error", err)
		cfg = config.Default()
	}
	cfg.ApplyEnv(os.LookupEnv)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Set up prometheus metrics server if enabled.
	if *metricsAddrFlag != "" {
		metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
		go func() {
			listener, err := net.Listen("tcp", *metricsAddrFlag)
			if err != nil {
				log.Error("Failed to start prometheus metrics server listener", "error", err)
				return
			}
			log.Info("Prometheus metrics server listening", "address", listener.Addr().String())
			http.Handle("/metrics", promhttp.Handler())
			if err := http.Serve(listener, nil); err != nil {
				log.Error("Failed to start prometheus metrics server", "error", err)
			}
		}()
	}

	clock := clockwork.NewRealClock()

	var adjuster timesync.ClockAdjuster = timesync.NewSystemClock(clock)
	var authority timesync.TimeAuthority = timeauthority.New()
	if *dryRunFlag {
		log.Info("dry run, the system clock and time service are left untouched")
		adjuster = timesync.DryRunClock{}
		authority = nil
	}

	client, err := timesync.NewNTPClient(log, &timesync.NTPClientConfig{
		Timeout:  cfg.QueryTimeout,
		Adjuster: adjuster,
	})
	if err != nil {
		log.Error("failed to create ntp client", "error", err)
		return err
	}

	svc, err := timesync.NewService(log, &timesync.ServiceConfig{
		Clock:         clock,
		Config:        cfg,
		Client:        client,
		TimeAuthority: authority,
	})
	if err != nil {
		log.Error("failed to create service", "error", err)
		return err
	}

	go func() {
		if err := rpc.NewStatusServer(log, *socketFlag, svc).Listen(ctx); err != nil {
			log.Warn("status rpc server unavailable", "error", err)
		}
	}()

	log.Info("starting",
		"version", version,
		"upstream", cfg.Server,
		"interval", cfg.PoolInterval,
		"listen", cfg.ListenAddr(),
		"responder", cfg.EnableTimeSyncService,
	)
	svc.Start(ctx)
	if err := svc.Run(ctx); err != nil {
		log.Error("service stopped", "error", err)
		return err
	}
	log.Info("context done, stopped")
	return nil
}

func newLogger(verbose bool, color bool) *slog.Logger {
	logLevel := slog.LevelInfo
	if verbose {
		logLevel = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stdout, &tint.Options{
		Level:   logLevel,
		NoColor: !color,
		ReplaceAttr: func(groups []string, a slog.Attr) slog.Attr {
			if a.Key == slog.TimeKey {
				t := a.Value.Time().UTC()
				a.Value = slog.StringValue(formatRFC3339Millis(t))
			}
			if s, ok := a.Value.Any().(string); ok && s == "" {
				return slog.Attr{}
			}
			return a
		},
	}))
}

func formatRFC3339Millis(t time.Time) string {
	t = t.UTC()
	base := t.Format("2006-01-02T15:04:05")
	ms := t.Nanosecond() / 1_000_000
	return fmt.Sprintf("%s.%03dZ", base, ms)
}
