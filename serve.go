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

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/nstehr/vimy/vimy-perception/agent"
	"github.com/nstehr/vimy/vimy-perception/config"
	"github.com/nstehr/vimy/vimy-perception/ipc"
	"github.com/nstehr/vimy/vimy-perception/logging"
	"github.com/nstehr/vimy/vimy-perception/metrics"
)

var (
	serveSocket   string
	serveLogLevel string
	serveMetrics  string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the sidecar on a unix domain socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if serveSocket != "" {
			cfg.Socket = serveSocket
		}
		if serveMetrics != "" {
			cfg.Metrics.Addr = serveMetrics
		}
		logger, err := setupLogging(cfg, os.Stdout, serveLogLevel)
		if err != nil {
			return err
		}

		fmt.Println(banner)
		slog.Info("starting vimy")

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return serve(logging.NewContext(ctx, logger), cfg)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveSocket, "socket", "", "Unix socket path (overrides config)")
	serveCmd.Flags().StringVar(&serveLogLevel, "log-level", "", "Log level (overrides config)")
	serveCmd.Flags().StringVar(&serveMetrics, "metrics-addr", "", "Prometheus listen address (overrides config)")
}

func serve(ctx context.Context, cfg config.Config) error {
	socketPath := cfg.Socket

	// Unix sockets leave behind a file on unclean shutdown; remove it so we can rebind.
	if err := os.RemoveAll(socketPath); err != nil {
		return fmt.Errorf("clean up socket %s: %w", socketPath, err)
	}

	listener, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", socketPath, err)
	}
	defer os.Remove(socketPath)

	slog.Info("listening on domain socket", "path", socketPath)

	m := metrics.New()
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		<-ctx.Done()
		slog.Info("shutting down")
		return listener.Close()
	})

	g.Go(func() error {
		for {
			conn, err := listener.Accept()
			if err != nil {
				select {
				case <-ctx.Done():
					return nil
				default:
				}
				if errors.Is(err, net.ErrClosed) {
					return err
				}
				slog.Error("failed to accept connection", "error", err)
				continue
			}
			slog.Info("new connection accepted")
			go handleConn(ctx, conn, cfg, m)
		}
	})

	if cfg.Metrics.Addr != "" {
		srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: metricsMux(m), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			slog.Info("metrics listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				return fmt.Errorf("metrics server: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		})
	}

	return g.Wait()
}

func metricsMux(m *metrics.Collector) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	return mux
}

func handleConn(ctx context.Context, conn net.Conn, cfg config.Config, m *metrics.Collector) {
	c := ipc.NewConnection(conn, nil)
	a := agent.New(ctx, c, cfg, m)
	a.Register()
	defer a.Close()
	c.ReadLoop()
}
