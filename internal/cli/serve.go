package cli

import (
	"context"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-sensors/sensironsen5x"
	"github.com/go-sensors/sensironsen5x/internal/exporter"
	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var listenAddress string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve measurements as prometheus metrics",
	Long: `Measure continuously and expose the latest values over HTTP in the
prometheus text format. Recoverable sensor errors are counted and the sensor
is reconnected after the configured timeout.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVarP(&listenAddress, "listen", "l", "", "Address to serve metrics on (defaults to the configured address)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	if listenAddress != "" {
		cfg.Metrics.ListenAddress = listenAddress
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	e, err := exporter.New(registry, logger)
	if err != nil {
		return err
	}

	listener, err := net.Listen("tcp", cfg.Metrics.ListenAddress)
	if err != nil {
		return errors.Wrapf(err, "failed to listen on %s", cfg.Metrics.ListenAddress)
	}

	mux := http.NewServeMux()
	mux.Handle(cfg.Metrics.Path, exporter.Handler(registry))
	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	sensor := newSensor(sensironsen5x.WithRecoverableErrorHandler(e.HandleError))
	return serve(ctx, sensor, e, server, listener)
}

func serve(ctx context.Context, sensor *sensironsen5x.Sensor, e *exporter.Exporter, server *http.Server, listener net.Listener) error {
	group, ctx := errgroup.WithContext(ctx)
	group.Go(func() error {
		return sensor.Run(ctx)
	})
	group.Go(func() error {
		return e.Consume(ctx, sensor)
	})
	group.Go(func() error {
		logger.WithField("address", listener.Addr().String()).Info("serving metrics")
		err := server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return errors.Wrap(err, "failed to serve metrics")
	})
	group.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return group.Wait()
}
