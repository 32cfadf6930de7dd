package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"time"

	"github.com/spf13/cobra"

	"finflow/internal/cache"
	apphttp "finflow/internal/http"
	applog "finflow/internal/log"
)

const (
	shutdownTimeout    = 30 * time.Second
	cacheSweepInterval = time.Minute
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default :PORT)")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the JSON API",
	Long: `Serve the budget over HTTP. A weekly reset that comes due is left
pending until a client answers it through /api/cycle/confirm or
/api/cycle/decline.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	level, _ := cmd.Flags().GetString("log-level")
	if level == "" {
		level = os.Getenv("FINFLOW_LOG_LEVEL")
	}
	serverLogger := SetupLogger(level, os.Stdout).WithComponent(applog.ComponentApp)
	serverLogger.Info("Starting finflow server")

	s, err := openSession(cmd.Context(), serverLogger, sessionOptions{advice: true})
	if err != nil {
		return err
	}
	defer s.Close()

	addr, _ := cmd.Flags().GetString("addr")
	if addr == "" {
		addr = ":" + s.cfg.Port
	}

	caches := cache.NewManager()
	caches.Register(s.app.AdviceCache())

	srv := apphttp.NewServer(addr, s.app, serverLogger)
	ctx, done := GracefulShutdown(serverLogger, shutdownTimeout, func(ctx context.Context) {
		if err := srv.Shutdown(ctx); err != nil {
			serverLogger.Error("HTTP server shutdown failed", applog.FieldError, err)
		}
		caches.Stop()
	})
	caches.Start(ctx, cacheSweepInterval)

	serverLogger.Info("HTTP server listening", "addr", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		serverLogger.Error("HTTP server failed", applog.FieldError, err)
		caches.Stop()
		return err
	}
	<-done
	return nil
}
