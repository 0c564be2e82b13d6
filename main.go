package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/leepro/portfolio/internal/logging"
	"github.com/leepro/portfolio/internal/profileimage"
	"github.com/leepro/portfolio/internal/store"
)

// CLI flags
var (
	portFlag string
	dbFlag   string
)

var rootCmd = &cobra.Command{
	Use:   "portfolio",
	Short: "Personal portfolio web server",
	Long: `Portfolio serves the personal portfolio page. The profile picture is an
uploaded image when the visitor picked one, otherwise public/profile.jpg when
it exists, otherwise a placeholder glyph.

Examples:
  portfolio
  portfolio --port 9090
  portfolio --db /var/lib/portfolio/portfolio.db`,
	SilenceUsage: true,
	RunE:         runMain,
}

func init() {
	rootCmd.Flags().StringVar(&portFlag, "port", "", "Port to listen on (default $PORT or 8080)")
	rootCmd.Flags().StringVar(&dbFlag, "db", "", "SQLite database path (default $DB_PATH or portfolio.db)")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runMain(cmd *cobra.Command, args []string) error {
	logging.Init()

	cfg := loadConfig()
	if portFlag != "" {
		cfg.Port = portFlag
	}
	if dbFlag != "" {
		cfg.DBPath = dbFlag
	}

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DBPath).Msg("Failed to open database")
		return err
	}
	defer st.Close()

	prober := profileimage.NewHTTPProber(cfg.probeBaseURL(), cfg.ProbeTimeout)
	srv := newServer(cfg, st, prober)
	defer srv.close()

	router, err := srv.routes()
	if err != nil {
		log.Error().Err(err).Msg("Failed to load templates")
		return err
	}

	go srv.sessions.runJanitor(time.Minute)
	// Clean up old visitor data for privacy compliance (run in background)
	go srv.cleanupOldVisitorData(srv.ctx)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info().
			Str("addr", httpServer.Addr).
			Str("asset", cfg.AssetPath).
			Str("probe", cfg.probeBaseURL()).
			Msg("Portfolio server listening")
		errCh <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Server stopped")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}
