// ABOUTME: CLI command that runs the HTTP API.
// ABOUTME: Wires tokens, Google verification and the biometrics service into the server.
package main

import (
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/harperreed/wellness/internal/api"
	"github.com/harperreed/wellness/internal/auth"
	"github.com/harperreed/wellness/internal/clock"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the wellness HTTP API.

The listen address comes from --addr, then WELLNESS_ADDR, then PORT
(default :3000). JWT_SECRET must be set. Google sign-in is enabled when
GOOGLE_CLIENT_ID is set.

ENDPOINTS:

  GET  /health                  liveness
  GET  /metrics                 prometheus metrics
  POST /users/google|signup|login
  GET  /data?days=N             biometrics from the last N days (1-30)
  POST /data/receive|batch|wide ingest biometric payloads
  ...  /routines, /reports, /emotions

The server shuts down gracefully on SIGINT or SIGTERM.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ttl, err := cfg.GetTokenTTL()
		if err != nil {
			return err
		}
		issuer, err := auth.NewIssuer(cfg.JWTSecret, ttl, clock.Real{})
		if err != nil {
			return err
		}

		var google api.GoogleVerifier
		if cfg.GoogleClientID != "" {
			google = auth.NewGoogleVerifier(cfg.GoogleClientID, auth.GoogleCertsURL,
				&http.Client{Timeout: 10 * time.Second}, clock.Real{})
		} else {
			log.Warn("GOOGLE_CLIENT_ID is not set; Google sign-in is disabled")
		}

		server := api.NewServer(repo, newBiometricsService(), issuer, google, log, api.Options{
			CORSOrigins:       cfg.GetCORSOrigins(),
			AuthRatePerMinute: cfg.GetAuthRate(),
		})

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := cfg.GetAddr()
		if serveAddr != "" {
			addr = serveAddr
		}
		log.WithFields(logrus.Fields{
			"backend":  cfg.GetBackend(),
			"timezone": cfg.Timezone,
		}).Info("starting wellness API")
		return server.ListenAndServe(ctx, addr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
	rootCmd.AddCommand(serveCmd)
}
