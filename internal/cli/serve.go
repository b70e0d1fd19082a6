package cli

import (
	"github.com/spf13/cobra"

	"github.com/legacylink/legacylink/internal/api"
	"github.com/legacylink/legacylink/pkg/cache"
	"github.com/legacylink/legacylink/pkg/errors"
)

func (c *CLI) serveCommand() *cobra.Command {
	var (
		addr   string
		noAuth bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Long: `Serve the REST API under /api/v1 with /health, /version and Prometheus
/metrics. Requests need a bearer token from POST /api/v1/auth/login unless
auth is disabled, in which case every request acts as a local user on the
shared trees.`,
		Example: `  legacylink serve --addr :9000
  LEGACYLINK_AUTH_SECRET=change-me legacylink serve`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			cfg := c.cfg
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if noAuth {
				cfg.Auth.Disabled = true
			}
			if !cfg.Auth.Disabled && cfg.Auth.Secret == "" {
				return errors.New(errors.ErrCodeInvalidInput,
					"auth.secret is not set; set LEGACYLINK_AUTH_SECRET or pass --no-auth")
			}

			r, err := c.pipelineRunner(ctx)
			if err != nil {
				return err
			}
			r.Keyer = cache.NewScopedKeyer(r.Keyer, "api")

			metrics := api.NewMetrics()
			metrics.Install()
			srv, err := api.New(api.Options{
				Runner:  r,
				Config:  cfg,
				Logger:  c.Logger,
				Metrics: metrics,
			})
			if err != nil {
				return err
			}
			c.Logger.Info("starting API", "store", cfg.Store.Backend, "cache", cfg.Cache.Backend)
			return srv.ListenAndServe(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config, :8080)")
	cmd.Flags().BoolVar(&noAuth, "no-auth", false, "serve every request as the local user")
	return cmd
}
