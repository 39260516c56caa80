package commands

import (
	"log/slog"
	"os"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/01fortes/goboot-web/examples/greeter"
	"github.com/01fortes/goboot-web/pkg/boot"
	"github.com/01fortes/goboot-web/pkg/web"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Deploy the configured applications and serve them",
	Long: `Deploy every application of the host configuration and serve HTTP until
interrupted. Prometheus metrics are exposed on /metrics.

Examples:
  webhost serve --config examples/greeter/host.yaml`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	config, err := web.LoadHostConfig(fs, cfgFile)
	if err != nil {
		return err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: config.Level()}))
	slog.SetDefault(logger)

	loader := web.NewLoader(nil)
	if err := greeter.Register(loader); err != nil {
		return err
	}

	app, err := boot.New(boot.Options{
		Config:    config,
		Fs:        fs,
		Loader:    loader,
		Configure: greeter.Configure,
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	return app.Run()
}
