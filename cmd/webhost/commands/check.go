package commands

import (
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/01fortes/goboot-web/pkg/web"
	"github.com/01fortes/goboot-web/pkg/webbeans"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Validate the host configuration",
	Long: `Validate the host configuration and report, for every application,
whether its document base carries a bean marker.`,
	RunE: runCheck,
}

func runCheck(cmd *cobra.Command, args []string) error {
	fs := afero.NewOsFs()
	config, err := web.LoadHostConfig(fs, cfgFile)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s: %d application(s), listening on %s\n", cfgFile, len(config.Applications), config.Addr)
	for _, app := range config.Applications {
		resources := web.NewResources("check", afero.NewBasePathFs(fs, app.DocBase))
		marker, err := webbeans.FindMarker(resources, webbeans.DefaultMarkerPaths())
		if err != nil {
			return err
		}
		status := "plain"
		if marker != "" {
			status = "injection enabled (" + marker + ")"
		}
		fmt.Fprintf(out, "  %-20s %-20s %s\n", app.Name, app.Path, status)
	}
	return nil
}
