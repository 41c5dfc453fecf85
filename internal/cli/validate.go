package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cilantro-web/cilantro/pkg/config"
)

func newValidateCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check a config file and exit non-zero on errors",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: valid (%d views, %d static mounts)\n",
				cfgPath, len(cfg.Views), len(cfg.Static))
			return nil
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "app.toml", "config file path")
	return cmd
}
