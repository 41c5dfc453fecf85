package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/cilantro-web/cilantro"
	"github.com/cilantro-web/cilantro/pkg/config"
)

func newRoutesCmd() *cobra.Command {
	var cfgPath string
	cmd := &cobra.Command{
		Use:   "routes",
		Short: "Print the route table for a config file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cfgPath)
			if err != nil {
				return err
			}
			app, err := cilantro.FromConfig(cfg)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATTERN\tNAME")
			for _, r := range app.Routes() {
				fmt.Fprintf(w, "%s\t%s\t%s\n", r.Method, r.Pattern, r.Name)
			}
			return w.Flush()
		},
	}
	cmd.Flags().StringVarP(&cfgPath, "config", "c", "app.toml", "config file path")
	return cmd
}
