package cli

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/uidgen/uidgen/pkg/cli/internal/output"
	"github.com/uidgen/uidgen/pkg/config"
)

func newConfigCommand(root *rootOptions) *cobra.Command {
	var showSources bool

	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Print the configuration uidgen would run with, after applying the config
file, UIDGEN_* environment variables and flags. Validation problems are
reported on stderr.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := cfg.Validate(); err != nil {
				output.Warn(cmd.ErrOrStderr(), "configuration is not valid:\n%v", err)
			}

			if showSources {
				return root.printResult(out, cfg.Sources, func() {
					keys := make([]string, 0, len(cfg.Sources))
					for k := range cfg.Sources {
						keys = append(keys, k)
					}
					sort.Strings(keys)

					tw := output.Table(out)
					fmt.Fprintln(tw, "KEY\tSOURCE")
					for _, k := range keys {
						fmt.Fprintf(tw, "%s\t%s\n", k, cfg.Sources[k])
					}
					_ = tw.Flush()
				})
			}

			if root.jsonOutput {
				return output.JSON(out, cfg)
			}
			data, err := config.ToYAML(cfg)
			if err != nil {
				return err
			}
			_, err = out.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&showSources, "sources", false, "Show where each value came from")

	return cmd
}
