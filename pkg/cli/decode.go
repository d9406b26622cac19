package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/uidgen/uidgen/pkg/api/types"
	"github.com/uidgen/uidgen/pkg/cli/internal/output"
	"github.com/uidgen/uidgen/pkg/config"
	"github.com/uidgen/uidgen/pkg/issuer"
)

func newDecodeCommand(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "decode <id>...",
		Short: "Decode identifiers",
		Long: `Split identifiers into creation time, generator id and sequence.

Decoding uses the configured layout (--layout). The creation time is the
same under every layout shipped with uidgen.`,
		Example: `  uidgen decode 2147614721
  uidgen decode --layout wide-sequence --json 2147614721 2147614722`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := root.loadConfig(cmd)
			if err != nil {
				return err
			}
			layout, err := config.ParseLayout(cfg.Generator.Layout)
			if err != nil {
				return err
			}

			decoded := make([]types.DecodeResponse, 0, len(args))
			for _, arg := range args {
				id, err := issuer.ParseID(arg)
				if err != nil {
					return err
				}
				decoded = append(decoded, types.NewDecodeResponse(id, layout))
			}

			out := cmd.OutOrStdout()
			return root.printResult(out, decoded, func() {
				tw := output.Table(out)
				fmt.Fprintln(tw, "ID\tCREATED\tGENERATOR\tSEQUENCE")
				for _, d := range decoded {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%d\n", d.ID, d.CreatedAt.Format(time.RFC3339), d.GeneratorID, d.Sequence)
				}
				_ = tw.Flush()
			})
		},
	}
}
