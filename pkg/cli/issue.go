package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/uidgen/uidgen/pkg/api"
	"github.com/uidgen/uidgen/pkg/issuer"
	"github.com/uidgen/uidgen/pkg/logging"
)

func newIssueCommand(root *rootOptions) *cobra.Command {
	var (
		count  int
		server string
	)

	cmd := &cobra.Command{
		Use:   "issue",
		Short: "Issue identifiers",
		Long: `Issue identifiers and print one per line.

Without --server the ids are minted in-process for the configured generator
id. Never run this against a generator id that a server is also using.`,
		Example: `  uidgen issue -g 3 --count 5
  uidgen issue --server http://localhost:4300 --count 100 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var (
				ids []issuer.ID
				err error
			)
			if server != "" {
				ids, err = api.NewClient(server).Issue(cmd.Context(), count)
			} else {
				ids, err = issueLocal(cmd, root, count)
			}
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			return root.printResult(out, map[string]any{"ids": ids, "count": len(ids)}, func() {
				for _, id := range ids {
					fmt.Fprintln(out, id)
				}
			})
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", 1, "Number of ids to issue")
	cmd.Flags().StringVar(&server, "server", "", "Base URL of a running uidgen server")

	return cmd
}

func issueLocal(cmd *cobra.Command, root *rootOptions, count int) ([]issuer.ID, error) {
	cfg, err := root.loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	log, closeLog, err := newLogger(cfg.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	defer func() { _ = closeLog() }()

	iss, err := newIssuer(cfg, issuer.WithLogger(logging.Component(log, "issuer")))
	if err != nil {
		return nil, err
	}
	return iss.Issue(cmd.Context(), count)
}
