package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootOptions holds the persistent flags shared by every subcommand.
type rootOptions struct {
	configPath  string
	logLevel    string
	logFormat   string
	jsonOutput  bool
	generatorID int64
	layout      string
	policy      string
}

// NewRootCommand builds the uidgen command tree.
func NewRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "uidgen",
		Short: "uidgen issues compact, unique 64-bit identifiers",
		Long: `uidgen issues 64-bit identifiers that are unique across every instance
running with a distinct generator id, with no coordination between them.

Each id packs the issue second, the generator id and a per-second sequence.
Ids from one generator ascend in issue order and carry their creation time.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.configPath, "config", "c", "", "Path to a YAML or JSON config file (env: UIDGEN_CONFIG)")
	pf.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	pf.StringVar(&opts.logFormat, "log-format", "", "Log format: text, json")
	pf.BoolVar(&opts.jsonOutput, "json", false, "Output command results in JSON format")
	pf.Int64VarP(&opts.generatorID, "generator-id", "g", 0, "Generator id assigned to this instance (env: UIDGEN_GENERATOR_ID)")
	pf.StringVar(&opts.layout, "layout", "", "Bit layout: default, wide-sequence or g<bits>s<bits>")
	pf.StringVar(&opts.policy, "policy", "", "Shortfall policy: strict or backpressure")

	cmd.AddCommand(
		newServeCommand(opts),
		newIssueCommand(opts),
		newDecodeCommand(opts),
		newConfigCommand(opts),
		newVersionCommand(opts),
	)

	return cmd
}

// Execute runs the root command and exits non-zero on error.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
