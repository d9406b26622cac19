package cli

import (
	"io"

	"github.com/uidgen/uidgen/pkg/cli/internal/output"
)

// printResult writes data as JSON when --json is set and otherwise calls
// textFn. In JSON mode nothing else is written to stdout.
func (o *rootOptions) printResult(w io.Writer, data any, textFn func()) error {
	if o.jsonOutput {
		return output.JSON(w, data)
	}
	textFn()
	return nil
}
