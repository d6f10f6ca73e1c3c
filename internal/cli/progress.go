package cli

import (
	"os"
	"time"

	"github.com/briandowns/spinner"
)

// newSpinner returns a stopped spinner writing to stderr.
// It stays silent when stderr is not a terminal.
func newSpinner(suffix string) *spinner.Spinner {
	opt := spinner.WithWriter(errorOutput)
	if f, ok := errorOutput.(*os.File); ok {
		opt = spinner.WithWriterFile(f)
	}
	sp := spinner.New(spinner.CharSets[14], 100*time.Millisecond, opt)
	sp.Suffix = suffix
	return sp
}
