// Command laminark-hook is the process a host tool invokes on every
// PostToolUse, SessionStart, SessionEnd, and Stop event. It is
// intentionally tiny and short-lived: read one JSON event from stdin,
// run it through the capture pipeline, and exit 0 no matter what
// happens. A hook that fails loudly or hangs is worse than a hook that
// silently drops one observation.
package main

import (
	"os"

	"github.com/laminark/laminark/internal/capture"
	"github.com/laminark/laminark/internal/logging"
)

func main() {
	log := logging.NewQuiet("laminark-hook")

	raw, err := capture.ReadAll(os.Stdin)
	if err != nil {
		log.Warn().Err(err).Msg("failed to read stdin, exiting")
		os.Exit(0)
	}

	cwd, err := os.Getwd()
	if err != nil {
		log.Warn().Err(err).Msg("failed to resolve working directory, exiting")
		os.Exit(0)
	}

	capture.RunHook(raw, cwd, log)
	os.Exit(0)
}
