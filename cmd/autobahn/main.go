// Autobahn — conformance suite launcher.
//
// Wraps the dockerized Autobahn TestSuite: `autobahn client` fuzzes a
// WebSocket server (start one with `wsecho -listen :9001` first),
// `autobahn server` starts the fuzzingserver for `wsecho -driver` to run
// against. Any other argument prints the available modes.
//
// The suite configs live in config/fuzzing<mode>.json and the reports land
// in reports/, both bind-mounted into the container.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"

	"github.com/ewgo/wsgate/internal/autobahn"
	"github.com/ewgo/wsgate/internal/util"
)

func main() {
	// Root context — cancelled on Ctrl+C, which also stops the container.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	arg := ""
	if len(os.Args) > 1 {
		arg = os.Args[1]
	}

	suite, ok := autobahn.ParseSuite(arg)
	if !ok {
		fmt.Println(autobahn.Usage)
		return
	}

	runner, err := autobahn.NewRunner()
	if err != nil {
		util.LogError("%v", err)
		os.Exit(1)
	}

	util.LogInfo("running %s suite (%s, %s)", suite, suite.TestMode(), suite.ConfigPath())

	if err := runner.Run(ctx, suite); err != nil {
		// The tool's own exit code and output pass through untouched.
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		util.LogError("failed to run suite container: %v", err)
		os.Exit(1)
	}
}
