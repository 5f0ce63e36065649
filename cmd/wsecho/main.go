// Wsecho — conformance endpoints for the Autobahn suites.
//
// `wsecho -listen :9001` serves an echo endpoint for `autobahn client` to
// fuzz. `wsecho -driver localhost:9001` runs the client cases against a
// fuzzingserver started with `autobahn server`.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/ewgo/wsgate/internal/echo"
	"github.com/ewgo/wsgate/internal/util"
)

func main() {
	// Root context — cancelled on Ctrl+C.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	listen := flag.String("listen", "", "Address to serve the echo endpoint on (e.g. :9001)")
	driver := flag.String("driver", "", "Fuzzingserver address to run cases against (e.g. localhost:9001)")
	agent := flag.String("agent", "wsgate", "Agent name reported to the fuzzingserver")
	debugMode := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debugMode {
		util.EnableDebug()
	}

	switch {
	case *listen != "":
		if err := echo.Serve(ctx, *listen); err != nil {
			util.LogError("echo server failed: %v", err)
			os.Exit(1)
		}

	case *driver != "":
		if err := echo.RunDriver(ctx, *driver, *agent); err != nil {
			util.LogError("driver failed: %v", err)
			os.Exit(1)
		}
		util.LogInfo("driver finished — see reports/ for the outcome")

	default:
		util.LogError("one of -listen or -driver is required")
		os.Exit(1)
	}
}
