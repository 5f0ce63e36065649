package echo

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/ewgo/wsgate"
	"github.com/ewgo/wsgate/internal/util"
)

// RunDriver executes the fuzzingserver case sequence against addr: read the
// case count, run every case as an echo client, then ask the tool to write
// its reports. Individual case failures are logged, not fatal — the verdict
// lives in the generated report.
func RunDriver(ctx context.Context, addr, agent string) error {
	total, err := caseCount(ctx, addr)
	if err != nil {
		return err
	}
	util.LogInfo("running %d cases as agent %q", total, agent)

	for i := 1; i <= total; i++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		runCase(ctx, addr, agent, i)
	}

	return updateReports(ctx, addr, agent)
}

func caseCount(ctx context.Context, addr string) (int, error) {
	conn, err := wsgate.Dial(ctx, fmt.Sprintf("ws://%s/getCaseCount", addr))
	if err != nil {
		return 0, fmt.Errorf("failed to reach fuzzingserver at %s: %w", addr, err)
	}
	defer conn.Close()

	msg, err := conn.Receive(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to read case count: %w", err)
	}
	n, err := strconv.Atoi(msg.Text())
	if err != nil {
		return 0, fmt.Errorf("unexpected case count %q: %w", msg.Text(), err)
	}
	return n, nil
}

// runCase echoes one fuzzed conversation. The tool decides the verdict from
// what comes back, so errors here just end the case early.
func runCase(ctx context.Context, addr, agent string, n int) {
	target := fmt.Sprintf("ws://%s/runCase?case=%d&agent=%s", addr, n, url.QueryEscape(agent))
	conn, err := wsgate.Dial(ctx, target)
	if err != nil {
		util.LogWarning("case %d: dial failed: %v", n, err)
		return
	}
	defer conn.Close()

	util.LogDebug("case %d running", n)
	Echo(ctx, conn)
}

func updateReports(ctx context.Context, addr, agent string) error {
	target := fmt.Sprintf("ws://%s/updateReports?agent=%s", addr, url.QueryEscape(agent))
	conn, err := wsgate.Dial(ctx, target)
	if err != nil {
		return fmt.Errorf("failed to request report update: %w", err)
	}
	defer conn.Close()

	// The tool closes the connection once the reports are written.
	for {
		if _, err := conn.Receive(ctx); err != nil {
			return nil
		}
	}
}
