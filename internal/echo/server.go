// Package echo provides the two conformance endpoints: an echo server for
// the fuzzingclient suite to fuzz, and a case driver that runs this library
// as a client against a fuzzingserver.
package echo

import (
	"context"
	"fmt"
	"net"

	"github.com/ewgo/wsgate"
	"github.com/ewgo/wsgate/internal/util"
)

// Serve accepts WebSocket connections on addr and echoes every message back
// until the peer closes. It blocks until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	var lc net.ListenConfig
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", addr, err)
	}
	return ServeListener(ctx, ln)
}

// ServeListener is Serve over an existing listener. The listener is closed
// when ctx is cancelled.
func ServeListener(ctx context.Context, ln net.Listener) error {
	defer ln.Close()
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	util.StartStatsReporter(ctx)
	util.LogInfo("echo server listening on %s", ln.Addr())

	for {
		nc, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("accept failed: %w", err)
		}
		go handle(ctx, nc)
	}
}

func handle(ctx context.Context, nc net.Conn) {
	conn, err := wsgate.Accept(nc)
	if err != nil {
		util.LogDebug("handshake rejected from %s: %v", nc.RemoteAddr(), err)
		return
	}
	defer conn.Close()

	util.Stats.AddConn()
	defer util.Stats.RemoveConn()

	Echo(ctx, conn)
}

// Echo pumps every received message straight back to the peer until the
// connection ends.
func Echo(ctx context.Context, conn *wsgate.Conn) {
	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			return
		}
		if err := conn.Send(ctx, msg); err != nil {
			return
		}
		util.Stats.AddEchoed(len(msg.Payload))
	}
}
