package util

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"
)

// Stats is the process-wide connection/traffic counter for the echo
// endpoints.
var Stats = &stats{}

type stats struct {
	TotalConns  atomic.Int64 // connections accepted since process start
	ClosedConns atomic.Int64 // connections finished since process start
	Messages    atomic.Int64 // messages echoed back
	BytesEchoed atomic.Int64 // payload bytes echoed back
}

func (s *stats) AddConn()    { s.TotalConns.Add(1) }
func (s *stats) RemoveConn() { s.ClosedConns.Add(1) }

func (s *stats) AddEchoed(n int) {
	s.Messages.Add(1)
	s.BytesEchoed.Add(int64(n))
}

// StartStatsReporter launches a goroutine that logs echo statistics every
// 10 seconds while there is activity. It stops when ctx is cancelled.
func StartStatsReporter(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()

		var prevBytes, prevMsgs, prevTotal, prevClosed int64
		for {
			select {
			case <-ticker.C:
				total := Stats.TotalConns.Load()
				closed := Stats.ClosedConns.Load()
				msgs := Stats.Messages.Load()
				bytes := Stats.BytesEchoed.Load()

				if total != prevTotal || closed != prevClosed || msgs != prevMsgs {
					LogInfo("echoed %s in %d messages | conn: %2d↑ %2d↓",
						formatBytes(float64(bytes-prevBytes)),
						msgs-prevMsgs,
						total-prevTotal,
						closed-prevClosed,
					)
				}

				prevBytes = bytes
				prevMsgs = msgs
				prevTotal = total
				prevClosed = closed

			case <-ctx.Done():
				return
			}
		}
	}()
}

// byteUnits defines the units for formatting byte counts in a human-readable way.
var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB", "PiB"}

// formatBytes formats a byte count into a fixed-width human-readable string,
// for example: "99.0   B", " 1.5 KiB", "98.9 GiB".
func formatBytes(b float64) string {
	unitIdx := 0
	for b > 99 && unitIdx < 5 {
		b /= 1024
		unitIdx++
	}
	return fmt.Sprintf("%4.1f %3s", b, byteUnits[unitIdx])
}
