// Package stream implements the SSE progress streamer: it polls a job's
// progress-bus record and emits events over a long-lived response.
package stream

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"ruleoracle/internal/queue"
)

const (
	pollInterval  = 500 * time.Millisecond
	keepAliveEvery = 15 * time.Second
	maxDuration   = 300 * time.Second
)

// JobEvents streams progress events for jobID until it reaches a
// terminal state, the client disconnects, or maxDuration elapses.
func JobEvents(c *gin.Context, bus *queue.ProgressBus, jobID string) {
	ctx := c.Request.Context()
	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	fmt.Fprint(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	var seq int64
	var lastState queue.State
	lastPct := -1
	lastKeepAlive := time.Now()

	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()
	deadline := time.After(maxDuration)

	for {
		select {
		case <-ctx.Done():
			return
		case <-deadline:
			status, _ := bus.Get(ctx, jobID)
			writeEvent(c, &seq, "error", status)
			return
		case <-ticker.C:
			status, err := bus.Get(context.Background(), jobID)
			if err != nil {
				continue
			}
			if status.State != lastState || status.Pct != lastPct {
				writeEvent(c, &seq, eventNameFor(status.State), status)
				lastState, lastPct = status.State, status.Pct
				lastKeepAlive = time.Now()
				if status.State.IsTerminal() {
					return
				}
				continue
			}
			if time.Since(lastKeepAlive) >= keepAliveEvery {
				fmt.Fprint(c.Writer, ": keep-alive\n\n")
				c.Writer.Flush()
				lastKeepAlive = time.Now()
			}
		}
	}
}

func eventNameFor(s queue.State) string {
	switch s {
	case queue.StateReady:
		return "complete"
	case queue.StateFailed, queue.StateError:
		return "error"
	default:
		return "progress"
	}
}

func writeEvent(c *gin.Context, seq *int64, event string, status queue.Status) {
	*seq++
	data, err := marshalStatus(status)
	if err != nil {
		return
	}
	fmt.Fprintf(c.Writer, "id: %d\n", *seq)
	fmt.Fprintf(c.Writer, "event: %s\n", event)
	fmt.Fprintf(c.Writer, "data: %s\n\n", data)
	c.Writer.Flush()
}
