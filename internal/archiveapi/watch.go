package archiveapi

import (
	"net/http"
	"time"

	v1 "github.com/aevon-lab/activity-archive/internal/api/v1"
	"github.com/aevon-lab/activity-archive/internal/archive"
	"github.com/gin-gonic/gin"
)

// watchHandler streams output changes as server-sent events, one event name
// per output. Each stream starts with the current value of every present
// output; afterwards only the latest value is sent, never a backlog.
func (h *Handler) watchHandler(c *gin.Context) {
	full, cancelFull := h.ctrl.FullHistory().Subscribe()
	defer cancelFull()
	subset, cancelSubset := h.ctrl.ThresholdSubset().Subscribe()
	defer cancelSubset()
	recent, cancelRecent := h.ctrl.RecentWithinRange().Subscribe()
	defer cancelRecent()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	heartbeat := time.NewTicker(h.heartbeat)
	defer heartbeat.Stop()

	ctx := c.Request.Context()
	for {
		var (
			output string
			snap   archive.Snapshot[[]v1.ArchiveItem]
			ok     bool
		)

		select {
		case <-ctx.Done():
			return
		case snap, ok = <-full:
			output = archive.OutputFullHistory
		case snap, ok = <-subset:
			output = archive.OutputThresholdSubset
		case snap, ok = <-recent:
			output = archive.OutputRecent
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"generation": h.ctrl.Status().Generation})
			c.Writer.Flush()
			continue
		}
		if !ok {
			return
		}

		c.SSEvent(output, newOutputResponse(output, snap))
		c.Writer.Flush()
	}
}
