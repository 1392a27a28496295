package borgaserver

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/localborga/milling-orders/internal/domains/orders/adapters/notify"
	orderdomain "github.com/localborga/milling-orders/internal/domains/orders/domain"
	orderports "github.com/localborga/milling-orders/internal/domains/orders/ports"
)

// DefaultHeartbeat keeps idle streams alive through proxies.
const DefaultHeartbeat = 15 * time.Second

// StreamGauge tracks open streams; prometheus.Gauge satisfies it.
type StreamGauge interface {
	Inc()
	Dec()
}

// EventsAPI streams status changes as Server-Sent Events.
type EventsAPI struct {
	subscriber orderports.Subscriber
	heartbeat  time.Duration
	streams    StreamGauge
}

func NewEventsAPI(subscriber orderports.Subscriber, heartbeat time.Duration, streams StreamGauge) EventsAPI {
	if heartbeat <= 0 {
		heartbeat = DefaultHeartbeat
	}
	return EventsAPI{subscriber: subscriber, heartbeat: heartbeat, streams: streams}
}

// Get /api/order-status-updates
// Stream status changes, optionally for one orderId. The stream carries no history; clients
// re-read GET /api/orders/:id after connecting or reconnecting.
func (api *EventsAPI) StreamStatusUpdates(c *gin.Context) {
	var filter int64
	if raw := strings.TrimSpace(c.Query("orderId")); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			responder.BadRequest(c, "orderId must be a positive integer")
			return
		}
		filter = id
	}

	ctx := c.Request.Context()
	sub, err := api.subscriber.Subscribe(ctx)
	if err != nil {
		respondError(c, err)
		return
	}
	defer sub.Close()
	if api.streams != nil {
		api.streams.Inc()
		defer api.streams.Dec()
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)
	_, _ = io.WriteString(c.Writer, ": connected\n\n")
	c.Writer.Flush()

	ticker := time.NewTicker(api.heartbeat)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case event, ok := <-sub.Events():
			if !ok {
				// evicted or bus closed; the client reconnects and re-tracks
				return false
			}
			if filter != 0 && event.OrderID != filter {
				return true
			}
			c.SSEvent(orderdomain.StatusChangedEventName, notify.NewMessage(event))
			return true
		case <-ticker.C:
			_, err := io.WriteString(w, ": heartbeat\n\n")
			return err == nil
		}
	})
}
