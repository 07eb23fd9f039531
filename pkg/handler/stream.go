package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"hashpay/pkg/metrics"
)

// streamEvents relays every value from updates as a server-sent event until
// the channel closes. Channels from the services close once the request
// context is done.
func streamEvents[T any](c *gin.Context, event string, updates <-chan T) {
	subscribers := metrics.LiveSubscribers.WithLabelValues(event)
	subscribers.Inc()
	defer subscribers.Dec()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		v, ok := <-updates
		if !ok {
			return false
		}
		c.SSEvent(event, v)
		return true
	})
}
