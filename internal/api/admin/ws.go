package admin

import (
	"net/http"
	"net/url"

	"github.com/ZJUSCT/backoffice/internal/pubsub"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

func (h *Handler) upgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
}

// checkOrigin admits same-host pages and the configured CORS origins.
func (h *Handler) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	if u, err := url.Parse(origin); err == nil && u.Host == r.Host {
		return true
	}
	for _, o := range h.cfg.CORS.AllowedOrigins {
		if o == "*" || o == origin {
			return true
		}
	}
	return false
}

// handleActivityWs streams admin activity, starting with the recent history.
func (h *Handler) handleActivityWs(c *gin.Context) {
	upgrader := h.upgrader()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		zap.S().Errorf("failed to upgrade activity websocket: %v", err)
		return
	}
	defer conn.Close()

	msgChan, unsubscribe := h.broker.Subscribe(pubsub.ActivityTopic)
	defer unsubscribe()

	// Goroutine to pump messages from pubsub to websocket
	clientClosed := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		for {
			select {
			case msg := <-msgChan:
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					zap.S().Warnf("error writing to activity websocket: %v", err)
					return
				}
			case <-clientClosed:
				return
			}
		}
	}()

	// Read loop to detect client close
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				zap.S().Infof("activity websocket unexpected close error: %v", err)
			}
			break
		}
	}
	close(clientClosed)
	<-writerDone // Wait for writer goroutine to finish before returning
	zap.S().Debug("activity websocket connection closed")
}
