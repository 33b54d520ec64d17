package handlers

import (
	"net/http"
	"strings"
	"time"

	"litebridge/trace"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = (wsPongWait * 9) / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(_ *http.Request) bool {
		// Origin checking is handled by CORS middleware
		return true
	},
}

var traceHub *trace.Hub

// SetTraceHub sets the hub streamed by TraceStream
func SetTraceHub(hub *trace.Hub) {
	traceHub = hub
}

// TraceStream upgrades to a websocket and streams trace events as JSON.
// ?kind=sql,error restricts the stream to the listed event kinds.
func TraceStream(c *gin.Context) {
	if traceHub == nil {
		fail(c, http.StatusServiceUnavailable, CodeResourceBusy, "Trace stream disabled", nil)
		return
	}
	kinds := parseKinds(c.Query("kind"))

	// Subscribe first so no event published after the handshake is missed.
	events, cancel := traceHub.Subscribe()
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		cancel()
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	done := make(chan struct{})

	// Read side only handles control frames and notices the close.
	go func() {
		defer close(done)
		conn.SetReadLimit(512)
		//nolint:errcheck // best-effort deadline
		conn.SetReadDeadline(time.Now().Add(wsPongWait))
		conn.SetPongHandler(func(string) error {
			return conn.SetReadDeadline(time.Now().Add(wsPongWait))
		})
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
					log.Debug().Err(err).Msg("trace stream read error")
				}
				return
			}
		}
	}()

	ticker := time.NewTicker(wsPingPeriod)
	defer func() {
		ticker.Stop()
		cancel()
		conn.Close()
	}()

	for {
		select {
		case ev, open := <-events:
			if !open {
				return
			}
			if len(kinds) > 0 && !kinds[ev.Kind] {
				continue
			}
			//nolint:errcheck // best-effort deadline
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-ticker.C:
			//nolint:errcheck // best-effort deadline
			conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}

func parseKinds(raw string) map[string]bool {
	if raw == "" {
		return nil
	}
	kinds := make(map[string]bool)
	for _, k := range strings.Split(raw, ",") {
		if k = strings.TrimSpace(k); k != "" {
			kinds[k] = true
		}
	}
	return kinds
}
