package router

import (
	"net/http"

	"EdgeTpuDetServer/logger"
	"EdgeTpuDetServer/monitor"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// websocket reads image names as text messages and answers each with the
// detection result, or {"error": ...}.
func (h *handler) websocket(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade already replied
		return
	}
	defer conn.Close()
	conn.SetReadLimit(4096)

	ctx := c.Request.Context()
	for {
		mt, msg, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.Log().Info("websocket closed", zap.Error(err))
			}
			return
		}
		if mt != websocket.TextMessage {
			_ = conn.WriteJSON(gin.H{"error": "unsupported message type"})
			continue
		}

		res, err := h.pipeline.Run(ctx, string(msg))
		monitor.ObserveRequest(monitor.TransportWebSocket, err)
		if err != nil {
			err = conn.WriteJSON(gin.H{"error": err.Error(), "status": statusFor(err)})
		} else {
			err = conn.WriteJSON(res)
		}
		if err != nil {
			return
		}
	}
}
