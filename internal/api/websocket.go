// internal/api/websocket.go
package api

import (
	"net/http"
	"time"

	"github.com/Corphon/RevidClone/internal/services"
	"github.com/Corphon/RevidClone/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 54 * time.Second
	maxMessageSize = 4096

	wsConnectionsGauge = "ws_connections"
)

// WebSocket 升级器配置
var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// WebSocketHandler 将项目生命周期事件推送给 WebSocket 客户端
type WebSocketHandler struct {
	projects *services.ProjectService
	events   *services.EventService
	logger   *utils.Logger
}

// NewWebSocketHandler 创建 WebSocket 处理器
func NewWebSocketHandler(projects *services.ProjectService, events *services.EventService) *WebSocketHandler {
	return &WebSocketHandler{
		projects: projects,
		events:   events,
		logger:   utils.GetLogger(),
	}
}

// ProjectWebSocket 订阅项目事件；id 为 "*" 时订阅全部项目
func (wh *WebSocketHandler) ProjectWebSocket(c *gin.Context) {
	projectID := c.Param("id")
	if projectID != services.AllProjects {
		if _, err := wh.projects.LoadProject(projectID); err != nil {
			NewResponseHelper(nil).FromError(c, err)
			return
		}
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		wh.logger.Warn("websocket upgrade failed", map[string]interface{}{"project_id": projectID, "error": err.Error()})
		return
	}
	defer conn.Close()

	collector := wh.projects.Metrics.Collector()
	collector.IncGauge(wsConnectionsGauge)
	defer collector.DecGauge(wsConnectionsGauge)

	subscriber := wh.events.Subscribe(projectID)
	defer wh.events.Unsubscribe(projectID, subscriber)

	closed := make(chan struct{})
	go wh.readPump(conn, closed)

	wh.logger.Info("websocket client connected", map[string]interface{}{"project_id": projectID})

	if err := wh.write(conn, gin.H{
		"type":       "connected",
		"project_id": projectID,
		"timestamp":  time.Now().Format(time.RFC3339),
	}); err != nil {
		return
	}

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-closed:
			wh.logger.Info("websocket client disconnected", map[string]interface{}{"project_id": projectID})
			return

		case event, ok := <-subscriber:
			if !ok {
				return
			}
			if err := wh.write(conn, event); err != nil {
				wh.logger.Warn("websocket write failed", map[string]interface{}{"project_id": projectID, "error": err.Error()})
				return
			}

		case <-ticker.C:
			conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (wh *WebSocketHandler) write(conn *websocket.Conn, message interface{}) error {
	conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(message)
}

// readPump drains client frames so pongs and close frames are processed.
// Closes done when the connection fails.
func (wh *WebSocketHandler) readPump(conn *websocket.Conn, done chan<- struct{}) {
	defer close(done)

	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wh.logger.Debug("websocket read error", map[string]interface{}{"error": err.Error()})
			}
			return
		}
	}
}
