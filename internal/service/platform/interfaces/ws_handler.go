package interfaces

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"ecommerce/internal/pkg/logger"
	"ecommerce/internal/service/platform/application"
	"ecommerce/internal/service/platform/domain"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
	sendBuffer = 256
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool { // 监听端是内部工具，允许所有跨域
		return true
	},
}

// ListenerHandler 处理 websocket 监听连接
type ListenerHandler struct {
	service *application.ListenerService
}

func NewListenerHandler(service *application.ListenerService) *ListenerHandler {
	return &ListenerHandler{service: service}
}

// RegisterRoutes 在 ServeMux 上注册所有路由
func (h *ListenerHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /platform/listener", h.serveWs)
}

type frame struct {
	Action      string `json:"action"`
	ServiceName string `json:"serviceName"`
}

type reply struct {
	Message string `json:"message"`
}

// client 是一个 websocket 连接，所有写入都经过 writePump
type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte

	once   sync.Once
	closed chan struct{}
}

func (c *client) Send(payload []byte) error {
	select {
	case <-c.closed:
		return domain.ErrConnectionGone
	default:
	}
	select {
	case c.send <- payload:
		return nil
	case <-c.closed:
		return domain.ErrConnectionGone
	default:
		return domain.ErrConnectionGone
	}
}

func (c *client) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

func (c *client) reply(msg string) {
	raw, _ := json.Marshal(reply{Message: msg})
	_ = c.Send(raw)
}

func (h *ListenerHandler) serveWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Ctx(r.Context()).Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	c := &client{id: uuid.NewString(), conn: conn, send: make(chan []byte, sendBuffer), closed: make(chan struct{})}
	ctx := context.WithoutCancel(r.Context())
	if err := h.service.Connect(ctx, c.id, c); err != nil {
		logger.Ctx(ctx).Error().Err(err).Msg("failed to store listener connection")
		_ = conn.Close()
		return
	}

	go c.writePump()
	h.readPump(ctx, c)
}

// readPump 处理客户端发来的 register 帧，连接断开时删除登记
func (h *ListenerHandler) readPump(ctx context.Context, c *client) {
	defer func() {
		_ = c.Close()
		if err := h.service.Disconnect(ctx, c.id); err != nil {
			logger.Ctx(ctx).Warn().Err(err).Str("connectionId", c.id).Msg("failed to delete listener connection")
		}
	}()

	c.conn.SetReadLimit(4096)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Ctx(ctx).Warn().Err(err).Str("connectionId", c.id).Msg("listener connection closed")
			}
			return
		}

		var f frame
		if err := json.Unmarshal(raw, &f); err != nil {
			logger.Ctx(ctx).Error().Err(err).Str("connectionId", c.id).Msg("Failed to parse request body")
			c.reply("Failed to parse request body")
			continue
		}
		if f.Action != "register" {
			c.reply("Unknown action")
			continue
		}
		if f.ServiceName == "" {
			logger.Ctx(ctx).Warn().Str("connectionId", c.id).Msg("Missing 'serviceName' in request body")
			c.reply("Missing 'serviceName' in request body")
			continue
		}
		if err := h.service.Register(ctx, c.id, f.ServiceName); err != nil {
			if errors.Is(err, domain.ErrConnectionNotFound) {
				c.reply("Connection expired")
				return
			}
			logger.Ctx(ctx).Error().Err(err).Str("connectionId", c.id).Msg("failed to register listener")
			c.reply("Internal error")
			continue
		}
		c.reply("Connected")
	}
}

// writePump 把 send 中的消息写入 websocket，并定时发送 ping
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case payload := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				_ = c.Close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				_ = c.Close()
				return
			}
		case <-c.closed:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			return
		}
	}
}
