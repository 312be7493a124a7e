package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"sketch_club/internal/middleware"
	"sketch_club/internal/realtime"
	"sketch_club/internal/service"
)

// WebSocketHandler 處理 WebSocket 連接
type WebSocketHandler struct {
	hub      *realtime.Hub
	services *service.Services
	opts     realtime.Options
	upgrader websocket.Upgrader
}

// NewWebSocketHandler 創建一個新的 WebSocketHandler 實例；allowedOrigins 為空或含 "*" 時不檢查 origin
func NewWebSocketHandler(hub *realtime.Hub, services *service.Services, opts realtime.Options, allowedOrigins []string) *WebSocketHandler {
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		allowed[o] = true
	}
	return &WebSocketHandler{
		hub:      hub,
		services: services,
		opts:     opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				return origin == "" || len(allowed) == 0 || allowed["*"] || allowed[origin]
			},
		},
	}
}

// HandleWebSocket 驗證玩家身分後升級連線，並阻塞到連線結束
func (h *WebSocketHandler) HandleWebSocket(c *gin.Context) {
	ctx := c.Request.Context()
	room, err := h.services.Room.FindByCode(ctx, c.Param("code"))
	if err != nil {
		respondError(c, err)
		return
	}

	userID := middleware.UserID(c)
	player, err := h.services.Room.Member(ctx, room.ID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	// 升級 HTTP 連接為 WebSocket 連接；失敗時升級器已經回應
	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Debug().Err(err).Str("room_id", room.ID).Msg("websocket upgrade failed")
		return
	}

	identity := realtime.Identity{UserID: userID, PlayerID: player.ID, RoomID: room.ID}
	h.hub.Serve(ctx, conn, identity, h.services, h.opts)
}
