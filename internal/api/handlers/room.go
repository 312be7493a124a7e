package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"sketch_club/internal/middleware"
	"sketch_club/internal/models"
	"sketch_club/internal/service"
	"sketch_club/internal/words"
)

// RoomHandler 處理與房間相關的請求
type RoomHandler struct {
	roomService *service.RoomService
	catalog     *words.Catalog
}

// NewRoomHandler 創建一個新的 RoomHandler 實例
func NewRoomHandler(roomService *service.RoomService, catalog *words.Catalog) *RoomHandler {
	return &RoomHandler{roomService: roomService, catalog: catalog}
}

type usernameInput struct {
	Username string `json:"username" binding:"required"`
}

type roomResponse struct {
	Room   interface{} `json:"room"`
	Player interface{} `json:"player"`
}

// room 以路徑中的代碼找到房間
func (h *RoomHandler) room(c *gin.Context) (*models.Room, bool) {
	room, err := h.roomService.FindByCode(c.Request.Context(), c.Param("code"))
	if err != nil {
		respondError(c, err)
		return nil, false
	}
	return room, true
}

// CreateRoom 處理創建新房間的請求
func (h *RoomHandler) CreateRoom(c *gin.Context) {
	var input usernameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, player, err := h.roomService.CreateRoom(c.Request.Context(), middleware.UserID(c), input.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, roomResponse{Room: service.RoomView(*room), Player: service.PlayerView(*player)})
}

// JoinRoom 處理加入房間的請求；重複加入回傳原本的玩家
func (h *RoomHandler) JoinRoom(c *gin.Context) {
	var input usernameInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, player, err := h.roomService.JoinRoom(c.Request.Context(), c.Param("code"), middleware.UserID(c), input.Username)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, roomResponse{Room: service.RoomView(*room), Player: service.PlayerView(*player)})
}

// GetRoom 回傳房間快照
func (h *RoomHandler) GetRoom(c *gin.Context) {
	snap, err := h.roomService.Snapshot(c.Request.Context(), c.Param("code"), middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, snap)
}

// StartGame 由房主開始遊戲
func (h *RoomHandler) StartGame(c *gin.Context) {
	var input struct {
		Category string `json:"category"`
	}
	if err := c.ShouldBindJSON(&input); err != nil && c.Request.ContentLength > 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	room, ok := h.room(c)
	if !ok {
		return
	}
	round, err := h.roomService.StartGame(c.Request.Context(), room.ID, middleware.UserID(c), input.Category)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, service.RoundView(*round))
}

// PlayAgain 把結束的遊戲重置回大廳
func (h *RoomHandler) PlayAgain(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	updated, err := h.roomService.PlayAgain(c.Request.Context(), room.ID, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, service.RoomView(*updated))
}

// LeaveRoom 處理離開房間的請求
func (h *RoomHandler) LeaveRoom(c *gin.Context) {
	room, ok := h.room(c)
	if !ok {
		return
	}
	if err := h.roomService.LeaveRoom(c.Request.Context(), room.ID, middleware.UserID(c)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "left room"})
}

// Categories 列出可選的題目類別
func (h *RoomHandler) Categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": h.catalog.Categories()})
}
