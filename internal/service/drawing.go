package service

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/realtime"
	"sketch_club/internal/repository"
)

// DrawingService 轉送畫家的筆畫，不做持久化
type DrawingService struct {
	*deps

	mu      sync.Mutex
	artists map[string]string // room id -> artist user id
	seq     map[string]uint64 // room id -> last stamped seq
}

func newDrawingService(d *deps) *DrawingService {
	return &DrawingService{
		deps:    d,
		artists: make(map[string]string),
		seq:     make(map[string]uint64),
	}
}

func (s *DrawingService) setArtist(roomID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.artists[roomID] = userID
}

// dropArtist 在畫家離開房間時清掉快取，之後的筆畫會被拒絕
func (s *DrawingService) dropArtist(roomID, userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.artists[roomID] == userID {
		delete(s.artists, roomID)
	}
}

func (s *DrawingService) forget(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.artists, roomID)
	delete(s.seq, roomID)
}

// artistOf 回傳目前仍在房間內的畫家 user id；快取沒有時從儲存層讀取（例如伺服器重啟後）
func (s *DrawingService) artistOf(ctx context.Context, roomID string) (string, error) {
	s.mu.Lock()
	userID, ok := s.artists[roomID]
	s.mu.Unlock()
	if ok {
		return userID, nil
	}

	room, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return "", storeErr("find room", err)
	}
	if room.GameState.Status != models.RoomStatusPlaying || room.GameState.ArtistID == nil {
		return "", nil
	}
	// 已離開的畫家不算數
	artist, err := s.repos.Player.FindByID(ctx, *room.GameState.ArtistID)
	if errors.Is(err, repository.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("find artist: %w", err)
	}

	s.mu.Lock()
	if _, ok := s.artists[roomID]; !ok {
		s.artists[roomID] = artist.UserID
	}
	userID = s.artists[roomID]
	s.mu.Unlock()
	return userID, nil
}

func (s *DrawingService) requireArtist(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	artist, err := s.artistOf(ctx, roomID)
	if err != nil {
		return err
	}
	if artist == "" || artist != userID {
		return ErrForbidden
	}
	return nil
}

// RelayStroke 只接受畫家送出的筆畫，蓋上房間內遞增的序號後廣播到繪圖頻道
func (s *DrawingService) RelayStroke(ctx context.Context, roomID, userID string, stroke protocol.Stroke) error {
	if !stroke.Valid() {
		return ErrInvalidStroke
	}
	if err := s.requireArtist(ctx, roomID, userID); err != nil {
		return err
	}

	// 在鎖內送出，確保序號順序與送出順序一致
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq[roomID]++
	stroke.Seq = s.seq[roomID]
	if err := s.hub.BroadcastSend(realtime.DrawingChannel(roomID), stroke); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("relay stroke")
	}
	return nil
}

// Clear 讓所有觀看者清空畫布
func (s *DrawingService) Clear(ctx context.Context, roomID, userID string) error {
	if err := s.requireArtist(ctx, roomID, userID); err != nil {
		return err
	}
	s.broadcast(roomID, protocol.ClearCanvas{})
	return nil
}
