package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rs/zerolog/log"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/repository"
	"sketch_club/internal/words"
)

// RoomService 負責建立、加入房間，以及 lobby → playing → game_over → lobby 的狀態轉換
type RoomService struct {
	*deps
	rounds  *RoundService
	drawing *DrawingService
	codeGen func() string
}

func newRoomService(d *deps, rounds *RoundService, drawing *DrawingService, codeGen func() string) *RoomService {
	return &RoomService{deps: d, rounds: rounds, drawing: drawing, codeGen: codeGen}
}

// RoomSnapshot 是進入房間頁面時需要的完整狀態
type RoomSnapshot struct {
	Room       protocol.RoomView     `json:"room"`
	Players    []protocol.PlayerView `json:"players"`
	Me         *protocol.PlayerView  `json:"me,omitempty"`
	Round      *protocol.RoundView   `json:"round,omitempty"`
	SecretWord string                `json:"secret_word,omitempty"`
}

func validateUsername(username string) (string, error) {
	name := strings.TrimSpace(username)
	if n := utf8.RuneCountInString(name); n < 1 || n > 20 {
		return "", ErrInvalidUsername
	}
	return name, nil
}

func validCode(code string) bool {
	if len(code) != 6 {
		return false
	}
	for _, ch := range code {
		if ch < '0' || ch > '9' {
			return false
		}
	}
	return true
}

// CreateRoom 建立大廳狀態的房間與房主；代碼碰撞時換一組重試
func (s *RoomService) CreateRoom(ctx context.Context, userID, username string) (*models.Room, *models.Player, error) {
	if userID == "" {
		return nil, nil, ErrUnauthorized
	}
	name, err := validateUsername(username)
	if err != nil {
		return nil, nil, err
	}

	for attempt := 0; attempt < s.rules.CodeAttempts; attempt++ {
		code := s.codeGen()
		if _, err := s.repos.Room.FindByCode(ctx, code); err == nil {
			log.Debug().Str("code", code).Msg("room code collision, retrying")
			continue
		} else if !errors.Is(err, repository.ErrNotFound) {
			return nil, nil, fmt.Errorf("check room code: %w", err)
		}

		now := s.now()
		room := &models.Room{
			Code:   code,
			HostID: userID,
			GameState: models.GameState{
				Status:      models.RoomStatusLobby,
				TotalRounds: s.rules.TotalRounds,
				Category:    words.CategoryAll,
			},
			CreatedAt:    now,
			LastActivity: now,
		}
		var host *models.Player

		err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
			if err := tx.Room.Create(ctx, room); err != nil {
				return err
			}
			host = &models.Player{RoomID: room.ID, UserID: userID, Username: name, IsHost: true, JoinedAt: now}
			return tx.Player.Create(ctx, host)
		})
		if errors.Is(err, repository.ErrDuplicate) {
			log.Debug().Str("code", code).Msg("room code taken concurrently, retrying")
			continue
		}
		if err != nil {
			return nil, nil, fmt.Errorf("create room: %w", err)
		}

		log.Info().Str("room_id", room.ID).Str("code", code).Str("user_id", userID).Msg("room created")
		s.notify(protocol.TableRooms, protocol.RowInsert, room.ID, RoomView(*room))
		s.notify(protocol.TablePlayers, protocol.RowInsert, room.ID, PlayerView(*host))
		return room, host, nil
	}

	return nil, nil, ErrCodeExhausted
}

// JoinRoom 加入房間；同一身分重複加入時回傳既有的玩家紀錄
func (s *RoomService) JoinRoom(ctx context.Context, code, userID, username string) (*models.Room, *models.Player, error) {
	if userID == "" {
		return nil, nil, ErrUnauthorized
	}
	// 格式不對的代碼不可能對應到房間
	if !validCode(code) {
		return nil, nil, ErrNotFound
	}

	room, err := s.repos.Room.FindByCode(ctx, code)
	if err != nil {
		return nil, nil, storeErr("find room", err)
	}

	if existing, err := s.repos.Player.FindByRoomAndUser(ctx, room.ID, userID); err == nil {
		return room, existing, nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, nil, fmt.Errorf("find player: %w", err)
	}

	name, err := validateUsername(username)
	if err != nil {
		return nil, nil, err
	}

	player := &models.Player{RoomID: room.ID, UserID: userID, Username: name, JoinedAt: s.now()}
	if err := s.repos.Player.Create(ctx, player); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			existing, findErr := s.repos.Player.FindByRoomAndUser(ctx, room.ID, userID)
			if findErr != nil {
				return nil, nil, storeErr("find player", findErr)
			}
			return room, existing, nil
		}
		return nil, nil, fmt.Errorf("create player: %w", err)
	}

	if err := s.repos.Room.Touch(ctx, room.ID, s.now()); err != nil {
		log.Warn().Err(err).Str("room_id", room.ID).Msg("touch room")
	}

	log.Info().Str("room_id", room.ID).Str("player_id", player.ID).Msg("player joined")
	s.notify(protocol.TablePlayers, protocol.RowInsert, room.ID, PlayerView(*player))
	return room, player, nil
}

func (s *RoomService) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	if !validCode(code) {
		return nil, ErrNotFound
	}
	room, err := s.repos.Room.FindByCode(ctx, code)
	if err != nil {
		return nil, storeErr("find room", err)
	}
	return room, nil
}

// Member 回傳該身分在房間內的玩家；不在房間時回傳 ErrForbidden
func (s *RoomService) Member(ctx context.Context, roomID, userID string) (*models.Player, error) {
	if userID == "" {
		return nil, ErrUnauthorized
	}
	player, err := s.repos.Player.FindByRoomAndUser(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrForbidden
	}
	if err != nil {
		return nil, fmt.Errorf("find player: %w", err)
	}
	return player, nil
}

// Snapshot 只有該回合的畫家會拿到謎底
func (s *RoomService) Snapshot(ctx context.Context, code, userID string) (*RoomSnapshot, error) {
	room, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	players, err := s.repos.Player.ListByRoom(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	snap := &RoomSnapshot{Room: RoomView(*room), Players: make([]protocol.PlayerView, 0, len(players))}
	var me *models.Player
	for i := range players {
		snap.Players = append(snap.Players, PlayerView(players[i]))
		if players[i].UserID == userID {
			me = &players[i]
			view := PlayerView(*me)
			snap.Me = &view
		}
	}

	round, err := s.repos.Round.FindOpenByRoom(ctx, room.ID)
	if err == nil {
		view := RoundView(*round)
		snap.Round = &view
		if me != nil && me.ID == round.ArtistID {
			snap.SecretWord = round.SecretWord
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("find open round: %w", err)
	}
	return snap, nil
}

// StartGame 由房主在大廳、且人數足夠時開始遊戲；第一位加入的玩家擔任第一位畫家
func (s *RoomService) StartGame(ctx context.Context, roomID, userID, category string) (*models.Round, error) {
	room, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return nil, storeErr("find room", err)
	}
	caller, err := s.Member(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caller.IsHost || room.GameState.Status != models.RoomStatusLobby {
		return nil, ErrForbidden
	}

	players, err := s.repos.Player.ListByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}
	if len(players) < s.rules.MinPlayers {
		return nil, ErrInsufficientPlayers
	}

	category = s.catalog.Category(category)
	artist := players[0]
	state := models.GameState{
		Status:       models.RoomStatusPlaying,
		CurrentRound: 1,
		TotalRounds:  s.rules.TotalRounds,
		Category:     category,
		ArtistID:     &artist.ID,
	}
	round := &models.Round{
		RoomID:     roomID,
		Number:     1,
		ArtistID:   artist.ID,
		SecretWord: s.catalog.Pick(category),
		StartedAt:  s.now(),
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Room.UpdateGameState(ctx, roomID, models.GameStateGuard{Status: models.RoomStatusLobby}, state, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return ErrForbidden
		}
		return tx.Round.Create(ctx, round)
	})
	if err != nil {
		if errors.Is(err, ErrForbidden) {
			return nil, err
		}
		return nil, fmt.Errorf("start game: %w", err)
	}

	room.GameState = state
	log.Info().Str("room_id", roomID).Str("category", category).Int("players", len(players)).Msg("game started")
	s.rounds.roundStarted(room, round, artist)
	return round, nil
}

// PlayAgain 讓 game_over 的房間回到大廳：分數歸零、清除回合紀錄，保留代碼與類別
func (s *RoomService) PlayAgain(ctx context.Context, roomID, userID string) (*models.Room, error) {
	room, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return nil, storeErr("find room", err)
	}
	caller, err := s.Member(ctx, roomID, userID)
	if err != nil {
		return nil, err
	}
	if !caller.IsHost {
		return nil, ErrForbidden
	}
	switch room.GameState.Status {
	case models.RoomStatusLobby:
		return room, nil
	case models.RoomStatusGameOver:
	default:
		return nil, ErrForbidden
	}

	state := models.GameState{
		Status:      models.RoomStatusLobby,
		TotalRounds: s.rules.TotalRounds,
		Category:    room.GameState.Category,
	}
	var reset bool
	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Room.UpdateGameState(ctx, roomID, models.GameStateGuard{Status: models.RoomStatusGameOver}, state, s.now())
		if err != nil || !ok {
			return err
		}
		reset = true
		if err := tx.Player.ResetScores(ctx, roomID); err != nil {
			return err
		}
		return tx.Round.DeleteByRoom(ctx, roomID)
	})
	if err != nil {
		return nil, fmt.Errorf("play again: %w", err)
	}

	updated, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return nil, storeErr("find room", err)
	}
	if !reset {
		// 另一個請求已經先重置
		if updated.GameState.Status == models.RoomStatusLobby {
			return updated, nil
		}
		return nil, ErrForbidden
	}

	s.rounds.stopRoom(roomID)
	s.drawing.forget(roomID)

	log.Info().Str("room_id", roomID).Msg("room reset to lobby")
	s.notify(protocol.TableRooms, protocol.RowUpdate, roomID, RoomView(*updated))
	if players, err := s.repos.Player.ListByRoom(ctx, roomID); err == nil {
		for _, p := range players {
			s.notify(protocol.TablePlayers, protocol.RowUpdate, roomID, PlayerView(p))
		}
	}
	return updated, nil
}

// LeaveRoom 移除玩家紀錄；不轉移房主也不重新指派畫家
func (s *RoomService) LeaveRoom(ctx context.Context, roomID, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	player, err := s.repos.Player.FindByRoomAndUser(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find player: %w", err)
	}

	if err := s.repos.Player.Delete(ctx, player.ID); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}
	s.drawing.dropArtist(roomID, userID)
	if err := s.repos.Room.Touch(ctx, roomID, s.now()); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Msg("touch room")
	}

	log.Info().Str("room_id", roomID).Str("player_id", player.ID).Msg("player left")
	s.notify(protocol.TablePlayers, protocol.RowDelete, roomID, PlayerView(*player))
	return nil
}
