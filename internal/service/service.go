package service

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/rs/zerolog/log"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/realtime"
	"sketch_club/internal/repository"
	"sketch_club/internal/utils"
	"sketch_club/internal/words"
	"sketch_club/pkg/config"
)

// Broadcaster 是服務層使用的即時頻道操作
type Broadcaster interface {
	BroadcastSend(channel string, ev protocol.Event) error
	Whisper(channel, userID string, ev protocol.Event) error
	NotifyRowChange(change protocol.RowChange) error
}

type Options struct {
	Game      config.GameConfig
	Scheduler Scheduler
	Now       func() time.Time
	CodeGen   func() string
}

type Services struct {
	User    *UserService
	Room    *RoomService
	Round   *RoundService
	Drawing *DrawingService
	Chat    *ChatService
}

// deps 是各服務共用的依賴
type deps struct {
	repos   *repository.Repositories
	hub     Broadcaster
	catalog *words.Catalog
	rules   config.GameConfig
	sched   Scheduler
	now     func() time.Time
}

func NewServices(repos *repository.Repositories, hub Broadcaster, catalog *words.Catalog, tokens *utils.TokenManager, opts Options) *Services {
	if opts.Scheduler == nil {
		opts.Scheduler = realScheduler{}
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.CodeGen == nil {
		opts.CodeGen = RandomRoomCode
	}
	if opts.Game.TotalRounds <= 0 {
		opts.Game.TotalRounds = 5
	}
	if opts.Game.MinPlayers <= 0 {
		opts.Game.MinPlayers = 2
	}
	if opts.Game.CodeAttempts <= 0 {
		opts.Game.CodeAttempts = 5
	}
	if opts.Game.RoundDuration <= 0 {
		opts.Game.RoundDuration = 60 * time.Second
	}
	if opts.Game.AdvanceDelay <= 0 {
		opts.Game.AdvanceDelay = 5 * time.Second
	}

	d := &deps{
		repos:   repos,
		hub:     hub,
		catalog: catalog,
		rules:   opts.Game,
		sched:   opts.Scheduler,
		now:     opts.Now,
	}

	drawing := newDrawingService(d)
	rounds := newRoundService(d, drawing)
	return &Services{
		User:    NewUserService(repos.User, tokens),
		Room:    newRoomService(d, rounds, drawing, opts.CodeGen),
		Round:   rounds,
		Drawing: drawing,
		Chat:    &ChatService{deps: d, rounds: rounds},
	}
}

// RandomRoomCode 產生 [100000, 999999] 之間的六位數代碼
func RandomRoomCode() string {
	return fmt.Sprintf("%06d", 100000+rand.IntN(900000))
}

func (d *deps) broadcast(roomID string, ev protocol.Event) {
	if err := d.hub.BroadcastSend(realtime.RoomChannel(roomID), ev); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Str("event", string(ev.Name())).Msg("broadcast failed")
	}
}

func (d *deps) whisper(roomID, userID string, ev protocol.Event) {
	if err := d.hub.Whisper(realtime.RoomChannel(roomID), userID, ev); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Str("event", string(ev.Name())).Msg("whisper failed")
	}
}

// notify 發出資料列變更通知；rooms 以 id 比對，其餘表以 room_id 比對
func (d *deps) notify(table string, op protocol.RowOp, roomID string, record interface{}) {
	data, err := json.Marshal(record)
	if err != nil {
		log.Error().Err(err).Str("table", table).Msg("encode row change")
		return
	}
	match := map[string]string{"room_id": roomID}
	if table == protocol.TableRooms {
		match = map[string]string{"id": roomID}
	}
	change := protocol.RowChange{Table: table, Op: op, Match: match, Record: data}
	if err := d.hub.NotifyRowChange(change); err != nil {
		log.Warn().Err(err).Str("room_id", roomID).Str("table", table).Msg("row change notify failed")
	}
}

func (d *deps) notifyPlayers(ctx context.Context, roomID string, ids ...string) {
	for _, id := range ids {
		p, err := d.repos.Player.FindByID(ctx, id)
		if err != nil {
			continue
		}
		d.notify(protocol.TablePlayers, protocol.RowUpdate, roomID, PlayerView(*p))
	}
}

func RoomView(m models.Room) protocol.RoomView {
	return protocol.RoomView{
		ID:     m.ID,
		Code:   m.Code,
		HostID: m.HostID,
		GameState: protocol.GameStateView{
			Status:       string(m.GameState.Status),
			CurrentRound: m.GameState.CurrentRound,
			TotalRounds:  m.GameState.TotalRounds,
			Category:     m.GameState.Category,
			ArtistID:     m.GameState.ArtistID,
		},
		LastActivity: m.LastActivity,
	}
}

func PlayerView(m models.Player) protocol.PlayerView {
	return protocol.PlayerView{
		ID:       m.ID,
		RoomID:   m.RoomID,
		UserID:   m.UserID,
		Username: m.Username,
		Score:    m.Score,
		IsHost:   m.IsHost,
		JoinedAt: m.JoinedAt,
	}
}

func RoundView(m models.Round) protocol.RoundView {
	return protocol.RoundView{
		ID:               m.ID,
		RoomID:           m.RoomID,
		Number:           m.Number,
		ArtistID:         m.ArtistID,
		StartedAt:        m.StartedAt,
		EndedAt:          m.EndedAt,
		CorrectGuesserID: m.CorrectGuesserID,
	}
}
