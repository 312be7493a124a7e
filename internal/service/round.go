package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/repository"
)

const (
	GuesserPoints = 10
	ArtistPoints  = 5
)

// errStale 表示推進回合時狀態已被其他觸發者改變
var errStale = errors.New("stale game state")

type GuessResult struct {
	Correct bool    `json:"correct"`
	Word    *string `json:"word"`
}

type watchdog struct {
	roomID string
	timer  Timer
}

// RoundService 負責回合計時、猜題判定、計分與推進到下一回合
type RoundService struct {
	*deps
	drawing *DrawingService

	mu        sync.Mutex
	watchdogs map[string]watchdog // round id
	advances  map[string]Timer    // room id
}

func newRoundService(d *deps, drawing *DrawingService) *RoundService {
	return &RoundService{
		deps:      d,
		drawing:   drawing,
		watchdogs: make(map[string]watchdog),
		advances:  make(map[string]Timer),
	}
}

// NormalizeGuess 去除前後空白並做 Unicode case folding
func NormalizeGuess(s string) string {
	return cases.Fold().String(strings.TrimSpace(s))
}

// EvaluateGuess 對已結束的回合一律回傳 false
func EvaluateGuess(round *models.Round, guess string) bool {
	if round == nil || !round.Open() {
		return false
	}
	want := NormalizeGuess(round.SecretWord)
	return want != "" && NormalizeGuess(guess) == want
}

// SubmitGuess 是受信任的判定入口；身分與玩家都由伺服器端確認
func (s *RoundService) SubmitGuess(ctx context.Context, roundID, guess, userID, playerID string) (GuessResult, error) {
	if userID == "" {
		return GuessResult{}, ErrUnauthorized
	}

	round, err := s.repos.Round.FindByID(ctx, roundID)
	if err != nil {
		return GuessResult{}, storeErr("find round", err)
	}

	player, err := s.repos.Player.FindByRoomAndUser(ctx, round.RoomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return GuessResult{}, ErrForbidden
	}
	if err != nil {
		return GuessResult{}, fmt.Errorf("find player: %w", err)
	}
	if playerID != "" && playerID != player.ID {
		return GuessResult{}, ErrForbidden
	}

	if player.ID == round.ArtistID || !EvaluateGuess(round, guess) {
		return GuessResult{}, nil
	}

	err = s.CloseRound(ctx, round, &player.ID)
	if errors.Is(err, ErrAlreadyClosed) {
		log.Debug().Str("round_id", round.ID).Str("player_id", player.ID).Msg("correct guess lost the close race")
		return GuessResult{}, nil
	}
	if err != nil {
		return GuessResult{}, err
	}

	word := round.SecretWord
	return GuessResult{Correct: true, Word: &word}, nil
}

// CloseRound 條件式關閉回合並計分；輸掉競爭時回傳 ErrAlreadyClosed
func (s *RoundService) CloseRound(ctx context.Context, round *models.Round, guesserID *string) error {
	at := s.now()
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Round.Close(ctx, round.ID, guesserID, at)
		if err != nil {
			return err
		}
		if !ok {
			return ErrAlreadyClosed
		}
		if guesserID == nil {
			return nil
		}
		if err := tx.Player.IncrementScore(ctx, *guesserID, GuesserPoints); err != nil {
			return err
		}
		return tx.Player.IncrementScore(ctx, round.ArtistID, ArtistPoints)
	})
	if err != nil {
		if errors.Is(err, ErrAlreadyClosed) {
			return err
		}
		return fmt.Errorf("close round: %w", err)
	}

	s.disarm(round.ID)

	closed := *round
	closed.EndedAt = &at
	closed.CorrectGuesserID = guesserID

	end := protocol.RoundEnd{RoundID: round.ID, Word: round.SecretWord}
	if guesserID != nil {
		guesser, err := s.repos.Player.FindByIDUnscoped(ctx, *guesserID)
		if err == nil {
			name := guesser.Username
			end.GuesserID = &guesser.ID
			end.GuesserName = &name
			s.broadcast(round.RoomID, protocol.CorrectGuess{PlayerID: guesser.ID, Username: guesser.Username})
		}
	}
	s.broadcast(round.RoomID, end)
	s.notify(protocol.TableRounds, protocol.RowUpdate, round.RoomID, RoundView(closed))
	if guesserID != nil {
		s.notifyPlayers(ctx, round.RoomID, *guesserID, round.ArtistID)
	}

	log.Info().
		Str("room_id", round.RoomID).
		Str("round_id", round.ID).
		Bool("guessed", guesserID != nil).
		Msg("round closed")

	s.scheduleAdvance(round.RoomID, round.Number)
	return nil
}

func (s *RoundService) scheduleAdvance(roomID string, fromRound int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if prev, ok := s.advances[roomID]; ok {
		prev.Stop()
	}
	s.advances[roomID] = s.sched.AfterFunc(s.rules.AdvanceDelay, func() {
		s.mu.Lock()
		delete(s.advances, roomID)
		s.mu.Unlock()

		if err := s.AdvanceRound(context.Background(), roomID, fromRound); err != nil {
			log.Error().Err(err).Str("room_id", roomID).Int("round", fromRound).Msg("advance round")
		}
	})
}

// NextArtist 回傳座位順序中 current 之後的玩家（循環）；current 可以是已離開的玩家。
// roster 必須已依座位排序且不為空。
func NextArtist(roster []models.Player, current *models.Player) models.Player {
	if current == nil {
		return roster[0]
	}
	for _, p := range roster {
		if current.SeatsBefore(p) {
			return p
		}
	}
	return roster[0]
}

// AdvanceRound 從第 fromRound 回合推進；狀態已經改變時不做任何事
func (s *RoundService) AdvanceRound(ctx context.Context, roomID string, fromRound int) error {
	room, err := s.repos.Room.FindByID(ctx, roomID)
	if err != nil {
		return storeErr("find room", err)
	}
	state := room.GameState
	if state.Status != models.RoomStatusPlaying || state.CurrentRound != fromRound {
		log.Debug().Str("room_id", roomID).Int("round", fromRound).Msg("advance skipped, state moved on")
		return nil
	}
	if _, err := s.repos.Round.FindOpenByRoom(ctx, roomID); err == nil {
		return nil
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("find open round: %w", err)
	}

	roster, err := s.repos.Player.ListByRoom(ctx, roomID)
	if err != nil {
		return fmt.Errorf("list players: %w", err)
	}
	guard := models.GameStateGuard{Status: models.RoomStatusPlaying, CurrentRound: &fromRound}

	if state.CurrentRound >= state.TotalRounds || len(roster) == 0 {
		return s.finish(ctx, room, guard)
	}

	var current *models.Player
	if state.ArtistID != nil {
		if p, err := s.repos.Player.FindByIDUnscoped(ctx, *state.ArtistID); err == nil {
			current = p
		}
	}
	artist := NextArtist(roster, current)

	next := models.GameState{
		Status:       models.RoomStatusPlaying,
		CurrentRound: fromRound + 1,
		TotalRounds:  state.TotalRounds,
		Category:     state.Category,
		ArtistID:     &artist.ID,
	}
	round := &models.Round{
		RoomID:     roomID,
		Number:     fromRound + 1,
		ArtistID:   artist.ID,
		SecretWord: s.catalog.Pick(state.Category),
		StartedAt:  s.now(),
	}

	err = s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		ok, err := tx.Room.UpdateGameState(ctx, roomID, guard, next, s.now())
		if err != nil {
			return err
		}
		if !ok {
			return errStale
		}
		return tx.Round.Create(ctx, round)
	})
	switch {
	case errors.Is(err, errStale):
		log.Debug().Str("room_id", roomID).Int("round", fromRound).Msg("advance lost to another trigger")
		return nil
	case errors.Is(err, repository.ErrDuplicate):
		log.Debug().Str("room_id", roomID).Msg("advance found an open round already")
		return nil
	case err != nil:
		return fmt.Errorf("advance round: %w", err)
	}

	room.GameState = next
	log.Info().Str("room_id", roomID).Int("round", round.Number).Str("player_id", artist.ID).Msg("round advanced")
	s.roundStarted(room, round, artist)
	return nil
}

func (s *RoundService) finish(ctx context.Context, room *models.Room, guard models.GameStateGuard) error {
	over := models.GameState{
		Status:       models.RoomStatusGameOver,
		CurrentRound: room.GameState.CurrentRound,
		TotalRounds:  room.GameState.TotalRounds,
		Category:     room.GameState.Category,
	}
	ok, err := s.repos.Room.UpdateGameState(ctx, room.ID, guard, over, s.now())
	if err != nil {
		return fmt.Errorf("finish game: %w", err)
	}
	if !ok {
		return nil
	}

	room.GameState = over
	s.drawing.forget(room.ID)
	log.Info().Str("room_id", room.ID).Msg("game over")
	s.broadcast(room.ID, protocol.GameOver{})
	s.notify(protocol.TableRooms, protocol.RowUpdate, room.ID, RoomView(*room))
	return nil
}

// roundStarted 在新回合寫入後呼叫：啟動看門狗、通知房間、私訊謎底給畫家
func (s *RoundService) roundStarted(room *models.Room, round *models.Round, artist models.Player) {
	s.arm(room.ID, round.ID, s.rules.RoundDuration+s.rules.WatchdogGrace)
	s.drawing.setArtist(room.ID, artist.UserID)

	s.broadcast(room.ID, protocol.NextRound{RoundID: round.ID, RoundNum: round.Number, ArtistID: artist.ID})
	s.whisper(room.ID, artist.UserID, protocol.SecretWord{RoundID: round.ID, Word: round.SecretWord})
	s.notify(protocol.TableRooms, protocol.RowUpdate, room.ID, RoomView(*room))
	s.notify(protocol.TableRounds, protocol.RowInsert, room.ID, RoundView(*round))
}

func (s *RoundService) arm(roomID, roundID string, after time.Duration) {
	timer := s.sched.AfterFunc(after, func() {
		s.expire(roundID)
	})

	s.mu.Lock()
	s.watchdogs[roundID] = watchdog{roomID: roomID, timer: timer}
	s.mu.Unlock()
}

func (s *RoundService) disarm(roundID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if w, ok := s.watchdogs[roundID]; ok {
		w.timer.Stop()
		delete(s.watchdogs, roundID)
	}
}

func (s *RoundService) expire(roundID string) {
	ctx := context.Background()
	round, err := s.repos.Round.FindByID(ctx, roundID)
	if err != nil {
		s.disarm(roundID)
		return
	}
	if !round.Open() {
		return
	}
	err = s.CloseRound(ctx, round, nil)
	switch {
	case errors.Is(err, ErrAlreadyClosed):
		log.Debug().Str("round_id", roundID).Msg("watchdog found round already closed")
	case err != nil:
		log.Error().Err(err).Str("round_id", roundID).Msg("watchdog close")
	default:
		log.Info().Str("round_id", roundID).Msg("watchdog closed stalled round")
	}
}

// Resume 在行程啟動時接手儲存層裡的進行中遊戲：
// 未結束的回合依剩餘時間重新掛上看門狗，已結束但尚未進入下一回合的房間重新排程換回合
func (s *RoundService) Resume(ctx context.Context) error {
	rounds, err := s.repos.Round.ListOpen(ctx)
	if err != nil {
		return fmt.Errorf("list open rounds: %w", err)
	}
	open := make(map[string]bool, len(rounds))
	for _, round := range rounds {
		open[round.RoomID] = true
		after := round.StartedAt.Add(s.rules.RoundDuration + s.rules.WatchdogGrace).Sub(s.now())
		if after < 0 {
			after = 0
		}
		s.arm(round.RoomID, round.ID, after)
	}

	rooms, err := s.repos.Room.ListByStatus(ctx, models.RoomStatusPlaying)
	if err != nil {
		return fmt.Errorf("list playing rooms: %w", err)
	}
	stalled := 0
	for _, room := range rooms {
		if open[room.ID] {
			continue
		}
		s.scheduleAdvance(room.ID, room.GameState.CurrentRound)
		stalled++
	}

	log.Info().Int("open_rounds", len(rounds)).Int("pending_advances", stalled).Msg("resumed games")
	return nil
}

// HandleTimeout 處理畫家客戶端送來的倒數結束訊號
func (s *RoundService) HandleTimeout(ctx context.Context, roundID, userID string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	round, err := s.repos.Round.FindByID(ctx, roundID)
	if err != nil {
		return storeErr("find round", err)
	}
	artist, err := s.repos.Player.FindByIDUnscoped(ctx, round.ArtistID)
	if err != nil {
		return storeErr("find artist", err)
	}
	if artist.UserID != userID {
		return ErrForbidden
	}
	if !round.Open() {
		return nil
	}
	if s.now().Before(round.StartedAt.Add(s.rules.RoundDuration - s.rules.TimeoutGrace)) {
		return ErrRoundRunning
	}

	err = s.CloseRound(ctx, round, nil)
	if errors.Is(err, ErrAlreadyClosed) {
		return nil
	}
	return err
}

// stopRoom 取消房間內所有待執行的計時
func (s *RoundService) stopRoom(roomID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if t, ok := s.advances[roomID]; ok {
		t.Stop()
		delete(s.advances, roomID)
	}
	for id, w := range s.watchdogs {
		if w.roomID == roomID {
			w.timer.Stop()
			delete(s.watchdogs, id)
		}
	}
}
