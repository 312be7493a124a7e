// Package session 是客戶端的本地狀態容器。
//
// 每種收到的事件（頻道訊息、資料列變更）都有對應的轉換函式，
// 由 Apply 依事件名稱查表分派；計時由 Tick 驅動。
package session

import (
	"encoding/json"
	"fmt"
	"sort"

	"sketch_club/internal/protocol"
)

type Phase string

const (
	PhaseLobby    Phase = "lobby"
	PhasePlaying  Phase = "playing"
	PhaseRoundEnd Phase = "round_end"
	PhaseGameOver Phase = "game_over"
)

const chatLimit = 100

// State 只描述一位玩家看到的畫面，不是權威狀態
type State struct {
	PlayerID      string
	RoundDuration int // 秒

	Phase     Phase
	Room      protocol.RoomView
	Players   []protocol.PlayerView
	Round     *protocol.RoundView
	LastRound *protocol.RoundEnd
	Chat      []protocol.ChatMessage
	TimeLeft  int
	LastError *protocol.Error
	Canvas    *Canvas

	word        protocol.SecretWord
	timeoutSent string
}

func NewState(playerID string, roundDuration int) *State {
	return &State{
		PlayerID:      playerID,
		RoundDuration: roundDuration,
		Phase:         PhaseLobby,
		Canvas:        NewCanvas(),
	}
}

type transition func(s *State, ev protocol.Event) error

var transitions = map[protocol.EventName]transition{
	protocol.EventChat:         applyChat,
	protocol.EventCorrectGuess: applyCorrectGuess,
	protocol.EventRoundEnd:     applyRoundEnd,
	protocol.EventNextRound:    applyNextRound,
	protocol.EventGameOver:     applyGameOver,
	protocol.EventClearCanvas:  applyClearCanvas,
	protocol.EventStroke:       applyStroke,
	protocol.EventSecretWord:   applySecretWord,
	protocol.EventRowChange:    applyRowChange,
	protocol.EventError:        applyError,
}

// Apply 依事件名稱分派；不認得的事件被忽略
func (s *State) Apply(ev protocol.Event) error {
	fn, ok := transitions[ev.Name()]
	if !ok {
		return nil
	}
	return fn(s, ev)
}

// Seed 以房間快照初始化狀態
func (s *State) Seed(room protocol.RoomView, players []protocol.PlayerView, round *protocol.RoundView, word string) {
	s.Room = room
	s.Players = append([]protocol.PlayerView(nil), players...)
	s.sortPlayers()
	s.Round = round
	s.Phase = Phase(room.GameState.Status)
	s.TimeLeft = 0
	if s.Phase == PhasePlaying && (round == nil || round.EndedAt != nil) {
		s.Phase = PhaseRoundEnd
	}
	if round != nil && round.EndedAt == nil {
		s.Phase = PhasePlaying
		s.TimeLeft = s.RoundDuration
		if word != "" {
			s.word = protocol.SecretWord{RoundID: round.ID, Word: word}
		}
	}
}

// Reset 在離開房間時清空所有本地狀態
func (s *State) Reset() {
	*s = *NewState(s.PlayerID, s.RoundDuration)
}

// Tick 每秒呼叫一次。只有畫家的客戶端會在倒數歸零時得到 true，且每回合一次。
func (s *State) Tick() bool {
	if s.Phase != PhasePlaying || s.Round == nil || s.Round.EndedAt != nil {
		return false
	}
	if s.TimeLeft > 0 {
		s.TimeLeft--
	}
	if s.TimeLeft > 0 || !s.IsArtist() || s.timeoutSent == s.Round.ID {
		return false
	}
	s.timeoutSent = s.Round.ID
	return true
}

func (s *State) IsArtist() bool {
	if s.Round != nil {
		return s.Round.ArtistID == s.PlayerID
	}
	return s.Room.GameState.ArtistID != nil && *s.Room.GameState.ArtistID == s.PlayerID
}

func (s *State) IsHost() bool {
	for _, p := range s.Players {
		if p.ID == s.PlayerID {
			return p.IsHost
		}
	}
	return false
}

// SecretWord 只在目前回合的謎底已私訊給本地玩家時回傳
func (s *State) SecretWord() string {
	if s.Round == nil || s.word.RoundID != s.Round.ID {
		return ""
	}
	return s.word.Word
}

func (s *State) Player(id string) (protocol.PlayerView, bool) {
	for _, p := range s.Players {
		if p.ID == id {
			return p, true
		}
	}
	return protocol.PlayerView{}, false
}

func (s *State) sortPlayers() {
	sort.SliceStable(s.Players, func(i, j int) bool {
		a, b := s.Players[i], s.Players[j]
		if a.JoinedAt.Equal(b.JoinedAt) {
			return a.ID < b.ID
		}
		return a.JoinedAt.Before(b.JoinedAt)
	})
}

func (s *State) appendChat(msg protocol.ChatMessage) {
	s.Chat = append(s.Chat, msg)
	if len(s.Chat) > chatLimit {
		s.Chat = s.Chat[len(s.Chat)-chatLimit:]
	}
}

func applyChat(s *State, ev protocol.Event) error {
	s.appendChat(ev.(protocol.ChatMessage))
	return nil
}

func applyCorrectGuess(s *State, ev protocol.Event) error {
	e := ev.(protocol.CorrectGuess)
	s.appendChat(protocol.ChatMessage{
		PlayerID:  e.PlayerID,
		Username:  e.Username,
		Message:   fmt.Sprintf("%s guessed the word!", e.Username),
		IsSystem:  true,
		IsCorrect: true,
	})
	return nil
}

func applyRoundEnd(s *State, ev protocol.Event) error {
	e := ev.(protocol.RoundEnd)
	end := e
	s.LastRound = &end
	s.TimeLeft = 0
	if s.Phase == PhasePlaying {
		s.Phase = PhaseRoundEnd
	}
	return nil
}

func applyNextRound(s *State, ev protocol.Event) error {
	e := ev.(protocol.NextRound)
	if s.Round != nil && s.Round.ID == e.RoundID {
		return nil
	}
	s.Round = &protocol.RoundView{ID: e.RoundID, RoomID: s.Room.ID, Number: e.RoundNum, ArtistID: e.ArtistID}
	artist := e.ArtistID
	s.Room.GameState.Status = string(PhasePlaying)
	s.Room.GameState.CurrentRound = e.RoundNum
	s.Room.GameState.ArtistID = &artist
	s.Phase = PhasePlaying
	s.LastRound = nil
	s.TimeLeft = s.RoundDuration
	s.Chat = nil
	s.Canvas.Clear()
	return nil
}

func applyGameOver(s *State, ev protocol.Event) error {
	s.Phase = PhaseGameOver
	s.Room.GameState.Status = string(PhaseGameOver)
	s.TimeLeft = 0
	return nil
}

func applyClearCanvas(s *State, ev protocol.Event) error {
	s.Canvas.Clear()
	return nil
}

func applyStroke(s *State, ev protocol.Event) error {
	if s.Canvas.Push(ev.(protocol.Stroke)) {
		s.Canvas.Replay()
	}
	return nil
}

func applySecretWord(s *State, ev protocol.Event) error {
	s.word = ev.(protocol.SecretWord)
	return nil
}

func applyError(s *State, ev protocol.Event) error {
	e := ev.(protocol.Error)
	s.LastError = &e
	return nil
}

func applyRowChange(s *State, ev protocol.Event) error {
	change := ev.(protocol.RowChange)
	switch change.Table {
	case protocol.TableRooms:
		var room protocol.RoomView
		if err := json.Unmarshal(change.Record, &room); err != nil {
			return fmt.Errorf("decode room: %w", err)
		}
		s.applyRoom(room)
	case protocol.TablePlayers:
		var player protocol.PlayerView
		if err := json.Unmarshal(change.Record, &player); err != nil {
			return fmt.Errorf("decode player: %w", err)
		}
		s.applyPlayer(change.Op, player)
	case protocol.TableRounds:
		var round protocol.RoundView
		if err := json.Unmarshal(change.Record, &round); err != nil {
			return fmt.Errorf("decode round: %w", err)
		}
		s.applyRound(round)
	}
	return nil
}

func (s *State) applyRoom(room protocol.RoomView) {
	prev := Phase(s.Room.GameState.Status)
	s.Room = room

	switch Phase(room.GameState.Status) {
	case PhaseLobby:
		if prev != PhaseLobby && prev != "" {
			// 再玩一次：回到大廳並清掉上一場的畫面
			s.Phase = PhaseLobby
			s.Round = nil
			s.LastRound = nil
			s.TimeLeft = 0
			s.Chat = nil
			s.word = protocol.SecretWord{}
			s.Canvas.Reset()
		}
	case PhaseGameOver:
		s.Phase = PhaseGameOver
		s.TimeLeft = 0
	case PhasePlaying:
		if s.Phase == PhaseLobby || s.Phase == PhaseGameOver {
			s.Phase = PhasePlaying
		}
	}
}

func (s *State) applyPlayer(op protocol.RowOp, player protocol.PlayerView) {
	idx := -1
	for i, p := range s.Players {
		if p.ID == player.ID {
			idx = i
			break
		}
	}

	switch {
	case op == protocol.RowDelete:
		if idx >= 0 {
			s.Players = append(s.Players[:idx], s.Players[idx+1:]...)
		}
	case idx >= 0:
		s.Players[idx] = player
	default:
		s.Players = append(s.Players, player)
		s.sortPlayers()
	}
}

func (s *State) applyRound(round protocol.RoundView) {
	if s.Round != nil && s.Round.ID == round.ID {
		r := round
		s.Round = &r
		return
	}
	// 新回合的資料列通知可能比 next_round 先到，兩者都只會生效一次
	if round.EndedAt == nil && (s.Round == nil || round.Number > s.Round.Number) {
		_ = applyNextRound(s, protocol.NextRound{RoundID: round.ID, RoundNum: round.Number, ArtistID: round.ArtistID})
		r := round
		s.Round = &r
	}
}
