// Package protocol 定義房間頻道上流動的事件。
//
// 每種事件名稱對應一個具體型別，解碼時查表建立，不做動態欄位判斷。
// 伺服器與 Go 客戶端共用這些型別。
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

type EventName string

const (
	EventChat         EventName = "chat"
	EventCorrectGuess EventName = "correct_guess"
	EventRoundEnd     EventName = "round_end"
	EventNextRound    EventName = "next_round"
	EventGameOver     EventName = "game_over"
	EventClearCanvas  EventName = "clear_canvas"
	EventStroke       EventName = "stroke"
	EventSecretWord   EventName = "secret_word"
	EventRowChange    EventName = "row_change"
	EventRoundTimeout EventName = "round_timeout"
	EventError        EventName = "error"
)

var ErrUnknownEvent = errors.New("unknown event")

type Event interface {
	Name() EventName
}

// Envelope 是線上格式：{"event": "...", "payload": {...}}
type Envelope struct {
	Event   EventName       `json:"event"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

type ChatMessage struct {
	ID        string `json:"id"`
	PlayerID  string `json:"player_id"`
	Username  string `json:"username"`
	Message   string `json:"message"`
	IsSystem  bool   `json:"is_system"`
	IsCorrect bool   `json:"is_correct,omitempty"`
	Timestamp int64  `json:"timestamp"`
}

type CorrectGuess struct {
	PlayerID string `json:"playerId"`
	Username string `json:"username"`
}

type RoundEnd struct {
	RoundID     string  `json:"roundId"`
	Word        string  `json:"word"`
	GuesserID   *string `json:"guesserId"`
	GuesserName *string `json:"guesserName"`
}

type NextRound struct {
	RoundID  string `json:"roundId"`
	RoundNum int    `json:"roundNum"`
	ArtistID string `json:"artistId"`
}

type GameOver struct{}

type ClearCanvas struct{}

type StrokeType string

const (
	StrokeStart StrokeType = "start"
	StrokeDraw  StrokeType = "draw"
	StrokeEnd   StrokeType = "end"
)

// Stroke 的 Seq 由伺服器在轉送時蓋上，房間內單調遞增
type Stroke struct {
	X    float64    `json:"x"`
	Y    float64    `json:"y"`
	Type StrokeType `json:"type"`
	Seq  uint64     `json:"seq,omitempty"`
}

func (s Stroke) Valid() bool {
	switch s.Type {
	case StrokeStart, StrokeDraw, StrokeEnd:
	default:
		return false
	}
	return !math.IsNaN(s.X) && !math.IsNaN(s.Y) && !math.IsInf(s.X, 0) && !math.IsInf(s.Y, 0)
}

// SecretWord 只私訊給該回合的畫家
type SecretWord struct {
	RoundID string `json:"roundId"`
	Word    string `json:"word"`
}

type RowOp string

const (
	RowInsert RowOp = "INSERT"
	RowUpdate RowOp = "UPDATE"
	RowDelete RowOp = "DELETE"
)

// RowChange 是持久資料列變更的通知；Match 用來比對訂閱者的過濾條件
type RowChange struct {
	Table  string            `json:"table"`
	Op     RowOp             `json:"op"`
	Match  map[string]string `json:"-"`
	Record json.RawMessage   `json:"record"`
}

type RoundTimeout struct {
	RoundID string `json:"roundId"`
}

type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (ChatMessage) Name() EventName  { return EventChat }
func (CorrectGuess) Name() EventName { return EventCorrectGuess }
func (RoundEnd) Name() EventName     { return EventRoundEnd }
func (NextRound) Name() EventName    { return EventNextRound }
func (GameOver) Name() EventName     { return EventGameOver }
func (ClearCanvas) Name() EventName  { return EventClearCanvas }
func (Stroke) Name() EventName       { return EventStroke }
func (SecretWord) Name() EventName   { return EventSecretWord }
func (RowChange) Name() EventName    { return EventRowChange }
func (RoundTimeout) Name() EventName { return EventRoundTimeout }
func (Error) Name() EventName        { return EventError }

var registry = map[EventName]func() Event{
	EventChat:         func() Event { return &ChatMessage{} },
	EventCorrectGuess: func() Event { return &CorrectGuess{} },
	EventRoundEnd:     func() Event { return &RoundEnd{} },
	EventNextRound:    func() Event { return &NextRound{} },
	EventGameOver:     func() Event { return &GameOver{} },
	EventClearCanvas:  func() Event { return &ClearCanvas{} },
	EventStroke:       func() Event { return &Stroke{} },
	EventSecretWord:   func() Event { return &SecretWord{} },
	EventRowChange:    func() Event { return &RowChange{} },
	EventRoundTimeout: func() Event { return &RoundTimeout{} },
	EventError:        func() Event { return &Error{} },
}

func Encode(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Event: ev.Name(), Payload: payload})
}

// Decode 回傳的事件一律是值型別（例如 protocol.Stroke 而非 *protocol.Stroke）
func Decode(data []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	return DecodeEnvelope(env)
}

func DecodeEnvelope(env Envelope) (Event, error) {
	newEvent, ok := registry[env.Event]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEvent, env.Event)
	}
	ev := newEvent()
	if len(env.Payload) > 0 && string(env.Payload) != "null" {
		if err := json.Unmarshal(env.Payload, ev); err != nil {
			return nil, fmt.Errorf("decode %s payload: %w", env.Event, err)
		}
	}
	return deref(ev), nil
}

func deref(ev Event) Event {
	switch e := ev.(type) {
	case *ChatMessage:
		return *e
	case *CorrectGuess:
		return *e
	case *RoundEnd:
		return *e
	case *NextRound:
		return *e
	case *GameOver:
		return *e
	case *ClearCanvas:
		return *e
	case *Stroke:
		return *e
	case *SecretWord:
		return *e
	case *RowChange:
		return *e
	case *RoundTimeout:
		return *e
	case *Error:
		return *e
	}
	return ev
}
