// Package realtime 是每個房間的發布/訂閱傳輸層。
//
// 頻道以名稱區分（房間頻道與繪圖頻道互相獨立，跨頻道不保證順序），
// 另外提供資料列變更通知的訂閱。
package realtime

import (
	"sync"

	"github.com/rs/zerolog/log"

	"sketch_club/internal/protocol"
)

// AnyEvent 訂閱頻道上的所有事件
const AnyEvent protocol.EventName = "*"

func RoomChannel(roomID string) string {
	return "game-room-" + roomID
}

func DrawingChannel(roomID string) string {
	return "drawing-" + roomID
}

// Message 同時帶著事件與已編碼的線上格式，連線端直接寫出 Data
type Message struct {
	Event protocol.Event
	Data  []byte
}

// Handler 不可阻塞；它在發送者的 goroutine 上執行
type Handler func(Message)

type subscription struct {
	event   protocol.EventName
	userID  string
	handler Handler
}

type rowSubscription struct {
	column  string
	value   string
	handler Handler
}

type Hub struct {
	mu       sync.RWMutex
	channels map[string]map[*subscription]struct{}
	rows     map[string]map[*rowSubscription]struct{}
}

func NewHub() *Hub {
	return &Hub{
		channels: make(map[string]map[*subscription]struct{}),
		rows:     make(map[string]map[*rowSubscription]struct{}),
	}
}

// BroadcastSubscribe 訂閱頻道事件；userID 用於私訊（Whisper）比對，可為空
func (h *Hub) BroadcastSubscribe(channel string, event protocol.EventName, userID string, handler Handler) func() {
	sub := &subscription{event: event, userID: userID, handler: handler}

	h.mu.Lock()
	if h.channels[channel] == nil {
		h.channels[channel] = make(map[*subscription]struct{})
	}
	h.channels[channel][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.channels[channel]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.channels, channel)
				}
			}
		})
	}
}

// RowChangeSubscribe 訂閱某張表中 column = value 的資料列變更
func (h *Hub) RowChangeSubscribe(table, column, value string, handler Handler) func() {
	sub := &rowSubscription{column: column, value: value, handler: handler}

	h.mu.Lock()
	if h.rows[table] == nil {
		h.rows[table] = make(map[*rowSubscription]struct{})
	}
	h.rows[table][sub] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			if subs, ok := h.rows[table]; ok {
				delete(subs, sub)
				if len(subs) == 0 {
					delete(h.rows, table)
				}
			}
		})
	}
}

func (h *Hub) BroadcastSend(channel string, ev protocol.Event) error {
	return h.send(channel, "", ev)
}

// Whisper 只送給以該 userID 訂閱的連線
func (h *Hub) Whisper(channel, userID string, ev protocol.Event) error {
	return h.send(channel, userID, ev)
}

func (h *Hub) send(channel, userID string, ev protocol.Event) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}
	msg := Message{Event: ev, Data: data}

	h.mu.RLock()
	targets := make([]Handler, 0, len(h.channels[channel]))
	for sub := range h.channels[channel] {
		if sub.event != AnyEvent && sub.event != ev.Name() {
			continue
		}
		if userID != "" && sub.userID != userID {
			continue
		}
		targets = append(targets, sub.handler)
	}
	h.mu.RUnlock()

	for _, handler := range targets {
		handler(msg)
	}
	return nil
}

func (h *Hub) NotifyRowChange(change protocol.RowChange) error {
	data, err := protocol.Encode(change)
	if err != nil {
		return err
	}
	msg := Message{Event: change, Data: data}

	h.mu.RLock()
	targets := make([]Handler, 0, len(h.rows[change.Table]))
	for sub := range h.rows[change.Table] {
		if change.Match[sub.column] == sub.value {
			targets = append(targets, sub.handler)
		}
	}
	h.mu.RUnlock()

	log.Debug().Str("table", change.Table).Str("op", string(change.Op)).Int("subscribers", len(targets)).Msg("row change")
	for _, handler := range targets {
		handler(msg)
	}
	return nil
}

// Subscribers 回傳頻道上的訂閱數
func (h *Hub) Subscribers(channel string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.channels[channel])
}
