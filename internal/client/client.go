// Package client 是房間頻道的 Go 客戶端：連上 WebSocket，
// 把收到的事件套用到 session.State，並在畫家倒數結束時送出 round_timeout。
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"sketch_club/internal/protocol"
	"sketch_club/internal/session"
)

var ErrClosed = errors.New("client closed")

type Client struct {
	ws     *websocket.Conn
	state  *session.State
	events chan protocol.Event

	mu      sync.Mutex // 保護 state
	writeMu sync.Mutex
	done    chan struct{}
	once    sync.Once
}

// WebSocketURL 把 http(s) 伺服器位址轉成房間連線位址
func WebSocketURL(server, code, token string) (string, error) {
	u, err := url.Parse(server)
	if err != nil {
		return "", err
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	}
	u.Path = strings.TrimSuffix(u.Path, "/") + "/api/rooms/" + code + "/ws"
	q := u.Query()
	q.Set("token", token)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// Dial 連上房間；state 由呼叫端建立（通常先以房間快照 Seed）
func Dial(ctx context.Context, server, code, token string, state *session.State) (*Client, error) {
	target, err := WebSocketURL(server, code, token)
	if err != nil {
		return nil, err
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	ws, resp, err := dialer.DialContext(ctx, target, http.Header{})
	if err != nil {
		if resp != nil {
			return nil, fmt.Errorf("dial %s: %w (status %d)", code, err, resp.StatusCode)
		}
		return nil, fmt.Errorf("dial %s: %w", code, err)
	}

	return &Client{
		ws:     ws,
		state:  state,
		events: make(chan protocol.Event, 1024),
		done:   make(chan struct{}),
	}, nil
}

// Send 送出一個客戶端事件（chat、stroke、clear_canvas、round_timeout）
func (c *Client) Send(ev protocol.Event) error {
	data, err := protocol.Encode(ev)
	if err != nil {
		return err
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	select {
	case <-c.done:
		return ErrClosed
	default:
	}
	return c.ws.WriteMessage(websocket.TextMessage, data)
}

// Events 回傳已套用到狀態的事件，供呼叫端觀察
func (c *Client) Events() <-chan protocol.Event {
	return c.events
}

// View 在鎖內讀取本地狀態
func (c *Client) View(fn func(s *session.State)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	fn(c.state)
}

// Run 讀取事件並驅動本地倒數，直到連線結束或 ctx 取消；tick 為 0 時不計時
func (c *Client) Run(ctx context.Context, tick time.Duration) error {
	readErr := make(chan error, 1)
	go func() {
		readErr <- c.readLoop()
	}()

	var ticks <-chan time.Time
	if tick > 0 {
		ticker := time.NewTicker(tick)
		defer ticker.Stop()
		ticks = ticker.C
	}

	for {
		select {
		case <-ctx.Done():
			c.Close()
			return ctx.Err()
		case err := <-readErr:
			c.Close()
			return err
		case <-ticks:
			var roundID string
			c.mu.Lock()
			if c.state.Tick() {
				roundID = c.state.Round.ID
			}
			c.mu.Unlock()
			if roundID != "" {
				if err := c.Send(protocol.RoundTimeout{RoundID: roundID}); err != nil {
					log.Debug().Err(err).Str("round_id", roundID).Msg("send round timeout")
				}
			}
		}
	}
}

func (c *Client) readLoop() error {
	defer close(c.events)
	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			select {
			case <-c.done:
				return nil
			default:
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			log.Debug().Err(err).Msg("skip undecodable event")
			continue
		}

		c.mu.Lock()
		if err := c.state.Apply(ev); err != nil {
			log.Debug().Err(err).Str("event", string(ev.Name())).Msg("apply event")
		}
		c.mu.Unlock()

		select {
		case c.events <- ev:
		default:
			log.Warn().Str("event", string(ev.Name())).Msg("event buffer full, dropping")
		}
	}
}

// Close 關閉連線並清空本地狀態
func (c *Client) Close() error {
	var err error
	c.once.Do(func() {
		c.writeMu.Lock()
		close(c.done)
		_ = c.ws.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
		c.writeMu.Unlock()
		err = c.ws.Close()

		c.mu.Lock()
		c.state.Reset()
		c.mu.Unlock()
	})
	return err
}
