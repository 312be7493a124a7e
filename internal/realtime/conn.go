package realtime

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"sketch_club/internal/protocol"
)

// Identity 是一條連線在房間內的身分
type Identity struct {
	UserID   string
	PlayerID string
	RoomID   string
}

// Dispatcher 處理客戶端送上來的事件（聊天、筆畫、清除畫布、回合逾時）
type Dispatcher interface {
	HandleClientEvent(ctx context.Context, id Identity, ev protocol.Event) error
}

type Options struct {
	SendBuffer        int
	ReadLimit         int64
	PongWait          time.Duration
	PingPeriod        time.Duration
	WriteWait         time.Duration
	MessagesPerSecond float64
	Burst             int
	// 筆畫另有額度，畫布每次移動滑鼠就送一筆
	StrokesPerSecond  float64
	StrokeBurst       int
}

func (o Options) withDefaults() Options {
	if o.SendBuffer <= 0 {
		o.SendBuffer = 256
	}
	if o.ReadLimit <= 0 {
		o.ReadLimit = 4096
	}
	if o.PongWait <= 0 {
		o.PongWait = 60 * time.Second
	}
	if o.PingPeriod <= 0 || o.PingPeriod >= o.PongWait {
		o.PingPeriod = o.PongWait * 9 / 10
	}
	if o.WriteWait <= 0 {
		o.WriteWait = 10 * time.Second
	}
	if o.MessagesPerSecond <= 0 {
		o.MessagesPerSecond = 30
	}
	if o.Burst <= 0 {
		o.Burst = 60
	}
	if o.StrokesPerSecond <= 0 {
		o.StrokesPerSecond = 240
	}
	if o.StrokeBurst <= 0 {
		o.StrokeBurst = 480
	}
	return o
}

// Conn 代表一個 WebSocket 客戶端連線
type Conn struct {
	ws       *websocket.Conn
	identity Identity
	opts     Options
	send     chan []byte
	done     chan struct{}
	limiter  *rate.Limiter
	strokes  *rate.Limiter
	closing  sync.Once
}

// Serve 註冊連線到房間的各個頻道並阻塞到連線結束；離開時取消所有訂閱
func (h *Hub) Serve(ctx context.Context, ws *websocket.Conn, id Identity, dispatcher Dispatcher, opts Options) {
	opts = opts.withDefaults()
	c := &Conn{
		ws:       ws,
		identity: id,
		opts:     opts,
		send:     make(chan []byte, opts.SendBuffer),
		done:     make(chan struct{}),
		limiter:  rate.NewLimiter(rate.Limit(opts.MessagesPerSecond), opts.Burst),
		strokes:  rate.NewLimiter(rate.Limit(opts.StrokesPerSecond), opts.StrokeBurst),
	}

	unsubscribes := []func(){
		h.BroadcastSubscribe(RoomChannel(id.RoomID), AnyEvent, id.UserID, c.deliver),
		h.BroadcastSubscribe(DrawingChannel(id.RoomID), protocol.EventStroke, id.UserID, c.deliver),
		h.RowChangeSubscribe(protocol.TableRooms, "id", id.RoomID, c.deliver),
		h.RowChangeSubscribe(protocol.TablePlayers, "room_id", id.RoomID, c.deliver),
		h.RowChangeSubscribe(protocol.TableRounds, "room_id", id.RoomID, c.deliver),
	}

	logger := log.With().Str("room_id", id.RoomID).Str("player_id", id.PlayerID).Logger()
	logger.Info().Msg("realtime connection opened")

	// 確保連接關閉時清理資源
	defer func() {
		for _, unsubscribe := range unsubscribes {
			unsubscribe()
		}
		c.close()
		logger.Info().Msg("realtime connection closed")
	}()

	go c.writePump()
	c.readPump(ctx, dispatcher)
}

func (c *Conn) close() {
	c.closing.Do(func() {
		close(c.done)
		c.ws.Close()
	})
}

// deliver 把訊息放進發送佇列；佇列滿代表客戶端跟不上，直接斷線
func (c *Conn) deliver(msg Message) {
	select {
	case <-c.done:
		return
	default:
	}

	select {
	case c.send <- msg.Data:
	default:
		log.Warn().Str("player_id", c.identity.PlayerID).Msg("send queue full, dropping connection")
		c.close()
	}
}

func (c *Conn) reply(ev protocol.Event) {
	data, err := protocol.Encode(ev)
	if err != nil {
		return
	}
	c.deliver(Message{Event: ev, Data: data})
}

// readPump 持續監聽並處理從客戶端接收的消息
func (c *Conn) readPump(ctx context.Context, dispatcher Dispatcher) {
	c.ws.SetReadLimit(c.opts.ReadLimit)
	c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(c.opts.PongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Msg("websocket unexpected close")
			}
			return
		}

		ev, err := protocol.Decode(data)
		if err != nil {
			if !c.limiter.Allow() {
				continue
			}
			c.reply(protocol.Error{Code: "bad_message", Message: err.Error()})
			continue
		}

		if !c.allow(ev) {
			log.Debug().Str("player_id", c.identity.PlayerID).Str("event", string(ev.Name())).Msg("rate limited")
			c.reply(protocol.Error{Code: "rate_limited", Message: string(ev.Name()) + " rate limited"})
			continue
		}

		if err := dispatcher.HandleClientEvent(ctx, c.identity, ev); err != nil {
			c.reply(protocol.Error{Code: string(ev.Name()), Message: err.Error()})
		}
	}
}

func (c *Conn) allow(ev protocol.Event) bool {
	if ev.Name() == protocol.EventStroke {
		return c.strokes.Allow()
	}
	return c.limiter.Allow()
}

// writePump 處理向客戶端發送消息的邏輯
func (c *Conn) writePump() {
	// 設置心跳檢查計時器
	ticker := time.NewTicker(c.opts.PingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			c.ws.WriteMessage(websocket.CloseMessage, []byte{})
			return

		case data := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, data); err != nil {
				c.close()
				return
			}

		case <-ticker.C:
			// 發送心跳包
			c.ws.SetWriteDeadline(time.Now().Add(c.opts.WriteWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		}
	}
}
