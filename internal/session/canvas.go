package session

import "sketch_club/internal/protocol"

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type Path []Point

// Canvas 是觀看者的筆畫累積緩衝。收到的事件依到達順序排隊，
// Replay 只套用游標之後的事件，所以重複呼叫不會重畫已處理的筆畫。
type Canvas struct {
	events  []protocol.Stroke
	cursor  int
	lastSeq uint64
	paths   []Path
	open    bool
}

func NewCanvas() *Canvas {
	return &Canvas{}
}

// Push 排入一筆事件；序號不大於已收到的最大序號時視為重送並丟棄
func (c *Canvas) Push(s protocol.Stroke) bool {
	if s.Seq != 0 {
		if s.Seq <= c.lastSeq {
			return false
		}
		c.lastSeq = s.Seq
	}
	c.events = append(c.events, s)
	return true
}

// Replay 套用尚未處理的事件，回傳套用的筆數
func (c *Canvas) Replay() int {
	n := 0
	for ; c.cursor < len(c.events); c.cursor++ {
		c.apply(c.events[c.cursor])
		n++
	}
	return n
}

func (c *Canvas) apply(s protocol.Stroke) {
	p := Point{X: s.X, Y: s.Y}
	switch s.Type {
	case protocol.StrokeStart:
		c.paths = append(c.paths, Path{p})
		c.open = true
	case protocol.StrokeDraw:
		if c.open {
			last := len(c.paths) - 1
			c.paths[last] = append(c.paths[last], p)
		}
	case protocol.StrokeEnd:
		c.open = false
	}
}

func (c *Canvas) Cursor() int {
	return c.cursor
}

func (c *Canvas) Pending() int {
	return len(c.events) - c.cursor
}

// Paths 回傳目前畫面上的所有路徑（複本）
func (c *Canvas) Paths() []Path {
	out := make([]Path, len(c.paths))
	for i, p := range c.paths {
		out[i] = append(Path(nil), p...)
	}
	return out
}

// Clear 清空畫面與游標；保留已見過的最大序號，避免晚到的重送被重畫
func (c *Canvas) Clear() {
	c.events = nil
	c.cursor = 0
	c.paths = nil
	c.open = false
}

// Reset 連同序號一起歸零，用於新的一場遊戲
func (c *Canvas) Reset() {
	c.Clear()
	c.lastSeq = 0
}
