package service

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/repository"
	"sketch_club/internal/utils"
	"sketch_club/internal/words"
	"sketch_club/pkg/config"
)

type fakeTimer struct {
	s       *fakeScheduler
	d       time.Duration
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

// fakeScheduler 只在測試呼叫 fire 時執行計時器
type fakeScheduler struct {
	mu     sync.Mutex
	timers []*fakeTimer
}

func (s *fakeScheduler) AfterFunc(d time.Duration, f func()) Timer {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &fakeTimer{s: s, d: d, f: f}
	s.timers = append(s.timers, t)
	return t
}

func (s *fakeScheduler) pending(d time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, t := range s.timers {
		if t.d == d && !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

func (s *fakeScheduler) fire(d time.Duration) int {
	s.mu.Lock()
	var due []*fakeTimer
	for _, t := range s.timers {
		if t.d == d && !t.stopped && !t.fired {
			t.fired = true
			due = append(due, t)
		}
	}
	s.mu.Unlock()

	for _, t := range due {
		t.f()
	}
	return len(due)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sent struct {
	channel string
	userID  string
	ev      protocol.Event
}

// recorder 記錄服務層送出的所有事件
type recorder struct {
	mu   sync.Mutex
	sent []sent
	rows []protocol.RowChange
}

func (r *recorder) BroadcastSend(channel string, ev protocol.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{channel: channel, ev: ev})
	return nil
}

func (r *recorder) Whisper(channel, userID string, ev protocol.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, sent{channel: channel, userID: userID, ev: ev})
	return nil
}

func (r *recorder) NotifyRowChange(change protocol.RowChange) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rows = append(r.rows, change)
	return nil
}

func (r *recorder) events(name protocol.EventName) []sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []sent
	for _, s := range r.sent {
		if s.ev.Name() == name {
			out = append(out, s)
		}
	}
	return out
}

func (r *recorder) rowChanges(table string) []protocol.RowChange {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []protocol.RowChange
	for _, c := range r.rows {
		if c.Table == table {
			out = append(out, c)
		}
	}
	return out
}

const (
	roundDuration = 60 * time.Second
	advanceDelay  = 5 * time.Second
	watchdogDelay = roundDuration + 5*time.Second
)

type fixture struct {
	t     *testing.T
	ctx   context.Context
	repos *repository.Repositories
	hub   *recorder
	sched *fakeScheduler
	clock *clock
	svc   *Services

	opts    Options
	catalog *words.Catalog
}

func testRules() config.GameConfig {
	return config.GameConfig{
		TotalRounds:   5,
		RoundDuration: roundDuration,
		AdvanceDelay:  advanceDelay,
		TimeoutGrace:  2 * time.Second,
		WatchdogGrace: 5 * time.Second,
		MinPlayers:    2,
		CodeAttempts:  5,
	}
}

func newFixture(t *testing.T, configure ...func(*Options)) *fixture {
	t.Helper()
	f := &fixture{
		t:     t,
		ctx:   context.Background(),
		repos: repository.NewMemoryRepositories(),
		hub:   &recorder{},
		sched: &fakeScheduler{},
		clock: &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	opts := Options{Game: testRules(), Scheduler: f.sched, Now: f.clock.Now}
	for _, fn := range configure {
		fn(&opts)
	}
	catalog := words.NewCatalogFrom(map[string][]string{
		"animals": {"Cat"},
		"food":    {"Ice Cream"},
	}, func(int) int { return 0 })
	f.svc = NewServices(f.repos, f.hub, catalog, utils.NewTokenManager("test", time.Hour), opts)
	f.opts = opts
	f.catalog = catalog
	return f
}

// restart 模擬行程重啟：保留儲存層，換掉服務與排程器
func (f *fixture) restart() {
	f.sched = &fakeScheduler{}
	f.opts.Scheduler = f.sched
	f.svc = NewServices(f.repos, f.hub, f.catalog, utils.NewTokenManager("test", time.Hour), f.opts)
}

// room 建立房間並依序加入其他玩家，每位玩家的加入時間相差一秒
func (f *fixture) room(names ...string) (*models.Room, []*models.Player) {
	f.t.Helper()
	room, host, err := f.svc.Room.CreateRoom(f.ctx, "user-"+names[0], names[0])
	require.NoError(f.t, err)
	players := []*models.Player{host}
	for _, name := range names[1:] {
		f.clock.Advance(time.Second)
		_, p, err := f.svc.Room.JoinRoom(f.ctx, room.Code, "user-"+name, name)
		require.NoError(f.t, err)
		players = append(players, p)
	}
	return room, players
}

func (f *fixture) start(room *models.Room, category string) *models.Round {
	f.t.Helper()
	round, err := f.svc.Room.StartGame(f.ctx, room.ID, room.HostID, category)
	require.NoError(f.t, err)
	return round
}

func (f *fixture) reloadRoom(id string) *models.Room {
	f.t.Helper()
	room, err := f.repos.Room.FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return room
}

func (f *fixture) reloadRound(id string) *models.Round {
	f.t.Helper()
	round, err := f.repos.Round.FindByID(f.ctx, id)
	require.NoError(f.t, err)
	return round
}

func (f *fixture) openRound(roomID string) *models.Round {
	f.t.Helper()
	round, err := f.repos.Round.FindOpenByRoom(f.ctx, roomID)
	require.NoError(f.t, err)
	return round
}

func (f *fixture) scores(roomID string) map[string]int {
	f.t.Helper()
	players, err := f.repos.Player.ListByRoom(f.ctx, roomID)
	require.NoError(f.t, err)
	out := make(map[string]int, len(players))
	for _, p := range players {
		out[p.Username] = p.Score
	}
	return out
}

func decodeRecord(t *testing.T, change protocol.RowChange, v interface{}) {
	t.Helper()
	require.NoError(t, json.Unmarshal(change.Record, v))
}
