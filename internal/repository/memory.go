package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"sketch_club/internal/models"
)

// memoryDB 是單一行程內的儲存驅動，供本機遊玩與測試使用。
// 交易不具隔離性，但每個條件式寫入本身在鎖內完成，語意與 SQL 的條件更新一致。
type memoryDB struct {
	mu      sync.Mutex
	users   map[string]models.User
	rooms   map[string]models.Room
	players map[string]models.Player
	rounds  map[string]models.Round
}

func NewMemoryRepositories() *Repositories {
	db := &memoryDB{
		users:   make(map[string]models.User),
		rooms:   make(map[string]models.Room),
		players: make(map[string]models.Player),
		rounds:  make(map[string]models.Round),
	}
	repos := &Repositories{
		User:   &memoryUsers{db},
		Room:   &memoryRooms{db},
		Player: &memoryPlayers{db},
		Round:  &memoryRounds{db},
	}
	repos.tx = func(ctx context.Context, fn func(*Repositories) error) error {
		return fn(repos)
	}
	return repos
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}

type memoryUsers struct{ db *memoryDB }

func (m *memoryUsers) Create(ctx context.Context, user *models.User) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, u := range m.db.users {
		if u.Username == user.Username {
			return ErrDuplicate
		}
	}
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = time.Now()
	}
	m.db.users[user.ID] = *user
	return nil
}

func (m *memoryUsers) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, u := range m.db.users {
		if u.Username == username {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

type memoryRooms struct{ db *memoryDB }

func (m *memoryRooms) Create(ctx context.Context, room *models.Room) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, r := range m.db.rooms {
		if r.Code == room.Code {
			return ErrDuplicate
		}
	}
	if room.ID == "" {
		room.ID = uuid.NewString()
	}
	if room.CreatedAt.IsZero() {
		room.CreatedAt = time.Now()
	}
	stored := *room
	stored.GameState.ArtistID = cloneString(room.GameState.ArtistID)
	m.db.rooms[room.ID] = stored
	return nil
}

func (m *memoryRooms) get(id string) (*models.Room, error) {
	r, ok := m.db.rooms[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.GameState.ArtistID = cloneString(r.GameState.ArtistID)
	return &r, nil
}

func (m *memoryRooms) FindByID(ctx context.Context, id string) (*models.Room, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.get(id)
}

func (m *memoryRooms) FindByCode(ctx context.Context, code string) (*models.Room, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for id, r := range m.db.rooms {
		if r.Code == code {
			return m.get(id)
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRooms) UpdateGameState(ctx context.Context, id string, guard models.GameStateGuard, state models.GameState, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	r, ok := m.db.rooms[id]
	if !ok || !guard.Matches(r.GameState) {
		return false, nil
	}
	r.GameState = state
	r.GameState.ArtistID = cloneString(state.ArtistID)
	r.LastActivity = at
	m.db.rooms[id] = r
	return true, nil
}

func (m *memoryRooms) Touch(ctx context.Context, id string, at time.Time) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if r, ok := m.db.rooms[id]; ok {
		r.LastActivity = at
		m.db.rooms[id] = r
	}
	return nil
}

type memoryPlayers struct{ db *memoryDB }

func (m *memoryRooms) ListByStatus(ctx context.Context, status models.RoomStatus) ([]models.Room, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	rooms := make([]models.Room, 0)
	for id, r := range m.db.rooms {
		if r.GameState.Status == status {
			room, _ := m.get(id)
			rooms = append(rooms, *room)
		}
	}
	sort.Slice(rooms, func(i, j int) bool {
		if !rooms[i].CreatedAt.Equal(rooms[j].CreatedAt) {
			return rooms[i].CreatedAt.Before(rooms[j].CreatedAt)
		}
		return rooms[i].ID < rooms[j].ID
	})
	return rooms, nil
}

func (m *memoryPlayers) Create(ctx context.Context, player *models.Player) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, p := range m.db.players {
		if !p.DeletedAt.Valid && p.RoomID == player.RoomID && p.UserID == player.UserID {
			return ErrDuplicate
		}
	}
	if player.ID == "" {
		player.ID = uuid.NewString()
	}
	m.db.players[player.ID] = *player
	return nil
}

func (m *memoryPlayers) FindByID(ctx context.Context, id string) (*models.Player, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	p, ok := m.db.players[id]
	if !ok || p.DeletedAt.Valid {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memoryPlayers) FindByIDUnscoped(ctx context.Context, id string) (*models.Player, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	p, ok := m.db.players[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *memoryPlayers) FindByRoomAndUser(ctx context.Context, roomID, userID string) (*models.Player, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, p := range m.db.players {
		if !p.DeletedAt.Valid && p.RoomID == roomID && p.UserID == userID {
			return &p, nil
		}
	}
	return nil, ErrNotFound
}

func (m *memoryPlayers) ListByRoom(ctx context.Context, roomID string) ([]models.Player, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	players := make([]models.Player, 0)
	for _, p := range m.db.players {
		if !p.DeletedAt.Valid && p.RoomID == roomID {
			players = append(players, p)
		}
	}
	sort.Slice(players, func(i, j int) bool { return players[i].SeatsBefore(players[j]) })
	return players, nil
}

func (m *memoryPlayers) IncrementScore(ctx context.Context, id string, delta int) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if p, ok := m.db.players[id]; ok && !p.DeletedAt.Valid {
		p.Score += delta
		m.db.players[id] = p
	}
	return nil
}

func (m *memoryPlayers) ResetScores(ctx context.Context, roomID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for id, p := range m.db.players {
		if !p.DeletedAt.Valid && p.RoomID == roomID {
			p.Score = 0
			m.db.players[id] = p
		}
	}
	return nil
}

func (m *memoryPlayers) Delete(ctx context.Context, id string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	if p, ok := m.db.players[id]; ok && !p.DeletedAt.Valid {
		p.DeletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
		m.db.players[id] = p
	}
	return nil
}

type memoryRounds struct{ db *memoryDB }

func (m *memoryRounds) Create(ctx context.Context, round *models.Round) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for _, r := range m.db.rounds {
		if r.RoomID == round.RoomID && r.EndedAt == nil {
			return ErrDuplicate
		}
	}
	if round.ID == "" {
		round.ID = uuid.NewString()
	}
	stored := *round
	stored.EndedAt = cloneTime(round.EndedAt)
	stored.CorrectGuesserID = cloneString(round.CorrectGuesserID)
	m.db.rounds[round.ID] = stored
	return nil
}

func (m *memoryRounds) get(id string) (*models.Round, error) {
	r, ok := m.db.rounds[id]
	if !ok {
		return nil, ErrNotFound
	}
	r.EndedAt = cloneTime(r.EndedAt)
	r.CorrectGuesserID = cloneString(r.CorrectGuesserID)
	return &r, nil
}

func (m *memoryRounds) FindByID(ctx context.Context, id string) (*models.Round, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()
	return m.get(id)
}

func (m *memoryRounds) FindOpenByRoom(ctx context.Context, roomID string) (*models.Round, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for id, r := range m.db.rounds {
		if r.RoomID == roomID && r.EndedAt == nil {
			return m.get(id)
		}
	}
	return nil, ErrNotFound
}

func (m *memoryRounds) ListOpen(ctx context.Context) ([]models.Round, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	rounds := make([]models.Round, 0)
	for id, r := range m.db.rounds {
		if r.EndedAt == nil {
			round, _ := m.get(id)
			rounds = append(rounds, *round)
		}
	}
	sort.Slice(rounds, func(i, j int) bool { return rounds[i].StartedAt.Before(rounds[j].StartedAt) })
	return rounds, nil
}

func (m *memoryRounds) Close(ctx context.Context, id string, guesserID *string, at time.Time) (bool, error) {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	r, ok := m.db.rounds[id]
	if !ok || r.EndedAt != nil {
		return false, nil
	}
	r.EndedAt = &at
	r.CorrectGuesserID = cloneString(guesserID)
	m.db.rounds[id] = r
	return true, nil
}

func (m *memoryRounds) DeleteByRoom(ctx context.Context, roomID string) error {
	m.db.mu.Lock()
	defer m.db.mu.Unlock()

	for id, r := range m.db.rounds {
		if r.RoomID == roomID {
			delete(m.db.rounds, id)
		}
	}
	return nil
}
