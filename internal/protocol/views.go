package protocol

import "time"

// 以下 view 型別是資料列對外的形狀，回合的謎底不在其中

type GameStateView struct {
	Status       string  `json:"status"`
	CurrentRound int     `json:"current_round"`
	TotalRounds  int     `json:"total_rounds"`
	Category     string  `json:"category"`
	ArtistID     *string `json:"artist_id,omitempty"`
}

type RoomView struct {
	ID           string        `json:"id"`
	Code         string        `json:"code"`
	HostID       string        `json:"host_id"`
	GameState    GameStateView `json:"game_state"`
	LastActivity time.Time     `json:"last_activity"`
}

type PlayerView struct {
	ID       string    `json:"id"`
	RoomID   string    `json:"room_id"`
	UserID   string    `json:"user_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
	IsHost   bool      `json:"is_host"`
	JoinedAt time.Time `json:"joined_at"`
}

type RoundView struct {
	ID               string     `json:"id"`
	RoomID           string     `json:"room_id"`
	Number           int        `json:"number"`
	ArtistID         string     `json:"artist_id"`
	StartedAt        time.Time  `json:"started_at"`
	EndedAt          *time.Time `json:"ended_at"`
	CorrectGuesserID *string    `json:"correct_guesser_id"`
}

const (
	TableRooms   = "rooms"
	TablePlayers = "players"
	TableRounds  = "rounds"
)
