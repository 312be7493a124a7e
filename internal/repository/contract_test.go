package repository

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketch_club/internal/models"
)

// runContract 對任一儲存驅動執行相同的行為檢查
func runContract(t *testing.T, repos *Repositories) {
	ctx := context.Background()
	base := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	room := &models.Room{
		Code:         "123456",
		HostID:       "host-user",
		GameState:    models.GameState{Status: models.RoomStatusLobby, TotalRounds: 5, Category: "all"},
		LastActivity: base,
	}

	t.Run("rooms", func(t *testing.T) {
		require.NoError(t, repos.Room.Create(ctx, room))
		assert.NotEmpty(t, room.ID)

		dup := &models.Room{Code: "123456", HostID: "other", GameState: models.GameState{Status: models.RoomStatusLobby, TotalRounds: 5, Category: "all"}, LastActivity: base}
		assert.ErrorIs(t, repos.Room.Create(ctx, dup), ErrDuplicate)

		found, err := repos.Room.FindByCode(ctx, "123456")
		require.NoError(t, err)
		assert.Equal(t, room.ID, found.ID)
		assert.Equal(t, models.RoomStatusLobby, found.GameState.Status)

		_, err = repos.Room.FindByID(ctx, uuid.NewString())
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repos.Room.FindByCode(ctx, "654321")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	var players []*models.Player
	t.Run("players", func(t *testing.T) {
		for i, name := range []string{"A", "B", "C"} {
			p := &models.Player{RoomID: room.ID, UserID: "user-" + name, Username: name, IsHost: i == 0, JoinedAt: base.Add(time.Duration(i) * time.Second)}
			require.NoError(t, repos.Player.Create(ctx, p))
			players = append(players, p)
		}

		dup := &models.Player{RoomID: room.ID, UserID: "user-A", Username: "again", JoinedAt: base}
		assert.ErrorIs(t, repos.Player.Create(ctx, dup), ErrDuplicate)

		list, err := repos.Player.ListByRoom(ctx, room.ID)
		require.NoError(t, err)
		require.Len(t, list, 3)
		for i := range list {
			assert.Equal(t, players[i].ID, list[i].ID)
		}

		require.NoError(t, repos.Player.IncrementScore(ctx, players[1].ID, 10))
		require.NoError(t, repos.Player.IncrementScore(ctx, players[1].ID, 5))
		got, err := repos.Player.FindByID(ctx, players[1].ID)
		require.NoError(t, err)
		assert.Equal(t, 15, got.Score)

		require.NoError(t, repos.Player.ResetScores(ctx, room.ID))
		got, err = repos.Player.FindByRoomAndUser(ctx, room.ID, "user-B")
		require.NoError(t, err)
		assert.Zero(t, got.Score)
	})

	t.Run("soft delete", func(t *testing.T) {
		require.NoError(t, repos.Player.Delete(ctx, players[1].ID))

		_, err := repos.Player.FindByID(ctx, players[1].ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repos.Player.FindByRoomAndUser(ctx, room.ID, "user-B")
		assert.ErrorIs(t, err, ErrNotFound)

		departed, err := repos.Player.FindByIDUnscoped(ctx, players[1].ID)
		require.NoError(t, err)
		assert.Equal(t, "B", departed.Username)

		list, err := repos.Player.ListByRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)

		back := &models.Player{RoomID: room.ID, UserID: "user-B", Username: "B", JoinedAt: base.Add(time.Minute)}
		require.NoError(t, repos.Player.Create(ctx, back))
		assert.NotEqual(t, players[1].ID, back.ID)
	})

	t.Run("conditional game state update", func(t *testing.T) {
		artist := players[0].ID
		playing := models.GameState{Status: models.RoomStatusPlaying, CurrentRound: 1, TotalRounds: 5, Category: "animals", ArtistID: &artist}

		ok, err := repos.Room.UpdateGameState(ctx, room.ID, models.GameStateGuard{Status: models.RoomStatusPlaying}, playing, base)
		require.NoError(t, err)
		assert.False(t, ok, "guard does not match")

		ok, err = repos.Room.UpdateGameState(ctx, room.ID, models.GameStateGuard{Status: models.RoomStatusLobby}, playing, base)
		require.NoError(t, err)
		assert.True(t, ok)

		one, two := 1, 2
		ok, err = repos.Room.UpdateGameState(ctx, room.ID, models.GameStateGuard{Status: models.RoomStatusPlaying, CurrentRound: &two}, playing, base)
		require.NoError(t, err)
		assert.False(t, ok, "stale round")

		next := playing
		next.CurrentRound = 2
		ok, err = repos.Room.UpdateGameState(ctx, room.ID, models.GameStateGuard{Status: models.RoomStatusPlaying, CurrentRound: &one}, next, base)
		require.NoError(t, err)
		assert.True(t, ok)

		found, err := repos.Room.FindByID(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, found.GameState.CurrentRound)

		playingRooms, err := repos.Room.ListByStatus(ctx, models.RoomStatusPlaying)
		require.NoError(t, err)
		assert.Contains(t, roomIDs(playingRooms), room.ID)
		lobbyRooms, err := repos.Room.ListByStatus(ctx, models.RoomStatusLobby)
		require.NoError(t, err)
		assert.NotContains(t, roomIDs(lobbyRooms), room.ID)
		require.NotNil(t, found.GameState.ArtistID)
		assert.Equal(t, artist, *found.GameState.ArtistID)
	})

	t.Run("rounds", func(t *testing.T) {
		first := &models.Round{RoomID: room.ID, Number: 1, ArtistID: players[0].ID, SecretWord: "Cat", StartedAt: base}
		require.NoError(t, repos.Round.Create(ctx, first))

		second := &models.Round{RoomID: room.ID, Number: 2, ArtistID: players[2].ID, SecretWord: "Dog", StartedAt: base}
		assert.ErrorIs(t, repos.Round.Create(ctx, second), ErrDuplicate, "one open round per room")

		open, err := repos.Round.FindOpenByRoom(ctx, room.ID)
		require.NoError(t, err)
		assert.Equal(t, first.ID, open.ID)
		assert.Equal(t, "Cat", open.SecretWord)

		guesser := players[2].ID
		ok, err := repos.Round.Close(ctx, first.ID, &guesser, base.Add(time.Second))
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = repos.Round.Close(ctx, first.ID, nil, base.Add(2*time.Second))
		require.NoError(t, err)
		assert.False(t, ok, "first writer wins")

		closed, err := repos.Round.FindByID(ctx, first.ID)
		require.NoError(t, err)
		require.NotNil(t, closed.EndedAt)
		require.NotNil(t, closed.CorrectGuesserID)
		assert.Equal(t, guesser, *closed.CorrectGuesserID)

		_, err = repos.Round.FindOpenByRoom(ctx, room.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		second.ID = ""
		require.NoError(t, repos.Round.Create(ctx, second))

		open2, err := repos.Round.ListOpen(ctx)
		require.NoError(t, err)
		assert.Contains(t, roundIDs(open2), second.ID)
		assert.NotContains(t, roundIDs(open2), first.ID)

		require.NoError(t, repos.Round.DeleteByRoom(ctx, room.ID))
		_, err = repos.Round.FindByID(ctx, first.ID)
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = repos.Round.FindByID(ctx, second.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("users", func(t *testing.T) {
		user := &models.User{Username: "alice", Password: "hash"}
		require.NoError(t, repos.User.Create(ctx, user))
		assert.ErrorIs(t, repos.User.Create(ctx, &models.User{Username: "alice", Password: "x"}), ErrDuplicate)

		found, err := repos.User.FindByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, user.ID, found.ID)
		_, err = repos.User.FindByUsername(ctx, "bob")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func roomIDs(rooms []models.Room) []string {
	ids := make([]string, 0, len(rooms))
	for _, r := range rooms {
		ids = append(ids, r.ID)
	}
	return ids
}

func roundIDs(rounds []models.Round) []string {
	ids := make([]string, 0, len(rounds))
	for _, r := range rounds {
		ids = append(ids, r.ID)
	}
	return ids
}
