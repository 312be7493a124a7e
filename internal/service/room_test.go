package service

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketch_club/internal/models"
	"sketch_club/internal/protocol"
	"sketch_club/internal/repository"
	"sketch_club/internal/words"
)

func TestRandomRoomCode(t *testing.T) {
	pattern := regexp.MustCompile(`^[1-9][0-9]{5}$`)
	for i := 0; i < 200; i++ {
		assert.Regexp(t, pattern, RandomRoomCode())
	}
}

func TestCreateRoom(t *testing.T) {
	f := newFixture(t)

	room, host, err := f.svc.Room.CreateRoom(f.ctx, "user-1", "  Alice ")
	require.NoError(t, err)

	assert.Len(t, room.Code, 6)
	assert.Equal(t, models.RoomStatusLobby, room.GameState.Status)
	assert.Equal(t, 0, room.GameState.CurrentRound)
	assert.Equal(t, 5, room.GameState.TotalRounds)
	assert.Equal(t, words.CategoryAll, room.GameState.Category)
	assert.Nil(t, room.GameState.ArtistID)

	assert.Equal(t, "Alice", host.Username)
	assert.True(t, host.IsHost)
	assert.Zero(t, host.Score)
	assert.Equal(t, room.ID, host.RoomID)

	assert.Len(t, f.hub.rowChanges(protocol.TableRooms), 1)
	players := f.hub.rowChanges(protocol.TablePlayers)
	require.Len(t, players, 1)
	assert.Equal(t, protocol.RowInsert, players[0].Op)
	assert.Equal(t, room.ID, players[0].Match["room_id"])
}

func TestCreateRoomRetriesOnCodeCollision(t *testing.T) {
	codes := []string{"111111", "111111", "222222"}
	f := newFixture(t, func(o *Options) {
		o.CodeGen = func() string {
			code := codes[0]
			codes = codes[1:]
			return code
		}
	})

	first, _, err := f.svc.Room.CreateRoom(f.ctx, "user-1", "Alice")
	require.NoError(t, err)
	second, _, err := f.svc.Room.CreateRoom(f.ctx, "user-2", "Bob")
	require.NoError(t, err)

	assert.Equal(t, "111111", first.Code)
	assert.Equal(t, "222222", second.Code)
}

func TestCreateRoomGivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t, func(o *Options) {
		o.CodeGen = func() string { return "333333" }
	})

	_, _, err := f.svc.Room.CreateRoom(f.ctx, "user-1", "Alice")
	require.NoError(t, err)
	_, _, err = f.svc.Room.CreateRoom(f.ctx, "user-2", "Bob")
	assert.ErrorIs(t, err, ErrCodeExhausted)
}

func TestCreateRoomValidatesUsername(t *testing.T) {
	f := newFixture(t)

	for _, name := range []string{"", "   ", strings.Repeat("x", 21)} {
		_, _, err := f.svc.Room.CreateRoom(f.ctx, "user-1", name)
		assert.ErrorIs(t, err, ErrInvalidUsername, "username %q", name)
	}

	_, host, err := f.svc.Room.CreateRoom(f.ctx, "user-1", strings.Repeat("畫", 20))
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("畫", 20), host.Username)

	_, _, err = f.svc.Room.CreateRoom(f.ctx, "", "Alice")
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestJoinRoom(t *testing.T) {
	f := newFixture(t)
	room, players := f.room("Alice")

	_, _, err := f.svc.Room.JoinRoom(f.ctx, "abc", "user-Bob", "Bob")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.Room.JoinRoom(f.ctx, "999999", "user-Bob", "Bob")
	assert.ErrorIs(t, err, ErrNotFound)

	joined, bob, err := f.svc.Room.JoinRoom(f.ctx, room.Code, "user-Bob", "Bob")
	require.NoError(t, err)
	assert.Equal(t, room.ID, joined.ID)
	assert.False(t, bob.IsHost)
	assert.NotEqual(t, players[0].ID, bob.ID)

	t.Run("rejoin returns the existing player unchanged", func(t *testing.T) {
		_, again, err := f.svc.Room.JoinRoom(f.ctx, room.Code, "user-Bob", "Robert")
		require.NoError(t, err)
		assert.Equal(t, bob.ID, again.ID)
		assert.Equal(t, "Bob", again.Username)

		list, err := f.repos.Player.ListByRoom(f.ctx, room.ID)
		require.NoError(t, err)
		assert.Len(t, list, 2)
	})

	t.Run("host rejoin keeps host flag", func(t *testing.T) {
		_, again, err := f.svc.Room.JoinRoom(f.ctx, room.Code, "user-Alice", "Alice")
		require.NoError(t, err)
		assert.Equal(t, players[0].ID, again.ID)
		assert.True(t, again.IsHost)
	})
}

func TestStartGameRequiresTwoPlayers(t *testing.T) {
	f := newFixture(t)
	categories := append(f.svc.Room.catalog.Categories(), "unknown")

	for _, category := range categories {
		t.Run(category, func(t *testing.T) {
			room, _ := f.room("Solo")
			_, err := f.svc.Room.StartGame(f.ctx, room.ID, room.HostID, category)
			assert.ErrorIs(t, err, ErrInsufficientPlayers)
			assert.Equal(t, models.RoomStatusLobby, f.reloadRoom(room.ID).GameState.Status)
		})
	}
}

func TestStartGameForbidden(t *testing.T) {
	f := newFixture(t)
	room, _ := f.room("Alice", "Bob")

	_, err := f.svc.Room.StartGame(f.ctx, room.ID, "user-Bob", "animals")
	assert.ErrorIs(t, err, ErrForbidden, "non-host")

	_, err = f.svc.Room.StartGame(f.ctx, room.ID, "user-stranger", "animals")
	assert.ErrorIs(t, err, ErrForbidden, "non-member")

	f.start(room, "animals")
	_, err = f.svc.Room.StartGame(f.ctx, room.ID, room.HostID, "animals")
	assert.ErrorIs(t, err, ErrForbidden, "already playing")

	_, err = f.svc.Room.StartGame(f.ctx, "missing", room.HostID, "animals")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestStartGame(t *testing.T) {
	f := newFixture(t)
	room, players := f.room("Alice", "Bob", "Carol")

	round := f.start(room, "animals")

	assert.Equal(t, 1, round.Number)
	assert.Equal(t, players[0].ID, round.ArtistID)
	assert.Equal(t, "Cat", round.SecretWord)
	assert.True(t, round.Open())

	state := f.reloadRoom(room.ID).GameState
	assert.Equal(t, models.RoomStatusPlaying, state.Status)
	assert.Equal(t, 1, state.CurrentRound)
	assert.Equal(t, 5, state.TotalRounds)
	assert.Equal(t, "animals", state.Category)
	require.NotNil(t, state.ArtistID)
	assert.Equal(t, players[0].ID, *state.ArtistID)

	next := f.hub.events(protocol.EventNextRound)
	require.Len(t, next, 1)
	assert.Equal(t, protocol.NextRound{RoundID: round.ID, RoundNum: 1, ArtistID: players[0].ID}, next[0].ev)

	secret := f.hub.events(protocol.EventSecretWord)
	require.Len(t, secret, 1)
	assert.Equal(t, "user-Alice", secret[0].userID)
	assert.Equal(t, "Cat", secret[0].ev.(protocol.SecretWord).Word)

	for _, change := range f.hub.rowChanges(protocol.TableRounds) {
		assert.NotContains(t, string(change.Record), "Cat")
	}
	assert.Equal(t, 1, f.sched.pending(watchdogDelay))
}

func TestStartGameUnknownCategoryFallsBackToAll(t *testing.T) {
	f := newFixture(t)
	room, _ := f.room("Alice", "Bob")

	f.start(room, "spaceships")
	assert.Equal(t, words.CategoryAll, f.reloadRoom(room.ID).GameState.Category)
}

func TestSnapshotRevealsWordOnlyToArtist(t *testing.T) {
	f := newFixture(t)
	room, players := f.room("Alice", "Bob")
	round := f.start(room, "animals")

	snap, err := f.svc.Room.Snapshot(f.ctx, room.Code, "user-Alice")
	require.NoError(t, err)
	assert.Equal(t, "Cat", snap.SecretWord)
	require.NotNil(t, snap.Round)
	assert.Equal(t, round.ID, snap.Round.ID)
	require.NotNil(t, snap.Me)
	assert.Equal(t, players[0].ID, snap.Me.ID)
	require.Len(t, snap.Players, 2)
	assert.Equal(t, players[0].ID, snap.Players[0].ID)

	snap, err = f.svc.Room.Snapshot(f.ctx, room.Code, "user-Bob")
	require.NoError(t, err)
	assert.Empty(t, snap.SecretWord)

	snap, err = f.svc.Room.Snapshot(f.ctx, room.Code, "user-stranger")
	require.NoError(t, err)
	assert.Empty(t, snap.SecretWord)
	assert.Nil(t, snap.Me)
}

func TestLeaveRoom(t *testing.T) {
	f := newFixture(t)
	room, players := f.room("Alice", "Bob")

	require.NoError(t, f.svc.Room.LeaveRoom(f.ctx, room.ID, "user-Alice"))
	require.NoError(t, f.svc.Room.LeaveRoom(f.ctx, room.ID, "user-Alice"))

	list, err := f.repos.Player.ListByRoom(f.ctx, room.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, players[1].ID, list[0].ID)
	assert.False(t, list[0].IsHost, "host is never transferred")

	reloaded := f.reloadRoom(room.ID)
	assert.Equal(t, "user-Alice", reloaded.HostID)
	assert.Equal(t, models.RoomStatusLobby, reloaded.GameState.Status)

	changes := f.hub.rowChanges(protocol.TablePlayers)
	last := changes[len(changes)-1]
	assert.Equal(t, protocol.RowDelete, last.Op)

	_, err = f.repos.Player.FindByRoomAndUser(f.ctx, room.ID, "user-Alice")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	t.Run("rejoin after leaving creates a fresh player", func(t *testing.T) {
		_, again, err := f.svc.Room.JoinRoom(f.ctx, room.Code, "user-Alice", "Alice")
		require.NoError(t, err)
		assert.NotEqual(t, players[0].ID, again.ID)
		assert.False(t, again.IsHost)
	})
}

func TestPlayAgain(t *testing.T) {
	f := newFixture(t, func(o *Options) { o.Game.TotalRounds = 1 })
	room, _ := f.room("Alice", "Bob")
	round := f.start(room, "food")

	_, err := f.svc.Room.PlayAgain(f.ctx, room.ID, room.HostID)
	assert.ErrorIs(t, err, ErrForbidden, "still playing")

	res, err := f.svc.Round.SubmitGuess(f.ctx, round.ID, "ice cream", "user-Bob", "")
	require.NoError(t, err)
	require.True(t, res.Correct)
	require.Equal(t, 1, f.sched.fire(advanceDelay))
	require.Equal(t, models.RoomStatusGameOver, f.reloadRoom(room.ID).GameState.Status)
	require.Len(t, f.hub.events(protocol.EventGameOver), 1)

	_, err = f.svc.Room.PlayAgain(f.ctx, room.ID, "user-Bob")
	assert.ErrorIs(t, err, ErrForbidden, "non-host")

	reset, err := f.svc.Room.PlayAgain(f.ctx, room.ID, room.HostID)
	require.NoError(t, err)
	assert.Equal(t, room.Code, reset.Code)
	assert.Equal(t, models.RoomStatusLobby, reset.GameState.Status)
	assert.Equal(t, 0, reset.GameState.CurrentRound)
	assert.Equal(t, "food", reset.GameState.Category)
	assert.Nil(t, reset.GameState.ArtistID)
	assert.Equal(t, map[string]int{"Alice": 0, "Bob": 0}, f.scores(room.ID))

	_, err = f.repos.Round.FindByID(f.ctx, round.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound, "round history is gone")

	again, err := f.svc.Room.PlayAgain(f.ctx, room.ID, room.HostID)
	require.NoError(t, err)
	assert.Equal(t, models.RoomStatusLobby, again.GameState.Status)

	next := f.start(reset, "food")
	assert.Equal(t, 1, next.Number)
}
