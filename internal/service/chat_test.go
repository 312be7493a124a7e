package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sketch_club/internal/protocol"
	"sketch_club/internal/realtime"
)

func TestChatInLobbyIsBroadcast(t *testing.T) {
	f := newFixture(t)
	room, p := f.room("A", "B")

	require.NoError(t, f.svc.Chat.Send(f.ctx, room.ID, "user-B", "  hello  "))

	chats := f.hub.events(protocol.EventChat)
	require.Len(t, chats, 1)
	assert.Equal(t, realtime.RoomChannel(room.ID), chats[0].channel)
	msg := chats[0].ev.(protocol.ChatMessage)
	assert.Equal(t, "hello", msg.Message)
	assert.Equal(t, p[1].ID, msg.PlayerID)
	assert.Equal(t, "B", msg.Username)
	assert.NotEmpty(t, msg.ID)
	assert.Equal(t, f.clock.Now().UnixMilli(), msg.Timestamp)
}

func TestChatValidation(t *testing.T) {
	f := newFixture(t)
	room, _ := f.room("A", "B")

	assert.ErrorIs(t, f.svc.Chat.Send(f.ctx, room.ID, "user-B", "   "), ErrInvalidMessage)
	assert.ErrorIs(t, f.svc.Chat.Send(f.ctx, room.ID, "user-B", strings.Repeat("a", 201)), ErrInvalidMessage)
	assert.NoError(t, f.svc.Chat.Send(f.ctx, room.ID, "user-B", strings.Repeat("a", 200)))
	assert.ErrorIs(t, f.svc.Chat.Send(f.ctx, room.ID, "user-stranger", "hi"), ErrForbidden)
	assert.ErrorIs(t, f.svc.Chat.Send(f.ctx, room.ID, "", "hi"), ErrUnauthorized)
}

func TestChatAsGuess(t *testing.T) {
	f := newFixture(t)
	room, p := f.room("A", "B", "C")
	round := f.start(room, "animals")

	assert.ErrorIs(t, f.svc.Chat.Send(f.ctx, room.ID, "user-A", "it's a cat"), ErrForbidden, "artist cannot chat")

	require.NoError(t, f.svc.Chat.Send(f.ctx, room.ID, "user-C", "dog?"))
	chats := f.hub.events(protocol.EventChat)
	require.Len(t, chats, 1)
	assert.Equal(t, "dog?", chats[0].ev.(protocol.ChatMessage).Message)

	require.NoError(t, f.svc.Chat.Send(f.ctx, room.ID, "user-B", " CAT "))
	assert.Len(t, f.hub.events(protocol.EventChat), 1, "correct guess is never broadcast as text")
	assert.Len(t, f.hub.events(protocol.EventCorrectGuess), 1)

	closed := f.reloadRound(round.ID)
	require.NotNil(t, closed.CorrectGuesserID)
	assert.Equal(t, p[1].ID, *closed.CorrectGuesserID)

	// 回合結束後，再說出答案只是一般聊天
	require.NoError(t, f.svc.Chat.Send(f.ctx, room.ID, "user-C", "cat"))
	assert.Len(t, f.hub.events(protocol.EventChat), 2)
	assert.Equal(t, map[string]int{"A": 5, "B": 10, "C": 0}, f.scores(room.ID))
}
