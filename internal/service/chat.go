package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"sketch_club/internal/protocol"
	"sketch_club/internal/repository"
)

const maxMessageLength = 200

type ChatService struct {
	*deps
	rounds *RoundService
}

// Send 先把訊息當成猜題送給判定端；猜中的訊息不會以文字廣播
func (s *ChatService) Send(ctx context.Context, roomID, userID, text string) error {
	if userID == "" {
		return ErrUnauthorized
	}
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < 1 || n > maxMessageLength {
		return ErrInvalidMessage
	}

	player, err := s.repos.Player.FindByRoomAndUser(ctx, roomID, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return ErrForbidden
	}
	if err != nil {
		return fmt.Errorf("find player: %w", err)
	}

	round, err := s.repos.Round.FindOpenByRoom(ctx, roomID)
	switch {
	case err == nil:
		if round.ArtistID == player.ID {
			return ErrForbidden
		}
		res, err := s.rounds.SubmitGuess(ctx, round.ID, text, userID, player.ID)
		if err != nil {
			// 判定失敗時當作一般聊天訊息
			log.Debug().Err(err).Str("round_id", round.ID).Msg("guess evaluation failed")
		} else if res.Correct {
			return nil
		}
	case !errors.Is(err, repository.ErrNotFound):
		return fmt.Errorf("find open round: %w", err)
	}

	s.broadcast(roomID, protocol.ChatMessage{
		ID:        uuid.NewString(),
		PlayerID:  player.ID,
		Username:  player.Username,
		Message:   text,
		Timestamp: s.now().UnixMilli(),
	})
	return nil
}
