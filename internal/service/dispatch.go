package service

import (
	"context"

	"sketch_club/internal/protocol"
	"sketch_club/internal/realtime"
)

// HandleClientEvent 實作 realtime.Dispatcher，處理連線上由客戶端送來的事件
func (s *Services) HandleClientEvent(ctx context.Context, id realtime.Identity, ev protocol.Event) error {
	switch e := ev.(type) {
	case protocol.ChatMessage:
		return s.Chat.Send(ctx, id.RoomID, id.UserID, e.Message)
	case protocol.Stroke:
		return s.Drawing.RelayStroke(ctx, id.RoomID, id.UserID, e)
	case protocol.ClearCanvas:
		return s.Drawing.Clear(ctx, id.RoomID, id.UserID)
	case protocol.RoundTimeout:
		return s.Round.HandleTimeout(ctx, e.RoundID, id.UserID)
	default:
		return ErrUnsupportedEvent
	}
}
