package service

import (
	"errors"
	"fmt"

	"sketch_club/internal/repository"
)

var (
	ErrNotFound            = errors.New("not found")
	ErrForbidden           = errors.New("forbidden")
	ErrInsufficientPlayers = errors.New("at least 2 players are needed to start")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrAlreadyClosed       = errors.New("round already closed")
	ErrRoundRunning        = errors.New("round is still running")

	ErrInvalidUsername    = errors.New("username must be 1-20 characters")
	ErrInvalidMessage     = errors.New("message must be 1-200 characters")
	ErrInvalidStroke      = errors.New("invalid stroke")
	ErrUnsupportedEvent   = errors.New("unsupported event")
	ErrCodeExhausted      = errors.New("could not allocate a room code")
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("invalid username or password")
)

// storeErr 把儲存層的 NotFound 轉成服務層錯誤，其餘錯誤加上操作名稱
func storeErr(op string, err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
