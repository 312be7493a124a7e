package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"sketch_club/internal/models"
	"sketch_club/internal/repository"
	"sketch_club/internal/utils"
)

// Identity 是簽發給客戶端的身分
type Identity struct {
	UserID    string `json:"user_id"`
	Username  string `json:"username,omitempty"`
	Anonymous bool   `json:"anonymous"`
	Token     string `json:"token"`
}

type UserService struct {
	userRepo repository.UserRepository
	tokens   *utils.TokenManager
}

func NewUserService(userRepo repository.UserRepository, tokens *utils.TokenManager) *UserService {
	return &UserService{userRepo: userRepo, tokens: tokens}
}

// Register 建立具名帳號，密碼以 bcrypt 儲存
func (s *UserService) Register(ctx context.Context, username, password string) (*models.User, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{Username: username, Password: string(hashed)}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrUsernameTaken
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

func (s *UserService) Login(ctx context.Context, username, password string) (*Identity, error) {
	user, err := s.userRepo.FindByUsername(ctx, strings.TrimSpace(username))
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	return s.issue(user.ID, user.Username, false)
}

// Anonymous 簽發一個新的匿名身分；不寫入 users 表
func (s *UserService) Anonymous(ctx context.Context) (*Identity, error) {
	return s.issue(uuid.NewString(), "", true)
}

func (s *UserService) issue(userID, username string, anonymous bool) (*Identity, error) {
	token, err := s.tokens.GenerateToken(userID, username, anonymous)
	if err != nil {
		return nil, fmt.Errorf("generate token: %w", err)
	}
	return &Identity{UserID: userID, Username: username, Anonymous: anonymous, Token: token}, nil
}
