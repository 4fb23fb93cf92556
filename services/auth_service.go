package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bgmi-arena/arena-backend/models"
	"github.com/bgmi-arena/arena-backend/repositories"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

const (
	minPasswordLength = 8
	tokenLifetime     = 24 * time.Hour
)

// Claims carried in the bearer token.
type Claims struct {
	PlayerID string `json:"player_id"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type AuthService struct {
	players   repositories.PlayerRepository
	secretKey []byte
}

func NewAuthService(players repositories.PlayerRepository, secretKey string) *AuthService {
	return &AuthService{players: players, secretKey: []byte(secretKey)}
}

type RegisterInput struct {
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
}

// Register creates a player account with a fresh profile id and a zero
// balance, and returns a signed token.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*models.Player, string, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, "", fmt.Errorf("%w: valid email is required", ErrValidationFailed)
	}
	if strings.TrimSpace(input.DisplayName) == "" {
		return nil, "", fmt.Errorf("%w: display name is required", ErrValidationFailed)
	}
	if len(input.Password) < minPasswordLength {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, "", fmt.Errorf("failed to hash password: %w", err)
	}

	player := &models.Player{
		ID:           uuid.NewString(),
		DisplayName:  strings.TrimSpace(input.DisplayName),
		Email:        email,
		PasswordHash: string(hash),
		Role:         "player",
	}
	if err := s.players.Create(ctx, player); err != nil {
		if errors.Is(err, repositories.ErrPlayerEmailConflict) {
			return nil, "", ErrEmailTaken
		}
		return nil, "", err
	}

	token, err := s.issueToken(player)
	if err != nil {
		return nil, "", err
	}
	return player, token, nil
}

// Login verifies credentials and returns a signed token.
func (s *AuthService) Login(ctx context.Context, creds models.Credentials) (*models.Player, string, error) {
	player, err := s.players.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(creds.Email)))
	if err != nil {
		if errors.Is(err, repositories.ErrPlayerNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(player.PasswordHash), []byte(creds.Password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}
	if !player.Active {
		return nil, "", ErrAccountDisabled
	}

	token, err := s.issueToken(player)
	if err != nil {
		return nil, "", err
	}
	return player, token, nil
}

// ParseToken validates a bearer token and returns its claims.
func (s *AuthService) ParseToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return s.secretKey, nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalidCredentials
	}
	return claims, nil
}

func (s *AuthService) issueToken(player *models.Player) (string, error) {
	now := time.Now()
	claims := Claims{
		PlayerID: player.ID,
		Role:     player.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   player.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(tokenLifetime)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secretKey)
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}
	return signed, nil
}
