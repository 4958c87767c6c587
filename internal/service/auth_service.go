package service

import (
	"context"
	"time"

	"dukapos/internal/apperr"
	"dukapos/internal/config"
	"dukapos/internal/dto"
	"dukapos/internal/middleware"
	"dukapos/internal/repository"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type AuthService interface {
	Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error)
}

type authService struct {
	repo repository.CashierRepository
	cfg  *config.Config
}

func NewAuthService(repo repository.CashierRepository, cfg *config.Config) AuthService {
	return &authService{repo: repo, cfg: cfg}
}

func (s *authService) Login(ctx context.Context, req dto.LoginRequest) (*dto.LoginResponse, error) {
	cashier, err := s.repo.FindByUsername(ctx, req.Username)
	if err != nil {
		// Same message for unknown user and bad password.
		return nil, apperr.Validation("invalid credentials")
	}
	if bcrypt.CompareHashAndPassword([]byte(cashier.PasswordHash), []byte(req.Password)) != nil {
		return nil, apperr.Validation("invalid credentials")
	}

	expires := time.Duration(s.cfg.JWTExpirationHours) * time.Hour
	claims := middleware.JWTClaims{
		UserID:   cashier.ID.String(),
		Username: cashier.Username,
		Role:     cashier.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(expires)),
			Subject:   cashier.ID.String(),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(s.cfg.JWTSecret))
	if err != nil {
		return nil, err
	}

	return &dto.LoginResponse{
		Token:     signed,
		ExpiresIn: int(expires.Seconds()),
		CashierID: cashier.ID.String(),
		FullName:  cashier.FullName,
		Role:      cashier.Role,
	}, nil
}
