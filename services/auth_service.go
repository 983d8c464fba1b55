package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/Dosada05/judo-pairings/models"
	"github.com/Dosada05/judo-pairings/repositories"
	"github.com/Dosada05/judo-pairings/utils"
)

type AuthService interface {
	Login(ctx context.Context, input models.Credentials) (*models.Official, error)
	CreateOfficial(ctx context.Context, input CreateOfficialInput) (*models.Official, error)
}

type CreateOfficialInput struct {
	Email    string      `json:"email"`
	FullName string      `json:"full_name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

type authService struct {
	officialRepo repositories.OfficialRepository
	logger       *slog.Logger
}

func NewAuthService(officialRepo repositories.OfficialRepository, logger *slog.Logger) AuthService {
	if logger == nil {
		logger = slog.Default()
	}
	return &authService{
		officialRepo: officialRepo,
		logger:       logger,
	}
}

func (s *authService) Login(ctx context.Context, input models.Credentials) (*models.Official, error) {
	email := strings.TrimSpace(input.Email)
	if email == "" || input.Password == "" {
		return nil, ErrInvalidCredentials
	}

	official, err := s.officialRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repositories.ErrOfficialNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find official by email: %w", err)
	}

	if !utils.CheckPasswordHash(input.Password, official.PasswordHash) {
		s.logger.Warn("failed login attempt", slog.Int("official_id", official.ID))
		return nil, ErrInvalidCredentials
	}

	official.PasswordHash = ""
	return official, nil
}

func (s *authService) CreateOfficial(ctx context.Context, input CreateOfficialInput) (*models.Official, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.IsValidEmail(email) {
		return nil, fmt.Errorf("%w: invalid email %q", ErrValidationFailed, input.Email)
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return nil, fmt.Errorf("%w: full name is required", ErrValidationFailed)
	}
	if !input.Role.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidRole, input.Role)
	}
	if len(input.Password) < utils.MinPasswordLength {
		return nil, fmt.Errorf("%w: at least %d characters required", ErrPasswordTooShort, utils.MinPasswordLength)
	}

	hash, err := utils.HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("ошибка хеширования пароля: %w", err)
	}

	official := &models.Official{
		Email:        email,
		FullName:     fullName,
		Role:         input.Role,
		PasswordHash: hash,
	}
	if err := s.officialRepo.Create(ctx, official); err != nil {
		if errors.Is(err, repositories.ErrOfficialEmailConflict) {
			return nil, ErrOfficialEmailConflict
		}
		return nil, fmt.Errorf("ошибка создания учётной записи: %w", err)
	}

	s.logger.Info("official created", slog.Int("official_id", official.ID), slog.String("role", string(official.Role)))
	official.PasswordHash = ""
	return official, nil
}
