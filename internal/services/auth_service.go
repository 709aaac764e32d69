package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/mertokas/tasknest-backend/internal/dto"
	"github.com/mertokas/tasknest-backend/internal/models"
	"github.com/mertokas/tasknest-backend/internal/token"
	"gorm.io/gorm"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrInvalidToken       = errors.New("invalid or expired refresh token")
	ErrTokenMismatch      = errors.New("refresh token does not match")
)

// AuthService orchestrates registration, login, token refresh and logout.
// Each user has a single refresh-token slot; every successful register,
// login or refresh rotates it, invalidating whatever was there before.
type AuthService struct {
	db     *gorm.DB
	tokens *token.Service
	hasher *PasswordHasher
}

func NewAuthService(db *gorm.DB, tokens *token.Service, hasher *PasswordHasher) *AuthService {
	return &AuthService{db: db, tokens: tokens, hasher: hasher}
}

func (s *AuthService) Register(req *dto.RegisterRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var existing models.User
	if err := s.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return nil, ErrEmailTaken
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}

	user := models.User{
		ID:       uuid.New(),
		Name:     req.Name,
		Email:    email,
		Password: hash,
	}

	if err := s.db.Create(&user).Error; err != nil {
		// Unique index on email backstops the pre-check under
		// concurrent registration.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	accessToken, refreshToken, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	if err := s.db.Model(&user).Update("refresh_token", refreshToken).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.AuthResponse{
		Message:      "User registered successfully",
		User:         dto.NewUserResponse(&user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) Login(req *dto.LoginRequest) (*dto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	var user models.User
	if err := s.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if !s.hasher.Verify(req.Password, user.Password) {
		return nil, ErrInvalidCredentials
	}

	accessToken, refreshToken, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Overwrites any previously stored refresh token, ending that session.
	if err := s.db.Model(&user).Update("refresh_token", refreshToken).Error; err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &dto.AuthResponse{
		Message:      "Login successful",
		User:         dto.NewUserResponse(&user),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *AuthService) Refresh(refreshToken string) (*dto.TokenPairResponse, error) {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return nil, ErrInvalidToken
	}

	var user models.User
	if err := s.db.First(&user, "id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			// Unknown user looks the same as a bad token.
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("failed to look up user: %w", err)
	}

	if user.RefreshToken == nil || *user.RefreshToken != refreshToken {
		return nil, ErrTokenMismatch
	}

	newAccess, newRefresh, err := s.issuePair(user.ID)
	if err != nil {
		return nil, err
	}

	// Conditional rotation: only replaces the slot while the presented
	// token is still the stored one, so a raced second refresh with the
	// same token loses.
	res := s.db.Model(&models.User{}).
		Where("id = ? AND refresh_token = ?", user.ID, refreshToken).
		Update("refresh_token", newRefresh)
	if res.Error != nil {
		return nil, fmt.Errorf("failed to rotate refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrTokenMismatch
	}

	return &dto.TokenPairResponse{
		Message:      "Token refreshed successfully",
		AccessToken:  newAccess,
		RefreshToken: newRefresh,
	}, nil
}

func (s *AuthService) Logout(refreshToken string) error {
	userID, err := s.tokens.VerifyRefreshToken(refreshToken)
	if err != nil {
		return ErrInvalidToken
	}

	// The decoded identity alone is enough: the slot is cleared whether or
	// not the presented token still matched it.
	res := s.db.Model(&models.User{}).
		Where("id = ?", userID).
		Update("refresh_token", nil)
	if res.Error != nil {
		return fmt.Errorf("failed to clear refresh token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrInvalidToken
	}
	return nil
}

func (s *AuthService) issuePair(userID uuid.UUID) (string, string, error) {
	accessToken, err := s.tokens.IssueAccessToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue access token: %w", err)
	}

	refreshToken, err := s.tokens.IssueRefreshToken(userID)
	if err != nil {
		return "", "", fmt.Errorf("failed to issue refresh token: %w", err)
	}

	return accessToken, refreshToken, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
