package services

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
	"trialguard-api/internal/config"
	"trialguard-api/internal/database"
	"trialguard-api/internal/models"

	"gorm.io/gorm"
)

// SessionService validates session tokens issued by the upstream account
// system. The trial record path is gated on a recognized session; no
// credential verification happens here.
type SessionService struct {
	db *gorm.DB
}

// NewSessionService creates a new session service
func NewSessionService() *SessionService {
	return &SessionService{
		db: database.GetDB(),
	}
}

// CreateSession mints a session token for a user
func (s *SessionService) CreateSession(userID string) (*models.UserSession, error) {
	token, err := generateSessionToken()
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}

	session := &models.UserSession{
		Token:     token,
		UserID:    userID,
		ExpiresAt: time.Now().Add(time.Duration(config.AppConfig.SessionExpireHours) * time.Hour),
	}
	if err := s.db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}

	return session, nil
}

// ValidateSession resolves a token to its user, rejecting expired sessions
func (s *SessionService) ValidateSession(token string) (string, bool) {
	var session models.UserSession
	err := s.db.Where("token = ? AND expires_at > ?", token, time.Now()).First(&session).Error
	if err != nil {
		return "", false
	}
	return session.UserID, true
}

// generateSessionToken generates a 32-byte random token, hex encoded
func generateSessionToken() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
