package services

import (
	"clinic_flow_app_go/models"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

const (
	// BcryptCost is the cost factor for bcrypt hashing
	BcryptCost = 10
	// SessionTokenLength is the length of the session token in bytes (64 chars hex)
	SessionTokenLength = 32
	// DefaultSessionDuration is the default session duration (7 days)
	DefaultSessionDuration = 7 * 24 * time.Hour
)

// dummyHash is compared against when the email is unknown so login timing
// does not reveal which accounts exist.
var dummyHash, _ = HashPassword("dummy-password-for-timing")

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), BcryptCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword verifies a password against a hash
func CheckPassword(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// GenerateSessionToken generates a cryptographically secure random token
func GenerateSessionToken() (string, error) {
	bytes := make([]byte, SessionTokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}

// Login authenticates a clinician by email and password and opens a
// session. Unknown emails burn a bcrypt comparison anyway.
func Login(db *gorm.DB, email, password, ipAddress, userAgent string) (*models.Session, *models.Clinician, error) {
	var clinician models.Clinician
	err := db.Where("email = ? AND is_active = ?", email, true).First(&clinician).Error
	if err != nil {
		CheckPassword(password, dummyHash)
		return nil, nil, &NotAuthorizedError{Rule: "login:invalid_credentials"}
	}

	if !CheckPassword(password, clinician.PasswordHash) {
		return nil, nil, &NotAuthorizedError{Rule: "login:invalid_credentials"}
	}

	session, err := CreateSession(db, clinician.ID, ipAddress, userAgent)
	if err != nil {
		return nil, nil, err
	}

	EmitAudit(db, &clinician.ID, clinician.Role, models.AuditLogin, nil, map[string]interface{}{
		"ip": ipAddress,
	})
	return session, &clinician, nil
}

// Logout closes the session belonging to the token
func Logout(db *gorm.DB, actor *models.Clinician, token string) error {
	if err := DeleteSession(db, token); err != nil {
		return err
	}
	auditActor(db, actor, models.AuditLogout, nil, nil)
	return nil
}

// CreateSession creates a new session for a clinician
func CreateSession(db *gorm.DB, clinicianID uint, ipAddress, userAgent string) (*models.Session, error) {
	token, err := GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	session := &models.Session{
		ID:          uuid.New().String(),
		ClinicianID: clinicianID,
		Token:       token,
		ExpiresAt:   time.Now().Add(DefaultSessionDuration),
		IPAddress:   ipAddress,
		UserAgent:   userAgent,
	}

	if err := db.Create(session).Error; err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// ValidateSession validates a session token and returns the session if valid
func ValidateSession(db *gorm.DB, token string) (*models.Session, error) {
	var session models.Session
	err := db.Preload("Clinician").
		Where("token = ?", token).
		First(&session).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, fmt.Errorf("session not found")
		}
		return nil, fmt.Errorf("failed to validate session: %w", err)
	}

	if session.IsExpired() {
		db.Delete(&session)
		return nil, fmt.Errorf("session expired")
	}
	return &session, nil
}

// DeleteSession deletes a session (logout)
func DeleteSession(db *gorm.DB, token string) error {
	result := db.Where("token = ?", token).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete session: %w", result.Error)
	}
	return nil
}

// CleanupExpiredSessions removes all expired sessions from the database
func CleanupExpiredSessions(db *gorm.DB) error {
	result := db.Where("expires_at < ?", time.Now()).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to cleanup expired sessions: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		log.Printf("Cleaned up %d expired sessions", result.RowsAffected)
	}
	return nil
}

// DeleteAllClinicianSessions deletes every session of one clinician,
// used after a password change.
func DeleteAllClinicianSessions(db *gorm.DB, clinicianID uint) error {
	result := db.Where("clinician_id = ?", clinicianID).Delete(&models.Session{})
	if result.Error != nil {
		return fmt.Errorf("failed to delete clinician sessions: %w", result.Error)
	}
	return nil
}
