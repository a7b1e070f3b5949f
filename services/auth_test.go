package services

import (
	"clinic_flow_app_go/models"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupAuthTestDB() *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		panic("failed to connect database")
	}
	db.AutoMigrate(&models.Clinician{}, &models.Session{}, &models.AuditEvent{})
	return db
}

func createLoginClinician(db *gorm.DB, email, password string) *models.Clinician {
	hash, err := HashPassword(password)
	if err != nil {
		panic("failed to hash password")
	}
	clinician := &models.Clinician{
		Name:         "Dr. Login",
		Email:        email,
		PasswordHash: hash,
		Role:         string(models.RoleDoctor),
		IsActive:     true,
	}
	db.Create(clinician)
	return clinician
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("correct horse battery staple")
	assert.NoError(t, err)
	assert.NotEqual(t, "correct horse battery staple", hash)
	assert.True(t, CheckPassword("correct horse battery staple", hash))
	assert.False(t, CheckPassword("wrong password", hash))
}

func TestLogin(t *testing.T) {
	db := setupAuthTestDB()
	clinician := createLoginClinician(db, "doc@clinic.test", "s3cret-pass")

	t.Run("ValidCredentials", func(t *testing.T) {
		session, got, err := Login(db, "doc@clinic.test", "s3cret-pass", "127.0.0.1", "test-agent")
		assert.NoError(t, err)
		assert.Equal(t, clinician.ID, got.ID)
		assert.NotEmpty(t, session.Token)
		assert.True(t, session.ExpiresAt.After(time.Now()))
		assert.Equal(t, int64(1), auditCount(db, models.AuditLogin))
	})

	t.Run("WrongPassword", func(t *testing.T) {
		_, _, err := Login(db, "doc@clinic.test", "nope", "127.0.0.1", "test-agent")
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("UnknownEmail", func(t *testing.T) {
		_, _, err := Login(db, "ghost@clinic.test", "s3cret-pass", "127.0.0.1", "test-agent")
		assert.IsType(t, &NotAuthorizedError{}, err)
	})

	t.Run("InactiveAccountRejected", func(t *testing.T) {
		// Force IsActive to false because of the GORM default:true tag
		db.Model(clinician).Update("is_active", false)
		_, _, err := Login(db, "doc@clinic.test", "s3cret-pass", "127.0.0.1", "test-agent")
		assert.IsType(t, &NotAuthorizedError{}, err)
		db.Model(clinician).Update("is_active", true)
	})
}

func TestSessionLifecycle(t *testing.T) {
	db := setupAuthTestDB()
	clinician := createLoginClinician(db, "doc@clinic.test", "s3cret-pass")

	session, err := CreateSession(db, clinician.ID, "127.0.0.1", "test-agent")
	assert.NoError(t, err)

	t.Run("ValidateLoadsClinician", func(t *testing.T) {
		loaded, err := ValidateSession(db, session.Token)
		assert.NoError(t, err)
		assert.Equal(t, clinician.ID, loaded.Clinician.ID)
	})

	t.Run("UnknownTokenRejected", func(t *testing.T) {
		_, err := ValidateSession(db, "no-such-token")
		assert.Error(t, err)
	})

	t.Run("ExpiredSessionRemoved", func(t *testing.T) {
		db.Model(&models.Session{}).Where("token = ?", session.Token).
			Update("expires_at", time.Now().Add(-time.Hour))

		_, err := ValidateSession(db, session.Token)
		assert.Error(t, err)

		var count int64
		db.Model(&models.Session{}).Where("token = ?", session.Token).Count(&count)
		assert.Equal(t, int64(0), count)
	})

	t.Run("CleanupSweepsExpired", func(t *testing.T) {
		fresh, err := CreateSession(db, clinician.ID, "127.0.0.1", "test-agent")
		assert.NoError(t, err)
		stale, err := CreateSession(db, clinician.ID, "127.0.0.1", "test-agent")
		assert.NoError(t, err)
		db.Model(&models.Session{}).Where("token = ?", stale.Token).
			Update("expires_at", time.Now().Add(-time.Hour))

		assert.NoError(t, CleanupExpiredSessions(db))

		var count int64
		db.Model(&models.Session{}).Count(&count)
		assert.Equal(t, int64(1), count)
		_, err = ValidateSession(db, fresh.Token)
		assert.NoError(t, err)
	})

	t.Run("LogoutDeletesSessionAndAudits", func(t *testing.T) {
		session, err := CreateSession(db, clinician.ID, "127.0.0.1", "test-agent")
		assert.NoError(t, err)

		assert.NoError(t, Logout(db, clinician, session.Token))
		_, err = ValidateSession(db, session.Token)
		assert.Error(t, err)
		assert.Equal(t, int64(1), auditCount(db, models.AuditLogout))
	})
}
