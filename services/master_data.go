package services

import (
	"clinic_flow_app_go/models"
	"errors"
	"strings"

	"gorm.io/gorm"
)

// --- Appointment types ---

// CreateAppointmentType adds a bookable visit type. Admin only.
func CreateAppointmentType(db *gorm.DB, actor *models.Clinician, name string, durationMinutes *int, color string) (*models.AppointmentType, error) {
	if err := Authorize(actor, DomainAppointmentTypes, VerbWrite); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &InvalidDataError{Field: "name", Message: "is required"}
	}
	if durationMinutes != nil && *durationMinutes <= 0 {
		return nil, &InvalidDataError{Field: "duration_minutes", Message: "must be positive when set"}
	}

	aptType := models.AppointmentType{
		Name:            name,
		DurationMinutes: durationMinutes,
		IsActive:        true,
	}
	if color != "" {
		aptType.Color = color
	}
	if err := db.Create(&aptType).Error; err != nil {
		return nil, err
	}
	return &aptType, nil
}

// ListAppointmentTypes returns active types; every role may read them
func ListAppointmentTypes(db *gorm.DB, actor *models.Clinician) ([]models.AppointmentType, error) {
	if err := Authorize(actor, DomainAppointmentTypes, VerbRead); err != nil {
		return nil, err
	}
	var types []models.AppointmentType
	err := db.Where("is_active = ?", true).Order("name, id").Find(&types).Error
	return types, err
}

// DeactivateAppointmentType retires a type. Historical appointments keep
// referencing it.
func DeactivateAppointmentType(db *gorm.DB, actor *models.Clinician, id uint) error {
	if err := Authorize(actor, DomainAppointmentTypes, VerbWrite); err != nil {
		return err
	}
	result := db.Model(&models.AppointmentType{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Model: "AppointmentType", ID: id}
	}
	return nil
}

// --- Resources ---

// CreateResource adds a room or device
func CreateResource(db *gorm.DB, actor *models.Clinician, name, resourceType, color string) (*models.Resource, error) {
	if err := Authorize(actor, DomainResources, VerbWrite); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &InvalidDataError{Field: "name", Message: "is required"}
	}
	if !models.IsValidResourceType(resourceType) {
		return nil, &InvalidDataError{Field: "type", Message: "must be ROOM or DEVICE"}
	}

	resource := models.Resource{
		Name:     name,
		Type:     resourceType,
		IsActive: true,
	}
	if color != "" {
		resource.Color = color
	}
	if err := db.Create(&resource).Error; err != nil {
		return nil, err
	}
	return &resource, nil
}

// ListResources returns active resources, optionally one type only
func ListResources(db *gorm.DB, actor *models.Clinician, resourceType string) ([]models.Resource, error) {
	if err := Authorize(actor, DomainResources, VerbRead); err != nil {
		return nil, err
	}
	query := db.Where("is_active = ?", true).Order("type, name, id")
	if resourceType != "" {
		if !models.IsValidResourceType(resourceType) {
			return nil, &InvalidDataError{Field: "type", Message: "must be ROOM or DEVICE"}
		}
		query = query.Where("type = ?", resourceType)
	}
	var resources []models.Resource
	err := query.Find(&resources).Error
	return resources, err
}

// DeactivateResource retires a resource. Past bookings stay visible; only
// new bookings are blocked.
func DeactivateResource(db *gorm.DB, actor *models.Clinician, id uint) error {
	if err := Authorize(actor, DomainResources, VerbWrite); err != nil {
		return err
	}
	result := db.Model(&models.Resource{}).Where("id = ?", id).Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return &NotFoundError{Model: "Resource", ID: id}
	}
	return nil
}

// --- Operation types ---

// CreateOperationType adds an operation type with its three phase durations
func CreateOperationType(db *gorm.DB, actor *models.Clinician, name string, prepMinutes, opMinutes, postMinutes int) (*models.OperationType, error) {
	if err := Authorize(actor, DomainOperations, VerbWrite); err != nil {
		return nil, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, &InvalidDataError{Field: "name", Message: "is required"}
	}
	if prepMinutes < 0 || opMinutes < 0 || postMinutes < 0 {
		return nil, &InvalidDataError{Field: "op_minutes", Message: "durations must not be negative"}
	}
	if prepMinutes+opMinutes+postMinutes <= 0 {
		return nil, &InvalidDataError{Field: "op_minutes", Message: "total duration must be positive"}
	}

	opType := models.OperationType{
		Name:        name,
		PrepMinutes: prepMinutes,
		OpMinutes:   opMinutes,
		PostMinutes: postMinutes,
		IsActive:    true,
	}
	if err := db.Create(&opType).Error; err != nil {
		return nil, err
	}
	return &opType, nil
}

// ListOperationTypes returns active operation types
func ListOperationTypes(db *gorm.DB, actor *models.Clinician) ([]models.OperationType, error) {
	if err := Authorize(actor, DomainOperations, VerbRead); err != nil {
		return nil, err
	}
	var types []models.OperationType
	err := db.Where("is_active = ?", true).Order("name, id").Find(&types).Error
	return types, err
}

// --- Clinicians ---

// ClinicianInput is the provisioning payload for a new staff account
type ClinicianInput struct {
	Name     string
	Email    string
	Password string
	Role     string
	Color    string
}

// CreateClinician provisions a staff account. Only admins may do this;
// a nil actor is accepted for bootstrap tooling.
func CreateClinician(db *gorm.DB, actor *models.Clinician, input ClinicianInput) (*models.Clinician, error) {
	if actor != nil && actor.RoleEnum() != models.RoleAdmin {
		return nil, &NotAuthorizedError{Rule: ruleKey(actor.RoleEnum(), "clinicians", VerbWrite)}
	}

	input.Name = strings.TrimSpace(input.Name)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	if input.Name == "" {
		return nil, &InvalidDataError{Field: "name", Message: "is required"}
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, &InvalidDataError{Field: "email", Message: "must be a valid email address"}
	}
	if len(input.Password) < 8 {
		return nil, &InvalidDataError{Field: "password", Message: "must be at least 8 characters"}
	}
	if models.ParseRole(input.Role) == models.RoleUnknown {
		return nil, &InvalidDataError{Field: "role", Message: "unknown role"}
	}

	var count int64
	if err := db.Model(&models.Clinician{}).Where("email = ?", input.Email).Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, &InvalidDataError{Field: "email", Message: "already in use"}
	}

	hash, err := HashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	clinician := models.Clinician{
		Name:         input.Name,
		Email:        input.Email,
		PasswordHash: hash,
		Role:         input.Role,
		IsActive:     true,
	}
	if input.Color != "" {
		clinician.Color = input.Color
	}
	if err := db.Create(&clinician).Error; err != nil {
		return nil, err
	}
	if clinician.IsDoctor() {
		if err := SeedDoctorHours(db, clinician.ID); err != nil {
			return nil, err
		}
	}
	return &clinician, nil
}

// ListDoctors returns active doctors for pickers and schedules
func ListDoctors(db *gorm.DB) ([]models.Clinician, error) {
	var doctors []models.Clinician
	err := db.Where("role = ? AND is_active = ?", string(models.RoleDoctor), true).
		Order("name, id").
		Find(&doctors).Error
	return doctors, err
}

// GetClinicianByID fetches one clinician
func GetClinicianByID(db *gorm.DB, id uint) (*models.Clinician, error) {
	var clinician models.Clinician
	if err := db.First(&clinician, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, &NotFoundError{Model: "Clinician", ID: id}
		}
		return nil, err
	}
	return &clinician, nil
}

// DeactivateClinician disables login and new bookings for an account.
// Historical bookings keep their reference.
func DeactivateClinician(db *gorm.DB, actor *models.Clinician, id uint) error {
	if actor == nil || actor.RoleEnum() != models.RoleAdmin {
		role := models.RoleUnknown
		if actor != nil {
			role = actor.RoleEnum()
		}
		return &NotAuthorizedError{Rule: ruleKey(role, "clinicians", VerbWrite)}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Clinician{}).Where("id = ?", id).Update("is_active", false)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return &NotFoundError{Model: "Clinician", ID: id}
		}
		return tx.Where("clinician_id = ?", id).Delete(&models.Session{}).Error
	})
	return err
}
