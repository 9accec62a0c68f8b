package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "github.com/examforge/exam-service/internal/errors"
	"github.com/examforge/exam-service/internal/models"
	"github.com/examforge/exam-service/internal/scoring"
)

// Validator wraps the struct validator with the service's custom rules.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new centralized validator instance
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// Validate validates struct tags and converts failures into the shared
// ValidationErrors type.
func (v *Validator) Validate(s interface{}) error {
	if err := v.structValidator.Struct(s); err != nil {
		if converted := apperrors.ToValidationErrors(err); len(converted) > 0 {
			return converted
		}
		return err
	}
	return nil
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("section_kind", validateSectionKind)
	validate.RegisterValidation("user_role", validateUserRole)
	validate.RegisterValidation("band_score", validateBandScore)

	// Custom tag name function for better error messages
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

func validateSectionKind(fl validator.FieldLevel) bool {
	validKinds := []models.SectionKind{
		models.SectionReading,
		models.SectionListening,
		models.SectionWriting,
		models.SectionSpeaking,
	}

	value := fl.Field().String()
	for _, validKind := range validKinds {
		if string(validKind) == value {
			return true
		}
	}
	return false
}

func validateUserRole(fl validator.FieldLevel) bool {
	validRoles := []models.UserRole{
		models.RoleStudent,
		models.RoleMentor,
		models.RoleAdmin,
	}

	value := fl.Field().String()
	for _, validRole := range validRoles {
		if string(validRole) == value {
			return true
		}
	}
	return false
}

func validateBandScore(fl validator.FieldLevel) bool {
	return scoring.IsValidBand(fl.Field().Float())
}
