package profile

import (
	"github.com/go-playground/validator/v10"

	apperrors "github.com/glucomeal/web/pkg/errors"
)

// Form is a profile submission in canonical units, validated before any
// backend call is made.
type Form struct {
	Age               int     `validate:"required,gt=0"`
	HeightCm          float64 `validate:"required,gt=0"`
	WeightKg          float64 `validate:"required,gt=0"`
	Gender            string  `validate:"omitempty,oneof=male female other"`
	UnderlyingDisease string  `validate:"required"`
}

var validate = validator.New()

// fieldMessages keeps validation feedback in form language rather than
// validator tag language.
var fieldMessages = map[string]string{
	"Age":               "Age must be a positive number",
	"HeightCm":          "Height must be a positive number",
	"WeightKg":          "Weight must be a positive number",
	"Gender":            "Please choose a valid gender option",
	"UnderlyingDisease": "Please select your condition",
}

// ValidateForm checks a profile submission locally. The returned error is a
// validation AppError and is never sent to the backend.
func ValidateForm(f Form) error {
	err := validate.Struct(f)
	if err == nil {
		return nil
	}

	if fieldErrs, ok := err.(validator.ValidationErrors); ok && len(fieldErrs) > 0 {
		if msg, known := fieldMessages[fieldErrs[0].Field()]; known {
			return apperrors.NewValidationError(msg)
		}
	}
	return apperrors.NewValidationError("Please check the highlighted fields")
}
