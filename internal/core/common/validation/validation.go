package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	errs "github.com/frahmantamala/voucher-store/internal"
	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func instance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New()
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" || name == "" {
				return f.Name
			}
			return name
		})
	})
	return validate
}

// Struct validates dst against its `validate` tags and converts failures into a 400 AppError keyed by json field names.
func Struct(dst any) *errs.AppError {
	err := instance().Struct(dst)
	if err == nil {
		return nil
	}

	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		return errs.NewValidationError("Invalid request", errs.ErrCodeValidationFailed)
	}

	out := make([]errs.ValidationError, 0, len(ve))
	for _, fe := range ve {
		out = append(out, errs.ValidationError{
			Field:   fe.Field(),
			Message: messageForTag(fe.Field(), fe.Tag(), fe.Param()),
			Code:    string(errs.ErrCodeValidationFailed),
		})
	}

	return errs.NewValidationError("Validation failed", errs.ErrCodeValidationFailed).
		WithDetails(errs.ValidationErrors{Errors: out})
}

func messageForTag(field, tag, param string) string {
	switch tag {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "email":
		return fmt.Sprintf("%s must be a valid email", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, param)
	case "max":
		return fmt.Sprintf("%s must not exceed %s characters", field, param)
	case "gte":
		return fmt.Sprintf("%s must be at least %s", field, param)
	case "oneof":
		return fmt.Sprintf("%s must be one of [%s]", field, param)
	case "numeric":
		return fmt.Sprintf("%s must contain digits only", field)
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}

type ValidatorFunc func(interface{}) *errs.AppError

type FieldValidator struct {
	FieldName  string
	Value      interface{}
	Validators []ValidatorFunc
}

type ValidationBuilder struct {
	fields []FieldValidator
}

func NewValidator() *ValidationBuilder {
	return &ValidationBuilder{
		fields: make([]FieldValidator, 0),
	}
}

func (v *ValidationBuilder) Field(name string, value interface{}) *FieldValidator {
	fv := FieldValidator{
		FieldName:  name,
		Value:      value,
		Validators: make([]ValidatorFunc, 0),
	}
	v.fields = append(v.fields, fv)
	return &v.fields[len(v.fields)-1]
}

func (fv *FieldValidator) Required() *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errs.AppError {
		switch v := value.(type) {
		case string:
			if strings.TrimSpace(v) == "" {
				return errs.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errs.ErrCodeValidationFailed)
			}
		case *string:
			if v == nil || *v == "" {
				return errs.NewValidationFieldError(fv.FieldName, fmt.Sprintf("%s is required", fv.FieldName), errs.ErrCodeValidationFailed)
			}
		}
		return nil
	})
	return fv
}

// LengthBetween checks the rune length of a string value.
func (fv *FieldValidator) LengthBetween(min, max int, message string, code errs.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errs.AppError {
		if v, ok := value.(string); ok {
			n := len([]rune(v))
			if n < min || n > max {
				return errs.NewValidationFieldError(fv.FieldName, message, code)
			}
		}
		return nil
	})
	return fv
}

func (fv *FieldValidator) OneOf(allowed []string, code errs.ErrorCode) *FieldValidator {
	fv.Validators = append(fv.Validators, func(value interface{}) *errs.AppError {
		v, ok := value.(string)
		if !ok {
			return nil
		}
		for _, a := range allowed {
			if a == v {
				return nil
			}
		}
		message := fmt.Sprintf("%s must be one of: %s", fv.FieldName, strings.Join(allowed, ", "))
		return errs.NewValidationFieldError(fv.FieldName, message, code)
	})
	return fv
}

func (fv *FieldValidator) Custom(validator func(interface{}) *errs.AppError) *FieldValidator {
	fv.Validators = append(fv.Validators, validator)
	return fv
}

func (v *ValidationBuilder) Validate() *errs.AppError {
	var validationErrors []errs.ValidationError

	for _, field := range v.fields {
		for _, validator := range field.Validators {
			err := validator(field.Value)
			if err == nil {
				continue
			}
			if details, ok := err.Details.(errs.ValidationErrors); ok {
				validationErrors = append(validationErrors, details.Errors...)
				continue
			}
			validationErrors = append(validationErrors, errs.ValidationError{
				Field:   field.FieldName,
				Message: err.Message,
				Code:    string(err.Code),
			})
		}
	}

	if len(validationErrors) > 0 {
		return errs.NewValidationError("Validation failed", errs.ErrCodeValidationFailed).
			WithDetails(errs.ValidationErrors{Errors: validationErrors})
	}

	return nil
}
