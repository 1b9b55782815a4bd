package validation

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/catherinevee/mdcagent/internal/models"
	apperrors "github.com/catherinevee/mdcagent/internal/shared/errors"
)

var (
	engine     *validator.Validate
	engineOnce sync.Once
)

// Engine returns the shared validator. It reads "binding" tags, the same
// tags gin uses, and reports fields by their query parameter names.
func Engine() *validator.Validate {
	engineOnce.Do(func() {
		v := validator.New()
		v.SetTagName("binding")
		if err := Register(v); err != nil {
			panic(err)
		}
		engine = v
	})
	return engine
}

// Register installs the custom tags and parameter naming on v. The HTTP
// layer calls it on gin's validator so bound queries use the same rules.
func Register(v *validator.Validate) error {
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("form"), ",", 2)[0]
		if name == "" || name == "-" {
			return field.Name
		}
		return name
	})

	if err := v.RegisterValidation("subscription_id", func(fl validator.FieldLevel) bool {
		return models.IsSubscriptionID(fl.Field().String())
	}); err != nil {
		return fmt.Errorf("failed to register subscription_id validation: %w", err)
	}
	return nil
}

// ValidateQuery checks enumerations first (400 with the accepted values),
// then ranges and formats (422).
func ValidateQuery(q models.ListQuery) error {
	if invalid := invalidValues(q.Severity, models.ValidSeverities); len(invalid) > 0 {
		return apperrors.NewInvalidValueError("severity", invalid, models.ValidSeverities)
	}
	if invalid := invalidValues(q.AssessmentStatus, models.ValidAssessmentStatuses); len(invalid) > 0 {
		return apperrors.NewInvalidValueError("assessment_status", invalid, models.ValidAssessmentStatuses)
	}

	if err := Engine().Struct(q); err != nil {
		return FromValidationError(err)
	}
	return nil
}

// FromValidationError converts validator or binding failures into a 422
// application error naming the first offending parameter.
func FromValidationError(err error) *apperrors.AppError {
	var validationErrs validator.ValidationErrors
	if errors.As(err, &validationErrs) && len(validationErrs) > 0 {
		fe := validationErrs[0]
		appErr := apperrors.NewValidationError(fe.Field(), describe(fe))
		appErr.WithDetails("provided_value", fmt.Sprintf("%v", fe.Value()))
		if fe.Param() != "" {
			appErr.WithDetails("constraint", fe.Tag()+"="+fe.Param())
		} else {
			appErr.WithDetails("constraint", fe.Tag())
		}
		return appErr
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}

	appErr = apperrors.NewValidationError("", "Invalid query parameters")
	appErr.WithDetails("reason", err.Error())
	return appErr
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return fmt.Sprintf("%s must be greater than or equal to %s", fe.Field(), fe.Param())
	case "max":
		if fe.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters", fe.Field(), fe.Param())
		}
		return fmt.Sprintf("%s must be less than or equal to %s", fe.Field(), fe.Param())
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", fe.Field(), strings.ReplaceAll(fe.Param(), " ", ", "))
	case "subscription_id":
		return fmt.Sprintf("%s must be a subscription id in 8-4-4-4-12 hex form", fe.Field())
	default:
		return fmt.Sprintf("%s is invalid", fe.Field())
	}
}

// invalidValues returns the distinct values not in valid, in input order.
func invalidValues(values, valid []string) []string {
	var invalid []string
	seen := make(map[string]bool)
	for _, v := range values {
		if !models.Contains(valid, v) && !seen[v] {
			seen[v] = true
			invalid = append(invalid, v)
		}
	}
	return invalid
}
