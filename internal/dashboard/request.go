package dashboard

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is wrapped by every validation failure.
var ErrInvalidRequest = errors.New("invalid dashboard request")

// Request is the user input for one render pass.
type Request struct {
	City  string `json:"city" validate:"required,max=100"`
	Email string `json:"email,omitempty" validate:"omitempty,email,max=254"`
}

// FieldIssue describes one invalid field.
type FieldIssue struct {
	Field   string
	Code    string
	Message string
}

// ValidationError lists the invalid fields of a Request.
type ValidationError struct {
	Issues []FieldIssue
}

func (e *ValidationError) Error() string {
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, issue.Field+": "+issue.Message)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidRequest, strings.Join(parts, "; "))
}

func (e *ValidationError) Unwrap() error {
	return ErrInvalidRequest
}

var (
	validateOnce sync.Once
	validate     *validator.Validate
)

func requestValidator() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// normalize trims input and applies the default city.
func normalize(req Request, defaultCity string) Request {
	req.City = strings.TrimSpace(req.City)
	req.Email = strings.TrimSpace(req.Email)
	if req.City == "" {
		req.City = defaultCity
	}
	return req
}

// validateRequest checks an already normalized request.
func validateRequest(req Request) error {
	err := requestValidator().Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %w", ErrInvalidRequest, err)
	}

	issues := make([]FieldIssue, 0, len(verrs))
	for _, fe := range verrs {
		issues = append(issues, FieldIssue{
			Field:   fe.Field(),
			Code:    fe.Tag(),
			Message: issueMessage(fe),
		})
	}
	return &ValidationError{Issues: issues}
}

func issueMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "email":
		return "must be a valid email address"
	default:
		return "is invalid"
	}
}
