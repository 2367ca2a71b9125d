package orchestrator

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/aescanero/chloe/pkg/domain"
	"github.com/go-playground/validator/v10"
)

// ErrInvalidRequest is returned for requests that fail validation
var ErrInvalidRequest = errors.New("invalid request")

// MaxBatchSize bounds InvokeBatch
const MaxBatchSize = 10

// Validator validates run requests
type Validator struct {
	validate *validator.Validate
}

// NewValidator creates a new request validator
func NewValidator() *Validator {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("linkedin_profile", func(fl validator.FieldLevel) bool {
		return IsLinkedInProfileURL(fl.Field().String())
	})
	_ = v.RegisterValidation("supported_language", func(fl validator.FieldLevel) bool {
		return domain.IsSupportedLanguage(fl.Field().String())
	})
	return &Validator{validate: v}
}

// IsLinkedInProfileURL reports whether url points at a member profile
func IsLinkedInProfileURL(url string) bool {
	return strings.Contains(url, "linkedin.com/in/")
}

// Validate checks a request after defaults were applied
func (v *Validator) Validate(req *domain.RunRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidRequest)
	}

	if err := v.validate.Struct(req); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			return fmt.Errorf("%w: %s", ErrInvalidRequest, describe(verrs))
		}
		return fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}
	return nil
}

// ValidateBatch checks the size of a batch and that its URLs are distinct
func (v *Validator) ValidateBatch(reqs []domain.RunRequest) error {
	if len(reqs) == 0 || len(reqs) > MaxBatchSize {
		return fmt.Errorf("%w: batch must contain between 1 and %d profiles, got %d",
			ErrInvalidRequest, MaxBatchSize, len(reqs))
	}

	seen := make(map[string]bool, len(reqs))
	for _, r := range reqs {
		url := strings.TrimRight(strings.TrimSpace(r.LinkedInURL), "/")
		if seen[url] {
			return fmt.Errorf("%w: duplicate profile URL %s", ErrInvalidRequest, r.LinkedInURL)
		}
		seen[url] = true
	}
	return nil
}

func describe(verrs validator.ValidationErrors) string {
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		var msg string
		switch fe.Tag() {
		case "required":
			msg = fmt.Sprintf("%s is required", fe.Field())
		case "linkedin_profile":
			msg = fmt.Sprintf("%s must be a LinkedIn profile URL (linkedin.com/in/...)", fe.Field())
		case "supported_language":
			msg = fmt.Sprintf("%s %q is not a supported language", fe.Field(), fe.Value())
		case "gte", "lte":
			msg = fmt.Sprintf("%s must be between 1 and 100", fe.Field())
		case "oneof":
			msg = fmt.Sprintf("%s must be one of %s", fe.Field(), fe.Param())
		default:
			msg = fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
		}
		msgs = append(msgs, msg)
	}
	return strings.Join(msgs, "; ")
}
