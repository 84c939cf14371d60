package validator

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/gamassss/shortlink/internal/domain"
	"github.com/gamassss/shortlink/pkg/response"
	"github.com/go-playground/validator/v10"
)

const (
	maxURLLength   = 2048
	maxAliasLength = 50
)

var validate *validator.Validate

var aliasPattern = regexp.MustCompile(`^[a-z0-9-]+$`)

// schemePattern matches a scheme only at the start, so "://" inside a path,
// query or fragment does not count.
var schemePattern = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9+.-]*://`)

// Path segments owned by the HTTP router; an alias may never shadow them.
var reservedKeywords = map[string]bool{
	"api":         true,
	"healthz":     true,
	"readyz":      true,
	"metrics":     true,
	"dashboard":   true,
	"analytics":   true,
	"auth":        true,
	"static":      true,
	"favicon.ico": true,
}

func init() {
	validate = validator.New()

	validate.RegisterValidation("alias", validateAliasTag)
}

func Validate(data interface{}) []response.ValidationError {
	var validationErrors []response.ValidationError

	err := validate.Struct(data)
	if err != nil {
		for _, err := range err.(validator.ValidationErrors) {
			validationErrors = append(validationErrors, response.ValidationError{
				Field:   err.Field(),
				Message: getErrorMessage(err),
			})
		}
	}

	return validationErrors
}

// NormalizeURL defaults the scheme to https when the input carries none and
// returns the result if it is an absolute http(s) URL.
func NormalizeURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxURLLength {
		return "", domain.ErrInvalidDestination
	}

	if !schemePattern.MatchString(raw) {
		raw = "https://" + raw
	}

	if !IsValidURL(raw) {
		return "", domain.ErrInvalidDestination
	}

	return raw, nil
}

func IsValidURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}

	return u.Hostname() != ""
}

func ValidateAlias(alias string) (string, error) {
	if alias == "" || len(alias) > maxAliasLength {
		return "", domain.ErrInvalidAlias
	}

	if !aliasPattern.MatchString(alias) || IsReservedKeyword(alias) {
		return "", domain.ErrInvalidAlias
	}

	return alias, nil
}

func IsReservedKeyword(alias string) bool {
	return reservedKeywords[strings.ToLower(alias)]
}

func validateAliasTag(fl validator.FieldLevel) bool {
	_, err := ValidateAlias(fl.Field().String())
	return err == nil
}

func getErrorMessage(err validator.FieldError) string {
	field := err.Field()

	switch err.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "url":
		return fmt.Sprintf("%s must be a valid URL", field)
	case "alias":
		return fmt.Sprintf("%s may only contain lowercase letters, digits and hyphens and must not be reserved", field)
	case "min":
		return fmt.Sprintf("%s must be at least %s characters", field, err.Param())
	case "max":
		return fmt.Sprintf("%s must be at most %s characters", field, err.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, err.Param())
	default:
		return fmt.Sprintf("%s is invalid", field)
	}
}
