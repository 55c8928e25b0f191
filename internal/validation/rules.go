// Package validation holds jellydator/validation rules shared by the tenant and
// credential layers.
package validation

import (
	"net/url"
	"regexp"
	"strings"

	validation "github.com/jellydator/validation"

	apperrors "github.com/allisson/tenantvault/internal/errors"
)

var (
	emailRegex = regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)

	// a single lowercase DNS label
	routingKeyRegex = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)
)

// WrapValidationError turns a rule failure into ErrInvalidInput so handlers
// answer 422.
func WrapValidationError(err error) error {
	if err == nil {
		return nil
	}
	return apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
}

// Email is a loose address check for credential contact fields.
var Email = validation.NewStringRuleWithError(
	func(s string) bool {
		return emailRegex.MatchString(s)
	},
	validation.NewError("validation_email_format", "must be a valid email address"),
)

// RoutingKey validates that a string is usable as a tenant subdomain label.
var RoutingKey = validation.NewStringRuleWithError(
	func(s string) bool {
		return routingKeyRegex.MatchString(s)
	},
	validation.NewError(
		"validation_routing_key",
		"must be a lowercase DNS label of letters, digits and hyphens",
	),
)

// AbsoluteURL accepts any scheme (https, postgres, ssh) as long as a host is present.
var AbsoluteURL = validation.NewStringRuleWithError(
	func(s string) bool {
		u, err := url.Parse(s)
		return err == nil && u.Scheme != "" && u.Host != ""
	},
	validation.NewError("validation_absolute_url", "must be an absolute URL with a scheme and host"),
)

// NotBlank rejects strings that are empty after trimming whitespace.
var NotBlank = validation.NewStringRuleWithError(
	func(s string) bool {
		return strings.TrimSpace(s) != ""
	},
	validation.NewError("validation_not_blank", "must not be blank"),
)
