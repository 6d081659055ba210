// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"errors"
	"strings"
	"unicode/utf8"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/samber/oops"
)

// Violation codes reported by ValidateRegistration and ValidateLogin.
const (
	ViolationEmailRequired       = "email_required"
	ViolationEmailInvalid        = "email_invalid"
	ViolationUsernameRequired    = "username_required"
	ViolationUsernameTooShort    = "username_too_short"
	ViolationPasswordRequired    = "password_required"
	ViolationPasswordTooShort    = "password_too_short"
	ViolationPasswordTooLong     = "password_too_long"
	ViolationPasswordMismatch    = "password_mismatch"
	ViolationCredentialsRequired = "credentials_required"
)

const (
	minUsernameLength = 3
	minPasswordLength = 6
)

var violationMessages = map[string]string{
	ViolationEmailRequired:       "Email is required",
	ViolationEmailInvalid:        "Please enter a valid email address",
	ViolationUsernameRequired:    "Username is required",
	ViolationUsernameTooShort:    "Username must be at least 3 characters long",
	ViolationPasswordRequired:    "Password is required",
	ViolationPasswordTooShort:    "Password must be at least 6 characters long",
	ViolationPasswordTooLong:     "Password must be at most 72 bytes long",
	ViolationPasswordMismatch:    "Passwords do not match",
	ViolationCredentialsRequired: "Email and password are required",
}

// Violation is one failed field rule.
type Violation struct {
	Field   string
	Code    string
	Message string
}

// Violations is the ordered list of rule failures for one request.
type Violations []Violation

// Codes returns the violation codes in order.
func (v Violations) Codes() []string {
	codes := make([]string, len(v))
	for i, violation := range v {
		codes[i] = violation.Code
	}
	return codes
}

// Messages returns the user-facing messages in order.
func (v Violations) Messages() []string {
	msgs := make([]string, len(v))
	for i, violation := range v {
		msgs[i] = violation.Message
	}
	return msgs
}

// Err returns nil when v is empty, otherwise a ValidationFailed error
// carrying v.
func (v Violations) Err() error {
	if len(v) == 0 {
		return nil
	}
	return oops.Code(CodeValidationFailed).
		With("violations", v.Codes()).
		Wrap(&ValidationError{Violations: v})
}

// ValidationError holds the violations behind a ValidationFailed error.
type ValidationError struct {
	Violations Violations
}

func (e *ValidationError) Error() string {
	return strings.Join(e.Violations.Messages(), "; ")
}

// AsViolations extracts the violations from a ValidationFailed error.
func AsViolations(err error) (Violations, bool) {
	var verr *ValidationError
	if errors.As(err, &verr) {
		return verr.Violations, true
	}
	return nil, false
}

// RegistrationRequest is the submitted registration form.
type RegistrationRequest struct {
	Email           string `json:"email"`
	Username        string `json:"username"`
	Password        string `json:"password"`
	PasswordConfirm string `json:"password_confirm"`
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
}

// LoginRequest is the submitted login form.
type LoginRequest struct {
	Email      string
	Password   string
	RememberMe bool
}

// normalized trims the free-text fields. Passwords are kept verbatim.
func (r RegistrationRequest) normalized() RegistrationRequest {
	r.Email = strings.TrimSpace(r.Email)
	r.Username = strings.TrimSpace(r.Username)
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	return r
}

// ruleError is a failed rule identified by its violation code.
type ruleError string

func (e ruleError) Error() string {
	return violationMessages[string(e)]
}

// check builds a string rule that reports code when failed returns true.
func check(code string, failed func(string) bool) validation.Rule {
	return validation.By(func(value any) error {
		s, _ := value.(string)
		if failed(s) {
			return ruleError(code)
		}
		return nil
	})
}

func empty(s string) bool { return s == "" }

func shorterThan(n int) func(string) bool {
	return func(s string) bool { return utf8.RuneCountInString(s) < n }
}

// registrationFields fixes the order in which violations are reported.
var registrationFields = []string{"email", "username", "password", "password_confirm"}

// ValidateRegistration checks every field of req as given and returns all
// failures, one per field at most, in form order. An empty result means
// valid. Register trims req before calling it.
func ValidateRegistration(req RegistrationRequest) Violations {
	err := validation.ValidateStruct(&req,
		validation.Field(&req.Email,
			check(ViolationEmailRequired, empty),
			check(ViolationEmailInvalid, func(s string) bool { return !strings.Contains(s, "@") }),
		),
		validation.Field(&req.Username,
			check(ViolationUsernameRequired, empty),
			check(ViolationUsernameTooShort, shorterThan(minUsernameLength)),
		),
		validation.Field(&req.Password,
			check(ViolationPasswordRequired, empty),
			check(ViolationPasswordTooShort, shorterThan(minPasswordLength)),
			check(ViolationPasswordTooLong, func(s string) bool { return len(s) > MaxPasswordBytes }),
		),
		validation.Field(&req.PasswordConfirm,
			check(ViolationPasswordMismatch, func(s string) bool { return s != req.Password }),
		),
	)
	return collect(err, registrationFields)
}

// ValidateLogin checks that both credentials were supplied.
func ValidateLogin(req LoginRequest) Violations {
	if req.Email == "" || req.Password == "" {
		return Violations{{
			Field:   "credentials",
			Code:    ViolationCredentialsRequired,
			Message: violationMessages[ViolationCredentialsRequired],
		}}
	}
	return nil
}

func collect(err error, order []string) Violations {
	if err == nil {
		return nil
	}
	var fieldErrs validation.Errors
	if !errors.As(err, &fieldErrs) {
		return Violations{{Field: "form", Code: CodeValidationFailed, Message: err.Error()}}
	}
	out := make(Violations, 0, len(fieldErrs))
	for _, field := range order {
		fieldErr, ok := fieldErrs[field]
		if !ok || fieldErr == nil {
			continue
		}
		code := CodeValidationFailed
		var rerr ruleError
		if errors.As(fieldErr, &rerr) {
			code = string(rerr)
		}
		out = append(out, Violation{Field: field, Code: code, Message: fieldErr.Error()})
	}
	return out
}
