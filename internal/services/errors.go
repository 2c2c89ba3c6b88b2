package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/campusconnect/event-service/internal/validator"
)

// ===== VALIDATION =====

type ValidationErrors = validator.ValidationErrors
type ValidationError = validator.ValidationError

// ===== SENTINELS =====

var (
	ErrEventNotFound        = errors.New("event not found")
	ErrRegistrationNotFound = errors.New("registration not found")
	ErrMediaNotFound        = errors.New("media not found")
	ErrProfileNotFound      = errors.New("profile not found")

	ErrAccountExists  = errors.New("an account with this email already exists")
	ErrSignInFailed   = errors.New("sign-in failed")
	ErrInvalidSession = errors.New("session is invalid or has expired")
)

// CodedError is implemented by every domain error the HTTP layer translates.
type CodedError interface {
	error
	Code() string
	TemplateData() map[string]interface{}
}

// ===== IDENTITY =====

// AdminDomainError rejects a self-service sign-up that asked for an elevated role
// from a non-institutional address.
type AdminDomainError struct {
	Email string
}

func (e *AdminDomainError) Error() string {
	return fmt.Sprintf("admin accounts require an institutional email address, got %s", e.Email)
}

func (e *AdminDomainError) Code() string { return "admin_domain" }

func (e *AdminDomainError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Email": e.Email}
}

// DomainRejectedError rejects executive-created admin accounts outside the reserved domains.
type DomainRejectedError struct {
	Email string
}

func (e *DomainRejectedError) Error() string {
	return fmt.Sprintf("email %s is not on a reserved institutional domain", e.Email)
}

func (e *DomainRejectedError) Code() string { return "domain_rejected" }

func (e *DomainRejectedError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Email": e.Email}
}

// ===== REGISTRATION RULES =====

// Reasons carried by NotEligibleError
const (
	ReasonEventNotApproved  = "event_not_approved"
	ReasonAlreadyRegistered = "already_registered"
	ReasonEventNotCompleted = "event_not_completed"
	ReasonEventNotFinished  = "event_not_finished"
)

type NotEligibleError struct {
	EventID string
	Reason  string
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("not eligible for event %s: %s", e.EventID, strings.ReplaceAll(e.Reason, "_", " "))
}

func (e *NotEligibleError) Code() string {
	if e.Reason == "" {
		return "not_eligible"
	}
	return "not_eligible." + e.Reason
}

func (e *NotEligibleError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"EventID": e.EventID}
}

type CapacityExceededError struct {
	EventID string
	Max     int
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("event %s is full (%d participants)", e.EventID, e.Max)
}

func (e *CapacityExceededError) Code() string { return "capacity_exceeded" }

func (e *CapacityExceededError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Max": e.Max}
}

type DeadlinePassedError struct {
	EventID  string
	Deadline time.Time
}

func (e *DeadlinePassedError) Error() string {
	return fmt.Sprintf("registration for event %s closed at %s", e.EventID, e.Deadline.Format(time.RFC3339))
}

func (e *DeadlinePassedError) Code() string { return "deadline_passed" }

func (e *DeadlinePassedError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Deadline": e.Deadline.Format("02 Jan 2006 15:04 MST")}
}

type ProfileIncompleteError struct {
	UserID  string
	Missing []string
}

func (e *ProfileIncompleteError) Error() string {
	return fmt.Sprintf("profile is missing %s", strings.Join(e.Missing, ", "))
}

func (e *ProfileIncompleteError) Code() string { return "profile_incomplete" }

func (e *ProfileIncompleteError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Missing": strings.Join(e.Missing, ", ")}
}

// ===== STATE =====

type InvalidTransitionError struct {
	Entity string
	ID     string
	From   string
	To     string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s %s cannot move from %s to %s", e.Entity, e.ID, e.From, e.To)
}

func (e *InvalidTransitionError) Code() string { return "invalid_transition" }

func (e *InvalidTransitionError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Entity": e.Entity, "From": e.From, "To": e.To}
}

// StaleStateError means a concurrent writer changed the row first.
type StaleStateError struct {
	Entity string
	ID     string
}

func (e *StaleStateError) Error() string {
	return fmt.Sprintf("%s %s was modified concurrently", e.Entity, e.ID)
}

func (e *StaleStateError) Code() string { return "stale_state" }

func (e *StaleStateError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Entity": e.Entity}
}

// ===== ACCESS =====

type AuthorizationError struct {
	UserID     string
	ResourceID string
	Resource   string
	Action     string
	Reason     string
}

func NewAuthorizationError(userID, resourceID, resource, action, reason string) *AuthorizationError {
	return &AuthorizationError{
		UserID:     userID,
		ResourceID: resourceID,
		Resource:   resource,
		Action:     action,
		Reason:     reason,
	}
}

func (e *AuthorizationError) Error() string {
	if e.Unauthenticated() {
		return fmt.Sprintf("sign-in required to %s %s", e.Action, e.Resource)
	}
	return fmt.Sprintf("user %s cannot %s %s %s: %s", e.UserID, e.Action, e.Resource, e.ResourceID, e.Reason)
}

// Unauthenticated is true when no principal was present at all.
func (e *AuthorizationError) Unauthenticated() bool {
	return e.UserID == ""
}

func (e *AuthorizationError) Code() string {
	if e.Unauthenticated() {
		return "unauthenticated"
	}
	return "forbidden"
}

func (e *AuthorizationError) TemplateData() map[string]interface{} {
	return map[string]interface{}{"Action": e.Action, "Resource": e.Resource}
}

// ===== INFRASTRUCTURE =====

// StoreError wraps a failure of the backing store. The wrapped error is never shown to callers.
type StoreError struct {
	Op  string
	Err error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error during %s: %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

func (e *StoreError) Code() string { return "store_error" }

func (e *StoreError) TemplateData() map[string]interface{} { return nil }

// storeError wraps err unless it already is a domain error.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if isDomainError(err) {
		return err
	}
	return &StoreError{Op: op, Err: err}
}

// isDomainError reports whether err is one the HTTP layer can translate as-is.
func isDomainError(err error) bool {
	var coded CodedError
	if errors.As(err, &coded) {
		return true
	}
	var verrs ValidationErrors
	if errors.As(err, &verrs) {
		return true
	}
	for _, sentinel := range []error{
		ErrEventNotFound, ErrRegistrationNotFound, ErrMediaNotFound, ErrProfileNotFound,
		ErrAccountExists, ErrSignInFailed, ErrInvalidSession,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
