package validator

import (
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/campusconnect/event-service/internal/models"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()
	validate.RegisterTagNameFunc(jsonFieldName)

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateEventCreate validates a new event.
// Fields are reported in declaration order of EventCreateRequest: venue, title,
// description, category, event_date, registration_deadline, then the optional fields.
func (bv *BusinessValidator) ValidateEventCreate(req *EventCreateRequest) ValidationErrors {
	return bv.Validate(req)
}

// ValidateEventUpdate validates an edit against the event it applies to
func (bv *BusinessValidator) ValidateEventUpdate(req *EventUpdateRequest, existing *models.Event) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)
	if len(errors) > 0 {
		return errors
	}

	eventDate := existing.EventDate
	if req.EventDate != nil {
		eventDate = *req.EventDate
	}
	deadline := existing.RegistrationDeadline
	if req.RegistrationDeadline != nil {
		deadline = *req.RegistrationDeadline
	}
	errors = append(errors, bv.ValidateSchedule(eventDate, deadline)...)

	if req.MaxParticipants != nil && *req.MaxParticipants < existing.CurrentParticipants {
		errors = append(errors, ValidationError{
			Field:   "max_participants",
			Message: "cannot be lower than the number of approved participants",
			Value:   *req.MaxParticipants,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateSchedule checks the registration deadline is strictly before the event date
func (bv *BusinessValidator) ValidateSchedule(eventDate, deadline time.Time) ValidationErrors {
	if !deadline.Before(eventDate) {
		return ValidationErrors{{
			Field:   "registration_deadline",
			Message: "must be before event_date",
			Value:   deadline,
			Rule:    "ltfield",
		}}
	}
	return nil
}

// ValidateRejectReason requires a non-blank reason for rejecting an event
func (bv *BusinessValidator) ValidateRejectReason(reason string) ValidationErrors {
	if strings.TrimSpace(reason) == "" {
		return ValidationErrors{{
			Field:   "reason",
			Message: "is required",
			Value:   reason,
			Rule:    "required",
		}}
	}
	return nil
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	bv.validate.RegisterValidation("event_category", func(fl validator.FieldLevel) bool {
		category := fl.Field().String()
		for _, c := range models.EventCategories {
			if c == category {
				return true
			}
		}
		return false
	})

	bv.validate.RegisterValidation("registration_decision", func(fl validator.FieldLevel) bool {
		return models.RegistrationStatus(fl.Field().String()).IsDecision()
	})

	// Accepts the legacy organizer spelling as well
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		switch fl.Field().String() {
		case "student", "admin", "executive", "organizer":
			return true
		}
		return false
	})

	bv.validate.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
}
