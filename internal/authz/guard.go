// Package authz holds the authorization rules every route and controller consults
// before reading privileged data or mutating state.
package authz

import "github.com/campusconnect/event-service/internal/models"

type Action string

const (
	ActionViewEvent            Action = "view_event"
	ActionRegisterForEvent     Action = "register_for_event"
	ActionCreateEvent          Action = "create_event"
	ActionReviewEvent          Action = "review_event"
	ActionEditEvent            Action = "edit_event"
	ActionDeleteEvent          Action = "delete_event"
	ActionReviewRegistration   Action = "review_registration"
	ActionViewRegistrations    Action = "view_registrations"
	ActionExportRegistrations  Action = "export_registrations"
	ActionUploadMedia          Action = "upload_media"
	ActionDeleteMedia          Action = "delete_media"
	ActionCreateAdminAccount   Action = "create_admin_account"
	ActionViewOwnRegistrations Action = "view_own_registrations"
	ActionUpdateOwnProfile     Action = "update_own_profile"
)

// Resource describes the object an action targets. Fields that do not apply stay zero.
type Resource struct {
	// OrganizerID is the owning admin of the event involved.
	OrganizerID string
	// EventStatus is the current status of the event involved.
	EventStatus models.EventStatus
	// OwnerID is the principal a self-service action is performed for.
	OwnerID string
}

// EventResource builds the resource for actions on an event.
func EventResource(event *models.Event) Resource {
	if event == nil {
		return Resource{}
	}
	return Resource{OrganizerID: event.OrganizerID, EventStatus: event.Status}
}

// Can reports whether p may perform action on res.
func Can(p models.Principal, action Action, res Resource) bool {
	switch action {
	case ActionViewEvent:
		if res.EventStatus.IsPublic() {
			return true
		}
		return isOrganizer(p, res) || p.IsAdmin() || p.IsExecutive()

	case ActionRegisterForEvent:
		return p.IsStudent() && res.OwnerID == p.ID

	case ActionCreateEvent:
		return p.IsAdmin()

	case ActionReviewEvent:
		return p.IsExecutive()

	case ActionEditEvent, ActionReviewRegistration, ActionViewRegistrations, ActionExportRegistrations:
		return isOrganizer(p, res) || p.IsExecutive()

	case ActionDeleteEvent, ActionDeleteMedia:
		return p.IsAdmin() || p.IsExecutive()

	case ActionUploadMedia:
		return (p.IsAdmin() || p.IsExecutive()) && res.EventStatus == models.EventStatusCompleted

	case ActionCreateAdminAccount:
		return p.IsExecutive()

	case ActionViewOwnRegistrations, ActionUpdateOwnProfile:
		return p.IsAuthenticated() && res.OwnerID == p.ID

	default:
		return false
	}
}

// isOrganizer is true for the admin who owns the event.
func isOrganizer(p models.Principal, res Resource) bool {
	return p.IsAdmin() && res.OrganizerID != "" && res.OrganizerID == p.ID
}
