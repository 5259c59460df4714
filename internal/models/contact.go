package models

import (
	"strings"
	"time"
)

// ContactStatus is the lifecycle label of a contact. Statuses other than
// the automatic ones (see AllowedTransitions) are operator-set metadata.
type ContactStatus string

const (
	StatusNewProspect       ContactStatus = "new_prospect"
	StatusInformedProspect  ContactStatus = "informed_prospect"
	StatusVisitScheduled    ContactStatus = "visit_scheduled"
	StatusEnrollmentPending ContactStatus = "enrollment_pending"
	StatusActiveStudent     ContactStatus = "active_student"
	StatusInactiveStudent   ContactStatus = "inactive_student"
	StatusCompetitor        ContactStatus = "competitor"
	StatusAlumnus           ContactStatus = "alumnus"
)

// ValidStatuses lists every recognized contact status.
var ValidStatuses = []ContactStatus{
	StatusNewProspect,
	StatusInformedProspect,
	StatusVisitScheduled,
	StatusEnrollmentPending,
	StatusActiveStudent,
	StatusInactiveStudent,
	StatusCompetitor,
	StatusAlumnus,
}

// IsValidStatus reports whether s is a recognized contact status.
func IsValidStatus(s ContactStatus) bool {
	for _, v := range ValidStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// AllowedTransitions defines which status changes the service applies
// automatically while handling messages. Transitions outside this table
// are only performed by an operator.
var AllowedTransitions = map[ContactStatus][]ContactStatus{
	StatusNewProspect:      {StatusInformedProspect, StatusVisitScheduled},
	StatusInformedProspect: {StatusVisitScheduled},
	StatusVisitScheduled:   {StatusEnrollmentPending},
}

// CanTransition reports whether the automatic transition from → to is allowed.
func CanTransition(from, to ContactStatus) bool {
	for _, t := range AllowedTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// Contact is a phone-number-keyed record tracking a prospect/student
// relationship with the school.
type Contact struct {
	ID             int64         `json:"id"`
	Phone          string        `json:"phone"`
	Status         ContactStatus `json:"status"`
	FirstContactAt time.Time     `json:"first_contact_at"`
	LastContactAt  time.Time     `json:"last_contact_at"`
	MessageCount   int64         `json:"message_count"`
	Notes          string        `json:"notes,omitempty"`
	IsCompetitor   bool          `json:"is_competitor"`
}

// CanonicalPhone strips the messaging-gateway address prefix so that
// "whatsapp:+5215550001111" and "+5215550001111" identify the same contact.
func CanonicalPhone(raw string) string {
	return strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(raw), "whatsapp:"))
}
