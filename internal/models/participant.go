package models

// Participant roles, checked in this order when resolving
const (
	RoleDecisionMaker    = "decision_maker"
	RoleTechnicalContact = "technical_contact"
	RoleUser             = "user"
	RoleInfluencer       = "influencer"
	RoleUnknown          = "unknown"
)

// Participant types
const (
	ParticipantInternal = "internal"
	ParticipantExternal = "external"
)

// ParticipantRecord represents one row in the call_participants table
type ParticipantRecord struct {
	CallID          string  `json:"call_id"`
	PersonID        string  `json:"-"`
	ParticipantName string  `json:"participant_name"`
	ParticipantRole string  `json:"participant_role"`
	ParticipantType string  `json:"participant_type"`
	Company         string  `json:"company"`
	Email           *string `json:"email"`
}
