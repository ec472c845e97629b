package types

import (
	"time"
)

type ShareRole string

const (
	ShareRoleEditor ShareRole = "EDITOR"
	ShareRoleViewer ShareRole = "VIEWER"
)

// ChecklistShare grants a collaborator access to a trip's packing checklist.
type ChecklistShare struct {
	ID          string    `json:"id"`
	ChecklistID string    `json:"checklistId"`
	Email       string    `json:"email"`
	Role        ShareRole `json:"role"`
	InvitedBy   string    `json:"invitedBy"`
	AcceptedAt  *time.Time `json:"acceptedAt,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

type ShareCreate struct {
	Email string    `json:"email" binding:"required,email"`
	Role  ShareRole `json:"role,omitempty"`
}

// ShareEmailData carries the template values for a share-invitation email.
type ShareEmailData struct {
	To           string
	Subject      string
	TemplateData map[string]interface{}
}
