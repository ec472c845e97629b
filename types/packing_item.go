package types

import (
	"time"
)

type ItemStatus string

const (
	ItemStatusChecked   ItemStatus = "CHECKED"
	ItemStatusUnchecked ItemStatus = "UNCHECKED"
)

// PackingItem is one entry on a trip's packing checklist.
type PackingItem struct {
	ID          string     `json:"id"`
	ChecklistID string     `json:"checklistId"`
	Name        string     `json:"name"`
	Quantity    int        `json:"quantity"`
	Status      ItemStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type PackingItemCreate struct {
	Name     string `json:"name" binding:"required"`
	Quantity int    `json:"quantity,omitempty"`
}

type PackingItemUpdate struct {
	Name     *string     `json:"name,omitempty"`
	Quantity *int        `json:"quantity,omitempty"`
	Status   *ItemStatus `json:"status,omitempty"`
}

// BulkItemsCreate is used by the AI-suggestion flow to add several items
// at once.
type BulkItemsCreate struct {
	Names []string `json:"names" binding:"required,min=1"`
}

func (s ItemStatus) Ptr() *ItemStatus {
	return &s
}
