package types

import (
	"time"
)

type TripStatus string

const (
	TripStatusPlanning TripStatus = "PLANNING"
	TripStatusActive   TripStatus = "ACTIVE"
	TripStatusComplete TripStatus = "COMPLETED"
)

// Trip is a journey with a packing checklist attached. The checklist shares
// the trip's id: one trip, one checklist.
type Trip struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Destination string     `json:"destination"`
	StartDate   time.Time  `json:"startDate"`
	EndDate     time.Time  `json:"endDate"`
	Status      TripStatus `json:"status"`
	CreatedBy   string     `json:"createdBy"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

type TripCreate struct {
	Name        string    `json:"name" binding:"required"`
	Destination string    `json:"destination" binding:"required"`
	StartDate   time.Time `json:"startDate" binding:"required"`
	EndDate     time.Time `json:"endDate" binding:"required"`
}

type TripUpdate struct {
	Name        *string     `json:"name,omitempty"`
	Destination *string     `json:"destination,omitempty"`
	StartDate   *time.Time  `json:"startDate,omitempty"`
	EndDate     *time.Time  `json:"endDate,omitempty"`
	Status      *TripStatus `json:"status,omitempty"`
}
