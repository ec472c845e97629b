package types

import (
	"time"
)

// PushToken is a device's Expo push token. A user may have several active
// tokens (one per device).
type PushToken struct {
	ID         string     `json:"id"`
	UserID     string     `json:"userId"`
	Token      string     `json:"token"`
	Platform   string     `json:"platform"`
	IsActive   bool       `json:"isActive"`
	LastUsedAt *time.Time `json:"lastUsedAt,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type PushTokenRegister struct {
	Token    string `json:"token" binding:"required"`
	Platform string `json:"platform" binding:"required,oneof=ios android"`
}
