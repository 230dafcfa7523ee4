package instances

import (
	"fmt"
	"strings"
	"time"
)

// ConnectionStatus is the connection state reported by the messaging API.
type ConnectionStatus string

const (
	StatusOnline     ConnectionStatus = "ONLINE"
	StatusOffline    ConnectionStatus = "OFFLINE"
	StatusError      ConnectionStatus = "ERROR"
	StatusConnecting ConnectionStatus = "CONNECTING"
)

// AllStatuses lists every ConnectionStatus in display order.
var AllStatuses = []ConnectionStatus{StatusOnline, StatusOffline, StatusError, StatusConnecting}

// ParseConnectionStatus accepts any letter case.
func ParseConnectionStatus(s string) (ConnectionStatus, error) {
	status := ConnectionStatus(strings.ToUpper(strings.TrimSpace(s)))
	for _, known := range AllStatuses {
		if status == known {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown connection status %q", s)
}

// Instance is one session with the external messaging service.
// Auth and Webhook are passed through untouched.
type Instance struct {
	ID               int64            `json:"id"`
	Name             string           `json:"name"`
	Description      *string          `json:"description"`
	ConnectionStatus ConnectionStatus `json:"connectionStatus"`
	OwnerJID         string           `json:"ownerJid,omitempty"`
	ProfilePicURL    string           `json:"profilePicUrl,omitempty"`
	CreatedAt        time.Time        `json:"createdAt"`
	UpdatedAt        time.Time        `json:"updatedAt"`
	Auth             *Auth            `json:"Auth,omitempty"`
	Webhook          *Webhook         `json:"Webhook,omitempty"`
}

type Auth struct {
	ID        int64     `json:"id"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Webhook struct {
	ID        int64           `json:"id"`
	Enabled   bool            `json:"enabled"`
	URL       string          `json:"url"`
	Events    map[string]bool `json:"events"`
	CreatedAt time.Time       `json:"createdAt"`
	UpdatedAt time.Time       `json:"updatedAt"`
}
