package domain

import (
	"encoding/json"
	"time"
)

// Notification is an entry in the admin notification feed.
type Notification struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Message   string     `json:"message"`
	Type      string     `json:"type,omitempty"`
	IsRead    bool       `json:"isRead"`
	Link      string     `json:"link,omitempty"`
	OrderID   string     `json:"orderId,omitempty"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// RecordID returns the notification's identifier.
func (n Notification) RecordID() string { return n.ID }

// UnmarshalJSON accepts both "_id" and "id".
func (n *Notification) UnmarshalJSON(data []byte) error {
	type alias Notification
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(n)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if n.ID == "" {
		n.ID = aux.AltID
	}
	return nil
}

// NotificationStatistics are the counters the notification feed reports.
type NotificationStatistics struct {
	UnreadCount *int `json:"unreadCount,omitempty"`
}
