package domain

import (
	"encoding/json"
	"time"
)

// Banner is a storefront hero-slider banner.
type Banner struct {
	ID        string     `json:"_id"`
	Title     string     `json:"title"`
	Subtitle  string     `json:"subtitle,omitempty"`
	Image     string     `json:"image"`
	Link      string     `json:"link,omitempty"`
	IsActive  bool       `json:"isActive"`
	Order     int        `json:"order"`
	CreatedAt *time.Time `json:"createdAt,omitempty"`
}

// RecordID returns the banner's identifier.
func (b Banner) RecordID() string { return b.ID }

// UnmarshalJSON accepts both "_id" and "id".
func (b *Banner) UnmarshalJSON(data []byte) error {
	type alias Banner
	aux := struct {
		*alias
		AltID string `json:"id"`
	}{alias: (*alias)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	if b.ID == "" {
		b.ID = aux.AltID
	}
	return nil
}
