package messages

import "time"

// ShipmentTracked is published by the tracking worker after each carrier
// poll and consumed by the API to refresh shipment state and append
// tracking events.
type ShipmentTracked struct {
	ShipmentID     int64     `json:"shipment_id"`
	TrackingNumber string    `json:"tracking_number"`
	CheckedAt      time.Time `json:"checked_at"`

	Status string `json:"status,omitempty"`

	NextCheckAt time.Time `json:"next_check_at"`

	Events []TrackingEvent `json:"events,omitempty"`

	Error *string `json:"error,omitempty"`
}

type TrackingEvent struct {
	Status      string    `json:"status"`
	Description *string   `json:"description,omitempty"`
	Location    *string   `json:"location,omitempty"`
	EventDate   time.Time `json:"event_date"`
}
