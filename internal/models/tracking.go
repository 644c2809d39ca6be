package models

import "time"

// Normalized tracking statuses (can be extended).
const (
	TrackingStatusCreated   = "created"
	TrackingStatusPickedUp  = "picked_up"
	TrackingStatusInTransit = "in_transit"
	TrackingStatusDelivered = "delivered"
	TrackingStatusCancelled = "cancelled"
	TrackingStatusUnknown   = "unknown"
)

type TrackingEvent struct {
	ID             int64
	ShipmentID     int64
	TrackingNumber string
	Status         string
	Description    *string
	Location       *string
	EventDate      time.Time
	CreatedAt      time.Time
}
