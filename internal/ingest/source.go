// Package ingest streams raw telematics frames from a live feed into
// the raw-event stores. Ingestion only appends raw data; feature
// engineering stays with the offline pipeline.
package ingest

import (
	"context"
	"time"

	"telematics-risk-lab/internal/domain"
)

// Frame is one message from the telematics feed. Exactly one of the
// payload fields is set, per Type.
type Frame struct {
	Type    string        `json:"type"` // "vehicle", "trip" or "event"
	Vehicle *VehicleFrame `json:"vehicle,omitempty"`
	Trip    *TripFrame    `json:"trip,omitempty"`
	Event   *EventFrame   `json:"event,omitempty"`
}

// Frame type discriminators.
const (
	FrameVehicle = "vehicle"
	FrameTrip    = "trip"
	FrameEvent   = "event"
)

// VehicleFrame is the wire form of a vehicle registration.
type VehicleFrame struct {
	VehicleID string `json:"vehicle_id"`
	DriverID  string `json:"driver_id"`
}

// TripFrame is the wire form of a trip registration.
type TripFrame struct {
	TripID    string    `json:"trip_id"`
	VehicleID string    `json:"vehicle_id"`
	StartTime time.Time `json:"start_time_utc"`
	EndTime   time.Time `json:"end_time_utc"`
}

// EventFrame is the wire form of one telematics sample.
type EventFrame struct {
	TripID    string    `json:"trip_id"`
	Timestamp time.Time `json:"timestamp_utc"`
	SpeedMPH  float64   `json:"speed_mph"`
	AccelX    float64   `json:"accelerometer_x"`
	AccelY    float64   `json:"accelerometer_y"`
	AccelZ    float64   `json:"accelerometer_z"`
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
}

// Event converts the wire form to the domain type.
func (f *EventFrame) Event() *domain.Event {
	return &domain.Event{
		TripID:    f.TripID,
		Timestamp: f.Timestamp.UTC(),
		SpeedMPH:  f.SpeedMPH,
		AccelX:    f.AccelX,
		AccelY:    f.AccelY,
		AccelZ:    f.AccelZ,
		Latitude:  f.Latitude,
		Longitude: f.Longitude,
	}
}

// Source provides frames from an external feed.
type Source interface {
	// Next returns the next frame, blocking until one is available, the
	// feed ends, or ctx is done.
	Next(ctx context.Context) (*Frame, error)

	// Close releases the underlying connection.
	Close() error
}
