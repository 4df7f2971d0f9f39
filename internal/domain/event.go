package domain

import "time"

// Event is a single raw telematics sample emitted roughly once per second
// while a vehicle is moving. Events are immutable and strictly
// time-ordered within a trip.
type Event struct {
	TripID    string    // owning trip identifier
	Timestamp time.Time // UTC sample instant
	SpeedMPH  float64   // instantaneous speed in miles per hour
	AccelX    float64   // lateral acceleration (m/s^2)
	AccelY    float64   // longitudinal acceleration (m/s^2), negative = braking
	AccelZ    float64   // vertical acceleration (m/s^2), ~-9.8 at rest
	Latitude  float64   // GPS latitude
	Longitude float64   // GPS longitude
}

// Trip is one vehicle journey. Never mutated after creation; a trip owns
// one-to-many events.
type Trip struct {
	TripID    string    // trip identifier
	VehicleID string    // owning vehicle
	StartTime time.Time // UTC trip start
	EndTime   time.Time // UTC trip end
}

// Vehicle links a vehicle to its driver. Static per ingestion epoch.
type Vehicle struct {
	VehicleID string // vehicle identifier
	DriverID  string // owning driver identifier
}

// NormalizedEvent is an Event annotated with its resolved driver
// identity and trip start time, produced by the event normalizer.
type NormalizedEvent struct {
	Event
	DriverID  string    // resolved via trip -> vehicle -> driver
	VehicleID string    // owning vehicle
	TripStart time.Time // start time of the owning trip
}
