// Package simulate generates a synthetic fleet: drivers, vehicles,
// trips and per-second telematics events with injected harsh braking
// and acceleration episodes. Output is deterministic for a fixed seed
// apart from the generated UUIDs.
package simulate

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"

	"telematics-risk-lab/internal/domain"
)

const (
	secondsPerEvent     = 1
	avgTripDurationMins = 20
	minTripSeconds      = 60
	harshEpisodeLen     = 5
	gravityMS2          = -9.8

	// Degrees of latitude/longitude per mile, around the start point.
	milesPerDegreeLat = 69.0
	milesPerDegreeLon = 54.6
)

// Start point for the GPS random walk.
const (
	startLatitude  = 40.7128
	startLongitude = -74.0060
)

// Config controls fleet generation.
type Config struct {
	Drivers        int
	TripsPerDriver int

	// WindowStart is the earliest possible trip start. Trips are spread
	// uniformly over WindowDays from here.
	WindowStart time.Time
	WindowDays  int

	Seed int64
}

// DefaultConfig returns a 50-driver fleet over the 90 days before now.
func DefaultConfig() Config {
	return Config{
		Drivers:        50,
		TripsPerDriver: 50,
		WindowStart:    time.Now().UTC().AddDate(0, 0, -90),
		WindowDays:     90,
		Seed:           1,
	}
}

// Fleet is a generated data set ready to load into the raw stores.
type Fleet struct {
	Vehicles []*domain.Vehicle
	Trips    []*domain.Trip
	Events   []*domain.Event
}

// Generate builds a synthetic fleet from cfg.
func Generate(cfg Config) *Fleet {
	rng := rand.New(rand.NewSource(cfg.Seed))

	fleet := &Fleet{}
	for d := 0; d < cfg.Drivers; d++ {
		driverID := fmt.Sprintf("driver_%d", d+1)
		vehicle := &domain.Vehicle{
			VehicleID: uuid.NewString(),
			DriverID:  driverID,
		}
		fleet.Vehicles = append(fleet.Vehicles, vehicle)

		for t := 0; t < cfg.TripsPerDriver; t++ {
			trip, events := generateTrip(rng, cfg, vehicle.VehicleID)
			fleet.Trips = append(fleet.Trips, trip)
			fleet.Events = append(fleet.Events, events...)
		}
	}
	return fleet
}

func generateTrip(rng *rand.Rand, cfg Config, vehicleID string) (*domain.Trip, []*domain.Event) {
	offsetDays := rng.Float64() * float64(cfg.WindowDays)
	offsetSeconds := rng.Float64() * 24 * 3600
	start := cfg.WindowStart.
		Add(time.Duration(offsetDays * 24 * float64(time.Hour))).
		Add(time.Duration(offsetSeconds * float64(time.Second)))

	durationSeconds := int(rng.NormFloat64()*10*60 + avgTripDurationMins*60)
	if durationSeconds < minTripSeconds {
		durationSeconds = minTripSeconds
	}

	trip := &domain.Trip{
		TripID:    uuid.NewString(),
		VehicleID: vehicleID,
		StartTime: start,
		EndTime:   start.Add(time.Duration(durationSeconds) * time.Second),
	}
	return trip, generateEvents(rng, trip, durationSeconds)
}

func generateEvents(rng *rand.Rand, trip *domain.Trip, durationSeconds int) []*domain.Event {
	numEvents := durationSeconds / secondsPerEvent
	if numEvents == 0 {
		return nil
	}

	speeds := make([]float64, numEvents)
	for i := range speeds {
		base := 15 + rng.Float64()*45
		speeds[i] = math.Max(0, base+rng.NormFloat64())
	}
	injectHarshEpisodes(rng, speeds)

	step := float64(durationSeconds) / float64(numEvents)
	lat, lon := startLatitude, startLongitude

	events := make([]*domain.Event, numEvents)
	prevSpeed := 0.0
	for i := 0; i < numEvents; i++ {
		// GPS random walk scaled to the distance covered in one tick.
		latStep := speeds[i] * secondsPerEvent / 3600 / milesPerDegreeLat
		lonStep := speeds[i] * secondsPerEvent / 3600 / milesPerDegreeLon
		lat += rng.NormFloat64() * latStep
		lon += rng.NormFloat64() * lonStep

		events[i] = &domain.Event{
			TripID:    trip.TripID,
			Timestamp: trip.StartTime.Add(time.Duration(float64(i) * step * float64(time.Second))),
			SpeedMPH:  speeds[i],
			AccelX:    rng.NormFloat64() * 0.1,
			AccelY:    (speeds[i] - prevSpeed) * 0.1,
			AccelZ:    gravityMS2 + rng.NormFloat64()*0.05,
			Latitude:  lat,
			Longitude: lon,
		}
		prevSpeed = speeds[i]
	}
	return events
}

// injectHarshEpisodes applies up to three five-sample ramps where the
// speed halves (harsh brake) or grows by half (rapid acceleration).
func injectHarshEpisodes(rng *rand.Rand, speeds []float64) {
	for n := rng.Intn(4); n > 0; n-- {
		if len(speeds) < harshEpisodeLen+1 {
			return
		}
		idx := rng.Intn(len(speeds) - harshEpisodeLen)
		brake := rng.Intn(2) == 0
		for i := 0; i < harshEpisodeLen; i++ {
			frac := float64(i) / float64(harshEpisodeLen-1)
			if brake {
				speeds[idx+i] *= 1 - 0.5*frac
			} else {
				speeds[idx+i] *= 1 + 0.5*frac
			}
		}
	}
}
