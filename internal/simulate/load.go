package simulate

import (
	"context"
	"fmt"

	"telematics-risk-lab/internal/storage"
)

// Load inserts the fleet into the raw stores.
func (f *Fleet) Load(ctx context.Context, vehicles storage.VehicleStore, trips storage.TripStore, events storage.EventStore) error {
	if err := vehicles.InsertBulk(ctx, f.Vehicles); err != nil {
		return fmt.Errorf("load vehicles: %w", err)
	}
	if err := trips.InsertBulk(ctx, f.Trips); err != nil {
		return fmt.Errorf("load trips: %w", err)
	}
	if err := events.InsertBulk(ctx, f.Events); err != nil {
		return fmt.Errorf("load events: %w", err)
	}
	return nil
}
