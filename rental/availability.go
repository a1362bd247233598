package rental

import (
	"context"
	"log/slog"
)

// vintageCutoffYear splits the fleet into vintage (before) and modern
// (from this year on).
const vintageCutoffYear = 2000

// Resolver computes which cars of a delegation are free for a requested
// date range. It intersects the delegation's fleet with the bookings that
// overlap the range, car by car: O(cars × bookings-per-car). That stays
// cheap because branch fleets and per-car booking counts are small; a
// global bookings scan would not be an improvement, it would just move the
// cost to the whole table.
type Resolver struct {
	cars     *Cars
	bookings *Bookings
	logger   *slog.Logger
}

// NewResolver creates an availability resolver. A nil logger falls back to
// slog.Default().
func NewResolver(cars *Cars, bookings *Bookings, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		cars:     cars,
		bookings: bookings,
		logger:   logger,
	}
}

// FindAvailableCars returns the cars of a delegation that are free for the
// inclusive date range [startDate, endDate], filtered by vintage mode:
// vintage keeps cars built before 2000, modern keeps the rest. A car with
// an unknown year satisfies neither mode. Results keep the order the cars
// were encountered in; no business-key ordering is applied.
func (r *Resolver) FindAvailableCars(ctx context.Context, delegationID, startDate, endDate string, vintage bool) ([]Car, error) {
	query, err := NewDateRange(startDate, endDate)
	if err != nil {
		return nil, err
	}

	cars, err := r.cars.ListByDelegation(ctx, delegationID)
	if err != nil {
		return nil, err
	}

	r.logger.Debug("resolving availability",
		"delegationId", delegationID,
		"start", startDate,
		"end", endDate,
		"vintage", vintage,
		"fleet", len(cars),
	)

	available := make([]Car, 0, len(cars))
	for _, car := range cars {
		if !matchesVintageMode(car, vintage) {
			continue
		}
		if car.ID == "" {
			r.logger.Warn("skipping car without identifier",
				"make", car.Make,
				"model", car.Model,
			)
			continue
		}

		bookings, err := r.bookings.ListByCar(ctx, car.ID)
		if err != nil {
			return nil, err
		}

		if booked, by := overlapping(bookings, query); booked {
			r.logger.Debug("car booked in range",
				"carId", car.ID,
				"bookingId", by,
			)
			continue
		}
		available = append(available, car)
	}

	r.logger.Info("availability resolved",
		"delegationId", delegationID,
		"available", len(available),
	)
	return available, nil
}

// matchesVintageMode applies the vintage policy. A zero year is unknown and
// is excluded from both modes.
func matchesVintageMode(car Car, vintage bool) bool {
	if car.Year == 0 {
		return false
	}
	if vintage {
		return car.Year < vintageCutoffYear
	}
	return car.Year >= vintageCutoffYear
}

// overlapping reports whether any booking overlaps the query range, and if
// so which one.
func overlapping(bookings []Booking, query DateRange) (bool, string) {
	for _, booking := range bookings {
		if booking.Overlaps(query) {
			return true, booking.ID
		}
	}
	return false, ""
}
