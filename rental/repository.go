package rental

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rentiva/rentiva/store"
)

// Repository provides the CRUD operations shared by every entity kind: a
// single generic contract implemented once against the store, instead of one
// ad-hoc interface per entity.
type Repository[T any] struct {
	store *store.Store
	kind  store.Kind
}

// NewRepository creates a repository for one entity kind.
func NewRepository[T any](s *store.Store, kind store.Kind) Repository[T] {
	return Repository[T]{store: s, kind: kind}
}

// Save upserts the value under the kind's derived key. Identifiers are
// assigned once at creation; saving under a different id writes a new item,
// it never renames.
func (r Repository[T]) Save(ctx context.Context, id string, value *T) error {
	return r.store.Put(ctx, r.kind, id, value)
}

// Get retrieves the entity with the given identifier.
func (r Repository[T]) Get(ctx context.Context, id string) (*T, error) {
	var out T
	if err := r.store.Get(ctx, r.kind, id, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// List returns every entity of the kind via a filtered full-table scan.
// Administrative use only; result order is unspecified.
func (r Repository[T]) List(ctx context.Context) ([]T, error) {
	items, err := r.store.Scan(ctx, store.Condition{
		Attribute: store.AttributeItemType,
		Value:     string(r.kind),
	})
	if err != nil {
		return nil, err
	}
	return unmarshalAll[T](items)
}

// Delete removes the entity with the given identifier. Idempotent.
func (r Repository[T]) Delete(ctx context.Context, id string) error {
	return r.store.Delete(ctx, r.kind, id)
}

// lookup resolves entities of the kind whose attribute equals value, through
// whichever reverse-lookup strategy the store is configured with.
func (r Repository[T]) lookup(ctx context.Context, attribute, value string) ([]T, error) {
	items, err := r.store.ReverseLookup(attribute).Lookup(ctx, r.kind, value)
	if err != nil {
		return nil, err
	}
	return unmarshalAll[T](items)
}

func unmarshalAll[T any](items []store.Item) ([]T, error) {
	out := make([]T, 0, len(items))
	for _, item := range items {
		var v T
		if err := store.UnmarshalItem(item, &v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// Catalog bundles the typed repositories and the availability resolver over
// one store.
type Catalog struct {
	Delegations *Delegations
	Cars        *Cars
	Bookings    *Bookings
	Users       *Users

	// Availability answers the free-car query; see Resolver.
	Availability *Resolver
}

// New wires a Catalog over the given store. A nil logger falls back to
// slog.Default().
func New(s *store.Store, logger *slog.Logger) *Catalog {
	if logger == nil {
		logger = slog.Default()
	}

	users := &Users{repo: NewRepository[User](s, store.KindUser)}
	bookings := &Bookings{
		repo:   NewRepository[Booking](s, store.KindBooking),
		cars:   NewRepository[Car](s, store.KindCar),
		users:  users.repo,
		logger: logger,
	}
	cars := &Cars{
		repo:        NewRepository[Car](s, store.KindCar),
		delegations: NewRepository[Delegation](s, store.KindDelegation),
		bookings:    bookings,
		logger:      logger,
	}
	delegations := &Delegations{
		repo:   NewRepository[Delegation](s, store.KindDelegation),
		cars:   cars,
		logger: logger,
	}

	return &Catalog{
		Delegations:  delegations,
		Cars:         cars,
		Bookings:     bookings,
		Users:        users,
		Availability: NewResolver(cars, bookings, logger),
	}
}

// Delegations manages rental branches.
type Delegations struct {
	repo   Repository[Delegation]
	cars   *Cars
	logger *slog.Logger
}

// Save upserts a delegation, generating an identifier when absent.
func (d *Delegations) Save(ctx context.Context, delegation *Delegation) error {
	if delegation.ID == "" {
		delegation.ID = store.NewID()
	}
	return d.repo.Save(ctx, delegation.ID, delegation)
}

// Get retrieves a delegation by identifier.
func (d *Delegations) Get(ctx context.Context, id string) (*Delegation, error) {
	return d.repo.Get(ctx, id)
}

// ListAll returns every delegation. O(table size).
func (d *Delegations) ListAll(ctx context.Context) ([]Delegation, error) {
	return d.repo.List(ctx)
}

// Delete removes a delegation and cascades to every car it owns, and through
// them to every booking of those cars. Each step is an idempotent delete, so
// an interrupted cascade is safe to retry: re-enumeration finds the
// diminished remainder.
func (d *Delegations) Delete(ctx context.Context, id string) error {
	cars, err := d.cars.ListByDelegation(ctx, id)
	if err != nil {
		return fmt.Errorf("enumerate cars of delegation %s: %w", id, err)
	}

	d.logger.Info("cascading delegation delete",
		"delegationId", id,
		"cars", len(cars),
	)

	for _, car := range cars {
		if err := d.cars.Delete(ctx, car.ID); err != nil {
			return fmt.Errorf("cascade car %s: %w", car.ID, err)
		}
	}

	return d.repo.Delete(ctx, id)
}

// Cars manages vehicles.
type Cars struct {
	repo        Repository[Car]
	delegations Repository[Delegation]
	bookings    *Bookings
	logger      *slog.Logger
}

// Save upserts a car, generating an identifier when absent. The owning
// delegation must exist.
func (c *Cars) Save(ctx context.Context, car *Car) error {
	if car.DelegationID == "" {
		return fmt.Errorf("%w: car requires a delegation", ErrConstraintViolation)
	}
	if _, err := c.delegations.Get(ctx, car.DelegationID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: delegation %s", ErrConstraintViolation, car.DelegationID)
		}
		return err
	}
	if car.ID == "" {
		car.ID = store.NewID()
	}
	return c.repo.Save(ctx, car.ID, car)
}

// Get retrieves a car by identifier.
func (c *Cars) Get(ctx context.Context, id string) (*Car, error) {
	return c.repo.Get(ctx, id)
}

// ListAll returns every car. O(table size).
func (c *Cars) ListAll(ctx context.Context) ([]Car, error) {
	return c.repo.List(ctx)
}

// ListByDelegation returns the cars owned by a delegation.
func (c *Cars) ListByDelegation(ctx context.Context, delegationID string) ([]Car, error) {
	return c.repo.lookup(ctx, store.AttributeDelegationID, delegationID)
}

// Delete removes a car and every booking referencing it. Bookings go first
// so no booking outlives its car; each delete is idempotent, so a retry
// after interruption completes the remainder.
func (c *Cars) Delete(ctx context.Context, id string) error {
	bookings, err := c.bookings.ListByCar(ctx, id)
	if err != nil {
		return fmt.Errorf("enumerate bookings of car %s: %w", id, err)
	}

	c.logger.Info("cascading car delete",
		"carId", id,
		"bookings", len(bookings),
	)

	for _, booking := range bookings {
		if err := c.bookings.Delete(ctx, booking.ID); err != nil {
			return fmt.Errorf("cascade booking %s: %w", booking.ID, err)
		}
	}

	return c.repo.Delete(ctx, id)
}

// Bookings manages reservations.
type Bookings struct {
	repo   Repository[Booking]
	cars   Repository[Car]
	users  Repository[User]
	logger *slog.Logger
}

// Save upserts a booking. The referenced car and user must exist and the
// date range must be a valid, non-inverted calendar interval. A missing
// identifier is generated and the booking date stamped with today.
//
// The availability check and this write are not atomic: two concurrent
// saves for the same car and overlapping ranges can both land (last write
// wins per item, but both items persist).
func (b *Bookings) Save(ctx context.Context, booking *Booking) error {
	if _, err := NewDateRange(booking.StartDate, booking.EndDate); err != nil {
		return err
	}
	if booking.CarID == "" {
		return fmt.Errorf("%w: booking requires a car", ErrConstraintViolation)
	}
	if booking.UserID == "" {
		return fmt.Errorf("%w: booking requires a user", ErrConstraintViolation)
	}
	if _, err := b.cars.Get(ctx, booking.CarID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: car %s", ErrConstraintViolation, booking.CarID)
		}
		return err
	}
	if _, err := b.users.Get(ctx, booking.UserID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: user %s", ErrConstraintViolation, booking.UserID)
		}
		return err
	}

	if booking.ID == "" {
		booking.ID = store.NewID()
	}
	if booking.BookingDate == "" {
		booking.BookingDate = time.Now().UTC().Format(time.DateOnly)
	}

	b.logger.Info("saving booking",
		"bookingId", booking.ID,
		"carId", booking.CarID,
		"start", booking.StartDate,
		"end", booking.EndDate,
	)
	return b.repo.Save(ctx, booking.ID, booking)
}

// Get retrieves a booking by identifier.
func (b *Bookings) Get(ctx context.Context, id string) (*Booking, error) {
	return b.repo.Get(ctx, id)
}

// ListAll returns every booking. O(table size).
func (b *Bookings) ListAll(ctx context.Context) ([]Booking, error) {
	return b.repo.List(ctx)
}

// ListByCar returns the bookings referencing a car.
func (b *Bookings) ListByCar(ctx context.Context, carID string) ([]Booking, error) {
	return b.repo.lookup(ctx, store.AttributeCarID, carID)
}

// ListByUser returns the bookings made by a user.
func (b *Bookings) ListByUser(ctx context.Context, userID string) ([]Booking, error) {
	return b.repo.lookup(ctx, store.AttributeUserID, userID)
}

// Delete removes a booking. Idempotent.
func (b *Bookings) Delete(ctx context.Context, id string) error {
	return b.repo.Delete(ctx, id)
}

// Users manages accounts.
type Users struct {
	repo Repository[User]
}

// Save upserts a user, generating an identifier and creation timestamp when
// absent.
func (u *Users) Save(ctx context.Context, user *User) error {
	if user.ID == "" {
		user.ID = store.NewID()
	}
	if user.CreatedAt == "" {
		user.CreatedAt = time.Now().UTC().Format(time.RFC3339)
	}
	return u.repo.Save(ctx, user.ID, user)
}

// Get retrieves a user by identifier.
func (u *Users) Get(ctx context.Context, id string) (*User, error) {
	return u.repo.Get(ctx, id)
}

// ListAll returns every user. O(table size).
func (u *Users) ListAll(ctx context.Context) ([]User, error) {
	return u.repo.List(ctx)
}

// Delete removes a user. Bookings made by the user are kept; they reference
// the user by id only.
func (u *Users) Delete(ctx context.Context, id string) error {
	return u.repo.Delete(ctx, id)
}
