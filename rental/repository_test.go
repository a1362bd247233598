package rental_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/rentiva/rentiva/internal/dynafake"
	"github.com/rentiva/rentiva/rental"
	"github.com/rentiva/rentiva/store"
)

func newCatalog(t *testing.T) (*rental.Catalog, *dynafake.Client) {
	t.Helper()
	client := dynafake.New()
	s := store.New(client, store.Config{TableName: "test"})
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return rental.New(s, logger), client
}

// seedDelegation saves a delegation and returns its id.
func seedDelegation(t *testing.T, c *rental.Catalog) string {
	t.Helper()
	d := rental.Delegation{Name: "Centro", City: "Barcelona"}
	if err := c.Delegations.Save(context.Background(), &d); err != nil {
		t.Fatalf("save delegation: %v", err)
	}
	return d.ID
}

func seedCar(t *testing.T, c *rental.Catalog, delegationID string, year int) string {
	t.Helper()
	car := rental.Car{DelegationID: delegationID, Make: "Seat", Model: "Ibiza", Year: year}
	if err := c.Cars.Save(context.Background(), &car); err != nil {
		t.Fatalf("save car: %v", err)
	}
	return car.ID
}

func seedUser(t *testing.T, c *rental.Catalog) string {
	t.Helper()
	u := rental.User{Username: "ana", Email: "ana@example.com"}
	if err := c.Users.Save(context.Background(), &u); err != nil {
		t.Fatalf("save user: %v", err)
	}
	return u.ID
}

func seedBooking(t *testing.T, c *rental.Catalog, carID, userID, start, end string) string {
	t.Helper()
	b := rental.Booking{CarID: carID, UserID: userID, StartDate: start, EndDate: end}
	if err := c.Bookings.Save(context.Background(), &b); err != nil {
		t.Fatalf("save booking: %v", err)
	}
	return b.ID
}

func TestDelegationLifecycle(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	d := rental.Delegation{Name: "Centro", City: "Barcelona", Manager: "Marta"}
	if err := c.Delegations.Save(ctx, &d); err != nil {
		t.Fatalf("save: %v", err)
	}
	if d.ID == "" {
		t.Fatal("expected generated identifier")
	}

	got, err := c.Delegations.Get(ctx, d.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Name != "Centro" || got.Manager != "Marta" {
		t.Errorf("unexpected delegation %+v", got)
	}

	all, err := c.Delegations.ListAll(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 1 {
		t.Errorf("expected 1 delegation, got %d", len(all))
	}
}

func TestCarSave_RequiresExistingDelegation(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	err := c.Cars.Save(ctx, &rental.Car{Make: "Seat"})
	if !errors.Is(err, rental.ErrConstraintViolation) {
		t.Errorf("missing delegation id: expected ErrConstraintViolation, got %v", err)
	}

	err = c.Cars.Save(ctx, &rental.Car{Make: "Seat", DelegationID: "ghost"})
	if !errors.Is(err, rental.ErrConstraintViolation) {
		t.Errorf("unknown delegation: expected ErrConstraintViolation, got %v", err)
	}
}

func TestCarSave_KeepsSuppliedID(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)

	car := rental.Car{ID: "my-car", DelegationID: delegationID, Make: "Seat"}
	if err := c.Cars.Save(ctx, &car); err != nil {
		t.Fatalf("save: %v", err)
	}
	if car.ID != "my-car" {
		t.Errorf("expected supplied id to be kept, got %q", car.ID)
	}
	if _, err := c.Cars.Get(ctx, "my-car"); err != nil {
		t.Errorf("get by supplied id: %v", err)
	}
}

func TestBookingSave_Validation(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)
	carID := seedCar(t, c, delegationID, 2010)
	userID := seedUser(t, c)

	tests := []struct {
		name    string
		booking rental.Booking
		wantErr error
	}{
		{
			"unknown car",
			rental.Booking{CarID: "ghost", UserID: userID, StartDate: "2024-03-01", EndDate: "2024-03-05"},
			rental.ErrConstraintViolation,
		},
		{
			"unknown user",
			rental.Booking{CarID: carID, UserID: "ghost", StartDate: "2024-03-01", EndDate: "2024-03-05"},
			rental.ErrConstraintViolation,
		},
		{
			"missing car",
			rental.Booking{UserID: userID, StartDate: "2024-03-01", EndDate: "2024-03-05"},
			rental.ErrConstraintViolation,
		},
		{
			"inverted range",
			rental.Booking{CarID: carID, UserID: userID, StartDate: "2024-03-05", EndDate: "2024-03-01"},
			rental.ErrInvalidDateRange,
		},
		{
			"unparseable date",
			rental.Booking{CarID: carID, UserID: userID, StartDate: "tomorrow", EndDate: "2024-03-05"},
			rental.ErrInvalidDateRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.Bookings.Save(ctx, &tt.booking)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestBookingSave_StampsIDAndDate(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)
	carID := seedCar(t, c, delegationID, 2010)
	userID := seedUser(t, c)

	b := rental.Booking{CarID: carID, UserID: userID, StartDate: "2024-03-01", EndDate: "2024-03-05"}
	if err := c.Bookings.Save(ctx, &b); err != nil {
		t.Fatalf("save: %v", err)
	}
	if b.ID == "" {
		t.Error("expected generated booking id")
	}
	if b.BookingDate == "" {
		t.Error("expected stamped booking date")
	}
	if _, err := rental.ParseDate(b.BookingDate); err != nil {
		t.Errorf("booking date not a calendar date: %v", err)
	}
}

func TestBookingLookups(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)
	car1 := seedCar(t, c, delegationID, 2010)
	car2 := seedCar(t, c, delegationID, 2012)
	user1 := seedUser(t, c)
	user2 := seedUser(t, c)

	seedBooking(t, c, car1, user1, "2024-03-01", "2024-03-05")
	seedBooking(t, c, car1, user2, "2024-04-01", "2024-04-05")
	seedBooking(t, c, car2, user1, "2024-03-01", "2024-03-05")

	byCar, err := c.Bookings.ListByCar(ctx, car1)
	if err != nil {
		t.Fatalf("list by car: %v", err)
	}
	if len(byCar) != 2 {
		t.Errorf("expected 2 bookings for car1, got %d", len(byCar))
	}

	byUser, err := c.Bookings.ListByUser(ctx, user1)
	if err != nil {
		t.Fatalf("list by user: %v", err)
	}
	if len(byUser) != 2 {
		t.Errorf("expected 2 bookings for user1, got %d", len(byUser))
	}

	all, err := c.Bookings.ListAll(ctx)
	if err != nil {
		t.Fatalf("list all: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("expected 3 bookings, got %d", len(all))
	}
}

func TestCarDelete_CascadesBookings(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)
	carID := seedCar(t, c, delegationID, 2010)
	userID := seedUser(t, c)
	bookingID := seedBooking(t, c, carID, userID, "2024-03-01", "2024-03-05")

	if err := c.Cars.Delete(ctx, carID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	if _, err := c.Cars.Get(ctx, carID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected car gone, got %v", err)
	}
	if _, err := c.Bookings.Get(ctx, bookingID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected booking gone, got %v", err)
	}
	// The user survives the cascade.
	if _, err := c.Users.Get(ctx, userID); err != nil {
		t.Errorf("expected user to survive, got %v", err)
	}
}

func TestDelegationDelete_CascadeComplete(t *testing.T) {
	c, client := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)
	userID := seedUser(t, c)
	car1 := seedCar(t, c, delegationID, 2010)
	car2 := seedCar(t, c, delegationID, 1995)
	seedBooking(t, c, car1, userID, "2024-03-01", "2024-03-05")
	seedBooking(t, c, car2, userID, "2024-04-01", "2024-04-05")

	otherDelegation := seedDelegation(t, c)
	survivorCar := seedCar(t, c, otherDelegation, 2015)

	if err := c.Delegations.Delete(ctx, delegationID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// No car of the delegation remains, and no booking of those cars.
	cars, err := c.Cars.ListByDelegation(ctx, delegationID)
	if err != nil {
		t.Fatalf("list cars: %v", err)
	}
	if len(cars) != 0 {
		t.Errorf("expected no cars for deleted delegation, got %d", len(cars))
	}
	bookings, err := c.Bookings.ListAll(ctx)
	if err != nil {
		t.Fatalf("list bookings: %v", err)
	}
	if len(bookings) != 0 {
		t.Errorf("expected no bookings to survive, got %d", len(bookings))
	}

	// Unrelated entities are untouched.
	if _, err := c.Cars.Get(ctx, survivorCar); err != nil {
		t.Errorf("expected unrelated car to survive, got %v", err)
	}
	if _, err := c.Delegations.Get(ctx, otherDelegation); err != nil {
		t.Errorf("expected unrelated delegation to survive, got %v", err)
	}

	// Remaining items: other delegation, its car, the user.
	if client.Len() != 3 {
		t.Errorf("expected 3 items left, got %d", client.Len())
	}
}

func TestDelegationDelete_Retryable(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()
	delegationID := seedDelegation(t, c)

	if err := c.Delegations.Delete(ctx, delegationID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	// A retry after a (hypothetical) interruption finds the diminished
	// remainder and still succeeds.
	if err := c.Delegations.Delete(ctx, delegationID); err != nil {
		t.Fatalf("second delete: %v", err)
	}
}

func TestUserLifecycle(t *testing.T) {
	c, _ := newCatalog(t)
	ctx := context.Background()

	u := rental.User{Username: "ana", Email: "ana@example.com", Roles: []string{"admin"}}
	if err := c.Users.Save(ctx, &u); err != nil {
		t.Fatalf("save: %v", err)
	}
	if u.ID == "" {
		t.Fatal("expected generated identifier")
	}
	if u.CreatedAt == "" {
		t.Fatal("expected stamped creation time")
	}

	got, err := c.Users.Get(ctx, u.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Username != "ana" || len(got.Roles) != 1 {
		t.Errorf("unexpected user %+v", got)
	}

	if err := c.Users.Delete(ctx, u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := c.Users.Get(ctx, u.ID); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}
