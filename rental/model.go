package rental

// Delegation is a rental branch. Cars belong to exactly one delegation.
type Delegation struct {
	ID        string  `dynamodbav:"delegationId"`
	Name      string  `dynamodbav:"name"`
	Address   string  `dynamodbav:"address"`
	City      string  `dynamodbav:"city"`
	Latitude  float64 `dynamodbav:"latitude"`
	Longitude float64 `dynamodbav:"longitude"`
	Manager   string  `dynamodbav:"manager"`
	Phone     string  `dynamodbav:"phone"`
}

// Car is a rentable vehicle owned by one delegation. A zero Year means the
// production year is unknown.
type Car struct {
	ID           string  `dynamodbav:"carId"`
	DelegationID string  `dynamodbav:"delegationId"`
	Make         string  `dynamodbav:"make"`
	Model        string  `dynamodbav:"model"`
	Year         int     `dynamodbav:"year,omitempty"`
	Color        string  `dynamodbav:"color"`
	Price        float64 `dynamodbav:"price"`
	Rented       bool    `dynamodbav:"rented"`

	Engine       string `dynamodbav:"engine,omitempty"`
	Horsepower   string `dynamodbav:"horsepower,omitempty"`
	Transmission string `dynamodbav:"transmission,omitempty"`
	FuelEconomy  string `dynamodbav:"fuelEconomy,omitempty"`
	Acceleration string `dynamodbav:"acceleration,omitempty"`
	SafetyRating string `dynamodbav:"safetyRating,omitempty"`
	Dimensions   string `dynamodbav:"dimensions,omitempty"`
	CargoVolume  string `dynamodbav:"cargoVolume,omitempty"`
}

// Booking reserves one car for one user over an inclusive date range.
// Dates are ISO-8601 calendar dates (YYYY-MM-DD) with no time component.
type Booking struct {
	ID                  string  `dynamodbav:"bookingId"`
	UserID              string  `dynamodbav:"userId"`
	CarID               string  `dynamodbav:"carId"`
	StartDate           string  `dynamodbav:"startDate"`
	EndDate             string  `dynamodbav:"endDate"`
	BookingDate         string  `dynamodbav:"bookingDate"`
	Status              string  `dynamodbav:"status"`
	StatusPayment       string  `dynamodbav:"statusPayment"`
	StatusBooking       string  `dynamodbav:"statusBooking"`
	TotalToPayment      float64 `dynamodbav:"totalToPayment"`
	PickUpDelegationID  string  `dynamodbav:"pickUpDelegationId,omitempty"`
	DeliverDelegationID string  `dynamodbav:"deliverDelegationId,omitempty"`
}

// Overlaps reports whether the booking's inclusive date range intersects the
// query range. A booking missing either date, or carrying an unparseable
// one, cannot overlap anything.
func (b Booking) Overlaps(r DateRange) bool {
	return r.overlapsStrings(b.StartDate, b.EndDate)
}

// User is an account known to the catalogue. Authentication and role
// enforcement happen outside the core; roles are stored verbatim.
type User struct {
	ID        string   `dynamodbav:"userId"`
	Username  string   `dynamodbav:"username"`
	Email     string   `dynamodbav:"email"`
	FullName  string   `dynamodbav:"fullName"`
	Phone     string   `dynamodbav:"phone"`
	Roles     []string `dynamodbav:"roles,omitempty"`
	CreatedAt string   `dynamodbav:"createdAt"`
}
