// Package rental implements the vehicle-rental catalogue: typed repositories
// for delegations, cars, bookings and users over the single-table store, the
// cascade-delete rules between them, and the availability resolver that
// reconciles cars against bookings by date-interval overlap.
//
// The package is stateless; every operation is safe for concurrent use
// against the same backing table. Concurrent writers to one entity are
// last-write-wins, and the availability check and a subsequent booking write
// are two independent operations, not one transaction.
package rental
