// Package stream provides a DynamoDB Streams handler that sweeps up
// dependents left behind by interrupted cascade deletes.
package stream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/aws/aws-lambda-go/events"

	"github.com/rentiva/rentiva/rental"
	"github.com/rentiva/rentiva/store"
)

// Handler processes DynamoDB stream events for cascade sweeps.
//
// Deleting a delegation or a car cascades synchronously in the rental
// package. When that sequence is interrupted, the owner item may be gone
// while dependents remain. This handler watches REMOVE events and re-runs
// the cascade for the removed owner, so partial cascades converge. Every
// step is an idempotent delete; re-delivered events are harmless.
type Handler struct {
	catalog *rental.Catalog
	logger  *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(catalog *rental.Catalog, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		catalog: catalog,
		logger:  logger,
	}
}

// HandleCascadeSweep processes DynamoDB stream events, deleting dependents
// of removed delegations and cars. Designed to be used as an AWS Lambda
// handler.
func (h *Handler) HandleCascadeSweep(ctx context.Context, event events.DynamoDBEvent) error {
	for _, record := range event.Records {
		if err := h.processRecord(ctx, record); err != nil {
			h.logger.Error("failed to process record",
				"eventID", record.EventID,
				"error", err,
			)
			return err // Will retry, eventually DLQ
		}
	}
	return nil
}

// processRecord sweeps the dependents of a single removed item.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	if record.EventName != "REMOVE" {
		return nil
	}

	old := record.Change.OldImage
	kind := store.Kind(getStringAttr(old, store.AttributeItemType))

	switch kind {
	case store.KindDelegation:
		return h.sweepDelegation(ctx, getStringAttr(old, store.AttributeDelegationID))
	case store.KindCar:
		return h.sweepCar(ctx, getStringAttr(old, store.AttributeCarID))
	default:
		return nil
	}
}

// sweepDelegation deletes cars still owned by a removed delegation, and
// through them their bookings.
func (h *Handler) sweepDelegation(ctx context.Context, delegationID string) error {
	if delegationID == "" {
		return nil
	}

	cars, err := h.catalog.Cars.ListByDelegation(ctx, delegationID)
	if err != nil {
		return fmt.Errorf("enumerate cars: %w", err)
	}

	h.logger.Info("sweeping removed delegation",
		"delegationId", delegationID,
		"cars", len(cars),
	)

	for _, car := range cars {
		if err := h.catalog.Cars.Delete(ctx, car.ID); err != nil {
			return fmt.Errorf("sweep car %s: %w", car.ID, err)
		}
	}
	return nil
}

// sweepCar deletes bookings still referencing a removed car.
func (h *Handler) sweepCar(ctx context.Context, carID string) error {
	if carID == "" {
		return nil
	}

	bookings, err := h.catalog.Bookings.ListByCar(ctx, carID)
	if err != nil {
		return fmt.Errorf("enumerate bookings: %w", err)
	}

	h.logger.Info("sweeping removed car",
		"carId", carID,
		"bookings", len(bookings),
	)

	for _, booking := range bookings {
		if err := h.catalog.Bookings.Delete(ctx, booking.ID); err != nil {
			return fmt.Errorf("sweep booking %s: %w", booking.ID, err)
		}
	}
	return nil
}

// getStringAttr extracts a string attribute from a DynamoDB stream image.
// Missing or non-string attributes yield "": String() panics on other data
// types, and a malformed record must be skipped, not crash the handler.
func getStringAttr(image map[string]events.DynamoDBAttributeValue, key string) string {
	if v, ok := image[key]; ok && v.DataType() == events.DataTypeString {
		return v.String()
	}
	return ""
}
