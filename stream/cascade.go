// Package stream provides a DynamoDB Streams handler that cascades
// soft deletes through a subtree.
//
// Deleting a node sets its TTL; the table's stream delivers that MODIFY
// event here, and the handler marks every descendant the same way. The
// descendant set is computed from the deleted node's matrix encoding
// alone, read straight off the stream image, so no extra lookup of the
// node itself is needed. Re-deleting an already-deleted node is a no-op,
// which makes retries safe.
package stream

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/aws/aws-lambda-go/events"

	"github.com/jacentio/arbor/matrix"
	"github.com/jacentio/arbor/store"
)

// Handler processes DynamoDB stream events for cascade deletes.
type Handler struct {
	store  store.Store
	logger *slog.Logger
}

// NewHandler creates a new stream handler.
func NewHandler(s store.Store, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{
		store:  s,
		logger: logger,
	}
}

// HandleCascadeDelete propagates a node's deletion to its descendants.
// This function is designed to be used as an AWS Lambda handler.
func (h *Handler) HandleCascadeDelete(ctx context.Context, event events.DynamoDBEvent) error {
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

// processRecord processes a single DynamoDB stream record.
func (h *Handler) processRecord(ctx context.Context, record events.DynamoDBEventRecord) error {
	// Only process MODIFY events where TTL was added
	if record.EventName != "MODIFY" {
		return nil
	}

	oldTTL := getNumberAttr(record.Change.OldImage, "ttl")
	newTTL := getNumberAttr(record.Change.NewImage, "ttl")

	// Only process when TTL is newly set (was absent/0, now present)
	if oldTTL != 0 || newTTL == 0 {
		return nil
	}

	treeID := getNumberAttr(record.Change.NewImage, "tree_id")
	enc, err := imageEncoding(record.Change.NewImage)
	if err != nil {
		// Counter and other non-node items also flow through the stream.
		h.logger.Debug("skipping non-node record", "eventID", record.EventID)
		return nil
	}

	h.logger.Info("processing cascade delete",
		"treeID", treeID,
		"position", [2]int64{enc.A11, enc.A21},
		"ttl", newTTL,
	)

	// Query descendants (already-deleted ones are excluded - idempotent)
	rows, err := h.store.Select(ctx, store.Query{
		TreeID: treeID,
		Where:  store.DescendantsOf(enc),
		Order:  store.OrderDepthDesc,
	})
	if err != nil {
		return fmt.Errorf("query descendants: %w", err)
	}

	for _, row := range rows {
		if err := h.store.Delete(ctx, row.TreeID, row.Enc.A11, row.Enc.A21); err != nil {
			h.logger.Warn("failed to delete descendant",
				"treeID", row.TreeID,
				"position", [2]int64{row.Enc.A11, row.Enc.A21},
				"error", err,
			)
			// Continue - idempotent, will retry
		}
	}

	h.logger.Info("cascade delete completed",
		"treeID", treeID,
		"descendantsProcessed", len(rows),
	)

	return nil
}

// imageEncoding rebuilds a node's matrix encoding from a stream image.
func imageEncoding(image map[string]events.DynamoDBAttributeValue) (matrix.Encoding, error) {
	e := matrix.Encoding{
		A11: getNumberAttr(image, "a11"),
		A12: getNumberAttr(image, "a12"),
		A21: getNumberAttr(image, "a21"),
		A22: getNumberAttr(image, "a22"),
	}
	if err := e.Validate(); err != nil {
		return matrix.Encoding{}, err
	}
	return e, nil
}

// getNumberAttr extracts a number attribute from a DynamoDB stream image.
func getNumberAttr(image map[string]events.DynamoDBAttributeValue, key string) int64 {
	if v, ok := image[key]; ok {
		if v.DataType() == events.DataTypeNumber {
			n, _ := strconv.ParseInt(v.Number(), 10, 64)
			return n
		}
	}
	return 0
}
