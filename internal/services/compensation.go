package services

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"

	"github.com/prefeitura-digital/app-municipe/internal/config"
	"github.com/prefeitura-digital/app-municipe/internal/models"
	"github.com/prefeitura-digital/app-municipe/internal/observability"
	"github.com/prefeitura-digital/app-municipe/internal/utils"
)

// Compensator undoes earlier steps of a multi-step write after a later
// step fails. Every undo is recorded in the compensation log before it
// runs; a delete that fails is retried once and then left in the log as
// abandoned, so orphaned rows are discoverable instead of silent.
type Compensator struct {
	database *mongo.Database
	logger   *zap.Logger
}

// NewCompensator creates a new Compensator instance
func NewCompensator(database *mongo.Database, logger *zap.Logger) *Compensator {
	return &Compensator{
		database: database,
		logger:   logger,
	}
}

// DeleteDocument removes the document created by an earlier saga step.
// The outcome is recorded in the compensation log; the caller's own
// error is what gets surfaced, never the compensation's.
func (c *Compensator) DeleteDocument(ctx context.Context, saga, step, collection, targetID, reason string) {
	now := time.Now().UTC()
	entry := models.CompensationEntry{
		ID:         utils.NewID(),
		Saga:       saga,
		Step:       step,
		Collection: collection,
		TargetID:   targetID,
		Reason:     reason,
		Status:     models.CompensationPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	logCollection := c.database.Collection(config.AppConfig.CompensationLogCollection)
	if _, err := logCollection.InsertOne(ctx, entry); err != nil {
		c.logger.Error("failed to record compensation entry",
			zap.String("saga", saga),
			zap.String("step", step),
			zap.Error(err))
	}

	attempts := 0
	var lastErr error
	for attempts < 2 {
		attempts++
		_, lastErr = c.database.Collection(collection).DeleteOne(ctx, bson.M{"_id": targetID})
		if lastErr == nil {
			break
		}
		c.logger.Warn("compensating delete failed",
			zap.String("collection", collection),
			zap.String("target_id", targetID),
			zap.Int("attempt", attempts),
			zap.Error(lastErr))
	}

	status := models.CompensationDone
	if lastErr != nil {
		status = models.CompensationAbandoned
		observability.CompensationFailures.Inc()
		c.logger.Error("compensation abandoned, orphaned row left behind",
			zap.String("collection", collection),
			zap.String("target_id", targetID),
			zap.Error(lastErr))
	}

	_, err := logCollection.UpdateOne(ctx,
		bson.M{"_id": entry.ID},
		bson.M{"$set": bson.M{
			"status":     status,
			"attempts":   attempts,
			"updated_at": time.Now().UTC(),
		}})
	if err != nil {
		c.logger.Error("failed to update compensation entry", zap.Error(err))
	}
}

// RecordOrphan logs a row that a failed saga left behind but that this
// service has no authority to delete. The entry goes straight to
// abandoned so reconciliation can find it.
func (c *Compensator) RecordOrphan(ctx context.Context, saga, step, collection, targetID, reason string) {
	now := time.Now().UTC()
	entry := models.CompensationEntry{
		ID:         utils.NewID(),
		Saga:       saga,
		Step:       step,
		Collection: collection,
		TargetID:   targetID,
		Reason:     reason,
		Status:     models.CompensationAbandoned,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	logCollection := c.database.Collection(config.AppConfig.CompensationLogCollection)
	if _, err := logCollection.InsertOne(ctx, entry); err != nil {
		c.logger.Error("failed to record orphan entry",
			zap.String("saga", saga),
			zap.String("collection", collection),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

// PendingEntries lists compensation entries that were never completed.
func (c *Compensator) PendingEntries(ctx context.Context) ([]models.CompensationEntry, error) {
	collection := c.database.Collection(config.AppConfig.CompensationLogCollection)

	cursor, err := collection.Find(ctx, bson.M{
		"status": bson.M{"$in": []models.CompensationStatus{models.CompensationPending, models.CompensationAbandoned}},
	})
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var entries []models.CompensationEntry
	if err := cursor.All(ctx, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}
