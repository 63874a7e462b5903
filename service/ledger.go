package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"visitor-management/models"
	"visitor-management/repository"
)

const DefaultGate = "Main Gate"

// Ledger is the check-log history. Entries are appended by the pass engine
// and only ever removed by an explicit admin delete.
type Ledger struct {
	store CheckLogStore
	now   func() time.Time
}

func NewLedger(store CheckLogStore) *Ledger {
	return &Ledger{store: store, now: time.Now}
}

func (l *Ledger) Append(ctx context.Context, entry *models.CheckLog) error {
	if entry.PassID.IsZero() {
		return newValidationError("check log requires a pass", "pass")
	}
	if !entry.Action.Valid() {
		return newValidationError("check log action must be IN or OUT", "action")
	}
	entry.Gate = normalizeGate(entry.Gate)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = l.now().UTC()
	}
	if err := l.store.Append(ctx, entry); err != nil {
		return fmt.Errorf("append check log: %w", err)
	}
	return nil
}

func (l *Ledger) MostRecentFor(ctx context.Context, passID primitive.ObjectID) (*models.CheckLog, error) {
	entry, err := l.store.MostRecentFor(ctx, passID)
	if err != nil {
		return nil, fmt.Errorf("latest check log for pass %s: %w", passID.Hex(), err)
	}
	return entry, nil
}

func (l *Ledger) History(ctx context.Context, passID primitive.ObjectID) ([]models.CheckLog, error) {
	entries, err := l.store.History(ctx, passID)
	if err != nil {
		return nil, fmt.Errorf("check log history for pass %s: %w", passID.Hex(), err)
	}
	return entries, nil
}

// List returns entries newest first.
func (l *Ledger) List(ctx context.Context, filter repository.CheckLogFilter) ([]models.CheckLog, error) {
	if filter.Action != "" && !filter.Action.Valid() {
		return nil, newValidationError("action must be IN or OUT", "action")
	}
	entries, err := l.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list check logs: %w", err)
	}
	return entries, nil
}

func (l *Ledger) Get(ctx context.Context, id primitive.ObjectID) (*models.CheckLog, error) {
	entry, err := l.store.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find check log %s: %w", id.Hex(), err)
	}
	return entry, nil
}

// Delete removes a single entry. The pass status is left alone; use
// PassEngine.ReconcilePass to recompute it.
func (l *Ledger) Delete(ctx context.Context, id primitive.ObjectID) error {
	if err := l.store.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("delete check log %s: %w", id.Hex(), err)
	}
	return nil
}

func normalizeGate(gate string) string {
	gate = strings.TrimSpace(gate)
	if gate == "" {
		return DefaultGate
	}
	return gate
}
