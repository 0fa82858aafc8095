package service

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/gt11799/sync-google-calendar/internal/domain"
)

// Action is what the reconciler did with one source event.
type Action int

const (
	ActionNone Action = iota
	ActionSkip
	ActionInsert
	ActionPatch
	ActionDelete
)

func (a Action) String() string {
	switch a {
	case ActionSkip:
		return "skip"
	case ActionInsert:
		return "insert"
	case ActionPatch:
		return "patch"
	case ActionDelete:
		return "delete"
	default:
		return "none"
	}
}

// ReconcilerConfig carries the reconciler's collaborators.
type ReconcilerConfig struct {
	Client CalendarClient
	Store  *MappingStore
}

// Reconciler decides, per source event, whether the merged calendar needs an
// insert, a patch, a delete or nothing. Decisions are driven entirely by the
// source event and the mapping store: the destination is never read.
type Reconciler struct {
	client CalendarClient
	store  *MappingStore
}

func NewReconciler(cfg ReconcilerConfig) *Reconciler {
	return &Reconciler{client: cfg.Client, store: cfg.Store}
}

// ReconcileEvent applies one source event to the destination calendar and
// reports which action it took. The returned error never means the run must
// stop; callers record it and move on.
func (r *Reconciler) ReconcileEvent(ctx context.Context, destCalendarID string, ev domain.SourceEvent) (Action, error) {
	rec, ok, err := r.store.Get(ev.CalendarID, ev.ID)
	if err != nil {
		return ActionNone, fmt.Errorf("read mapping for %s/%s: %w", ev.CalendarID, ev.ID, err)
	}

	if ev.Cancelled() {
		if !ok {
			// Never copied, nothing to clean up.
			return ActionNone, nil
		}
		return r.remove(ctx, destCalendarID, ev, rec)
	}

	if !ok {
		return r.insert(ctx, destCalendarID, ev)
	}

	// Stamps are opaque provider strings. Byte equality is the only
	// comparison that is safe across providers.
	if rec.LastModified == ev.Updated {
		return ActionSkip, nil
	}

	return r.patch(ctx, destCalendarID, ev, rec)
}

func (r *Reconciler) insert(ctx context.Context, destCalendarID string, ev domain.SourceEvent) (Action, error) {
	destID, err := r.client.InsertEvent(ctx, destCalendarID, Translate(ev))
	if err != nil {
		// No mapping is written: the next run sees the event as new
		// and retries the insert.
		return ActionNone, fmt.Errorf("insert %s/%s: %w", ev.CalendarID, ev.ID, err)
	}

	rec := domain.SyncRecord{DestinationEventID: destID, LastModified: ev.Updated}
	if err := r.store.Put(ev.CalendarID, ev.ID, rec); err != nil {
		return ActionInsert, fmt.Errorf("save mapping for %s/%s: %w", ev.CalendarID, ev.ID, err)
	}
	return ActionInsert, nil
}

func (r *Reconciler) patch(ctx context.Context, destCalendarID string, ev domain.SourceEvent, rec domain.SyncRecord) (Action, error) {
	err := r.client.PatchEvent(ctx, destCalendarID, rec.DestinationEventID, Translate(ev))
	if err == nil {
		rec.LastModified = ev.Updated
		if err := r.store.Put(ev.CalendarID, ev.ID, rec); err != nil {
			return ActionPatch, fmt.Errorf("save mapping for %s/%s: %w", ev.CalendarID, ev.ID, err)
		}
		return ActionPatch, nil
	}

	// The destination event may have been deleted behind our back, or the
	// patch may have failed for any other reason. Either way the safe
	// recovery is the same: create a fresh copy and point the mapping at it.
	if !errors.Is(err, ErrNotFound) {
		log.Printf("Patch of %s/%s failed, recreating: %v", ev.CalendarID, ev.ID, err)
	}
	return r.insert(ctx, destCalendarID, ev)
}

func (r *Reconciler) remove(ctx context.Context, destCalendarID string, ev domain.SourceEvent, rec domain.SyncRecord) (Action, error) {
	removeErr := r.client.RemoveEvent(ctx, destCalendarID, rec.DestinationEventID)
	if errors.Is(removeErr, ErrNotFound) {
		// Already gone; the cleanup converged on its own.
		removeErr = nil
	}

	// Forget the mapping even when the remove failed. A retried delete
	// against a half-removed event would wedge the run forever; dropping
	// the record caps the damage at one orphaned copy.
	if err := r.store.Delete(ev.CalendarID, ev.ID); err != nil {
		return ActionDelete, fmt.Errorf("delete mapping for %s/%s: %w", ev.CalendarID, ev.ID, err)
	}
	if removeErr != nil {
		return ActionDelete, fmt.Errorf("remove %s/%s: %w", ev.CalendarID, ev.ID, removeErr)
	}
	return ActionDelete, nil
}
