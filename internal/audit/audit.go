// Package audit keeps the append-only trail of entity state changes. One
// record per transition, never updated or deleted.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/procureflow/procureflow/internal/tablestore"
)

// Column names of the audit table.
const (
	ColTimestamp = "Timestamp"
	ColEntity    = "Entity"
	ColEntityID  = "Entity_ID"
	ColAction    = "Action"
	ColFromState = "From_State"
	ColToState   = "To_State"
	ColBy        = "By"
	ColRemarks   = "Remarks"
	ColPayload   = "Payload_JSON"
)

// Record describes one state transition. Payload is the full input payload of
// the mutating call, serialized for forensic replay.
type Record struct {
	Timestamp time.Time
	Entity    string
	EntityID  string
	Action    string
	FromState string
	ToState   string
	By        string
	Remarks   string
	Payload   any
}

// Trail appends records to the audit table.
type Trail struct {
	store tablestore.Store
	table string
	now   func() time.Time
}

// NewTrail builds a Trail over the given table.
func NewTrail(store tablestore.Store, table string) *Trail {
	return &Trail{store: store, table: table, now: time.Now}
}

// WithClock overrides the timestamp source. Test hook.
func (t *Trail) WithClock(now func() time.Time) *Trail {
	t.now = now
	return t
}

// Append writes one record. A missing destination table surfaces as
// tablestore.ErrMissingTable, never a silent drop. Timestamps are wall clock
// and not required to be monotonic across concurrent callers.
func (t *Trail) Append(ctx context.Context, rec Record) error {
	if rec.Entity == "" || rec.EntityID == "" || rec.Action == "" {
		return errors.New("audit: record requires entity/entity_id/action")
	}
	payload, err := json.Marshal(rec.Payload)
	if err != nil {
		return fmt.Errorf("audit: encode payload: %w", err)
	}
	ts := rec.Timestamp
	if ts.IsZero() {
		ts = t.now()
	}
	return t.store.Append(ctx, t.table, tablestore.Row{
		ColTimestamp: ts,
		ColEntity:    rec.Entity,
		ColEntityID:  rec.EntityID,
		ColAction:    rec.Action,
		ColFromState: rec.FromState,
		ColToState:   rec.ToState,
		ColBy:        rec.By,
		ColRemarks:   rec.Remarks,
		ColPayload:   string(payload),
	})
}
