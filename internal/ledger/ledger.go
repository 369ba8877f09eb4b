// Package ledger owns per-key monotonic serial allocation for generated
// entity ids. Allocation is an atomic read-modify-write over the COUNTERS
// table, protected by a single ledger-wide lock with a bounded wait.
package ledger

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/procureflow/procureflow/internal/tablestore"
)

// Column names of the counters table.
const (
	ColKey        = "Key"
	ColLastSerial = "Last_Serial"
	ColUpdatedAt  = "Updated_At"
)

// Ledger allocates serials. Keys are opaque strings; callers compose them as
// "{entityType}:{scope}:{period}" but the ledger attaches no meaning to that.
type Ledger struct {
	store tablestore.Store
	table string
	lock  Locker
	now   func() time.Time
}

// New builds a Ledger over the given counters table.
func New(store tablestore.Store, table string, lock Locker) *Ledger {
	return &Ledger{store: store, table: table, lock: lock, now: time.Now}
}

// WithClock overrides the timestamp source. Test hook.
func (l *Ledger) WithClock(now func() time.Time) *Ledger {
	l.now = now
	return l
}

// Allocate returns 1 for a never-seen key, previous+1 thereafter. The new
// value and an update timestamp are persisted before the call returns, so a
// subsequent caller observes the allocation. On ErrLockTimeout or a store
// failure no serial is consumed.
func (l *Ledger) Allocate(ctx context.Context, key string) (int, error) {
	if key == "" {
		return 0, fmt.Errorf("ledger: key required")
	}
	release, err := l.lock.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()

	rows, err := l.store.Rows(ctx, l.table)
	if err != nil {
		return 0, err
	}
	for i, row := range rows {
		if asString(row[ColKey]) != key {
			continue
		}
		next := asInt(row[ColLastSerial]) + 1
		if err := l.store.UpdateCell(ctx, l.table, i, ColLastSerial, next); err != nil {
			return 0, err
		}
		if err := l.store.UpdateCell(ctx, l.table, i, ColUpdatedAt, l.now()); err != nil {
			return 0, err
		}
		return next, nil
	}

	if err := l.store.Append(ctx, l.table, tablestore.Row{
		ColKey:        key,
		ColLastSerial: 1,
		ColUpdatedAt:  l.now(),
	}); err != nil {
		return 0, err
	}
	return 1, nil
}

func asString(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", t)
	}
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	case string:
		n, _ := strconv.Atoi(t)
		return n
	default:
		return 0
	}
}
