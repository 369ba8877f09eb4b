package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/procureflow/procureflow/internal/tablestore"
)

// TimelineFilters narrow the audit read side.
type TimelineFilters struct {
	Entity   string
	Action   string
	Actor    string
	Page     int
	PageSize int
}

// TimelineRow is one audit record prepared for display.
type TimelineRow struct {
	At        time.Time `json:"at"`
	Entity    string    `json:"entity"`
	EntityID  string    `json:"entity_id"`
	Action    string    `json:"action"`
	FromState string    `json:"from_state"`
	ToState   string    `json:"to_state"`
	By        string    `json:"by"`
	Remarks   string    `json:"remarks"`
}

// PagingInfo carries page navigation state.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps timeline rows with paging information.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}

// Timeline reads the trail newest-first with filters and paging.
func (t *Trail) Timeline(ctx context.Context, filters TimelineFilters) (Result, error) {
	pageSize := filters.PageSize
	if pageSize <= 0 {
		pageSize = 20
	}
	if pageSize > 50 {
		pageSize = 50
	}
	page := filters.Page
	if page <= 0 {
		page = 1
	}

	rows, err := t.store.Rows(ctx, t.table)
	if err != nil {
		return Result{}, err
	}

	matched := make([]TimelineRow, 0, len(rows))
	for i := len(rows) - 1; i >= 0; i-- {
		row := decodeRow(rows[i])
		if filters.Entity != "" && row.Entity != filters.Entity {
			continue
		}
		if filters.Action != "" && row.Action != filters.Action {
			continue
		}
		if filters.Actor != "" && row.By != filters.Actor {
			continue
		}
		matched = append(matched, row)
	}

	offset := (page - 1) * pageSize
	if offset > len(matched) {
		offset = len(matched)
	}
	window := matched[offset:]
	hasNext := len(window) > pageSize
	if hasNext {
		window = window[:pageSize]
	}

	paging := PagingInfo{Page: page, PageSize: pageSize, HasNext: hasNext}
	if page > 1 {
		paging.PrevPage = page - 1
	}
	if hasNext {
		paging.NextPage = page + 1
	}
	return Result{Rows: window, Paging: paging}, nil
}

func decodeRow(row tablestore.Row) TimelineRow {
	return TimelineRow{
		At:        asTime(row[ColTimestamp]),
		Entity:    asString(row[ColEntity]),
		EntityID:  asString(row[ColEntityID]),
		Action:    asString(row[ColAction]),
		FromState: asString(row[ColFromState]),
		ToState:   asString(row[ColToState]),
		By:        asString(row[ColBy]),
		Remarks:   asString(row[ColRemarks]),
	}
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

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}
