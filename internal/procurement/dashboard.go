package procurement

import (
	"context"
	"errors"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/procureflow/procureflow/internal/tablestore"
)

// Summary carries the status-code counters shown on the operations
// dashboard.
type Summary struct {
	TotalPR                 int        `json:"total_pr"`
	PendingPR               int        `json:"pending_pr"`
	ApprovedPR              int        `json:"approved_pr"`
	TotalPO                 int        `json:"total_po"`
	PostedPO                int        `json:"posted_po"`
	ApprovedPO              int        `json:"approved_po"`
	TotalPayments           int        `json:"total_payments"`
	PaymentsPendingDirector int        `json:"payments_pending_director"`
	PaymentsPaid            int        `json:"payments_paid"`
	RecentPRs               []RecentPR `json:"recent_prs"`
}

// RecentPR is one row of the dashboard's recent-requisitions strip.
type RecentPR struct {
	ID            string    `json:"id"`
	Site          string    `json:"site"`
	Total         float64   `json:"total"`
	DisplayTotal  string    `json:"display_total"`
	StatusLabel   string    `json:"status"`
	RequisitionAt time.Time `json:"date"`
}

// RequisitionOverview is the requisition-only dashboard. It counts by the
// stored status label, keeping the historical label vocabulary this view
// always used; labels outside that vocabulary fall through uncounted.
type RequisitionOverview struct {
	TotalRequisitions  int        `json:"total_requisitions"`
	PendingApproval    int        `json:"pending_approval"`
	Approved           int        `json:"approved"`
	PendingGRN         int        `json:"pending_grn"`
	TotalValue         float64    `json:"total_value"`
	DisplayTotalValue  string     `json:"display_total_value"`
	RecentRequisitions []RecentPR `json:"recent_requisitions"`
}

// Aggregator computes dashboard figures by scanning the workflow tables.
// Reads are side-effect free; a missing table yields zeroed figures rather
// than an error, so the dashboard stays up while tables are provisioned.
type Aggregator struct {
	store   tablestore.Store
	cache   *Cache
	printer *message.Printer
}

// NewAggregator wraps a table store. cache may be nil.
func NewAggregator(store tablestore.Store, cache *Cache) *Aggregator {
	return &Aggregator{
		store:   store,
		cache:   cache,
		printer: message.NewPrinter(language.English),
	}
}

func (a *Aggregator) amount(v float64) string {
	return a.printer.Sprintf("%.2f", v)
}

// Summary computes the cross-entity dashboard, through the cache when one is
// configured.
func (a *Aggregator) Summary(ctx context.Context) (Summary, error) {
	if a.cache == nil {
		return a.summary(ctx)
	}
	key, err := a.cache.BuildKey(ctx, "dashboard", "summary")
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	err = a.cache.FetchJSON(ctx, key, &out, func(ctx context.Context) (any, error) {
		return a.summary(ctx)
	})
	return out, err
}

func (a *Aggregator) summary(ctx context.Context) (Summary, error) {
	out := Summary{RecentPRs: []RecentPR{}}

	prRows, err := a.rows(ctx, TablePRMaster)
	if err != nil {
		return Summary{}, err
	}
	out.TotalPR = len(prRows)
	for _, row := range prRows {
		switch PRStatus(asString(row["Status_Code"])) {
		case PRStatusSubmitted:
			out.PendingPR++
		case PRStatusApproved:
			out.ApprovedPR++
		}
	}
	out.RecentPRs = a.recent(prRows)

	poRows, err := a.rows(ctx, TablePOMaster)
	if err != nil {
		return Summary{}, err
	}
	out.TotalPO = len(poRows)
	for _, row := range poRows {
		switch POStatus(asString(row["Status_Code"])) {
		case POStatusPosted:
			out.PostedPO++
		case POStatusApproved:
			out.ApprovedPO++
		}
	}

	payRows, err := a.rows(ctx, TablePayments)
	if err != nil {
		return Summary{}, err
	}
	out.TotalPayments = len(payRows)
	for _, row := range payRows {
		switch PaymentStatus(asString(row["Status_Code"])) {
		case PaymentStatusVoucherUploaded:
			out.PaymentsPendingDirector++
		case PaymentStatusPosted:
			out.PaymentsPaid++
		}
	}
	return out, nil
}

// RequisitionOverview computes the requisition-only dashboard.
func (a *Aggregator) RequisitionOverview(ctx context.Context) (RequisitionOverview, error) {
	out := RequisitionOverview{RecentRequisitions: []RecentPR{}}
	rows, err := a.rows(ctx, TablePRMaster)
	if err != nil {
		return RequisitionOverview{}, err
	}
	out.TotalRequisitions = len(rows)
	for _, row := range rows {
		switch asString(row["Status_Label"]) {
		case "Pending Approval":
			out.PendingApproval++
		case "Approved":
			out.Approved++
		case "PO Created":
			out.PendingGRN++
		}
		out.TotalValue += asFloat(row["Total_Incl_GST"])
	}
	out.DisplayTotalValue = a.amount(out.TotalValue)
	out.RecentRequisitions = a.recent(rows)
	return out, nil
}

// recent returns the last five rows, most recent first.
func (a *Aggregator) recent(rows []tablestore.Row) []RecentPR {
	start := len(rows) - 5
	if start < 0 {
		start = 0
	}
	out := make([]RecentPR, 0, len(rows)-start)
	for i := len(rows) - 1; i >= start; i-- {
		row := rows[i]
		total := asFloat(row["Total_Incl_GST"])
		out = append(out, RecentPR{
			ID:            asString(row["PR_ID"]),
			Site:          asString(row["Site"]),
			Total:         total,
			DisplayTotal:  a.amount(total),
			StatusLabel:   asString(row["Status_Label"]),
			RequisitionAt: asTime(row["Date_of_Requisition"]),
		})
	}
	return out
}

func (a *Aggregator) rows(ctx context.Context, table string) ([]tablestore.Row, error) {
	rows, err := a.store.Rows(ctx, table)
	if errors.Is(err, tablestore.ErrMissingTable) {
		return nil, nil
	}
	return rows, err
}

// Invalidate bumps the cache version after a workflow mutation.
func (a *Aggregator) Invalidate(ctx context.Context) error {
	if a.cache == nil {
		return nil
	}
	return a.cache.Bump(ctx)
}
