package procurement

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/tablestore"
)

func TestSummaryCountsByStatusCode(t *testing.T) {
	svc, store := newTestService(t)
	agg := NewAggregator(store, nil)
	ctx := testCtx()

	// empty tables still produce a zeroed summary
	empty, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 0, empty.TotalPR)
	require.Empty(t, empty.RecentPRs)

	pr1, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	pr2, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr2.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr2.ID})
	require.NoError(t, err)
	payment, err := svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 100})
	require.NoError(t, err)
	require.NoError(t, svc.DecidePayment(approverCtx(), payment.ID, DecisionApproved, ""))
	require.NoError(t, svc.PostPayment(ctx, payment.ID, time.Time{}, "UTR1", ""))

	out, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, out.TotalPR)
	require.Equal(t, 1, out.PendingPR) // pr1 still submitted
	require.Equal(t, 0, out.ApprovedPR)
	require.Equal(t, 1, out.TotalPO)
	require.Equal(t, 1, out.PostedPO)
	require.Equal(t, 0, out.ApprovedPO)
	require.Equal(t, 1, out.TotalPayments)
	require.Equal(t, 0, out.PaymentsPendingDirector)
	require.Equal(t, 1, out.PaymentsPaid)

	// most recent first
	require.Len(t, out.RecentPRs, 2)
	require.Equal(t, pr2.ID, out.RecentPRs[0].ID)
	require.Equal(t, pr1.ID, out.RecentPRs[1].ID)
	require.Equal(t, "236.00", out.RecentPRs[0].DisplayTotal)

	// reading twice changes nothing
	again, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, out, again)
}

func TestSummaryMissingTablesYieldZeroes(t *testing.T) {
	store := tablestore.NewMemory() // no tables at all
	agg := NewAggregator(store, nil)

	out, err := agg.Summary(context.Background())
	require.NoError(t, err)
	require.Equal(t, Summary{RecentPRs: []RecentPR{}}, out)

	overview, err := agg.RequisitionOverview(context.Background())
	require.NoError(t, err)
	require.Equal(t, 0, overview.TotalRequisitions)
	require.Equal(t, 0.0, overview.TotalValue)
}

func TestRequisitionOverviewCountsByLabel(t *testing.T) {
	store := tablestore.NewMemory(TablePRMaster)
	agg := NewAggregator(store, nil)
	ctx := context.Background()

	// historical rows carry the label vocabulary this view counts
	seed := []struct {
		id, label string
		total     float64
	}{
		{"PR-SiteA-202403-0001", "Pending Approval", 100},
		{"PR-SiteA-202403-0002", "Approved", 250.5},
		{"PR-SiteA-202403-0003", "PO Created", 1000},
		{"PR-SiteA-202403-0004", "Submitted", 49.5},
	}
	for _, s := range seed {
		require.NoError(t, store.Append(ctx, TablePRMaster, tablestore.Row{
			"PR_ID":          s.id,
			"Site":           "SiteA",
			"Status_Label":   s.label,
			"Total_Incl_GST": s.total,
		}))
	}

	out, err := agg.RequisitionOverview(ctx)
	require.NoError(t, err)
	require.Equal(t, 4, out.TotalRequisitions)
	require.Equal(t, 1, out.PendingApproval)
	require.Equal(t, 1, out.Approved)
	require.Equal(t, 1, out.PendingGRN)
	require.Equal(t, 1400.0, out.TotalValue)
	require.Equal(t, "1,400.00", out.DisplayTotalValue)
	require.Len(t, out.RecentRequisitions, 4)
	require.Equal(t, "PR-SiteA-202403-0004", out.RecentRequisitions[0].ID)
}

func TestSummaryCacheInvalidation(t *testing.T) {
	svc, store := newTestService(t)
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	agg := NewAggregator(store, NewCache(client, time.Minute))
	ctx := testCtx()

	_, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)

	out, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, out.TotalPR)

	// without invalidation the cached figure sticks
	_, err = svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	stale, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 1, stale.TotalPR)

	require.NoError(t, agg.Invalidate(ctx))
	fresh, err := agg.Summary(ctx)
	require.NoError(t, err)
	require.Equal(t, 2, fresh.TotalPR)
}
