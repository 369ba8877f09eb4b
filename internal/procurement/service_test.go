package procurement

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/identity"
	"github.com/procureflow/procureflow/internal/ledger"
	"github.com/procureflow/procureflow/internal/tablestore"
)

var testClock = func() time.Time {
	return time.Date(2024, 4, 15, 10, 30, 0, 0, time.UTC)
}

func newTestService(t *testing.T) (*Service, *tablestore.Memory) {
	t.Helper()
	store := tablestore.NewMemory(Tables()...)
	serials := ledger.New(store, TableCounters, ledger.NewMutexLocker(time.Second)).WithClock(testClock)
	trail := audit.NewTrail(store, TableAudit).WithClock(testClock)
	svc := NewService(NewRepository(store), serials, trail).WithClock(testClock)
	return svc, store
}

func testCtx() context.Context {
	return identity.WithUser(context.Background(), identity.User{Email: "buyer@site-a.example", Name: "Buyer"})
}

func approverCtx() context.Context {
	return identity.WithUser(context.Background(), identity.User{Email: "approver@hq.example", Name: "Approver"})
}

func requisitionInput() CreateRequisitionInput {
	return CreateRequisitionInput{
		Site:             "SiteA",
		VendorID:         "V-202403-0007",
		VendorRegistered: "Yes",
		PurchaseCategory: "Electrical",
		PaymentTerms:     "30 days",
		Items: []RequisitionItemInput{
			{ItemCode: "CBL-01", ItemName: "Copper cable", Qty: 2, UOM: "m", Rate: 100, GSTPct: 18},
		},
	}
}

func auditRows(t *testing.T, store *tablestore.Memory) []tablestore.Row {
	t.Helper()
	rows, err := store.Rows(context.Background(), TableAudit)
	require.NoError(t, err)
	return rows
}

func TestCreateRequisition(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.Equal(t, "PR-SiteA-202404-0001", pr.ID)
	require.Equal(t, PRStatusSubmitted, pr.Status)
	require.Equal(t, 236.0, pr.TotalInclGST)
	require.Equal(t, "buyer@site-a.example", pr.RequestedBy)

	// second PR in the same site and month continues the sequence
	pr2, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.Equal(t, "PR-SiteA-202404-0002", pr2.ID)

	// a different site runs its own counter
	other := requisitionInput()
	other.Site = "SiteB"
	pr3, err := svc.CreateRequisition(ctx, other)
	require.NoError(t, err)
	require.Equal(t, "PR-SiteB-202404-0001", pr3.ID)

	lines, err := svc.repo.requisitionLines(ctx, pr.ID)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	require.Equal(t, 236.0, lines[0].LineTotal)
	require.Equal(t, 1, lines[0].LineNo)

	rows := auditRows(t, store)
	require.Len(t, rows, 3)
	require.Equal(t, "CREATE", rows[0]["Action"])
	require.Equal(t, "PR", rows[0]["Entity"])
	require.Equal(t, "", rows[0]["From_State"])
	require.Equal(t, "PR_SUBMITTED", rows[0]["To_State"])
}

func TestCreateRequisitionValidation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	input := requisitionInput()
	input.Site = ""
	_, err := svc.CreateRequisition(ctx, input)
	require.ErrorIs(t, err, ErrValidation)

	input = requisitionInput()
	input.Items = nil
	_, err = svc.CreateRequisition(ctx, input)
	require.ErrorIs(t, err, ErrValidation)

	input = requisitionInput()
	input.Items[0].Qty = 0
	_, err = svc.CreateRequisition(ctx, input)
	require.ErrorIs(t, err, ErrValidation)

	// nothing was written, no serial consumed
	require.Empty(t, auditRows(t, store))
	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.Equal(t, "PR-SiteA-202404-0001", pr.ID)
}

func TestCreateRequisitionMissingTableBeforeSerial(t *testing.T) {
	store := tablestore.NewMemory(TableCounters, TableAudit, TablePRItems)
	serials := ledger.New(store, TableCounters, ledger.NewMutexLocker(time.Second)).WithClock(testClock)
	trail := audit.NewTrail(store, TableAudit).WithClock(testClock)
	svc := NewService(NewRepository(store), serials, trail).WithClock(testClock)

	_, err := svc.CreateRequisition(testCtx(), requisitionInput())
	require.ErrorIs(t, err, tablestore.ErrMissingTable)

	// the probe failed before any serial was allocated
	counters, err := store.Rows(context.Background(), TableCounters)
	require.NoError(t, err)
	require.Empty(t, counters)
}

func TestCreateRequisitionRegistersUnlistedVendor(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	input := requisitionInput()
	input.VendorID = ""
	input.VendorRegistered = "No"
	input.VendorDetails = &VendorInput{CompanyName: "Acme Supplies", Email: "sales@acme.example"}

	pr, err := svc.CreateRequisition(ctx, input)
	require.NoError(t, err)
	require.Equal(t, "V-202404-0001", pr.VendorID)

	vendors, err := svc.ActiveVendors(ctx)
	require.NoError(t, err)
	require.Len(t, vendors, 1)
	require.Equal(t, "Acme Supplies", vendors[0].CompanyName)

	// vendor registration and requisition creation both audit
	rows := auditRows(t, store)
	require.Len(t, rows, 2)
	require.Equal(t, "VENDOR", rows[0]["Entity"])
	require.Equal(t, "ACTIVE", rows[0]["To_State"])
	require.Equal(t, "PR", rows[1]["Entity"])
}

func TestApproveAndRejectRequisition(t *testing.T) {
	svc, store := newTestService(t)
	pr, err := svc.CreateRequisition(testCtx(), requisitionInput())
	require.NoError(t, err)

	err = svc.ApproveRequisition(approverCtx(), pr.ID, "ok to buy")
	require.NoError(t, err)

	got, err := svc.GetRequisition(testCtx(), pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusApproved, got.Status)
	require.Equal(t, "ok to buy", got.ApproverRemarks)
	require.Equal(t, "approver@hq.example", got.LastActionBy)

	// approving again is illegal
	err = svc.ApproveRequisition(approverCtx(), pr.ID, "")
	require.ErrorIs(t, err, ErrInvalidState)

	err = svc.RejectRequisition(approverCtx(), "PR-SiteA-209901-0001", "")
	require.ErrorIs(t, err, ErrNotFound)

	rows := auditRows(t, store)
	require.Len(t, rows, 2)
	require.Equal(t, "APPROVE", rows[1]["Action"])
	require.Equal(t, "PR_SUBMITTED", rows[1]["From_State"])
	require.Equal(t, "PR_APPROVED", rows[1]["To_State"])

	// a fresh requisition can still be rejected
	pr2, err := svc.CreateRequisition(testCtx(), requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.RejectRequisition(approverCtx(), pr2.ID, "budget"))
	got2, err := svc.GetRequisition(testCtx(), pr2.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusRejected, got2.Status)
	require.Equal(t, "Rejected", got2.Status.Label())
}

func TestCreatePurchaseOrderSnapshotsLines(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	input := requisitionInput()
	input.Items = append(input.Items, RequisitionItemInput{
		ItemCode: "SW-12", ItemName: "Switchgear", Qty: 1, UOM: "pc", Rate: 5000, GSTPct: 18,
	})
	pr, err := svc.CreateRequisition(ctx, input)
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))

	po, err := svc.CreatePurchaseOrder(approverCtx(), CreatePurchaseOrderInput{PRID: pr.ID, TallyNo: "T-991"})
	require.NoError(t, err)
	require.Equal(t, "PO-SiteA-202404-0001", po.ID)
	require.Equal(t, POStatusPosted, po.Status)
	require.Equal(t, pr.ID, po.PRID)
	require.Equal(t, pr.TotalInclGST, po.TotalInclGST)

	lines, err := svc.PurchaseOrderLines(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, lines, 2)
	require.Equal(t, 1, lines[0].LineNo)
	require.Equal(t, 2, lines[1].LineNo)
	require.Equal(t, "CBL-01", lines[0].ItemCode)

	// the parent requisition moved on
	got, err := svc.GetRequisition(ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusPOPosted, got.Status)
}

func TestCreatePurchaseOrderRequiresApprovedPR(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)

	_, err = svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.ErrorIs(t, err, ErrInvalidState)

	// nothing was written for the failed attempt
	poRows, err := store.Rows(ctx, TablePOMaster)
	require.NoError(t, err)
	require.Empty(t, poRows)
	require.Len(t, auditRows(t, store), 1) // only the PR creation

	// and no serial was consumed: the first real PO is -0001
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)
	require.Equal(t, "PO-SiteA-202404-0001", po.ID)

	_, err = svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: "PR-SiteA-202404-9999"})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestDecidePurchaseOrderBackPropagation(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DecidePurchaseOrder(approverCtx(), po.ID, DecisionApproved, "go ahead"))

	gotPO, err := svc.GetPurchaseOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Equal(t, POStatusApproved, gotPO.Status)

	// approval reaches back into the requisition, code and label both
	gotPR, err := svc.GetRequisition(ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusPOApproved, gotPR.Status)
	prRows, err := store.Rows(ctx, TablePRMaster)
	require.NoError(t, err)
	require.Equal(t, "PO Approved", prRows[0]["Status_Label"])

	// deciding twice is illegal
	err = svc.DecidePurchaseOrder(approverCtx(), po.ID, DecisionApproved, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDecidePurchaseOrderRejectionLeavesPR(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)

	require.NoError(t, svc.DecidePurchaseOrder(approverCtx(), po.ID, DecisionRejected, "price too high"))

	gotPR, err := svc.GetRequisition(ctx, pr.ID)
	require.NoError(t, err)
	require.Equal(t, PRStatusPOPosted, gotPR.Status)
}

func TestRequestPayment(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)

	// posted order accepts payment requests, tranche defaults to 1
	payment, err := svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 118})
	require.NoError(t, err)
	require.Equal(t, "PAY-202404-0001", payment.ID)
	require.Equal(t, 1, payment.TrancheNo)
	require.Equal(t, PaymentStatusVoucherUploaded, payment.Status)

	// approved order still accepts them
	require.NoError(t, svc.DecidePurchaseOrder(approverCtx(), po.ID, DecisionApproved, ""))
	payment2, err := svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 118, TrancheNo: 2})
	require.NoError(t, err)
	require.Equal(t, "PAY-202404-0002", payment2.ID)
	require.Equal(t, 2, payment2.TrancheNo)

	both, err := svc.PaymentsForOrder(ctx, po.ID)
	require.NoError(t, err)
	require.Len(t, both, 2)

	_, err = svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 0})
	require.ErrorIs(t, err, ErrValidation)

	_, err = svc.RequestPayment(ctx, RequestPaymentInput{POID: "PO-SiteA-202404-9999", Amount: 10})
	require.ErrorIs(t, err, ErrNotFound)
}

func TestRequestPaymentRejectedOrder(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)
	require.NoError(t, svc.DecidePurchaseOrder(approverCtx(), po.ID, DecisionRejected, ""))

	_, err = svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 10})
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestPostPaymentRequiresDirectorApproval(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)
	payment, err := svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 236})
	require.NoError(t, err)

	// posting before the director signed off fails and writes nothing
	err = svc.PostPayment(ctx, payment.ID, time.Time{}, "UTR123", "")
	require.ErrorIs(t, err, ErrInvalidState)

	require.NoError(t, svc.DecidePayment(approverCtx(), payment.ID, DecisionApproved, ""))
	require.NoError(t, svc.PostPayment(ctx, payment.ID, time.Time{}, "UTR123", "paid in full"))

	got, err := svc.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusPosted, got.Status)
	require.Equal(t, "UTR123", got.UTR)
	require.Equal(t, testClock(), got.PostedDate)

	rows := auditRows(t, store)
	last := rows[len(rows)-1]
	require.Equal(t, "POSTED", last["Action"])
	require.Equal(t, "DIRECTOR_OK", last["From_State"])
	require.Equal(t, "PAY_POSTED", last["To_State"])

	// a posted payment is terminal
	err = svc.DecidePayment(approverCtx(), payment.ID, DecisionRejected, "")
	require.ErrorIs(t, err, ErrInvalidState)
}

func TestDecidePaymentRejection(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	pr, err := svc.CreateRequisition(ctx, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approverCtx(), pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(ctx, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)
	payment, err := svc.RequestPayment(ctx, RequestPaymentInput{POID: po.ID, Amount: 50})
	require.NoError(t, err)

	require.NoError(t, svc.DecidePayment(approverCtx(), payment.ID, DecisionRejected, "wrong voucher"))
	got, err := svc.GetPayment(ctx, payment.ID)
	require.NoError(t, err)
	require.Equal(t, PaymentStatusRejected, got.Status)
	require.Equal(t, "wrong voucher", got.Remarks)

	rows := auditRows(t, store)
	last := rows[len(rows)-1]
	require.Equal(t, "DIRECTOR_APPROVAL", last["Action"])
	require.Equal(t, "PAY_REJECTED", last["To_State"])
}

func TestVendorIntakePathsUseSeparateCounters(t *testing.T) {
	svc, store := newTestService(t)
	ctx := testCtx()

	formVendor, err := svc.RegisterVendor(ctx, VendorInput{CompanyName: "Form Vendor"})
	require.NoError(t, err)
	require.Equal(t, "V-202404-0001", formVendor.ID)

	adminVendor, err := svc.CreateVendor(ctx, VendorInput{CompanyName: "Admin Vendor"})
	require.NoError(t, err)
	require.Equal(t, "VND-202404-0001", adminVendor.ID)

	// each path continues its own sequence
	formVendor2, err := svc.RegisterVendor(ctx, VendorInput{CompanyName: "Form Vendor 2"})
	require.NoError(t, err)
	require.Equal(t, "V-202404-0002", formVendor2.ID)

	rows := auditRows(t, store)
	require.Len(t, rows, 3)
	require.Equal(t, "ACTIVE", rows[0]["To_State"])
	require.Equal(t, "New vendor registered via form.", rows[0]["Remarks"])
	require.Equal(t, "REGISTERED", rows[1]["To_State"])
	require.Equal(t, "", rows[1]["Remarks"])

	_, err = svc.CreateVendor(ctx, VendorInput{CompanyName: ""})
	require.ErrorIs(t, err, ErrValidation)
}

func TestEndToEndFlowAuditTrail(t *testing.T) {
	svc, store := newTestService(t)
	buyer := testCtx()
	approver := approverCtx()

	pr, err := svc.CreateRequisition(buyer, requisitionInput())
	require.NoError(t, err)
	require.NoError(t, svc.ApproveRequisition(approver, pr.ID, ""))
	po, err := svc.CreatePurchaseOrder(buyer, CreatePurchaseOrderInput{PRID: pr.ID})
	require.NoError(t, err)
	require.NoError(t, svc.DecidePurchaseOrder(approver, po.ID, DecisionApproved, ""))
	payment, err := svc.RequestPayment(buyer, RequestPaymentInput{POID: po.ID, Amount: 236})
	require.NoError(t, err)
	require.NoError(t, svc.DecidePayment(approver, payment.ID, DecisionApproved, ""))
	require.NoError(t, svc.PostPayment(buyer, payment.ID, time.Time{}, "UTR9", ""))

	rows := auditRows(t, store)
	require.Len(t, rows, 7)

	type step struct {
		entity, action, from, to string
	}
	want := []step{
		{"PR", "CREATE", "", "PR_SUBMITTED"},
		{"PR", "APPROVE", "PR_SUBMITTED", "PR_APPROVED"},
		{"PO", "CREATE_FROM_PR", "PR_APPROVED", "PO_POSTED"},
		{"PO", "APPROVAL", "PO_POSTED", "PO_APPROVED"},
		{"PAYMENT", "REQUESTED", "", "VOUCHER_UPLOADED"},
		{"PAYMENT", "DIRECTOR_APPROVAL", "VOUCHER_UPLOADED", "DIRECTOR_OK"},
		{"PAYMENT", "POSTED", "DIRECTOR_OK", "PAY_POSTED"},
	}
	for i, w := range want {
		require.Equal(t, w.entity, rows[i]["Entity"], "row %d", i)
		require.Equal(t, w.action, rows[i]["Action"], "row %d", i)
		require.Equal(t, w.from, rows[i]["From_State"], "row %d", i)
		require.Equal(t, w.to, rows[i]["To_State"], "row %d", i)
	}
}

// flakyStore fails Append on one table to surface partial writes.
type flakyStore struct {
	tablestore.Store
	failTable string
}

func (f *flakyStore) Append(ctx context.Context, table string, row tablestore.Row) error {
	if table == f.failTable {
		return errors.New("append rejected")
	}
	return f.Store.Append(ctx, table, row)
}

func TestCreateRequisitionPartialWriteIsVisible(t *testing.T) {
	mem := tablestore.NewMemory(Tables()...)
	store := &flakyStore{Store: mem, failTable: TablePRMaster}
	serials := ledger.New(store, TableCounters, ledger.NewMutexLocker(time.Second)).WithClock(testClock)
	trail := audit.NewTrail(store, TableAudit).WithClock(testClock)
	svc := NewService(NewRepository(store), serials, trail).WithClock(testClock)

	_, err := svc.CreateRequisition(testCtx(), requisitionInput())
	require.Error(t, err)

	// line rows were appended before the header write failed and stay
	// visible; there is no rollback
	lines, err := mem.Rows(context.Background(), TablePRItems)
	require.NoError(t, err)
	require.Len(t, lines, 1)
	headers, err := mem.Rows(context.Background(), TablePRMaster)
	require.NoError(t, err)
	require.Empty(t, headers)
}

func TestMutationsRequireUser(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateRequisition(context.Background(), requisitionInput())
	require.ErrorIs(t, err, identity.ErrNoUser)
}
