// Package procurement implements the purchase workflow: requisitions are
// raised and approved, approved requisitions become purchase orders, orders
// are paid in tranches, and vendors are registered along the way. Status
// codes are the canonical state; labels are display-only and derived from
// the code so they can never drift.
package procurement

import (
	"errors"
	"time"
)

// Table names used by the workflow.
const (
	TablePRMaster = "pr_master"
	TablePRItems  = "pr_items"
	TablePOMaster = "po_master"
	TablePOItems  = "po_items"
	TablePayments = "payments"
	TableVendors  = "vendor_master"
	TableCounters = "counters"
	TableAudit    = "audit_log"
)

// Tables lists every table the workflow reads or writes, counters and audit
// included. Useful for provisioning an in-memory store.
func Tables() []string {
	return []string{
		TablePRMaster, TablePRItems, TablePOMaster, TablePOItems,
		TablePayments, TableVendors, TableCounters, TableAudit,
	}
}

var (
	// ErrNotFound indicates no row matches the given id.
	ErrNotFound = errors.New("procurement: not found")
	// ErrInvalidState occurs when an action violates the status workflow.
	// The call performs no mutation.
	ErrInvalidState = errors.New("procurement: invalid state transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("procurement: invalid input")
)

// DecisionAction is the approver's verdict on a PO or payment.
type DecisionAction string

const (
	DecisionApproved DecisionAction = "Approved"
	DecisionRejected DecisionAction = "Rejected"
)

// Requisition lifecycle statuses.
type PRStatus string

const (
	PRStatusSubmitted PRStatus = "PR_SUBMITTED"
	PRStatusApproved  PRStatus = "PR_APPROVED"
	PRStatusRejected  PRStatus = "PR_REJECTED"
	PRStatusPOPosted  PRStatus = "PO_POSTED"
	// PRStatusPOApproved is back-propagated onto the requisition when its
	// purchase order is approved.
	PRStatusPOApproved PRStatus = "PO_APPROVED"
)

// Label returns the display label kept in sync with the code.
func (s PRStatus) Label() string {
	switch s {
	case PRStatusSubmitted:
		return "Submitted"
	case PRStatusApproved:
		return "Approved"
	case PRStatusRejected:
		return "Rejected"
	case PRStatusPOPosted:
		return "PO Posted"
	case PRStatusPOApproved:
		return "PO Approved"
	default:
		return string(s)
	}
}

// Purchase order lifecycle statuses.
type POStatus string

const (
	POStatusPosted   POStatus = "PO_POSTED"
	POStatusApproved POStatus = "PO_APPROVED"
	POStatusRejected POStatus = "PO_REJECTED"
)

// Label returns the display label kept in sync with the code.
func (s POStatus) Label() string {
	switch s {
	case POStatusPosted:
		return "Posted"
	case POStatusApproved:
		return "Approved"
	case POStatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// Payment lifecycle statuses.
type PaymentStatus string

const (
	PaymentStatusVoucherUploaded PaymentStatus = "VOUCHER_UPLOADED"
	PaymentStatusDirectorOK      PaymentStatus = "DIRECTOR_OK"
	PaymentStatusPosted          PaymentStatus = "PAY_POSTED"
	PaymentStatusRejected        PaymentStatus = "PAY_REJECTED"
)

// Label returns the display label kept in sync with the code.
func (s PaymentStatus) Label() string {
	switch s {
	case PaymentStatusVoucherUploaded:
		return "Voucher Uploaded"
	case PaymentStatusDirectorOK:
		return "Director Approved"
	case PaymentStatusPosted:
		return "Paid"
	case PaymentStatusRejected:
		return "Rejected"
	default:
		return string(s)
	}
}

// prAction enumerates requisition transitions.
type prAction string

const (
	prActionApprove prAction = "approve"
	prActionReject  prAction = "reject"
	prActionPostPO  prAction = "post_po"
)

// prTransitions is the legality table: (from, action) -> to. Anything not
// listed is rejected with ErrInvalidState. REJECTED and PO_POSTED are
// terminal for the requisition itself.
var prTransitions = map[PRStatus]map[prAction]PRStatus{
	PRStatusSubmitted: {
		prActionApprove: PRStatusApproved,
		prActionReject:  PRStatusRejected,
	},
	PRStatusApproved: {
		prActionPostPO: PRStatusPOPosted,
	},
}

func nextPRStatus(from PRStatus, action prAction) (PRStatus, error) {
	if to, ok := prTransitions[from][action]; ok {
		return to, nil
	}
	return "", ErrInvalidState
}

// paymentTransitions mirrors prTransitions for payments. Only DIRECTOR_OK
// may transition to PAY_POSTED.
var paymentTransitions = map[PaymentStatus]map[DecisionAction]PaymentStatus{
	PaymentStatusVoucherUploaded: {
		DecisionApproved: PaymentStatusDirectorOK,
		DecisionRejected: PaymentStatusRejected,
	},
	PaymentStatusDirectorOK: {
		DecisionRejected: PaymentStatusRejected,
	},
}

func nextPaymentStatus(from PaymentStatus, action DecisionAction) (PaymentStatus, error) {
	if to, ok := paymentTransitions[from][action]; ok {
		return to, nil
	}
	return "", ErrInvalidState
}

// poDecisions maps approver verdicts on a posted PO. Both outcomes are
// terminal for the order.
var poDecisions = map[POStatus]map[DecisionAction]POStatus{
	POStatusPosted: {
		DecisionApproved: POStatusApproved,
		DecisionRejected: POStatusRejected,
	},
}

func nextPOStatus(from POStatus, action DecisionAction) (POStatus, error) {
	if to, ok := poDecisions[from][action]; ok {
		return to, nil
	}
	return "", ErrInvalidState
}

// Requisition is the PR header row.
type Requisition struct {
	ID                   string
	Timestamp            time.Time
	Site                 string
	RequestedBy          string
	VendorID             string
	PurchaseCategory     string
	PaymentTerms         string
	DeliveryTerms        string
	DeliveryLocation     string
	VendorRegistered     string
	CustomerReimbursable bool
	TotalInclGST         float64
	Status               PRStatus
	LastActionBy         string
	LastActionAt         time.Time
	ApproverRemarks      string
	ExpectedDeliveryDate string
}

// RequisitionLine is one PR item row. LineNo is unique per requisition.
type RequisitionLine struct {
	PRID        string
	LineNo      int
	ItemCode    string
	ItemName    string
	Purpose     string
	Qty         float64
	UOM         string
	Rate        float64
	GSTPct      float64
	WarrantyAMC string
	LineTotal   float64
}

// PurchaseOrder is the PO header row. A PO references exactly one PR; its
// lines are a snapshot of the PR lines at creation time.
type PurchaseOrder struct {
	ID           string
	PRID         string
	Site         string
	VendorID     string
	TallyNo      string
	Date         time.Time
	FileURL      string
	TotalInclGST float64
	Status       POStatus
	LastActionBy string
	LastActionAt time.Time
	Remarks      string
}

// PurchaseOrderLine is one PO item row, renumbered 1..n at snapshot time.
type PurchaseOrderLine struct {
	POID      string
	LineNo    int
	ItemCode  string
	ItemName  string
	Qty       float64
	UOM       string
	Rate      float64
	GSTPct    float64
	LineTotal float64
}

// Payment is one tranche against a PO. Many payments may reference one PO.
type Payment struct {
	ID           string
	POID         string
	TrancheNo    int
	Amount       float64
	VoucherURL   string
	Status       PaymentStatus
	Mode         string
	UTR          string
	PostedDate   time.Time
	Remarks      string
	LastActionBy string
	LastActionAt time.Time
}

// Vendor is a registered supplier.
type Vendor struct {
	ID            string
	CompanyName   string
	ContactPerson string
	ContactNumber string
	Email         string
	BankName      string
	AccountHolder string
	AccountNumber string
	BranchName    string
	IFSCCode      string
	GSTNumber     string
	PAN           string
	Address       string
	Sites         string
	Active        string
	CreatedAt     time.Time
	CreatedBy     string
}

// LineTotal computes qty * rate * (1 + gst/100).
func LineTotal(qty, rate, gstPct float64) float64 {
	return qty * rate * (1 + gstPct/100)
}
