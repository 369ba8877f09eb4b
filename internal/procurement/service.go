package procurement

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/identity"
)

// SerialAllocator is the counter ledger port.
type SerialAllocator interface {
	Allocate(ctx context.Context, key string) (int, error)
}

// AuditPort is the audit trail port. Every mutating operation appends
// exactly one record through it.
type AuditPort interface {
	Append(ctx context.Context, rec audit.Record) error
}

// Service orchestrates the procurement workflow. It validates preconditions
// against the currently stored state (read-then-write) before mutating.
// Status-row updates are not lock protected: two approvers racing on the
// same entity can both observe the old status and the last write wins. Only
// serial allocation is serialized, through the ledger.
type Service struct {
	repo     *Repository
	serials  SerialAllocator
	trail    AuditPort
	validate *validator.Validate
	now      func() time.Time
}

// NewService constructs the workflow service.
func NewService(repo *Repository, serials SerialAllocator, trail AuditPort) *Service {
	return &Service{
		repo:     repo,
		serials:  serials,
		trail:    trail,
		validate: validator.New(),
		now:      time.Now,
	}
}

// WithClock overrides the timestamp source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// CreateRequisition computes line totals, allocates a serial under
// PR:{site}:{yyyymm}, appends line and header rows and records the creation.
// When the payload flags an unregistered vendor with details attached, the
// vendor is registered first and its id used.
func (s *Service) CreateRequisition(ctx context.Context, input CreateRequisitionInput) (Requisition, error) {
	if err := s.validate.Struct(input); err != nil {
		return Requisition{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return Requisition{}, err
	}
	// Both target tables must exist before a serial is consumed.
	if err := s.repo.ensureTables(ctx, TablePRMaster, TablePRItems); err != nil {
		return Requisition{}, err
	}

	vendorID := input.VendorID
	if input.VendorRegistered == "No" && input.VendorDetails != nil {
		vendor, err := s.RegisterVendor(ctx, *input.VendorDetails)
		if err != nil {
			return Requisition{}, err
		}
		vendorID = vendor.ID
	}

	now := s.now()
	pd := period(now)
	serial, err := s.serials.Allocate(ctx, prSerialKey(input.Site, pd))
	if err != nil {
		return Requisition{}, err
	}
	prID := formatPRID(input.Site, pd, serial)

	// Line rows are appended before the header; a failure partway leaves
	// the appended lines observable. There is no transaction boundary.
	var total float64
	for i, item := range input.Items {
		lineTotal := LineTotal(item.Qty, item.Rate, item.GSTPct)
		total += lineTotal
		line := RequisitionLine{
			PRID:        prID,
			LineNo:      i + 1,
			ItemCode:    item.ItemCode,
			ItemName:    item.ItemName,
			Purpose:     item.Purpose,
			Qty:         item.Qty,
			UOM:         item.UOM,
			Rate:        item.Rate,
			GSTPct:      item.GSTPct,
			WarrantyAMC: item.WarrantyAMC,
			LineTotal:   lineTotal,
		}
		if err := s.repo.appendRequisitionLine(ctx, line); err != nil {
			return Requisition{}, err
		}
	}

	requestedBy := input.RequestedBy
	if requestedBy == "" {
		requestedBy = user.Email
	}
	pr := Requisition{
		ID:                   prID,
		Timestamp:            now,
		Site:                 input.Site,
		RequestedBy:          requestedBy,
		VendorID:             vendorID,
		PurchaseCategory:     input.PurchaseCategory,
		PaymentTerms:         input.PaymentTerms,
		DeliveryTerms:        input.DeliveryTerms,
		DeliveryLocation:     input.DeliveryLocation,
		VendorRegistered:     input.VendorRegistered,
		CustomerReimbursable: input.CustomerReimbursable,
		TotalInclGST:         total,
		Status:               PRStatusSubmitted,
		LastActionBy:         user.Email,
		LastActionAt:         now,
		ExpectedDeliveryDate: input.ExpectedDeliveryDate,
	}
	if err := s.repo.appendRequisition(ctx, pr); err != nil {
		return Requisition{}, err
	}

	if err := s.trail.Append(ctx, audit.Record{
		Entity:   "PR",
		EntityID: prID,
		Action:   "CREATE",
		ToState:  string(PRStatusSubmitted),
		By:       user.Email,
		Payload:  input,
	}); err != nil {
		return Requisition{}, err
	}
	return pr, nil
}

// ApproveRequisition moves a submitted requisition to approved.
func (s *Service) ApproveRequisition(ctx context.Context, prID, remarks string) error {
	return s.decideRequisition(ctx, prID, prActionApprove, "APPROVE", remarks)
}

// RejectRequisition moves a submitted requisition to its terminal rejected
// state. Rejection is a status, not a deletion.
func (s *Service) RejectRequisition(ctx context.Context, prID, remarks string) error {
	return s.decideRequisition(ctx, prID, prActionReject, "REJECT", remarks)
}

func (s *Service) decideRequisition(ctx context.Context, prID string, action prAction, auditAction, remarks string) error {
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	rowIdx, pr, err := s.repo.findRequisition(ctx, prID)
	if err != nil {
		return err
	}
	to, err := nextPRStatus(pr.Status, action)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.repo.setRequisitionStatus(ctx, rowIdx, to, user.Email, now); err != nil {
		return err
	}
	if err := s.repo.updateCells(ctx, TablePRMaster, rowIdx, map[string]any{"Approver_Remarks": remarks}); err != nil {
		return err
	}
	return s.trail.Append(ctx, audit.Record{
		Entity:    "PR",
		EntityID:  prID,
		Action:    auditAction,
		FromState: string(pr.Status),
		ToState:   string(to),
		By:        user.Email,
		Remarks:   remarks,
	})
}

// CreatePurchaseOrder converts an approved requisition into a posted order.
// The requisition's lines are snapshotted into order lines, renumbered 1..n;
// later requisition edits do not reach the order. The parent requisition
// moves to PO_POSTED. On ErrInvalidState nothing is written and no serial is
// consumed.
func (s *Service) CreatePurchaseOrder(ctx context.Context, input CreatePurchaseOrderInput) (PurchaseOrder, error) {
	if err := s.validate.Struct(input); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if err := s.repo.ensureTables(ctx, TablePOMaster, TablePOItems); err != nil {
		return PurchaseOrder{}, err
	}
	prIdx, pr, err := s.repo.findRequisition(ctx, input.PRID)
	if err != nil {
		return PurchaseOrder{}, err
	}
	if _, err := nextPRStatus(pr.Status, prActionPostPO); err != nil {
		return PurchaseOrder{}, fmt.Errorf("%w: requisition %s is %s, must be %s",
			ErrInvalidState, pr.ID, pr.Status, PRStatusApproved)
	}
	prLines, err := s.repo.requisitionLines(ctx, pr.ID)
	if err != nil {
		return PurchaseOrder{}, err
	}

	now := s.now()
	pd := period(now)
	serial, err := s.serials.Allocate(ctx, poSerialKey(pr.Site, pd))
	if err != nil {
		return PurchaseOrder{}, err
	}
	po := PurchaseOrder{
		ID:           formatPOID(pr.Site, pd, serial),
		PRID:         pr.ID,
		Site:         pr.Site,
		VendorID:     pr.VendorID,
		TallyNo:      input.TallyNo,
		Date:         now,
		FileURL:      input.FileURL,
		TotalInclGST: pr.TotalInclGST,
		Status:       POStatusPosted,
		LastActionBy: user.Email,
		LastActionAt: now,
		Remarks:      input.Remarks,
	}
	if err := s.repo.appendPurchaseOrder(ctx, po); err != nil {
		return PurchaseOrder{}, err
	}
	for i, line := range prLines {
		poLine := PurchaseOrderLine{
			POID:      po.ID,
			LineNo:    i + 1,
			ItemCode:  line.ItemCode,
			ItemName:  line.ItemName,
			Qty:       line.Qty,
			UOM:       line.UOM,
			Rate:      line.Rate,
			GSTPct:    line.GSTPct,
			LineTotal: line.LineTotal,
		}
		if err := s.repo.appendPurchaseOrderLine(ctx, poLine); err != nil {
			return PurchaseOrder{}, err
		}
	}
	if err := s.repo.setRequisitionStatus(ctx, prIdx, PRStatusPOPosted, user.Email, now); err != nil {
		return PurchaseOrder{}, err
	}

	if err := s.trail.Append(ctx, audit.Record{
		Entity:    "PO",
		EntityID:  po.ID,
		Action:    "CREATE_FROM_PR",
		FromState: string(PRStatusApproved),
		ToState:   string(POStatusPosted),
		By:        user.Email,
		Payload:   input,
	}); err != nil {
		return PurchaseOrder{}, err
	}
	return po, nil
}

// DecidePurchaseOrder records the approver's verdict on a posted order.
// Approval back-propagates PO_APPROVED onto the parent requisition, code and
// label both, exactly as the historical behavior did; rejection leaves the
// requisition untouched.
func (s *Service) DecidePurchaseOrder(ctx context.Context, poID string, action DecisionAction, remarks string) error {
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	poIdx, po, err := s.repo.findPurchaseOrder(ctx, poID)
	if err != nil {
		return err
	}
	to, err := nextPOStatus(po.Status, action)
	if err != nil {
		return err
	}
	now := s.now()
	if err := s.repo.setPurchaseOrderStatus(ctx, poIdx, to, user.Email, now, remarks); err != nil {
		return err
	}
	if err := s.trail.Append(ctx, audit.Record{
		Entity:    "PO",
		EntityID:  poID,
		Action:    "APPROVAL",
		FromState: string(po.Status),
		ToState:   string(to),
		By:        user.Email,
		Remarks:   remarks,
	}); err != nil {
		return err
	}
	if to == POStatusApproved && po.PRID != "" {
		prIdx, _, err := s.repo.findRequisition(ctx, po.PRID)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return nil
			}
			return err
		}
		if err := s.repo.setRequisitionStatus(ctx, prIdx, PRStatusPOApproved, user.Email, now); err != nil {
			return err
		}
	}
	return nil
}

// RequestPayment opens a payment tranche against a posted or approved order.
func (s *Service) RequestPayment(ctx context.Context, input RequestPaymentInput) (Payment, error) {
	if err := s.validate.Struct(input); err != nil {
		return Payment{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return Payment{}, err
	}
	if err := s.repo.ensureTables(ctx, TablePayments); err != nil {
		return Payment{}, err
	}
	_, po, err := s.repo.findPurchaseOrder(ctx, input.POID)
	if err != nil {
		return Payment{}, err
	}
	if po.Status != POStatusPosted && po.Status != POStatusApproved {
		return Payment{}, fmt.Errorf("%w: order %s is %s, must be posted or approved",
			ErrInvalidState, po.ID, po.Status)
	}

	now := s.now()
	pd := period(now)
	serial, err := s.serials.Allocate(ctx, paymentSerialKey(pd))
	if err != nil {
		return Payment{}, err
	}
	tranche := input.TrancheNo
	if tranche == 0 {
		tranche = 1
	}
	payment := Payment{
		ID:           formatPaymentID(pd, serial),
		POID:         po.ID,
		TrancheNo:    tranche,
		Amount:       input.Amount,
		VoucherURL:   input.VoucherURL,
		Status:       PaymentStatusVoucherUploaded,
		Mode:         input.Mode,
		UTR:          input.UTR,
		Remarks:      input.Remarks,
		LastActionBy: user.Email,
		LastActionAt: now,
	}
	if err := s.repo.appendPayment(ctx, payment); err != nil {
		return Payment{}, err
	}

	if err := s.trail.Append(ctx, audit.Record{
		Entity:   "PAYMENT",
		EntityID: payment.ID,
		Action:   "REQUESTED",
		ToState:  string(PaymentStatusVoucherUploaded),
		By:       user.Email,
		Payload:  input,
	}); err != nil {
		return Payment{}, err
	}
	return payment, nil
}

// DecidePayment records the director's verdict on an uploaded voucher.
func (s *Service) DecidePayment(ctx context.Context, payID string, action DecisionAction, remarks string) error {
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	payIdx, payment, err := s.repo.findPayment(ctx, payID)
	if err != nil {
		return err
	}
	to, err := nextPaymentStatus(payment.Status, action)
	if err != nil {
		return err
	}
	extra := map[string]any{}
	if remarks != "" {
		extra["Remarks"] = remarks
	}
	if err := s.repo.setPaymentStatus(ctx, payIdx, to, user.Email, s.now(), extra); err != nil {
		return err
	}
	return s.trail.Append(ctx, audit.Record{
		Entity:    "PAYMENT",
		EntityID:  payID,
		Action:    "DIRECTOR_APPROVAL",
		FromState: string(payment.Status),
		ToState:   string(to),
		By:        user.Email,
		Remarks:   remarks,
	})
}

// PostPayment stamps the posted date and UTR once the director has signed
// off. Posting from any state other than DIRECTOR_OK fails.
func (s *Service) PostPayment(ctx context.Context, payID string, postedDate time.Time, utr, remarks string) error {
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return err
	}
	payIdx, payment, err := s.repo.findPayment(ctx, payID)
	if err != nil {
		return err
	}
	if payment.Status != PaymentStatusDirectorOK {
		return fmt.Errorf("%w: payment %s is %s, must be %s",
			ErrInvalidState, payID, payment.Status, PaymentStatusDirectorOK)
	}
	if postedDate.IsZero() {
		postedDate = s.now()
	}
	extra := map[string]any{"Posted_Date": postedDate}
	if utr != "" {
		extra["UTR"] = utr
	}
	if remarks != "" {
		extra["Remarks"] = remarks
	}
	if err := s.repo.setPaymentStatus(ctx, payIdx, PaymentStatusPosted, user.Email, s.now(), extra); err != nil {
		return err
	}
	return s.trail.Append(ctx, audit.Record{
		Entity:    "PAYMENT",
		EntityID:  payID,
		Action:    "POSTED",
		FromState: string(PaymentStatusDirectorOK),
		ToState:   string(PaymentStatusPosted),
		By:        user.Email,
		Remarks:   remarks,
	})
}
