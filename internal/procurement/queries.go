package procurement

import "context"

// RequisitionDetail bundles a requisition header with its lines and the
// resolved vendor, when one is linked.
type RequisitionDetail struct {
	Requisition Requisition
	Lines       []RequisitionLine
	Vendor      *Vendor
}

// GetRequisition fetches one requisition header.
func (s *Service) GetRequisition(ctx context.Context, prID string) (Requisition, error) {
	_, pr, err := s.repo.findRequisition(ctx, prID)
	return pr, err
}

// RequisitionDetails fetches a requisition with lines and vendor.
func (s *Service) RequisitionDetails(ctx context.Context, prID string) (RequisitionDetail, error) {
	_, pr, err := s.repo.findRequisition(ctx, prID)
	if err != nil {
		return RequisitionDetail{}, err
	}
	lines, err := s.repo.requisitionLines(ctx, prID)
	if err != nil {
		return RequisitionDetail{}, err
	}
	detail := RequisitionDetail{Requisition: pr, Lines: lines}
	if pr.VendorID != "" {
		vendor, err := s.repo.findVendor(ctx, pr.VendorID)
		if err == nil {
			detail.Vendor = &vendor
		}
	}
	return detail, nil
}

// PendingRequisitions lists requisitions awaiting approval.
func (s *Service) PendingRequisitions(ctx context.Context) ([]Requisition, error) {
	return s.requisitionsByStatus(ctx, PRStatusSubmitted)
}

// ApprovedRequisitionIDs lists ids of requisitions that are approved and
// still without a purchase order.
func (s *Service) ApprovedRequisitionIDs(ctx context.Context) ([]string, error) {
	prs, err := s.requisitionsByStatus(ctx, PRStatusApproved)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(prs))
	for _, pr := range prs {
		ids = append(ids, pr.ID)
	}
	return ids, nil
}

func (s *Service) requisitionsByStatus(ctx context.Context, status PRStatus) ([]Requisition, error) {
	all, err := s.repo.listRequisitions(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Requisition, 0, len(all))
	for _, pr := range all {
		if pr.Status == status {
			out = append(out, pr)
		}
	}
	return out, nil
}

// GetPurchaseOrder fetches one order header.
func (s *Service) GetPurchaseOrder(ctx context.Context, poID string) (PurchaseOrder, error) {
	_, po, err := s.repo.findPurchaseOrder(ctx, poID)
	return po, err
}

// PurchaseOrderLines lists the snapshotted lines of one order.
func (s *Service) PurchaseOrderLines(ctx context.Context, poID string) ([]PurchaseOrderLine, error) {
	return s.repo.purchaseOrderLines(ctx, poID)
}

// PendingPurchaseOrders lists orders posted but not yet decided.
func (s *Service) PendingPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	all, err := s.repo.listPurchaseOrders(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]PurchaseOrder, 0, len(all))
	for _, po := range all {
		if po.Status == POStatusPosted {
			out = append(out, po)
		}
	}
	return out, nil
}

// GetPayment fetches one payment tranche.
func (s *Service) GetPayment(ctx context.Context, payID string) (Payment, error) {
	_, p, err := s.repo.findPayment(ctx, payID)
	return p, err
}

// PaymentsForOrder lists tranches raised against one order, in insertion
// order.
func (s *Service) PaymentsForOrder(ctx context.Context, poID string) ([]Payment, error) {
	all, err := s.repo.listPayments(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Payment, 0, len(all))
	for _, p := range all {
		if p.POID == poID {
			out = append(out, p)
		}
	}
	return out, nil
}
