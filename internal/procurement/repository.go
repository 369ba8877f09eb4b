package procurement

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/procureflow/procureflow/internal/tablestore"
)

// Repository translates between domain entities and table rows. Lookups scan
// rows in insertion order; the first match wins, mirroring how ids are
// resolved in the backing tables (ids are unique by construction, duplicates
// are not enforced).
type Repository struct {
	store tablestore.Store
}

// NewRepository wraps a table store.
func NewRepository(store tablestore.Store) *Repository {
	return &Repository{store: store}
}

// Store exposes the underlying table store.
func (r *Repository) Store() tablestore.Store {
	return r.store
}

func (r *Repository) ensureTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := r.store.Rows(ctx, table); err != nil {
			return err
		}
	}
	return nil
}

func (r *Repository) findRow(ctx context.Context, table, idColumn, id string) (int, tablestore.Row, error) {
	rows, err := r.store.Rows(ctx, table)
	if err != nil {
		return 0, nil, err
	}
	for i, row := range rows {
		if asString(row[idColumn]) == id {
			return i, row, nil
		}
	}
	return 0, nil, fmt.Errorf("%w: %s %s", ErrNotFound, idColumn, id)
}

func (r *Repository) updateCells(ctx context.Context, table string, rowIndex int, cells map[string]any) error {
	for column, value := range cells {
		if err := r.store.UpdateCell(ctx, table, rowIndex, column, value); err != nil {
			return err
		}
	}
	return nil
}

// --- requisitions ---

func (r *Repository) findRequisition(ctx context.Context, id string) (int, Requisition, error) {
	idx, row, err := r.findRow(ctx, TablePRMaster, "PR_ID", id)
	if err != nil {
		return 0, Requisition{}, err
	}
	return idx, decodeRequisition(row), nil
}

func (r *Repository) appendRequisition(ctx context.Context, pr Requisition) error {
	return r.store.Append(ctx, TablePRMaster, tablestore.Row{
		"PR_ID":                    pr.ID,
		"Timestamp":                pr.Timestamp,
		"Date_of_Requisition":      pr.Timestamp,
		"Site":                     pr.Site,
		"Requested_By":             pr.RequestedBy,
		"Vendor_ID":                pr.VendorID,
		"Purchase_Category":        pr.PurchaseCategory,
		"Payment_Terms":            pr.PaymentTerms,
		"Delivery_Terms":           pr.DeliveryTerms,
		"Delivery_Location":        pr.DeliveryLocation,
		"Is_Vendor_Registered":     pr.VendorRegistered,
		"Is_Customer_Reimbursable": yesNo(pr.CustomerReimbursable),
		"Total_Incl_GST":           pr.TotalInclGST,
		"Status_Code":              string(pr.Status),
		"Status_Label":             pr.Status.Label(),
		"Last_Action_By":           pr.LastActionBy,
		"Last_Action_At":           pr.LastActionAt,
		"Approver_Remarks":         pr.ApproverRemarks,
		"Expected_Delivery_Date":   pr.ExpectedDeliveryDate,
	})
}

func (r *Repository) appendRequisitionLine(ctx context.Context, line RequisitionLine) error {
	return r.store.Append(ctx, TablePRItems, tablestore.Row{
		"PR_ID":        line.PRID,
		"Line_No":      line.LineNo,
		"Item_Code":    line.ItemCode,
		"Item_Name":    line.ItemName,
		"Purpose":      line.Purpose,
		"Qty":          line.Qty,
		"UOM":          line.UOM,
		"Rate":         line.Rate,
		"GST_Pct":      line.GSTPct,
		"Warranty_AMC": line.WarrantyAMC,
		"Line_Total":   line.LineTotal,
	})
}

func (r *Repository) requisitionLines(ctx context.Context, prID string) ([]RequisitionLine, error) {
	rows, err := r.store.Rows(ctx, TablePRItems)
	if err != nil {
		return nil, err
	}
	var lines []RequisitionLine
	for _, row := range rows {
		if asString(row["PR_ID"]) != prID {
			continue
		}
		lines = append(lines, RequisitionLine{
			PRID:        prID,
			LineNo:      asInt(row["Line_No"]),
			ItemCode:    asString(row["Item_Code"]),
			ItemName:    asString(row["Item_Name"]),
			Purpose:     asString(row["Purpose"]),
			Qty:         asFloat(row["Qty"]),
			UOM:         asString(row["UOM"]),
			Rate:        asFloat(row["Rate"]),
			GSTPct:      asFloat(row["GST_Pct"]),
			WarrantyAMC: asString(row["Warranty_AMC"]),
			LineTotal:   asFloat(row["Line_Total"]),
		})
	}
	return lines, nil
}

func (r *Repository) setRequisitionStatus(ctx context.Context, rowIndex int, status PRStatus, by string, at time.Time) error {
	return r.updateCells(ctx, TablePRMaster, rowIndex, map[string]any{
		"Status_Code":    string(status),
		"Status_Label":   status.Label(),
		"Last_Action_By": by,
		"Last_Action_At": at,
	})
}

func (r *Repository) listRequisitions(ctx context.Context) ([]Requisition, error) {
	rows, err := r.store.Rows(ctx, TablePRMaster)
	if err != nil {
		return nil, err
	}
	out := make([]Requisition, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodeRequisition(row))
	}
	return out, nil
}

func decodeRequisition(row tablestore.Row) Requisition {
	return Requisition{
		ID:                   asString(row["PR_ID"]),
		Timestamp:            asTime(row["Timestamp"]),
		Site:                 asString(row["Site"]),
		RequestedBy:          asString(row["Requested_By"]),
		VendorID:             asString(row["Vendor_ID"]),
		PurchaseCategory:     asString(row["Purchase_Category"]),
		PaymentTerms:         asString(row["Payment_Terms"]),
		DeliveryTerms:        asString(row["Delivery_Terms"]),
		DeliveryLocation:     asString(row["Delivery_Location"]),
		VendorRegistered:     asString(row["Is_Vendor_Registered"]),
		CustomerReimbursable: asString(row["Is_Customer_Reimbursable"]) == "Yes",
		TotalInclGST:         asFloat(row["Total_Incl_GST"]),
		Status:               PRStatus(asString(row["Status_Code"])),
		LastActionBy:         asString(row["Last_Action_By"]),
		LastActionAt:         asTime(row["Last_Action_At"]),
		ApproverRemarks:      asString(row["Approver_Remarks"]),
		ExpectedDeliveryDate: asString(row["Expected_Delivery_Date"]),
	}
}

// --- purchase orders ---

func (r *Repository) findPurchaseOrder(ctx context.Context, id string) (int, PurchaseOrder, error) {
	idx, row, err := r.findRow(ctx, TablePOMaster, "PO_ID", id)
	if err != nil {
		return 0, PurchaseOrder{}, err
	}
	return idx, decodePurchaseOrder(row), nil
}

func (r *Repository) appendPurchaseOrder(ctx context.Context, po PurchaseOrder) error {
	return r.store.Append(ctx, TablePOMaster, tablestore.Row{
		"PO_ID":          po.ID,
		"PR_ID":          po.PRID,
		"Site":           po.Site,
		"Vendor_ID":      po.VendorID,
		"PO_No_Tally":    po.TallyNo,
		"PO_Date":        po.Date,
		"PO_File_URL":    po.FileURL,
		"Total_Incl_GST": po.TotalInclGST,
		"Status_Code":    string(po.Status),
		"Status_Label":   po.Status.Label(),
		"Last_Action_By": po.LastActionBy,
		"Last_Action_At": po.LastActionAt,
		"PO_Remarks":     po.Remarks,
	})
}

func (r *Repository) appendPurchaseOrderLine(ctx context.Context, line PurchaseOrderLine) error {
	return r.store.Append(ctx, TablePOItems, tablestore.Row{
		"PO_ID":      line.POID,
		"Line_No":    line.LineNo,
		"Item_Code":  line.ItemCode,
		"Item_Name":  line.ItemName,
		"Qty":        line.Qty,
		"UOM":        line.UOM,
		"Rate":       line.Rate,
		"GST_Pct":    line.GSTPct,
		"Line_Total": line.LineTotal,
	})
}

func (r *Repository) purchaseOrderLines(ctx context.Context, poID string) ([]PurchaseOrderLine, error) {
	rows, err := r.store.Rows(ctx, TablePOItems)
	if err != nil {
		return nil, err
	}
	var lines []PurchaseOrderLine
	for _, row := range rows {
		if asString(row["PO_ID"]) != poID {
			continue
		}
		lines = append(lines, PurchaseOrderLine{
			POID:      poID,
			LineNo:    asInt(row["Line_No"]),
			ItemCode:  asString(row["Item_Code"]),
			ItemName:  asString(row["Item_Name"]),
			Qty:       asFloat(row["Qty"]),
			UOM:       asString(row["UOM"]),
			Rate:      asFloat(row["Rate"]),
			GSTPct:    asFloat(row["GST_Pct"]),
			LineTotal: asFloat(row["Line_Total"]),
		})
	}
	return lines, nil
}

func (r *Repository) setPurchaseOrderStatus(ctx context.Context, rowIndex int, status POStatus, by string, at time.Time, remarks string) error {
	return r.updateCells(ctx, TablePOMaster, rowIndex, map[string]any{
		"Status_Code":    string(status),
		"Status_Label":   status.Label(),
		"Last_Action_By": by,
		"Last_Action_At": at,
		"PO_Remarks":     remarks,
	})
}

func (r *Repository) listPurchaseOrders(ctx context.Context) ([]PurchaseOrder, error) {
	rows, err := r.store.Rows(ctx, TablePOMaster)
	if err != nil {
		return nil, err
	}
	out := make([]PurchaseOrder, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodePurchaseOrder(row))
	}
	return out, nil
}

func decodePurchaseOrder(row tablestore.Row) PurchaseOrder {
	return PurchaseOrder{
		ID:           asString(row["PO_ID"]),
		PRID:         asString(row["PR_ID"]),
		Site:         asString(row["Site"]),
		VendorID:     asString(row["Vendor_ID"]),
		TallyNo:      asString(row["PO_No_Tally"]),
		Date:         asTime(row["PO_Date"]),
		FileURL:      asString(row["PO_File_URL"]),
		TotalInclGST: asFloat(row["Total_Incl_GST"]),
		Status:       POStatus(asString(row["Status_Code"])),
		LastActionBy: asString(row["Last_Action_By"]),
		LastActionAt: asTime(row["Last_Action_At"]),
		Remarks:      asString(row["PO_Remarks"]),
	}
}

// --- payments ---

func (r *Repository) findPayment(ctx context.Context, id string) (int, Payment, error) {
	idx, row, err := r.findRow(ctx, TablePayments, "PAY_ID", id)
	if err != nil {
		return 0, Payment{}, err
	}
	return idx, decodePayment(row), nil
}

func (r *Repository) appendPayment(ctx context.Context, p Payment) error {
	return r.store.Append(ctx, TablePayments, tablestore.Row{
		"PAY_ID":              p.ID,
		"PO_ID":               p.POID,
		"Tranche_No":          p.TrancheNo,
		"Amount":              p.Amount,
		"Payment_Voucher_URL": p.VoucherURL,
		"Status_Code":         string(p.Status),
		"Status_Label":        p.Status.Label(),
		"Mode":                p.Mode,
		"UTR":                 p.UTR,
		"Posted_Date":         "",
		"Remarks":             p.Remarks,
		"Last_Action_By":      p.LastActionBy,
		"Last_Action_At":      p.LastActionAt,
	})
}

func (r *Repository) setPaymentStatus(ctx context.Context, rowIndex int, status PaymentStatus, by string, at time.Time, extra map[string]any) error {
	cells := map[string]any{
		"Status_Code":    string(status),
		"Status_Label":   status.Label(),
		"Last_Action_By": by,
		"Last_Action_At": at,
	}
	for k, v := range extra {
		cells[k] = v
	}
	return r.updateCells(ctx, TablePayments, rowIndex, cells)
}

func (r *Repository) listPayments(ctx context.Context) ([]Payment, error) {
	rows, err := r.store.Rows(ctx, TablePayments)
	if err != nil {
		return nil, err
	}
	out := make([]Payment, 0, len(rows))
	for _, row := range rows {
		out = append(out, decodePayment(row))
	}
	return out, nil
}

func decodePayment(row tablestore.Row) Payment {
	return Payment{
		ID:           asString(row["PAY_ID"]),
		POID:         asString(row["PO_ID"]),
		TrancheNo:    asInt(row["Tranche_No"]),
		Amount:       asFloat(row["Amount"]),
		VoucherURL:   asString(row["Payment_Voucher_URL"]),
		Status:       PaymentStatus(asString(row["Status_Code"])),
		Mode:         asString(row["Mode"]),
		UTR:          asString(row["UTR"]),
		PostedDate:   asTime(row["Posted_Date"]),
		Remarks:      asString(row["Remarks"]),
		LastActionBy: asString(row["Last_Action_By"]),
		LastActionAt: asTime(row["Last_Action_At"]),
	}
}

// --- vendors ---

func (r *Repository) appendVendor(ctx context.Context, v Vendor) error {
	return r.store.Append(ctx, TableVendors, tablestore.Row{
		"Vendor_ID":       v.ID,
		"Company_Name":    v.CompanyName,
		"Contact_Person":  v.ContactPerson,
		"Contact_Number":  v.ContactNumber,
		"Email_ID":        v.Email,
		"Bank_Name":       v.BankName,
		"Acc_Holder_Name": v.AccountHolder,
		"Acc_Number":      v.AccountNumber,
		"Branch_Name":     v.BranchName,
		"IFSC_Code":       v.IFSCCode,
		"GST_Number":      v.GSTNumber,
		"Vendor_PAN":      v.PAN,
		"Vendor_Address":  v.Address,
		"Providing_Sites": v.Sites,
		"Active":          v.Active,
		"Created_At":      v.CreatedAt,
		"Created_By":      v.CreatedBy,
	})
}

func (r *Repository) findVendor(ctx context.Context, id string) (Vendor, error) {
	_, row, err := r.findRow(ctx, TableVendors, "Vendor_ID", id)
	if err != nil {
		return Vendor{}, err
	}
	return decodeVendor(row), nil
}

// activeVendors returns vendors whose Active column is the literal Yes.
func (r *Repository) activeVendors(ctx context.Context) ([]Vendor, error) {
	rows, err := r.store.Rows(ctx, TableVendors)
	if err != nil {
		return nil, err
	}
	var out []Vendor
	for _, row := range rows {
		if asString(row["Active"]) != "Yes" {
			continue
		}
		out = append(out, decodeVendor(row))
	}
	return out, nil
}

func decodeVendor(row tablestore.Row) Vendor {
	return Vendor{
		ID:            asString(row["Vendor_ID"]),
		CompanyName:   asString(row["Company_Name"]),
		ContactPerson: asString(row["Contact_Person"]),
		ContactNumber: asString(row["Contact_Number"]),
		Email:         asString(row["Email_ID"]),
		BankName:      asString(row["Bank_Name"]),
		AccountHolder: asString(row["Acc_Holder_Name"]),
		AccountNumber: asString(row["Acc_Number"]),
		BranchName:    asString(row["Branch_Name"]),
		IFSCCode:      asString(row["IFSC_Code"]),
		GSTNumber:     asString(row["GST_Number"]),
		PAN:           asString(row["Vendor_PAN"]),
		Address:       asString(row["Vendor_Address"]),
		Sites:         asString(row["Providing_Sites"]),
		Active:        asString(row["Active"]),
		CreatedAt:     asTime(row["Created_At"]),
		CreatedBy:     asString(row["Created_By"]),
	}
}

// --- cell decoding helpers ---

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

func asFloat(v any) float64 {
	switch t := v.(type) {
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case string:
		f, _ := strconv.ParseFloat(t, 64)
		return f
	default:
		return 0
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

func asTime(v any) time.Time {
	switch t := v.(type) {
	case time.Time:
		return t
	case string:
		if t == "" {
			return time.Time{}
		}
		if ts, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return ts
		}
		return time.Time{}
	default:
		return time.Time{}
	}
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
