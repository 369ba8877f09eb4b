package procurement

// RequisitionItemInput is one requested line.
type RequisitionItemInput struct {
	ItemCode    string  `json:"item_code" validate:"required"`
	ItemName    string  `json:"item_name"`
	Purpose     string  `json:"purpose"`
	Qty         float64 `json:"qty" validate:"gt=0"`
	UOM         string  `json:"uom"`
	Rate        float64 `json:"rate" validate:"gte=0"`
	GSTPct      float64 `json:"gst_pct" validate:"gte=0,lte=100"`
	WarrantyAMC string  `json:"warranty_amc"`
}

// CreateRequisitionInput is the requisition creation payload. When
// VendorRegistered is "No" and VendorDetails are supplied, the vendor is
// registered first and the returned id is used.
type CreateRequisitionInput struct {
	Site                 string                 `json:"site" validate:"required"`
	RequestedBy          string                 `json:"requested_by"`
	VendorID             string                 `json:"vendor_id"`
	VendorRegistered     string                 `json:"vendor_registered"`
	VendorDetails        *VendorInput           `json:"vendor_details"`
	PurchaseCategory     string                 `json:"purchase_category"`
	PaymentTerms         string                 `json:"payment_terms"`
	DeliveryTerms        string                 `json:"delivery_terms"`
	DeliveryLocation     string                 `json:"delivery_location"`
	CustomerReimbursable bool                   `json:"customer_reimbursable"`
	ExpectedDeliveryDate string                 `json:"expected_delivery_date"`
	Items                []RequisitionItemInput `json:"items" validate:"min=1,dive"`
}

// CreatePurchaseOrderInput converts an approved requisition into an order.
type CreatePurchaseOrderInput struct {
	PRID    string `json:"pr_id" validate:"required"`
	TallyNo string `json:"po_no_tally"`
	FileURL string `json:"file_url"`
	Remarks string `json:"remarks"`
}

// RequestPaymentInput opens a payment tranche against a posted or approved
// order. TrancheNo defaults to 1.
type RequestPaymentInput struct {
	POID       string  `json:"po_id" validate:"required"`
	TrancheNo  int     `json:"tranche_no" validate:"gte=0"`
	Amount     float64 `json:"amount" validate:"gt=0"`
	Mode       string  `json:"mode"`
	UTR        string  `json:"utr"`
	VoucherURL string  `json:"voucher_url"`
	Remarks    string  `json:"remarks"`
}

// VendorInput carries vendor registration details.
type VendorInput struct {
	CompanyName   string `json:"company_name" validate:"required"`
	ContactPerson string `json:"contact_person"`
	ContactNumber string `json:"contact_number"`
	Email         string `json:"email" validate:"omitempty,email"`
	BankName      string `json:"bank_name"`
	AccountHolder string `json:"account_holder"`
	AccountNumber string `json:"account_number"`
	BranchName    string `json:"branch_name"`
	IFSCCode      string `json:"ifsc_code"`
	GSTNumber     string `json:"gst_number"`
	PAN           string `json:"pan"`
	Address       string `json:"address"`
	Sites         string `json:"providing_sites"`
}
