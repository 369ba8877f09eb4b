package procurement

import (
	"context"
	"fmt"
	"time"

	"github.com/procureflow/procureflow/internal/audit"
	"github.com/procureflow/procureflow/internal/identity"
)

// RegisterVendor registers a vendor inline from a requisition form. Serials
// come from the VENDOR:{yyyymm} counter and ids carry the V- prefix. New
// vendors start active.
func (s *Service) RegisterVendor(ctx context.Context, input VendorInput) (Vendor, error) {
	if err := s.validate.Struct(input); err != nil {
		return Vendor{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return Vendor{}, err
	}
	if err := s.repo.ensureTables(ctx, TableVendors); err != nil {
		return Vendor{}, err
	}
	now := s.now()
	pd := period(now)
	serial, err := s.serials.Allocate(ctx, vendorSerialKey(pd))
	if err != nil {
		return Vendor{}, err
	}
	vendor := newVendor(formatVendorID(pd, serial), input, user.Email, now)
	if err := s.repo.appendVendor(ctx, vendor); err != nil {
		return Vendor{}, err
	}
	if err := s.trail.Append(ctx, audit.Record{
		Entity:   "VENDOR",
		EntityID: vendor.ID,
		Action:   "CREATE",
		ToState:  "ACTIVE",
		By:       user.Email,
		Remarks:  "New vendor registered via form.",
		Payload:  input,
	}); err != nil {
		return Vendor{}, err
	}
	return vendor, nil
}

// CreateVendor is the back-office vendor intake. It runs a separate counter,
// VND:{yyyymm}, and mints VND- prefixed ids, so the two intake paths never
// share a serial sequence.
func (s *Service) CreateVendor(ctx context.Context, input VendorInput) (Vendor, error) {
	if err := s.validate.Struct(input); err != nil {
		return Vendor{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	user, err := identity.CurrentUser(ctx)
	if err != nil {
		return Vendor{}, err
	}
	if err := s.repo.ensureTables(ctx, TableVendors); err != nil {
		return Vendor{}, err
	}
	now := s.now()
	pd := period(now)
	serial, err := s.serials.Allocate(ctx, vendorAdminSerialKey(pd))
	if err != nil {
		return Vendor{}, err
	}
	vendor := newVendor(formatVendorAdminID(pd, serial), input, user.Email, now)
	if err := s.repo.appendVendor(ctx, vendor); err != nil {
		return Vendor{}, err
	}
	if err := s.trail.Append(ctx, audit.Record{
		Entity:   "VENDOR",
		EntityID: vendor.ID,
		Action:   "CREATE",
		ToState:  "REGISTERED",
		By:       user.Email,
		Payload:  input,
	}); err != nil {
		return Vendor{}, err
	}
	return vendor, nil
}

func newVendor(id string, input VendorInput, by string, at time.Time) Vendor {
	return Vendor{
		ID:            id,
		CompanyName:   input.CompanyName,
		ContactPerson: input.ContactPerson,
		ContactNumber: input.ContactNumber,
		Email:         input.Email,
		BankName:      input.BankName,
		AccountHolder: input.AccountHolder,
		AccountNumber: input.AccountNumber,
		BranchName:    input.BranchName,
		IFSCCode:      input.IFSCCode,
		GSTNumber:     input.GSTNumber,
		PAN:           input.PAN,
		Address:       input.Address,
		Sites:         input.Sites,
		Active:        "Yes",
		CreatedAt:     at,
		CreatedBy:     by,
	}
}

// ActiveVendors lists vendors currently flagged active.
func (s *Service) ActiveVendors(ctx context.Context) ([]Vendor, error) {
	return s.repo.activeVendors(ctx)
}
