package procurement

import (
	"fmt"
	"time"
)

// Serial scope keys. Serials are scoped per entity type plus site and month
// so each site restarts numbering monthly; the ledger itself treats keys as
// flat strings.
func prSerialKey(site, period string) string {
	return fmt.Sprintf("PR:%s:%s", site, period)
}

func poSerialKey(site, period string) string {
	return fmt.Sprintf("PO:%s:%s", site, period)
}

func paymentSerialKey(period string) string {
	return fmt.Sprintf("PAY:%s", period)
}

// Two vendor registration entry points exist historically, with distinct
// counter keys and id prefixes. Both are kept.
func vendorSerialKey(period string) string {
	return fmt.Sprintf("VENDOR:%s", period)
}

func vendorAdminSerialKey(period string) string {
	return fmt.Sprintf("VND:%s", period)
}

// period formats a timestamp as yyyyMM.
func period(t time.Time) string {
	return t.Format("200601")
}

func formatPRID(site, period string, serial int) string {
	return fmt.Sprintf("PR-%s-%s-%04d", site, period, serial)
}

func formatPOID(site, period string, serial int) string {
	return fmt.Sprintf("PO-%s-%s-%04d", site, period, serial)
}

func formatPaymentID(period string, serial int) string {
	return fmt.Sprintf("PAY-%s-%04d", period, serial)
}

func formatVendorID(period string, serial int) string {
	return fmt.Sprintf("V-%s-%04d", period, serial)
}

func formatVendorAdminID(period string, serial int) string {
	return fmt.Sprintf("VND-%s-%04d", period, serial)
}
