package request

import (
	"strings"
	"time"
	_ "time/tzdata" // Europe/Amsterdam must resolve on hosts without zoneinfo
	"unicode/utf8"
)

// ReservedMandateSender is the sender whose mandate IDs are timestamp based.
const ReservedMandateSender = "S1300"

const (
	maxMandateIDLength   = 35
	maxTransactionRefLen = 28
)

var amsterdam = loadAmsterdam()

func loadAmsterdam() *time.Location {
	loc, err := time.LoadLocation("Europe/Amsterdam")
	if err != nil {
		return time.UTC
	}
	return loc
}

// EntranceCode formats now as YYYYMMDDHHMMSSmmm.
func EntranceCode(now time.Time) string {
	return strings.Replace(now.Format("20060102150405.000"), ".", "", 1)
}

// MandateID derives a mandate identifier from the customer and order.
// The reserved sender gets "M" followed by the Amsterdam wall clock time.
func MandateID(senderID, customerID, orderID string, now time.Time) string {
	local := now.In(amsterdam)
	if senderID == ReservedMandateSender {
		return "M" + local.Format("20060102150405")
	}
	return truncate(customerID+local.Format("20060102")+orderID, maxMandateIDLength)
}

// TransactionID derives a payment or identity transaction identifier from a
// debtor reference.
func TransactionID(reference string, now time.Time) string {
	return truncate(reference, maxTransactionRefLen) + now.Format("20060102")
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}

func createDateTime(now time.Time) string {
	return now.In(amsterdam).Format("2006-01-02T15:04:05.000Z")
}

func xmlDateTime(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z")
}
