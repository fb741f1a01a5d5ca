package enums

import "slices"

// OfferStatus tracks a bid through negotiation. Accepted and rejected are terminal.
type OfferStatus string

const (
	OfferStatusPending  OfferStatus = "pending"
	OfferStatusAccepted OfferStatus = "accepted"
	OfferStatusRejected OfferStatus = "rejected"
)

var offerStatuses = []OfferStatus{OfferStatusPending, OfferStatusAccepted, OfferStatusRejected}

// String implements fmt.Stringer.
func (s OfferStatus) String() string {
	return string(s)
}

func (s OfferStatus) IsValid() bool { return slices.Contains(offerStatuses, s) }

// IsTerminal reports whether no further transitions are allowed.
func (s OfferStatus) IsTerminal() bool {
	return s == OfferStatusAccepted || s == OfferStatusRejected
}

func ParseOfferStatus(value string) (OfferStatus, error) {
	return parse("offer status", offerStatuses, value)
}
