package enums

import "fmt"

// BidStatus tracks the lifecycle of a buyer's bid on a listing.
type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusWinning   BidStatus = "winning"
	BidStatusOutbid    BidStatus = "outbid"
	BidStatusWon       BidStatus = "won"
	BidStatusLost      BidStatus = "lost"
	BidStatusCancelled BidStatus = "cancelled"
	BidStatusPaid      BidStatus = "paid"
)

var validBidStatuses = []BidStatus{
	BidStatusActive,
	BidStatusWinning,
	BidStatusOutbid,
	BidStatusWon,
	BidStatusLost,
	BidStatusCancelled,
	BidStatusPaid,
}

// String implements fmt.Stringer.
func (b BidStatus) String() string {
	return string(b)
}

// IsValid reports whether the value is a known BidStatus.
func (b BidStatus) IsValid() bool {
	for _, candidate := range validBidStatuses {
		if candidate == b {
			return true
		}
	}
	return false
}

// IsPayable reports whether a payment intent may be opened for the bid.
// Only won bids are payable; paid is terminal.
func (b BidStatus) IsPayable() bool {
	return b == BidStatusWon
}

// ParseBidStatus converts raw input into a BidStatus.
func ParseBidStatus(value string) (BidStatus, error) {
	for _, candidate := range validBidStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid bid status %q", value)
}
