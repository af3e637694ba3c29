package core

import "context"

// Product types. The first five are the fixed form slots, in the order payment is allocated.
const (
	ProductTukdi   = "Tukdi"
	ProductSasiya  = "Sasiya"
	ProductTukdiD  = "Tukdi D"
	ProductSasiyaD = "Sasiya D"
	ProductOther   = "Other"

	// ProductNull marks a zero-value placeholder line that carries a customer into a new
	// period. It never contributes to money or quantity totals.
	ProductNull = "Null"
)

// ProductSlots is the fixed slot order used by order entry, editing, and the report breakdown.
var ProductSlots = []string{ProductTukdi, ProductSasiya, ProductTukdiD, ProductSasiyaD, ProductOther}

// Order line statuses.
const (
	StatusPending   = "pending"
	StatusDelivered = "delivered"
	StatusCancelled = "cancelled"
)

// IsSentinel reports whether productType is the placeholder type.
func IsSentinel(productType string) bool {
	return productType == ProductNull
}

// IsManualRate reports whether the rate for productType is always entered by hand.
func IsManualRate(productType string) bool {
	return productType == ProductOther || productType == ProductNull
}

// TracksStock reports whether lines of productType move the stock counter.
// Types without a stock row are adjusted as a no-op.
func TracksStock(productType string) bool {
	return !IsSentinel(productType)
}

// ValidStatus reports whether s is a known order line status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusDelivered, StatusCancelled:
		return true
	}
	return false
}

// slotBucket maps a product type onto its report column; anything outside the fixed set is Other.
func slotBucket(productType string) string {
	switch productType {
	case ProductTukdi, ProductSasiya, ProductTukdiD, ProductSasiyaD:
		return productType
	}
	return ProductOther
}

// Locker serialises operations on a shared key across processes.
// The returned unlock func must be called exactly once.
type Locker interface {
	Lock(ctx context.Context, key string) (func(), error)
}

// NoopLocker is used when no distributed lock backend is configured.
type NoopLocker struct{}

func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
