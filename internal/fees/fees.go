// Package fees computes the platform's cut of a sale in basis points.
package fees

import "marketplace-service/internal/models"

// MaxBps is the upper bound for any configured fee (50%).
const MaxBps = 5000

// Compute splits a gross amount into fee and net using the seller's fee
// tier. The fee rounds up so the platform never under-collects. The
// seller's VIP status decides the tier, never the buyer's.
func Compute(grossAmountCents int64, sellerIsVip bool, settings *models.PlatformSettings) (feeAmountCents, netAmountCents int64) {
	bps := settings.FeeBps
	if sellerIsVip {
		bps = settings.VipFeeBps
	}
	feeAmountCents = (grossAmountCents*int64(bps) + 9999) / 10000
	netAmountCents = grossAmountCents - feeAmountCents
	return feeAmountCents, netAmountCents
}

// ValidBps reports whether a basis-point value is in the allowed range.
func ValidBps(bps int) bool {
	return bps >= 0 && bps <= MaxBps
}
