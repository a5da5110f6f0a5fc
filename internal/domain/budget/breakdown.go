package budget

import "math"

// Rates collects the percentage rates applied to a gross payment.
type Rates struct {
	TaxRate          float64
	CardFeeRate      float64
	AnticipationRate float64
	LocationRate     float64
	Anticipated      bool
}

// pct rounds base × rate% to the nearest minor unit.
func pct(base int64, rate float64) int64 {
	return int64(math.Round(float64(base) * rate / 100))
}

// ComputeBreakdown decomposes gross into the full deduction set. The order
// is fixed: the card fee comes off the gross first and the facility
// commission is charged on the remainder, while tax and anticipation are
// charged on the raw gross.
func ComputeBreakdown(gross int64, r Rates) FinancialBreakdown {
	cardFee := pct(gross, r.CardFeeRate)
	location := pct(gross-cardFee, r.LocationRate)
	tax := pct(gross, r.TaxRate)
	anticipation := pct(gross, r.AnticipationRate)

	return FinancialBreakdown{
		GrossAmount:        gross,
		NetAmount:          gross - tax - cardFee - anticipation - location,
		TaxRate:            r.TaxRate,
		TaxAmount:          tax,
		CardFeeRate:        r.CardFeeRate,
		CardFeeAmount:      cardFee,
		AnticipationRate:   r.AnticipationRate,
		AnticipationAmount: anticipation,
		LocationRate:       r.LocationRate,
		LocationAmount:     location,
		Anticipated:        r.Anticipated,
	}
}

// ResolveLocationRate picks the effective facility commission rate for an
// item: item-level override, then budget-level rate, then the account
// default. A rate of exactly zero counts as unset and falls through.
func ResolveLocationRate(item *TreatmentItem, b *Budget, accountRate float64) float64 {
	if item != nil && item.LocationRateOverride != nil && *item.LocationRateOverride > 0 {
		return *item.LocationRateOverride
	}
	if b != nil && b.LocationRate != nil && *b.LocationRate > 0 {
		return *b.LocationRate
	}
	return accountRate
}
