package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DriftPolicy controls what happens when a Rupiah-mode target total drifts
// from the recomputed line-item sum by more than one Rupiah.
type DriftPolicy string

const (
	// DriftAbsorb folds the whole difference into the base amount.
	DriftAbsorb DriftPolicy = "absorb"
	// DriftReject fails the request instead of silently correcting it.
	DriftReject DriftPolicy = "reject"
)

// ChargeInput are the parameters of one purchase request. In unit mode
// Amount is the kWh quantity; otherwise Amount is the target Rupiah total
// the buyer wants to pay, admin fee and taxes included.
type ChargeInput struct {
	UnitBased bool
	Amount    decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate1  decimal.Decimal // PPN
	TaxRate2  decimal.Decimal // PJU
	AdminFee  int64
	Drift     DriftPolicy
}

// LineItem is one row of the itemized charge sent to the gateway.
type LineItem struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Price    int64  `json:"price"`
	Quantity int    `json:"quantity"`
}

// ChargeBreakdown is the itemized result of CalculateCharge. The invariant
// BaseAmount + Tax1 + Tax2 + AdminFee == GrossAmount holds exactly; the
// gateway rejects charges whose items do not sum to the gross amount.
type ChargeBreakdown struct {
	BaseAmount       int64
	Tax1             int64
	Tax2             int64
	AdminFee         int64
	GrossAmount      int64
	ConsumptionUnits decimal.Decimal
	LineItems        []LineItem
}

// CalculateCharge computes the itemized charge for a purchase request.
// It is pure: no side effects, deterministic for identical inputs.
func CalculateCharge(in ChargeInput) (ChargeBreakdown, error) {
	if in.Amount.LessThanOrEqual(decimal.Zero) {
		return ChargeBreakdown{}, fmt.Errorf("%w: amount %s", ErrInvalidAmount, in.Amount)
	}
	if in.UnitPrice.LessThanOrEqual(decimal.Zero) {
		return ChargeBreakdown{}, fmt.Errorf("%w: unit price", ErrMissingField)
	}
	if in.TaxRate1.IsNegative() || in.TaxRate2.IsNegative() {
		return ChargeBreakdown{}, fmt.Errorf("%w: tax rate", ErrMissingField)
	}
	if in.AdminFee < 0 {
		return ChargeBreakdown{}, fmt.Errorf("%w: admin fee", ErrMissingField)
	}

	fee := decimal.NewFromInt(in.AdminFee)

	var base, units decimal.Decimal
	if in.UnitBased {
		units = in.Amount
		base = in.Amount.Mul(in.UnitPrice).Round(0)
	} else {
		// Back-solve the base from the tax-inclusive target.
		divisor := decimal.NewFromInt(1).Add(in.TaxRate1).Add(in.TaxRate2)
		base = in.Amount.Sub(fee).Div(divisor).Round(0)
		units = base.Div(in.UnitPrice).Round(2)
	}

	// Taxes are rounded independently, half up, never truncated.
	tax1 := base.Mul(in.TaxRate1).Round(0)
	tax2 := base.Mul(in.TaxRate2).Round(0)

	if !in.UnitBased {
		// The buyer named an exact total; make the line items meet it.
		target := in.Amount.Round(0)
		diff := target.Sub(base.Add(tax1).Add(tax2).Add(fee))
		switch {
		case diff.IsZero():
		case diff.Abs().Equal(decimal.NewFromInt(1)):
			tax1 = tax1.Add(diff)
		default:
			if in.Drift == DriftReject {
				return ChargeBreakdown{}, fmt.Errorf("%w: target total drifts by %s from computed items",
					ErrInvalidAmount, diff)
			}
			base = base.Add(diff)
		}
	}

	gross := base.Add(tax1).Add(tax2).Add(fee)

	bd := ChargeBreakdown{
		BaseAmount:       base.IntPart(),
		Tax1:             tax1.IntPart(),
		Tax2:             tax2.IntPart(),
		AdminFee:         in.AdminFee,
		GrossAmount:      gross.IntPart(),
		ConsumptionUnits: units,
	}
	bd.LineItems = []LineItem{
		{ID: "ENERGY", Name: fmt.Sprintf("Token Listrik %s kWh", units), Price: bd.BaseAmount, Quantity: 1},
		{ID: "PPN", Name: "PPN", Price: bd.Tax1, Quantity: 1},
		{ID: "PJU", Name: "PJU", Price: bd.Tax2, Quantity: 1},
		{ID: "ADMIN", Name: "Biaya Admin", Price: bd.AdminFee, Quantity: 1},
	}
	return bd, nil
}
