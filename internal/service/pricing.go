package service

import "github.com/shopspring/decimal"

// PricedLine is a resolved order line ready for totals calculation.
type PricedLine struct {
	UnitPrice decimal.Decimal
	Quantity  int32
}

// Totals holds the money fields of an order.
type Totals struct {
	Subtotal   decimal.Decimal
	GSTAmount  decimal.Decimal
	CGST       decimal.Decimal
	SGST       decimal.Decimal
	GrandTotal decimal.Decimal
}

// PriceOrder computes order totals from resolved lines and the business GST
// rate. GST applies only when the rate is positive; the amount splits evenly
// into CGST and SGST halves.
func PriceOrder(lines []PricedLine, gstPercentage decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, line := range lines {
		subtotal = subtotal.Add(line.UnitPrice.Mul(decimal.NewFromInt32(line.Quantity)))
	}

	gstAmount := decimal.Zero
	cgst := decimal.Zero
	sgst := decimal.Zero
	if gstPercentage.IsPositive() {
		gstAmount = subtotal.Mul(gstPercentage).Div(decimal.NewFromInt(100))
		half := gstAmount.Div(decimal.NewFromInt(2))
		cgst = half
		sgst = half
	}

	return Totals{
		Subtotal:   subtotal,
		GSTAmount:  gstAmount,
		CGST:       cgst,
		SGST:       sgst,
		GrandTotal: subtotal.Add(gstAmount),
	}
}

// LineTotal is the extended price of a single line.
func LineTotal(unitPrice decimal.Decimal, quantity int32) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt32(quantity))
}
