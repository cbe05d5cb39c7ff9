// Package pricing computes order totals and preparation estimates.
package pricing

import (
	"canteen/internal/domain/model"

	"github.com/shopspring/decimal"
)

const (
	DefaultTaxRate        = "0.05"
	DefaultDeliveryFee    = 20
	DefaultDeliveryOffset = 15
	DefaultCounterOffset  = 5
)

// 明細1行（数量 × スナップショット単価）
type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

type Totals struct {
	Subtotal    decimal.Decimal
	Tax         decimal.Decimal
	DeliveryFee decimal.Decimal
	Discount    decimal.Decimal
	Total       decimal.Decimal
}

// Calculator holds the canteen's tax rate and flat delivery fee.
type Calculator struct {
	TaxRate     decimal.Decimal
	DeliveryFee decimal.Decimal
}

func NewCalculator(taxRate, deliveryFee decimal.Decimal) Calculator {
	return Calculator{TaxRate: taxRate, DeliveryFee: deliveryFee}
}

func DefaultCalculator() Calculator {
	return Calculator{
		TaxRate:     decimal.RequireFromString(DefaultTaxRate),
		DeliveryFee: decimal.NewFromInt(DefaultDeliveryFee),
	}
}

// Calculate returns the order money fields, each rounded to 2 places.
// Round is half away from zero, which is half-up for the non-negative
// amounts handled here.
func (c Calculator) Calculate(lines []Line, deliveryType model.DeliveryType, discount decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	subtotal = subtotal.Round(2)

	tax := subtotal.Mul(c.TaxRate).Round(2)

	fee := decimal.Zero
	if deliveryType == model.DeliveryTypeDelivery {
		fee = c.DeliveryFee.Round(2)
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	discount = discount.Round(2)

	total := subtotal.Add(tax).Add(fee).Sub(discount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return Totals{
		Subtotal:    subtotal,
		Tax:         tax,
		DeliveryFee: fee,
		Discount:    discount,
		Total:       total.Round(2),
	}
}

// 受け取り方法ごとの加算分（分）
type TimeOffsets struct {
	Delivery int64
	Counter  int64
}

func DefaultTimeOffsets() TimeOffsets {
	return TimeOffsets{Delivery: DefaultDeliveryOffset, Counter: DefaultCounterOffset}
}

// EstimateMinutes is ceil(average prepTime) plus the delivery-type offset.
// The average is per line, not weighted by quantity.
func EstimateMinutes(prepTimes []int64, deliveryType model.DeliveryType, off TimeOffsets) int64 {
	offset := off.Counter
	if deliveryType == model.DeliveryTypeDelivery {
		offset = off.Delivery
	}
	if len(prepTimes) == 0 {
		return offset
	}

	var sum int64
	for _, p := range prepTimes {
		sum += p
	}
	n := int64(len(prepTimes))
	avg := sum / n
	if sum%n != 0 {
		avg++
	}
	return avg + offset
}
