package domain

import "github.com/shopspring/decimal"

const moneyScale = 2

// MaxAmount — наибольшая сумма, которая помещается в колонку NUMERIC(10,2).
var MaxAmount = decimal.RequireFromString("99999999.99")

// SurchargeRate — фиксированная надбавка 18% к подытогу продажи.
var SurchargeRate = decimal.RequireFromString("0.18")

// RoundMoney приводит сумму к двум знакам. Для неотрицательных сумм это half-up.
func RoundMoney(v decimal.Decimal) decimal.Decimal {
	return v.Round(moneyScale)
}

// ComputeSurcharge считает надбавку по подытогу.
func ComputeSurcharge(subtotal decimal.Decimal) decimal.Decimal {
	return RoundMoney(subtotal.Mul(SurchargeRate))
}

// LineSubtotal возвращает unitPrice × quantity, округлённое до копеек.
func LineSubtotal(unitPrice decimal.Decimal, quantity int) decimal.Decimal {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(int64(quantity))))
}

// ValidPrice: цена строго положительна и помещается в два знака после запятой.
func ValidPrice(price decimal.Decimal) bool {
	return price.IsPositive() && price.Equal(RoundMoney(price))
}

// WithinMaxAmount сообщает, что сумма не превышает MaxAmount.
func WithinMaxAmount(amount decimal.Decimal) bool {
	return amount.LessThanOrEqual(MaxAmount)
}
