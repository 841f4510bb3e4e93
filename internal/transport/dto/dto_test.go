package dto_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
)

func TestFromSale_FormatsMoneyWithTwoDecimals(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	sale := domain.NewSale("sale-1", "c1", domain.PaymentMethodYape, "mesa 3", now)
	sale.AddItem(domain.LineItem{
		ID:          "li-1",
		ProductID:   "ceviche",
		ProductName: "Ceviche",
		Quantity:    2,
		UnitPrice:   decimal.RequireFromString("30"),
		Subtotal:    decimal.RequireFromString("60"),
	})

	got := dto.FromSale(sale)

	require.Len(t, got.Items, 1)
	assert.Equal(t, "30.00", got.Items[0].UnitPrice)
	assert.Equal(t, "60.00", got.Items[0].Subtotal)
	assert.Equal(t, "60.00", got.Subtotal)
	assert.Equal(t, "10.80", got.Surcharge)
	assert.Equal(t, "70.80", got.Total)
	assert.Equal(t, "PENDING", got.Status)
	assert.Equal(t, "YAPE", got.PaymentMethod)
	assert.Equal(t, "mesa 3", got.Note)
}

func TestFromSale_EmptyItemsIsNotNil(t *testing.T) {
	got := dto.FromSale(domain.NewSale("sale-1", "c1", domain.PaymentMethodCash, "", time.Now()))
	assert.NotNil(t, got.Items)
	assert.Equal(t, "0.00", got.Total)
}

func TestMoney_RoundsHalfUp(t *testing.T) {
	assert.Equal(t, "2.35", dto.Money(decimal.RequireFromString("2.345")))
	assert.Equal(t, "5.00", dto.Money(decimal.NewFromInt(5)))
}

func TestToLineItemRequests(t *testing.T) {
	reqs := dto.ToLineItemRequests([]dto.LineItemInput{{ProductID: "p1", Quantity: 3}, {ProductID: "p2", Quantity: 1}})
	require.Len(t, reqs, 2)
	assert.Equal(t, "p1", reqs[0].ProductID)
	assert.Equal(t, 3, reqs[0].Quantity)
}

func TestFromProductsAndCustomers(t *testing.T) {
	products := dto.FromProducts([]domain.Product{{ID: "p1", Name: "Inca Kola", Price: decimal.RequireFromString("4"), Stock: 80, Active: true}})
	require.Len(t, products, 1)
	assert.Equal(t, "4.00", products[0].Price)
	assert.Equal(t, 80, products[0].Stock)

	customers := dto.FromCustomers(nil)
	assert.NotNil(t, customers)
	assert.Empty(t, customers)
}
