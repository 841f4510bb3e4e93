// Package dto описывает JSON-представления сущностей, общие для gRPC и REST.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
)

// LineItem — позиция продажи в ответе.
type LineItem struct {
	ID          string `json:"id"`
	ProductID   string `json:"product_id"`
	ProductName string `json:"product_name"`
	Quantity    int    `json:"quantity"`
	UnitPrice   string `json:"unit_price"`
	Subtotal    string `json:"subtotal"`
}

// Sale — продажа в ответе. Денежные суммы передаются строками с двумя знаками: "70.80".
type Sale struct {
	ID            string     `json:"id"`
	CustomerID    string     `json:"customer_id"`
	Status        string     `json:"status"`
	PaymentMethod string     `json:"payment_method"`
	Note          string     `json:"note,omitempty"`
	Items         []LineItem `json:"items"`
	Subtotal      string     `json:"subtotal"`
	Surcharge     string     `json:"surcharge"`
	Total         string     `json:"total"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

type Customer struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Price       string    `json:"price"`
	Stock       int       `json:"stock"`
	Unit        string    `json:"unit,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type TimelineEvent struct {
	Type     string    `json:"type"`
	Reason   string    `json:"reason,omitempty"`
	Occurred time.Time `json:"occurred"`
}

type LineItemInput struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

// FromSale переводит агрегат в представление; суммы фиксируются с двумя знаками.
func FromSale(s domain.Sale) Sale {
	items := make([]LineItem, 0, len(s.Items))
	for _, it := range s.Items {
		items = append(items, LineItem{
			ID:          it.ID,
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Quantity:    it.Quantity,
			UnitPrice:   Money(it.UnitPrice),
			Subtotal:    Money(it.Subtotal),
		})
	}
	return Sale{
		ID:            s.ID,
		CustomerID:    s.CustomerID,
		Status:        string(s.Status),
		PaymentMethod: string(s.PaymentMethod),
		Note:          s.Note,
		Items:         items,
		Subtotal:      Money(s.Subtotal),
		Surcharge:     Money(s.Surcharge),
		Total:         Money(s.Total),
		CreatedAt:     s.CreatedAt,
		UpdatedAt:     s.UpdatedAt,
	}
}

func FromSales(sales []domain.Sale) []Sale {
	result := make([]Sale, 0, len(sales))
	for _, s := range sales {
		result = append(result, FromSale(s))
	}
	return result
}

func FromCustomer(c domain.Customer) Customer {
	return Customer{
		ID:        c.ID,
		FirstName: c.FirstName,
		LastName:  c.LastName,
		Phone:     c.Phone,
		Email:     c.Email,
		Address:   c.Address,
		Active:    c.Active,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
}

func FromCustomers(customers []domain.Customer) []Customer {
	result := make([]Customer, 0, len(customers))
	for _, c := range customers {
		result = append(result, FromCustomer(c))
	}
	return result
}

func FromProduct(p domain.Product) Product {
	return Product{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       Money(p.Price),
		Stock:       p.Stock,
		Unit:        p.Unit,
		Active:      p.Active,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func FromProducts(products []domain.Product) []Product {
	result := make([]Product, 0, len(products))
	for _, p := range products {
		result = append(result, FromProduct(p))
	}
	return result
}

func FromTimeline(events []domain.TimelineEvent) []TimelineEvent {
	result := make([]TimelineEvent, 0, len(events))
	for _, e := range events {
		result = append(result, TimelineEvent{Type: e.Type, Reason: e.Reason, Occurred: e.Occurred})
	}
	return result
}

// ToLineItemRequests переводит входные позиции в запросы менеджера продаж.
func ToLineItemRequests(items []LineItemInput) []sales.LineItemRequest {
	result := make([]sales.LineItemRequest, 0, len(items))
	for _, it := range items {
		result = append(result, sales.LineItemRequest{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return result
}

// Money форматирует сумму с двумя знаками после запятой.
func Money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
