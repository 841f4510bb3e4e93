package grpcsvc

import "github.com/vladislavdragonenkov/pos/internal/transport/dto"

type CreateSaleRequest struct {
	CustomerID    string              `json:"customer_id"`
	PaymentMethod string              `json:"payment_method"`
	Note          string              `json:"note,omitempty"`
	Items         []dto.LineItemInput `json:"items"`
}

type UpdateSaleRequest struct {
	SaleID        string              `json:"sale_id"`
	PaymentMethod string              `json:"payment_method"`
	Note          string              `json:"note,omitempty"`
	Items         []dto.LineItemInput `json:"items"`
}

type SaleResponse struct {
	Sale dto.Sale `json:"sale"`
}

type GetSaleRequest struct {
	SaleID string `json:"sale_id"`
}

// GetSaleResponse — продажа вместе с историей событий.
type GetSaleResponse struct {
	Sale     dto.Sale            `json:"sale"`
	Timeline []dto.TimelineEvent `json:"timeline"`
}

// ListSalesRequest: пустой запрос возвращает первую страницу всех продаж.
// CustomerID, ProductID и Status взаимоисключающие.
type ListSalesRequest struct {
	CustomerID string `json:"customer_id,omitempty"`
	ProductID  string `json:"product_id,omitempty"`
	Status     string `json:"status,omitempty"`
	Page       int    `json:"page,omitempty"`
	PageSize   int    `json:"page_size,omitempty"`
}

type ListSalesResponse struct {
	Sales      []dto.Sale `json:"sales"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages,omitempty"`
}

type ChangeSaleStatusRequest struct {
	SaleID string `json:"sale_id"`
	Status string `json:"status"`
}

type DeleteSaleRequest struct {
	SaleID string `json:"sale_id"`
}

type DeleteSaleResponse struct {
	SaleID string `json:"sale_id"`
}

type ListProductsRequest struct {
	ActiveOnly bool   `json:"active_only,omitempty"`
	Query      string `json:"query,omitempty"`
}

type ListProductsResponse struct {
	Products []dto.Product `json:"products"`
}

type ListCustomersRequest struct {
	ActiveOnly bool   `json:"active_only,omitempty"`
	Query      string `json:"query,omitempty"`
}

type ListCustomersResponse struct {
	Customers []dto.Customer `json:"customers"`
}
