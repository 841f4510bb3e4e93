package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
)

type customerRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
	Email     string `json:"email"`
	Address   string `json:"address"`
}

func (r customerRequest) input() catalog.CustomerInput {
	return catalog.CustomerInput{
		FirstName: r.FirstName,
		LastName:  r.LastName,
		Phone:     r.Phone,
		Email:     r.Email,
		Address:   r.Address,
	}
}

// productRequest: цена принимается и числом, и строкой.
type productRequest struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock"`
	Unit        string          `json:"unit"`
}

func (r productRequest) input() catalog.ProductInput {
	return catalog.ProductInput{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		Unit:        r.Unit,
	}
}

type stockRequest struct {
	Stock *int `json:"stock"`
}

func (h *Handler) createCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed customer body"))
		return
	}
	customer, err := h.catalog.CreateCustomer(c.Request.Context(), req.input())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromCustomer(customer))
}

func (h *Handler) updateCustomer(c *gin.Context) {
	var req customerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed customer body"))
		return
	}
	h.respondCustomer(c)(h.catalog.UpdateCustomer(c.Request.Context(), c.Param("id"), req.input()))
}

func (h *Handler) getCustomer(c *gin.Context) {
	h.respondCustomer(c)(h.catalog.GetCustomer(c.Request.Context(), c.Param("id")))
}

func (h *Handler) listCustomers(c *gin.Context) {
	h.respondCustomers(c)(h.catalog.ListCustomers(c.Request.Context(), false))
}

func (h *Handler) listActiveCustomers(c *gin.Context) {
	h.respondCustomers(c)(h.catalog.ListCustomers(c.Request.Context(), true))
}

func (h *Handler) searchCustomers(c *gin.Context) {
	h.respondCustomers(c)(h.catalog.SearchCustomers(c.Request.Context(), c.Query("nombre")))
}

func (h *Handler) activateCustomer(c *gin.Context) {
	h.respondCustomer(c)(h.catalog.ActivateCustomer(c.Request.Context(), c.Param("id")))
}

func (h *Handler) deactivateCustomer(c *gin.Context) {
	h.respondCustomer(c)(h.catalog.DeactivateCustomer(c.Request.Context(), c.Param("id")))
}

func (h *Handler) createProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed product body"))
		return
	}
	product, err := h.catalog.CreateProduct(c.Request.Context(), req.input())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.FromProduct(product))
}

func (h *Handler) updateProduct(c *gin.Context) {
	var req productRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed product body"))
		return
	}
	h.respondProduct(c)(h.catalog.UpdateProduct(c.Request.Context(), c.Param("id"), req.input()))
}

func (h *Handler) setStock(c *gin.Context) {
	var req stockRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Stock == nil {
		abortWithError(c, invalidRequest("stock is required"))
		return
	}
	h.respondProduct(c)(h.catalog.SetStock(c.Request.Context(), c.Param("id"), *req.Stock))
}

func (h *Handler) getProduct(c *gin.Context) {
	h.respondProduct(c)(h.catalog.GetProduct(c.Request.Context(), c.Param("id")))
}

func (h *Handler) listProducts(c *gin.Context) {
	h.respondProducts(c)(h.catalog.ListProducts(c.Request.Context(), false))
}

func (h *Handler) listActiveProducts(c *gin.Context) {
	h.respondProducts(c)(h.catalog.ListProducts(c.Request.Context(), true))
}

func (h *Handler) searchProducts(c *gin.Context) {
	h.respondProducts(c)(h.catalog.SearchProducts(c.Request.Context(), c.Query("nombre")))
}

// lowStock без параметра umbral использует порог каталога.
func (h *Handler) lowStock(c *gin.Context) {
	threshold, err := queryInt(c, "umbral", h.catalog.LowStockThreshold())
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.respondProducts(c)(h.catalog.LowStock(c.Request.Context(), threshold))
}

func (h *Handler) activateProduct(c *gin.Context) {
	h.respondProduct(c)(h.catalog.ActivateProduct(c.Request.Context(), c.Param("id")))
}

func (h *Handler) deactivateProduct(c *gin.Context) {
	h.respondProduct(c)(h.catalog.DeactivateProduct(c.Request.Context(), c.Param("id")))
}

func (h *Handler) respondCustomer(c *gin.Context) func(domain.Customer, error) {
	return func(customer domain.Customer, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromCustomer(customer))
	}
}

func (h *Handler) respondCustomers(c *gin.Context) func([]domain.Customer, error) {
	return func(list []domain.Customer, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromCustomers(list))
	}
}

func (h *Handler) respondProduct(c *gin.Context) func(domain.Product, error) {
	return func(product domain.Product, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromProduct(product))
	}
}

func (h *Handler) respondProducts(c *gin.Context) func([]domain.Product, error) {
	return func(list []domain.Product, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromProducts(list))
	}
}
