// Package rest реализует HTTP API кассы: продажи (/api/ventas), клиенты (/api/clientes) и продукты (/api/productos).
package rest

import (
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
)

// Config задаёт параметры роутера.
type Config struct {
	// RateLimit в формате limiter ("100-M"); пустая строка отключает ограничение.
	RateLimit string
	// Location задаёт часовой пояс, в котором трактуются даты без смещения.
	Location *time.Location
}

// Handler обслуживает REST-маршруты поверх сервисов продаж и каталога.
type Handler struct {
	sales   *sales.Service
	catalog *catalog.Service
	guard   *idempotency.Guard
	logger  *log.Entry
	loc     *time.Location
}

// NewHandler создаёт обработчик. guard == nil отключает Idempotency-Key.
func NewHandler(salesSvc *sales.Service, catalogSvc *catalog.Service, guard *idempotency.Guard, logger *log.Entry) *Handler {
	if logger == nil {
		logger = log.WithField("component", "rest")
	}
	return &Handler{
		sales:   salesSvc,
		catalog: catalogSvc,
		guard:   guard,
		logger:  logger,
		loc:     time.UTC,
	}
}

// Router собирает gin.Engine со всеми маршрутами и middleware.
func (h *Handler) Router(cfg Config) (*gin.Engine, error) {
	if cfg.Location != nil {
		h.loc = cfg.Location
	}

	limit, err := RateLimit(cfg.RateLimit)
	if err != nil {
		return nil, err
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(h.logger))
	r.Use(limit)
	r.Use(ErrorHandlingMiddleware(h.logger))

	ventas := r.Group("/api/ventas")
	{
		ventas.POST("", h.createSale)
		ventas.GET("", h.listSales)
		ventas.GET("/paginadas", h.listSalesPage)
		ventas.GET("/hoy", h.salesToday)
		ventas.GET("/rango", h.salesInRange)
		ventas.GET("/ingresos", h.revenue)
		ventas.GET("/estados", h.saleStatuses)
		ventas.GET("/metodos-pago", h.paymentMethods)
		ventas.GET("/cliente/:clienteId", h.salesByCustomer)
		ventas.GET("/producto/:productoId", h.salesByProduct)
		ventas.GET("/estado/:estado", h.salesByStatus)
		ventas.GET("/estado/:estado/total", h.countByStatus)
		ventas.GET("/:id", h.getSale)
		ventas.GET("/:id/historial", h.saleTimeline)
		ventas.PUT("/:id", h.updateSale)
		ventas.PATCH("/:id/estado", h.changeSaleStatus)
		ventas.DELETE("/:id", h.deleteSale)
	}

	clientes := r.Group("/api/clientes")
	{
		clientes.POST("", h.createCustomer)
		clientes.GET("", h.listCustomers)
		clientes.GET("/activos", h.listActiveCustomers)
		clientes.GET("/buscar", h.searchCustomers)
		clientes.GET("/:id", h.getCustomer)
		clientes.PUT("/:id", h.updateCustomer)
		clientes.PATCH("/:id/desactivar", h.deactivateCustomer)
		clientes.PATCH("/:id/activar", h.activateCustomer)
	}

	productos := r.Group("/api/productos")
	{
		productos.POST("", h.createProduct)
		productos.GET("", h.listProducts)
		productos.GET("/activos", h.listActiveProducts)
		productos.GET("/buscar", h.searchProducts)
		productos.GET("/stock-bajo", h.lowStock)
		productos.GET("/:id", h.getProduct)
		productos.PUT("/:id", h.updateProduct)
		productos.PATCH("/:id/stock", h.setStock)
		productos.PATCH("/:id/desactivar", h.deactivateProduct)
		productos.PATCH("/:id/activar", h.activateProduct)
	}

	return r, nil
}

func requestLogger(logger *log.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		logger.WithFields(log.Fields{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"status":   c.Writer.Status(),
			"duration": time.Since(start).String(),
		}).Debug("http request")
	}
}
