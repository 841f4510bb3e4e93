package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
)

const (
	idempotencyKeyHeader = "Idempotency-Key"
	replayedHeader       = "Idempotent-Replayed"

	operationCreateSale = "POST /api/ventas"
)

type saleRequest struct {
	CustomerID    string              `json:"customer_id"`
	PaymentMethod string              `json:"payment_method"`
	Note          string              `json:"note"`
	Items         []dto.LineItemInput `json:"items"`
}

type statusRequest struct {
	Status string `json:"status"`
}

type pageResponse struct {
	Items      []dto.Sale `json:"items"`
	Page       int        `json:"page"`
	Size       int        `json:"size"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`
}

type revenueResponse struct {
	From    time.Time `json:"from"`
	To      time.Time `json:"to"`
	Revenue string    `json:"revenue"`
}

func (h *Handler) createSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed sale body"))
		return
	}

	key := strings.TrimSpace(c.GetHeader(idempotencyKeyHeader))
	if key == "" || h.guard == nil {
		sale, err := h.doCreateSale(c.Request.Context(), req)
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusCreated, dto.FromSale(sale))
		return
	}

	hash, err := idempotency.RequestHash(operationCreateSale, req)
	if err != nil {
		abortWithError(c, err)
		return
	}

	resp, err := h.guard.Do(c.Request.Context(), key, hash, func(ctx context.Context) (idempotency.Response, error) {
		sale, runErr := h.doCreateSale(ctx, req)
		if runErr != nil {
			status, payload := mapError(runErr)
			if status >= http.StatusInternalServerError {
				return idempotency.Response{}, runErr
			}
			body, _ := json.Marshal(errorResponse{Error: payload})
			return idempotency.Response{StatusCode: status, Body: body}, nil
		}
		body, marshalErr := json.Marshal(dto.FromSale(sale))
		if marshalErr != nil {
			return idempotency.Response{}, marshalErr
		}
		return idempotency.Response{StatusCode: http.StatusCreated, Body: body}, nil
	})
	if err != nil {
		abortWithError(c, err)
		return
	}

	if resp.Replayed {
		c.Header(replayedHeader, "true")
	}
	if len(resp.Body) == 0 {
		_, payload := mapError(nil)
		c.JSON(resp.StatusCode, errorResponse{Error: payload})
		return
	}
	c.Data(resp.StatusCode, "application/json; charset=utf-8", resp.Body)
}

func (h *Handler) doCreateSale(ctx context.Context, req saleRequest) (domain.Sale, error) {
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return domain.Sale{}, err
	}
	return h.sales.Create(ctx, sales.CreateRequest{
		CustomerID:    req.CustomerID,
		PaymentMethod: method,
		Note:          req.Note,
		Items:         dto.ToLineItemRequests(req.Items),
	})
}

func (h *Handler) updateSale(c *gin.Context) {
	var req saleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed sale body"))
		return
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		abortWithError(c, err)
		return
	}
	sale, err := h.sales.Update(c.Request.Context(), sales.UpdateRequest{
		SaleID:        c.Param("id"),
		PaymentMethod: method,
		Note:          req.Note,
		Items:         dto.ToLineItemRequests(req.Items),
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSale(sale))
}

func (h *Handler) changeSaleStatus(c *gin.Context) {
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		abortWithError(c, invalidRequest("malformed status body"))
		return
	}
	to, err := domain.ParseSaleStatus(req.Status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	sale, err := h.sales.ChangeStatus(c.Request.Context(), c.Param("id"), to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSale(sale))
}

func (h *Handler) deleteSale(c *gin.Context) {
	if err := h.sales.Delete(c.Request.Context(), c.Param("id")); err != nil {
		abortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) getSale(c *gin.Context) {
	sale, err := h.sales.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromSale(sale))
}

func (h *Handler) saleTimeline(c *gin.Context) {
	events, err := h.sales.Timeline(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.FromTimeline(events))
}

func (h *Handler) listSales(c *gin.Context) {
	h.respondSales(c)(h.sales.List(c.Request.Context()))
}

func (h *Handler) listSalesPage(c *gin.Context) {
	page, err := queryInt(c, "page", 0)
	if err != nil {
		abortWithError(c, err)
		return
	}
	size, err := queryInt(c, "size", 10)
	if err != nil {
		abortWithError(c, err)
		return
	}
	result, err := h.sales.ListPage(c.Request.Context(), page, size)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, pageResponse{
		Items:      dto.FromSales(result.Items),
		Page:       result.Page,
		Size:       result.Size,
		Total:      result.Total,
		TotalPages: result.TotalPages(),
	})
}

func (h *Handler) salesToday(c *gin.Context) {
	h.respondSales(c)(h.sales.Today(c.Request.Context()))
}

func (h *Handler) salesInRange(c *gin.Context) {
	from, to, err := h.dateRange(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.respondSales(c)(h.sales.ListByDateRange(c.Request.Context(), from, to))
}

func (h *Handler) salesByCustomer(c *gin.Context) {
	h.respondSales(c)(h.sales.ListByCustomer(c.Request.Context(), c.Param("clienteId")))
}

func (h *Handler) salesByProduct(c *gin.Context) {
	h.respondSales(c)(h.sales.ListByProduct(c.Request.Context(), c.Param("productoId")))
}

func (h *Handler) salesByStatus(c *gin.Context) {
	status, err := domain.ParseSaleStatus(c.Param("estado"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	h.respondSales(c)(h.sales.ListByStatus(c.Request.Context(), status))
}

func (h *Handler) countByStatus(c *gin.Context) {
	status, err := domain.ParseSaleStatus(c.Param("estado"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	count, err := h.sales.CountByStatus(c.Request.Context(), status)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": status, "total": count})
}

// revenue принимает либо anio+mes, либо fechaInicio+fechaFin.
func (h *Handler) revenue(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("anio") != "" || c.Query("mes") != "" {
		year, err := queryInt(c, "anio", 0)
		if err != nil {
			abortWithError(c, err)
			return
		}
		month, err := queryInt(c, "mes", 0)
		if err != nil {
			abortWithError(c, err)
			return
		}
		sum, err := h.sales.MonthlyRevenue(ctx, year, time.Month(month))
		if err != nil {
			abortWithError(c, err)
			return
		}
		from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, h.loc)
		c.JSON(http.StatusOK, revenueResponse{
			From:    from,
			To:      from.AddDate(0, 1, 0).Add(-time.Nanosecond),
			Revenue: dto.Money(sum),
		})
		return
	}

	from, to, err := h.dateRange(c)
	if err != nil {
		abortWithError(c, err)
		return
	}
	sum, err := h.sales.Revenue(ctx, from, to)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, revenueResponse{From: from, To: to, Revenue: dto.Money(sum)})
}

func (h *Handler) saleStatuses(c *gin.Context) {
	c.JSON(http.StatusOK, domain.AllSaleStatuses())
}

func (h *Handler) paymentMethods(c *gin.Context) {
	c.JSON(http.StatusOK, domain.AllPaymentMethods())
}

func (h *Handler) respondSales(c *gin.Context) func([]domain.Sale, error) {
	return func(list []domain.Sale, err error) {
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.JSON(http.StatusOK, dto.FromSales(list))
	}
}

func (h *Handler) dateRange(c *gin.Context) (time.Time, time.Time, error) {
	from, err := parseTime(c.Query("fechaInicio"), h.loc, false)
	if err != nil {
		return time.Time{}, time.Time{}, invalidRequest("fechaInicio must be RFC3339, 2006-01-02T15:04:05 or 2006-01-02")
	}
	to, err := parseTime(c.Query("fechaFin"), h.loc, true)
	if err != nil {
		return time.Time{}, time.Time{}, invalidRequest("fechaFin must be RFC3339, 2006-01-02T15:04:05 or 2006-01-02")
	}
	return from, to, nil
}

// parseTime разбирает дату; значения без смещения трактуются в loc.
// Для голой даты endOfDay выбирает последний момент суток.
func parseTime(value string, loc *time.Location, endOfDay bool) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", value, loc); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02", value, loc)
	if err != nil {
		return time.Time{}, err
	}
	if endOfDay {
		t = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}
	return t, nil
}

func queryInt(c *gin.Context, name string, def int) (int, error) {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidRequest(name + " must be an integer")
	}
	return v, nil
}
