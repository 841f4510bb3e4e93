// Package grpcsvc реализует gRPC API продаж pos.v1.SalesService поверх менеджера продаж и каталога.
package grpcsvc

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
)

const idempotencyKeyHeader = "idempotency-key"

// SalesService реализует SalesServer.
type SalesService struct {
	sales   *sales.Service
	catalog *catalog.Service
	guard   *idempotency.Guard
	logger  *log.Entry
}

// NewSalesService конструирует сервис. guard == nil отключает поддержку idempotency-key.
func NewSalesService(salesSvc *sales.Service, catalogSvc *catalog.Service, guard *idempotency.Guard, logger *log.Entry) *SalesService {
	if logger == nil {
		logger = log.WithField("component", "sales-grpc")
	}
	return &SalesService{
		sales:   salesSvc,
		catalog: catalogSvc,
		guard:   guard,
		logger:  logger,
	}
}

// CreateSale создаёт продажу. При переданном idempotency-key повтор запроса возвращает первый ответ.
func (s *SalesService) CreateSale(ctx context.Context, req *CreateSaleRequest) (*SaleResponse, error) {
	if req == nil {
		return nil, status.Error(codes.InvalidArgument, "request is required")
	}

	key := readIdempotencyKey(ctx)
	if key == "" || s.guard == nil {
		return s.createSale(ctx, req)
	}

	hash, err := idempotency.RequestHash(methodCreateSale, req)
	if err != nil {
		s.logger.WithError(err).Warn("failed to build idempotency request hash")
		return nil, status.Error(codes.Internal, "failed to initialize idempotency request")
	}

	resp, err := s.guard.Do(ctx, key, hash, func(ctx context.Context) (idempotency.Response, error) {
		out, runErr := s.createSale(ctx, req)
		if runErr != nil {
			if status.Code(runErr) == codes.Internal {
				return idempotency.Response{}, runErr
			}
			code, body := encodeFailure(runErr)
			return idempotency.Response{StatusCode: code, Body: body}, nil
		}
		body, marshalErr := json.Marshal(out)
		if marshalErr != nil {
			return idempotency.Response{}, status.Error(codes.Internal, "failed to encode response")
		}
		return idempotency.Response{StatusCode: http.StatusOK, Body: body}, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, idempotency.ErrPayloadMismatch):
			return nil, status.Error(codes.AlreadyExists, err.Error())
		case errors.Is(err, idempotency.ErrInProgress):
			return nil, status.Error(codes.Aborted, err.Error())
		default:
			return nil, s.toStatus(methodCreateSale, err, log.Fields{"idempotency_key": key})
		}
	}

	if resp.Failed() {
		return nil, decodeFailure(resp.Body, resp.StatusCode)
	}
	var out SaleResponse
	if err := json.Unmarshal(resp.Body, &out); err != nil {
		s.logger.WithError(err).WithField("idempotency_key", key).Warn("failed to decode cached idempotency response")
		return nil, status.Error(codes.Internal, "failed to decode cached idempotency response")
	}
	return &out, nil
}

func (s *SalesService) createSale(ctx context.Context, req *CreateSaleRequest) (*SaleResponse, error) {
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sale, err := s.sales.Create(ctx, sales.CreateRequest{
		CustomerID:    req.CustomerID,
		PaymentMethod: method,
		Note:          req.Note,
		Items:         dto.ToLineItemRequests(req.Items),
	})
	if err != nil {
		return nil, s.toStatus(methodCreateSale, err, log.Fields{"customer_id": req.CustomerID})
	}
	return &SaleResponse{Sale: dto.FromSale(sale)}, nil
}

// UpdateSale заменяет позиции, способ оплаты и примечание продажи в PENDING.
func (s *SalesService) UpdateSale(ctx context.Context, req *UpdateSaleRequest) (*SaleResponse, error) {
	if req == nil || strings.TrimSpace(req.SaleID) == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	method, err := domain.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sale, err := s.sales.Update(ctx, sales.UpdateRequest{
		SaleID:        req.SaleID,
		PaymentMethod: method,
		Note:          req.Note,
		Items:         dto.ToLineItemRequests(req.Items),
	})
	if err != nil {
		return nil, s.toStatus(methodUpdateSale, err, log.Fields{"sale_id": req.SaleID})
	}
	return &SaleResponse{Sale: dto.FromSale(sale)}, nil
}

// ChangeSaleStatus переводит продажу в новый статус.
func (s *SalesService) ChangeSaleStatus(ctx context.Context, req *ChangeSaleStatusRequest) (*SaleResponse, error) {
	if req == nil || strings.TrimSpace(req.SaleID) == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	to, err := domain.ParseSaleStatus(req.Status)
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	sale, err := s.sales.ChangeStatus(ctx, req.SaleID, to)
	if err != nil {
		return nil, s.toStatus(methodChangeSaleStatus, err, log.Fields{"sale_id": req.SaleID, "to": to})
	}
	return &SaleResponse{Sale: dto.FromSale(sale)}, nil
}

// DeleteSale удаляет продажу в PENDING и возвращает остатки на склад.
func (s *SalesService) DeleteSale(ctx context.Context, req *DeleteSaleRequest) (*DeleteSaleResponse, error) {
	if req == nil || strings.TrimSpace(req.SaleID) == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	if err := s.sales.Delete(ctx, req.SaleID); err != nil {
		return nil, s.toStatus(methodDeleteSale, err, log.Fields{"sale_id": req.SaleID})
	}
	return &DeleteSaleResponse{SaleID: req.SaleID}, nil
}

// GetSale возвращает продажу и её историю.
func (s *SalesService) GetSale(ctx context.Context, req *GetSaleRequest) (*GetSaleResponse, error) {
	if req == nil || strings.TrimSpace(req.SaleID) == "" {
		return nil, status.Error(codes.InvalidArgument, "sale_id is required")
	}
	sale, err := s.sales.Get(ctx, req.SaleID)
	if err != nil {
		return nil, s.toStatus(methodGetSale, err, log.Fields{"sale_id": req.SaleID})
	}

	resp := &GetSaleResponse{Sale: dto.FromSale(sale), Timeline: []dto.TimelineEvent{}}
	events, err := s.sales.Timeline(ctx, sale.ID)
	if err != nil {
		s.logger.WithError(err).WithField("sale_id", sale.ID).Warn("failed to list timeline events")
		return resp, nil
	}
	resp.Timeline = dto.FromTimeline(events)
	return resp, nil
}

// ListSales возвращает продажи по одному из фильтров или постранично.
func (s *SalesService) ListSales(ctx context.Context, req *ListSalesRequest) (*ListSalesResponse, error) {
	if req == nil {
		req = &ListSalesRequest{}
	}

	filters := 0
	for _, v := range []string{req.CustomerID, req.ProductID, req.Status} {
		if strings.TrimSpace(v) != "" {
			filters++
		}
	}
	if filters > 1 {
		return nil, status.Error(codes.InvalidArgument, "only one of customer_id, product_id, status may be set")
	}

	var (
		list []domain.Sale
		err  error
	)
	switch {
	case strings.TrimSpace(req.CustomerID) != "":
		list, err = s.sales.ListByCustomer(ctx, req.CustomerID)
	case strings.TrimSpace(req.ProductID) != "":
		list, err = s.sales.ListByProduct(ctx, req.ProductID)
	case strings.TrimSpace(req.Status) != "":
		var st domain.SaleStatus
		if st, err = domain.ParseSaleStatus(req.Status); err == nil {
			list, err = s.sales.ListByStatus(ctx, st)
		}
	default:
		page, pageErr := s.sales.ListPage(ctx, req.Page, req.PageSize)
		if pageErr != nil {
			return nil, s.toStatus(methodListSales, pageErr, nil)
		}
		return &ListSalesResponse{
			Sales:      dto.FromSales(page.Items),
			Total:      page.Total,
			TotalPages: page.TotalPages(),
		}, nil
	}
	if err != nil {
		return nil, s.toStatus(methodListSales, err, log.Fields{
			"customer_id": req.CustomerID,
			"product_id":  req.ProductID,
			"status":      req.Status,
		})
	}
	return &ListSalesResponse{Sales: dto.FromSales(list), Total: len(list)}, nil
}

// ListProducts возвращает каталог; Query ищет по имени среди активных продуктов.
func (s *SalesService) ListProducts(ctx context.Context, req *ListProductsRequest) (*ListProductsResponse, error) {
	if req == nil {
		req = &ListProductsRequest{}
	}
	var (
		products []domain.Product
		err      error
	)
	if strings.TrimSpace(req.Query) != "" {
		products, err = s.catalog.SearchProducts(ctx, req.Query)
	} else {
		products, err = s.catalog.ListProducts(ctx, req.ActiveOnly)
	}
	if err != nil {
		return nil, s.toStatus(methodListProducts, err, nil)
	}
	return &ListProductsResponse{Products: dto.FromProducts(products)}, nil
}

func (s *SalesService) ListCustomers(ctx context.Context, req *ListCustomersRequest) (*ListCustomersResponse, error) {
	if req == nil {
		req = &ListCustomersRequest{}
	}
	var (
		customers []domain.Customer
		err       error
	)
	if strings.TrimSpace(req.Query) != "" {
		customers, err = s.catalog.SearchCustomers(ctx, req.Query)
	} else {
		customers, err = s.catalog.ListCustomers(ctx, req.ActiveOnly)
	}
	if err != nil {
		return nil, s.toStatus(methodListCustomers, err, nil)
	}
	return &ListCustomersResponse{Customers: dto.FromCustomers(customers)}, nil
}

func readIdempotencyKey(ctx context.Context) string {
	if md, ok := metadata.FromIncomingContext(ctx); ok {
		values := md.Get(idempotencyKeyHeader)
		if len(values) > 0 {
			return strings.TrimSpace(values[0])
		}
	}
	return ""
}

var _ SalesServer = (*SalesService)(nil)
