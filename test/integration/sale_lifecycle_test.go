package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/suite"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/seed"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
	grpcsvc "github.com/vladislavdragonenkov/pos/internal/service/grpc"
	"github.com/vladislavdragonenkov/pos/internal/service/idempotency"
	"github.com/vladislavdragonenkov/pos/internal/service/outbox"
	"github.com/vladislavdragonenkov/pos/internal/service/sales"
	"github.com/vladislavdragonenkov/pos/internal/storage/memory"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
	"github.com/vladislavdragonenkov/pos/internal/transport/rest"
)

// capturePublisher запоминает опубликованные события вместо отправки в Kafka.
type capturePublisher struct {
	mu     sync.Mutex
	events []domain.SaleEvent
}

func (p *capturePublisher) Publish(_ context.Context, msg domain.OutboxMessage) error {
	var event domain.SaleEvent
	if err := json.Unmarshal(msg.Payload, &event); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *capturePublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.EventType+":"+string(e.Status))
	}
	return out
}

// SaleLifecycleTestSuite прогоняет продажу через REST и gRPC поверх одного хранилища.
type SaleLifecycleTestSuite struct {
	suite.Suite
	store     *memory.Store
	router    *gin.Engine
	client    *grpcsvc.SalesClient
	server    *grpc.Server
	conn      *grpc.ClientConn
	worker    *outbox.Worker
	published *capturePublisher
	products  map[string]domain.Product
	customer  string
}

func (s *SaleLifecycleTestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)
	baseLogger := log.New()
	baseLogger.SetLevel(log.WarnLevel)
	logger := baseLogger.WithField("component", "integration-test")

	s.store = memory.NewStore()
	ctx := context.Background()

	catalogSvc := catalog.NewService(s.store, catalog.WithLogger(logger), catalog.WithLowStockThreshold(5))
	salesSvc := sales.NewService(s.store, sales.WithLogger(logger))
	guard := idempotency.NewGuard(memory.NewIdempotencyRepository())

	result, err := seed.Run(ctx, s.store, catalogSvc, logger)
	s.Require().NoError(err)
	s.Require().Positive(result.Products)

	products, err := s.store.Products().List(ctx, domain.ProductFilter{})
	s.Require().NoError(err)
	s.products = make(map[string]domain.Product, len(products))
	for _, p := range products {
		s.products[p.Name] = p
	}
	customers, err := s.store.Customers().List(ctx, domain.CustomerFilter{})
	s.Require().NoError(err)
	s.Require().NotEmpty(customers)
	s.customer = customers[0].ID

	s.router, err = rest.NewHandler(salesSvc, catalogSvc, guard, logger).Router(rest.Config{})
	s.Require().NoError(err)

	listener := bufconn.Listen(1024 * 1024)
	s.server = grpc.NewServer()
	grpcsvc.RegisterSalesServer(s.server, grpcsvc.NewSalesService(salesSvc, catalogSvc, guard, logger))
	go func() { _ = s.server.Serve(listener) }()

	s.conn, err = grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(context.Context, string) (net.Conn, error) { return listener.Dial() }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	s.Require().NoError(err)
	s.client = grpcsvc.NewSalesClient(s.conn)

	s.published = &capturePublisher{}
	s.worker = outbox.NewWorker(s.store.Outbox(), s.published, outbox.WithLogger(logger))
}

func (s *SaleLifecycleTestSuite) TearDownTest() {
	_ = s.conn.Close()
	s.server.Stop()
}

func (s *SaleLifecycleTestSuite) doJSON(method, path string, body any, headers ...string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *SaleLifecycleTestSuite) stock(name string) int {
	p, err := s.store.Products().Get(context.Background(), s.products[name].ID)
	s.Require().NoError(err)
	return p.Stock
}

func (s *SaleLifecycleTestSuite) TestSaleCreatedOverRESTAndDeliveredOverGRPC() {
	ctx := context.Background()
	ceviche := s.products["Ceviche de Pescado"]
	chicha := s.products["Chicha Morada"]

	rec := s.doJSON(http.MethodPost, "/api/ventas", map[string]any{
		"customer_id":    s.customer,
		"payment_method": "YAPE",
		"items": []dto.LineItemInput{
			{ProductID: ceviche.ID, Quantity: 2},
			{ProductID: chicha.ID, Quantity: 3},
		},
	}, "Idempotency-Key", "mesa-4")
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())

	var sale dto.Sale
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &sale))
	s.Equal("PENDING", sale.Status)
	// 2*25.00 + 3*5.00 = 65.00; надбавка 18% = 11.70.
	s.Equal("65.00", sale.Subtotal)
	s.Equal("11.70", sale.Surcharge)
	s.Equal("76.70", sale.Total)
	s.Equal(48, s.stock("Ceviche de Pescado"))
	s.Equal(97, s.stock("Chicha Morada"))

	replay := s.doJSON(http.MethodPost, "/api/ventas", map[string]any{
		"customer_id":    s.customer,
		"payment_method": "YAPE",
		"items": []dto.LineItemInput{
			{ProductID: ceviche.ID, Quantity: 2},
			{ProductID: chicha.ID, Quantity: 3},
		},
	}, "Idempotency-Key", "mesa-4")
	s.Require().Equal(http.StatusCreated, replay.Code)
	s.Equal("true", replay.Header().Get("Idempotent-Replayed"))
	s.Equal(48, s.stock("Ceviche de Pescado"), "replay must not debit stock twice")

	for _, next := range []string{"CONFIRMED", "DELIVERED"} {
		resp, err := s.client.ChangeSaleStatus(ctx, &grpcsvc.ChangeSaleStatusRequest{SaleID: sale.ID, Status: next})
		s.Require().NoError(err)
		s.Equal(next, resp.Sale.Status)
	}

	_, err := s.client.ChangeSaleStatus(ctx, &grpcsvc.ChangeSaleStatusRequest{SaleID: sale.ID, Status: "CANCELLED"})
	s.Equal(codes.FailedPrecondition, status.Code(err), "delivered sale is terminal")

	got, err := s.client.GetSale(ctx, &grpcsvc.GetSaleRequest{SaleID: sale.ID})
	s.Require().NoError(err)
	s.Equal("DELIVERED", got.Sale.Status)
	s.Require().Len(got.Timeline, 3)
	s.Equal(domain.TimelineSaleCreated, got.Timeline[0].Type)

	s.Equal(3, s.worker.ProcessOnce(ctx))
	s.Equal([]string{
		"SaleCreated:PENDING",
		"SaleStatusChanged:CONFIRMED",
		"SaleStatusChanged:DELIVERED",
	}, s.published.types())
}

func (s *SaleLifecycleTestSuite) TestCancellationOverGRPCReturnsStockVisibleOverREST() {
	ctx := context.Background()
	tiradito := s.products["Tiradito de Pescado"]

	created, err := s.client.CreateSale(ctx, &grpcsvc.CreateSaleRequest{
		CustomerID:    s.customer,
		PaymentMethod: "CASH",
		Items:         []dto.LineItemInput{{ProductID: tiradito.ID, Quantity: 26}},
	})
	s.Require().NoError(err)
	s.Equal(4, s.stock("Tiradito de Pescado"))

	low := s.doJSON(http.MethodGet, "/api/productos/stock-bajo", nil)
	s.Require().Equal(http.StatusOK, low.Code)
	s.Contains(low.Body.String(), tiradito.ID)

	_, err = s.client.ChangeSaleStatus(ctx, &grpcsvc.ChangeSaleStatusRequest{SaleID: created.Sale.ID, Status: "CONFIRMED"})
	s.Require().NoError(err)

	rec := s.doJSON(http.MethodPatch, "/api/ventas/"+created.Sale.ID+"/estado", map[string]string{"status": "CANCELLED"})
	s.Require().Equal(http.StatusOK, rec.Code, rec.Body.String())
	s.Equal(30, s.stock("Tiradito de Pescado"))

	got, err := s.client.GetSale(ctx, &grpcsvc.GetSaleRequest{SaleID: created.Sale.ID})
	s.Require().NoError(err)
	last := got.Timeline[len(got.Timeline)-1]
	s.Equal(domain.TimelineStockReturned, last.Type)
}

func (s *SaleLifecycleTestSuite) TestInsufficientStockLeavesCatalogUntouched() {
	ctx := context.Background()
	sudado := s.products["Sudado de Pescado"]
	leche := s.products["Leche de Tigre"]

	_, err := s.client.CreateSale(ctx, &grpcsvc.CreateSaleRequest{
		CustomerID:    s.customer,
		PaymentMethod: "CARD",
		Items: []dto.LineItemInput{
			{ProductID: leche.ID, Quantity: 1},
			{ProductID: sudado.ID, Quantity: 21},
		},
	})
	s.Equal(codes.InvalidArgument, status.Code(err))
	s.Equal(20, s.stock("Sudado de Pescado"))
	s.Equal(40, s.stock("Leche de Tigre"))

	list, err := s.client.ListSales(ctx, &grpcsvc.ListSalesRequest{})
	s.Require().NoError(err)
	s.Zero(list.Total)
	s.Zero(s.worker.ProcessOnce(ctx))
}

func (s *SaleLifecycleTestSuite) TestDeletePendingSaleRestoresStock() {
	ctx := context.Background()
	arroz := s.products["Arroz con Mariscos"]

	rec := s.doJSON(http.MethodPost, "/api/ventas", map[string]any{
		"customer_id":    s.customer,
		"payment_method": "PLIN",
		"items":          []dto.LineItemInput{{ProductID: arroz.ID, Quantity: 5}},
	})
	s.Require().Equal(http.StatusCreated, rec.Code, rec.Body.String())
	var sale dto.Sale
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &sale))
	s.Equal(20, s.stock("Arroz con Mariscos"))

	_, err := s.client.DeleteSale(ctx, &grpcsvc.DeleteSaleRequest{SaleID: sale.ID})
	s.Require().NoError(err)
	s.Equal(25, s.stock("Arroz con Mariscos"))

	missing := s.doJSON(http.MethodGet, "/api/ventas/"+sale.ID, nil)
	s.Equal(http.StatusNotFound, missing.Code)

	s.Equal(2, s.worker.ProcessOnce(ctx))
	s.Equal([]string{"SaleCreated:PENDING", "SaleDeleted:PENDING"}, s.published.types())
}

func TestSaleLifecycle(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration suite in short mode")
	}
	suite.Run(t, new(SaleLifecycleTestSuite))
}

