// Команда loadtest нагружает gRPC API продаж сценариями создания и смены статуса.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	grpcsvc "github.com/vladislavdragonenkov/pos/internal/service/grpc"
	"github.com/vladislavdragonenkov/pos/internal/transport/dto"
)

const idempotencyHeader = "idempotency-key"

type loadMode string

const (
	modeCreate               loadMode = "create"
	modeCreateConfirm        loadMode = "create-confirm"
	modeCreateConfirmDeliver loadMode = "create-confirm-deliver"
)

type config struct {
	addr          string
	total         int
	totalSet      bool
	duration      time.Duration
	concurrency   int
	connections   int
	timeout       time.Duration
	mode          loadMode
	cancelRate    int
	quantity      int
	paymentMethod string
	customerID    string
	productID     string
	outputPath    string
}

// salesAPI описывает часть клиента продаж, которую использует нагрузка.
type salesAPI interface {
	CreateSale(ctx context.Context, in *grpcsvc.CreateSaleRequest, opts ...grpc.CallOption) (*grpcsvc.SaleResponse, error)
	ChangeSaleStatus(ctx context.Context, in *grpcsvc.ChangeSaleStatusRequest, opts ...grpc.CallOption) (*grpcsvc.SaleResponse, error)
	ListProducts(ctx context.Context, in *grpcsvc.ListProductsRequest, opts ...grpc.CallOption) (*grpcsvc.ListProductsResponse, error)
	ListCustomers(ctx context.Context, in *grpcsvc.ListCustomersRequest, opts ...grpc.CallOption) (*grpcsvc.ListCustomersResponse, error)
}

// targets хранит активных клиентов и продукты, по которым распределяются сценарии.
type targets struct {
	customers []string
	products  []string
}

func (t targets) pick(index int) (customerID, productID string) {
	return t.customers[index%len(t.customers)], t.products[index%len(t.products)]
}

func parseConfig(args []string, output io.Writer) (config, error) {
	var (
		cfg           config
		modeValue     string
		timeoutValue  string
		durationValue string
	)

	fs := flag.NewFlagSet("loadtest", flag.ContinueOnError)
	fs.SetOutput(output)
	fs.StringVar(&cfg.addr, "addr", "localhost:50051", "gRPC target address")
	fs.IntVar(&cfg.total, "total", 400, "total scenarios in count mode; in duration mode only used when explicitly set")
	fs.StringVar(&durationValue, "duration", "0s", "optional time-based run duration (e.g. 10m)")
	fs.IntVar(&cfg.concurrency, "concurrency", 40, "number of concurrent workers")
	fs.IntVar(&cfg.connections, "connections", 20, "number of gRPC client connections")
	fs.StringVar(&timeoutValue, "timeout", "5s", "per-RPC timeout")
	fs.StringVar(&modeValue, "mode", string(modeCreate), "load mode: create | create-confirm | create-confirm-deliver")
	fs.IntVar(&cfg.cancelRate, "cancel-rate", 0, "percent of confirmed sales to cancel in create-confirm mode (0..100)")
	fs.IntVar(&cfg.quantity, "quantity", 1, "units per line item")
	fs.StringVar(&cfg.paymentMethod, "payment-method", string(domain.PaymentMethodCash), "payment method for created sales")
	fs.StringVar(&cfg.customerID, "customer-id", "", "use this customer instead of discovering active customers")
	fs.StringVar(&cfg.productID, "product-id", "", "use this product instead of discovering active products")
	fs.StringVar(&cfg.outputPath, "output", "", "optional JSON report output file path")
	if err := fs.Parse(args); err != nil {
		return cfg, err
	}

	timeout, err := time.ParseDuration(strings.TrimSpace(timeoutValue))
	if err != nil {
		return cfg, fmt.Errorf("parse timeout: %w", err)
	}
	cfg.timeout = timeout

	duration, err := time.ParseDuration(strings.TrimSpace(durationValue))
	if err != nil {
		return cfg, fmt.Errorf("parse duration: %w", err)
	}
	cfg.duration = duration

	fs.Visit(func(f *flag.Flag) {
		if f.Name == "total" {
			cfg.totalSet = true
		}
	})

	if cfg.mode, err = parseMode(modeValue); err != nil {
		return cfg, err
	}
	method, err := domain.ParsePaymentMethod(cfg.paymentMethod)
	if err != nil {
		return cfg, fmt.Errorf("payment-method: %w", err)
	}
	cfg.paymentMethod = string(method)
	cfg.customerID = strings.TrimSpace(cfg.customerID)
	cfg.productID = strings.TrimSpace(cfg.productID)

	switch {
	case cfg.duration < 0:
		return cfg, errors.New("duration must be >= 0")
	case cfg.duration == 0 && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when duration is not set")
	case cfg.duration > 0 && cfg.totalSet && cfg.total <= 0:
		return cfg, errors.New("total must be > 0 when explicitly set with duration")
	case cfg.concurrency <= 0:
		return cfg, errors.New("concurrency must be > 0")
	case cfg.connections <= 0:
		return cfg, errors.New("connections must be > 0")
	case cfg.timeout <= 0:
		return cfg, errors.New("timeout must be > 0")
	case cfg.quantity <= 0:
		return cfg, errors.New("quantity must be > 0")
	case cfg.cancelRate < 0 || cfg.cancelRate > 100:
		return cfg, errors.New("cancel-rate must be between 0 and 100")
	case cfg.cancelRate > 0 && cfg.mode != modeCreateConfirm:
		return cfg, errors.New("cancel-rate is only supported in create-confirm mode")
	}

	return cfg, nil
}

func parseMode(value string) (loadMode, error) {
	switch m := loadMode(strings.TrimSpace(value)); m {
	case modeCreate, modeCreateConfirm, modeCreateConfirmDeliver:
		return m, nil
	default:
		return "", fmt.Errorf("unsupported mode: %s", value)
	}
}

func main() {
	cfg, err := parseConfig(os.Args[1:], os.Stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return
		}
		fail("invalid config: %v", err)
	}

	conns := make([]*grpc.ClientConn, 0, cfg.connections)
	clients := make([]salesAPI, 0, cfg.connections)
	for range cfg.connections {
		conn, dialErr := grpc.NewClient(cfg.addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
		if dialErr != nil {
			fail("failed to create grpc client connection: %v", dialErr)
		}
		conns = append(conns, conn)
		clients = append(clients, grpcsvc.NewSalesClient(conn))
	}
	defer func() {
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()

	tgt, err := discoverTargets(context.Background(), clients[0], cfg)
	if err != nil {
		fail("discover targets: %v", err)
	}

	result := runLoad(clients, cfg, tgt)

	printReport(os.Stdout, result, cfg)
	if cfg.outputPath != "" {
		if err := writeJSONReport(cfg.outputPath, result); err != nil {
			fail("failed to write report: %v", err)
		}
	}
	if result.FailedScenarios > 0 {
		os.Exit(1)
	}
}

// discoverTargets берёт явно заданные ID либо запрашивает активные справочники.
func discoverTargets(ctx context.Context, client salesAPI, cfg config) (targets, error) {
	var tgt targets

	if cfg.customerID != "" {
		tgt.customers = []string{cfg.customerID}
	} else {
		callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		resp, err := client.ListCustomers(callCtx, &grpcsvc.ListCustomersRequest{ActiveOnly: true})
		cancel()
		if err != nil {
			return targets{}, fmt.Errorf("list customers: %w", err)
		}
		for _, c := range resp.Customers {
			tgt.customers = append(tgt.customers, c.ID)
		}
	}

	if cfg.productID != "" {
		tgt.products = []string{cfg.productID}
	} else {
		callCtx, cancel := context.WithTimeout(ctx, cfg.timeout)
		resp, err := client.ListProducts(callCtx, &grpcsvc.ListProductsRequest{ActiveOnly: true})
		cancel()
		if err != nil {
			return targets{}, fmt.Errorf("list products: %w", err)
		}
		for _, p := range resp.Products {
			if p.Stock >= cfg.quantity {
				tgt.products = append(tgt.products, p.ID)
			}
		}
	}

	switch {
	case len(tgt.customers) == 0:
		return targets{}, errors.New("no active customers available")
	case len(tgt.products) == 0:
		return targets{}, errors.New("no active products with enough stock available")
	}
	return tgt, nil
}

func runLoad(clients []salesAPI, cfg config, tgt targets) report {
	startedAt := time.Now()
	runID := fmt.Sprintf("%d-%d", startedAt.UnixNano(), os.Getpid())
	col := newCollector()

	jobs := make(chan int, cfg.concurrency*2)
	var failures int64
	var wg sync.WaitGroup

	for workerID := range cfg.concurrency {
		wg.Add(1)
		go func(cli salesAPI) {
			defer wg.Done()
			for id := range jobs {
				if err := runScenario(cli, cfg, tgt, id, runID, col); err != nil {
					atomic.AddInt64(&failures, 1)
				}
			}
		}(clients[workerID%len(clients)])
	}

	dispatchJobs(jobs, cfg)
	wg.Wait()

	result := col.buildReport(startedAt, time.Since(startedAt))
	if result.FailedScenarios == 0 && failures > 0 {
		result.FailedScenarios = failures
		result.ErrorRate = ratio(result.FailedScenarios, result.TotalScenarios)
	}
	return result
}

func dispatchJobs(jobs chan<- int, cfg config) {
	defer close(jobs)

	if cfg.duration <= 0 {
		for i := range cfg.total {
			jobs <- i
		}
		return
	}

	timer := time.NewTimer(cfg.duration)
	defer timer.Stop()

	for i := 0; ; i++ {
		if cfg.totalSet && i >= cfg.total {
			return
		}
		select {
		case <-timer.C:
			return
		case jobs <- i:
		}
	}
}

// runScenario: создание продажи, затем (по режиму) подтверждение и доставка или отмена.
func runScenario(client salesAPI, cfg config, tgt targets, index int, runID string, col *collector) error {
	started := time.Now()
	scenarioCode := codes.OK
	defer func() {
		col.record(scenarioMethod, time.Since(started), scenarioCode)
	}()

	customerID, productID := tgt.pick(index)
	req := &grpcsvc.CreateSaleRequest{
		CustomerID:    customerID,
		PaymentMethod: cfg.paymentMethod,
		Note:          "load " + runID,
		Items:         []dto.LineItemInput{{ProductID: productID, Quantity: cfg.quantity}},
	}

	key := fmt.Sprintf("lt-create-%s-%d", runID, index)
	resp, err := callCreateSale(client, cfg.timeout, req, key, col)
	if err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	saleID := resp.Sale.ID
	if saleID == "" {
		scenarioCode = codes.Internal
		return errors.New("create response returned empty sale id")
	}

	if cfg.mode == modeCreate {
		return nil
	}

	if err := callChangeStatus(client, cfg.timeout, saleID, domain.SaleStatusConfirmed, col); err != nil {
		scenarioCode = grpcCode(err)
		return err
	}

	var next domain.SaleStatus
	switch {
	case cfg.mode == modeCreateConfirmDeliver:
		next = domain.SaleStatusDelivered
	case shouldCancelScenario(index, cfg.cancelRate):
		next = domain.SaleStatusCancelled
	default:
		return nil
	}

	if err := callChangeStatus(client, cfg.timeout, saleID, next, col); err != nil {
		scenarioCode = grpcCode(err)
		return err
	}
	return nil
}

func callCreateSale(
	client salesAPI,
	timeout time.Duration,
	req *grpcsvc.CreateSaleRequest,
	key string,
	col *collector,
) (*grpcsvc.SaleResponse, error) {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	ctx = metadata.AppendToOutgoingContext(ctx, idempotencyHeader, key)

	resp, err := client.CreateSale(ctx, req)
	col.record("CreateSale", time.Since(start), grpcCode(err))
	return resp, err
}

// callChangeStatus пишет метрику под именем ChangeSaleStatus/<статус>.
func callChangeStatus(client salesAPI, timeout time.Duration, saleID string, to domain.SaleStatus, col *collector) error {
	start := time.Now()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	_, err := client.ChangeSaleStatus(ctx, &grpcsvc.ChangeSaleStatusRequest{SaleID: saleID, Status: string(to)})
	col.record("ChangeSaleStatus/"+string(to), time.Since(start), grpcCode(err))
	return err
}

func grpcCode(err error) codes.Code {
	if err == nil {
		return codes.OK
	}
	return status.Code(err)
}

func shouldCancelScenario(index, cancelRate int) bool {
	switch {
	case cancelRate <= 0:
		return false
	case cancelRate >= 100:
		return true
	default:
		return index%100 < cancelRate
	}
}

func fail(format string, args ...any) {
	_, _ = fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
