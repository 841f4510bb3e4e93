package sales

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Выручка считается по этим статусам.
var revenueStatuses = []domain.SaleStatus{domain.SaleStatusConfirmed, domain.SaleStatusDelivered}

// Page — страница продаж; номер страницы начинается с нуля.
type Page struct {
	Items []domain.Sale
	Page  int
	Size  int
	Total int
}

// TotalPages возвращает число страниц при текущем размере.
func (p Page) TotalPages() int {
	if p.Size <= 0 {
		return 0
	}
	return (p.Total + p.Size - 1) / p.Size
}

func (s *Service) Get(ctx context.Context, saleID string) (domain.Sale, error) {
	return s.uow.Sales().Get(ctx, strings.TrimSpace(saleID))
}

// List возвращает все продажи от новых к старым.
func (s *Service) List(ctx context.Context) ([]domain.Sale, error) {
	return s.uow.Sales().List(ctx, domain.SaleFilter{})
}

// ListByCustomer возвращает продажи клиента; для неизвестного клиента ErrCustomerNotFound.
func (s *Service) ListByCustomer(ctx context.Context, customerID string) ([]domain.Sale, error) {
	customerID = strings.TrimSpace(customerID)
	if _, err := s.uow.Customers().Get(ctx, customerID); err != nil {
		return nil, err
	}
	return s.uow.Sales().List(ctx, domain.SaleFilter{CustomerID: customerID})
}

func (s *Service) ListByStatus(ctx context.Context, status domain.SaleStatus) ([]domain.Sale, error) {
	if !status.Valid() {
		return nil, domain.ErrStatusInvalid
	}
	return s.uow.Sales().List(ctx, domain.SaleFilter{Statuses: []domain.SaleStatus{status}})
}

// ListByProduct возвращает продажи, содержащие продукт.
func (s *Service) ListByProduct(ctx context.Context, productID string) ([]domain.Sale, error) {
	productID = strings.TrimSpace(productID)
	if _, err := s.uow.Products().Get(ctx, productID); err != nil {
		return nil, err
	}
	return s.uow.Sales().List(ctx, domain.SaleFilter{ProductID: productID})
}

// ListByDateRange возвращает продажи, созданные в [from, to] включительно.
func (s *Service) ListByDateRange(ctx context.Context, from, to time.Time) ([]domain.Sale, error) {
	if from.After(to) {
		return nil, domain.ErrDateRangeInvalid
	}
	return s.uow.Sales().List(ctx, domain.SaleFilter{CreatedFrom: from, CreatedTo: to})
}

// Today возвращает продажи за текущие сутки в часовом поясе ресторана.
func (s *Service) Today(ctx context.Context) ([]domain.Sale, error) {
	from, to := s.dayBounds(s.now())
	return s.ListByDateRange(ctx, from, to)
}

// ListPage возвращает страницу продаж. Некорректные page/size приводятся к значениям по умолчанию.
func (s *Service) ListPage(ctx context.Context, page, size int) (Page, error) {
	if page < 0 {
		page = 0
	}
	if size <= 0 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	total, err := s.uow.Sales().Count(ctx, domain.SaleFilter{})
	if err != nil {
		return Page{}, err
	}
	// Страница за пределами выборки пуста; проверка до умножения исключает переполнение page*size.
	if page > total/size {
		return Page{Items: []domain.Sale{}, Page: page, Size: size, Total: total}, nil
	}
	items, err := s.uow.Sales().List(ctx, domain.SaleFilter{Limit: size, Offset: page * size})
	if err != nil {
		return Page{}, err
	}
	return Page{Items: items, Page: page, Size: size, Total: total}, nil
}

// CountByStatus возвращает количество продаж в статусе.
func (s *Service) CountByStatus(ctx context.Context, status domain.SaleStatus) (int, error) {
	if !status.Valid() {
		return 0, domain.ErrStatusInvalid
	}
	return s.uow.Sales().Count(ctx, domain.SaleFilter{Statuses: []domain.SaleStatus{status}})
}

// Revenue суммирует итоги подтверждённых и доставленных продаж, созданных в [from, to].
func (s *Service) Revenue(ctx context.Context, from, to time.Time) (decimal.Decimal, error) {
	if from.After(to) {
		return decimal.Zero, domain.ErrDateRangeInvalid
	}
	sum, err := s.uow.Sales().SumTotals(ctx, domain.SaleFilter{
		Statuses:    revenueStatuses,
		CreatedFrom: from,
		CreatedTo:   to,
	})
	if err != nil {
		return decimal.Zero, err
	}
	return domain.RoundMoney(sum), nil
}

// MonthlyRevenue считает выручку за календарный месяц в часовом поясе ресторана.
func (s *Service) MonthlyRevenue(ctx context.Context, year int, month time.Month) (decimal.Decimal, error) {
	if month < time.January || month > time.December {
		return decimal.Zero, domain.ErrDateRangeInvalid
	}
	from := time.Date(year, month, 1, 0, 0, 0, 0, s.location)
	to := from.AddDate(0, 1, 0).Add(-time.Nanosecond)
	return s.Revenue(ctx, from, to)
}

// Timeline возвращает историю продажи. История удалённой продажи остаётся доступной.
func (s *Service) Timeline(ctx context.Context, saleID string) ([]domain.TimelineEvent, error) {
	return s.uow.Timeline().List(ctx, strings.TrimSpace(saleID))
}

func (s *Service) dayBounds(now time.Time) (time.Time, time.Time) {
	local := now.In(s.location)
	start := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, s.location)
	return start, start.AddDate(0, 0, 1).Add(-time.Nanosecond)
}
