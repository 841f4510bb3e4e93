// Package seed наполняет пустые справочники демонстрационными клиентами и блюдами.
package seed

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/pos/internal/domain"
	"github.com/vladislavdragonenkov/pos/internal/service/catalog"
)

// Result хранит число созданных записей.
type Result struct {
	Customers int
	Products  int
}

var sampleCustomers = []catalog.CustomerInput{
	{FirstName: "Juan", LastName: "Pérez", Phone: "987654321", Email: "juan.perez@email.com", Address: "Av. Lima 123"},
	{FirstName: "María", LastName: "García", Phone: "987654322", Email: "maria.garcia@email.com", Address: "Jr. Cusco 456"},
	{FirstName: "Carlos", LastName: "López", Phone: "987654323", Email: "carlos.lopez@email.com", Address: "Av. Arequipa 789"},
	{FirstName: "Ana", LastName: "Martínez", Phone: "987654324", Email: "ana.martinez@email.com", Address: "Jr. Tacna 321"},
}

var sampleProducts = []catalog.ProductInput{
	product("Ceviche de Pescado", "Ceviche fresco con pescado del día", "25.00", 50, "Porción"),
	product("Tiradito de Pescado", "Tiradito con ají amarillo", "22.00", 30, "Porción"),
	product("Arroz con Mariscos", "Arroz con mariscos variados", "28.00", 25, "Porción"),
	product("Sudado de Pescado", "Sudado de pescado con yuca", "24.00", 20, "Porción"),
	product("Leche de Tigre", "Leche de tigre pura", "8.00", 40, "Vaso"),
	product("Chicha Morada", "Chicha morada tradicional", "5.00", 100, "Vaso"),
	product("Inca Kola", "Gaseosa Inca Kola", "4.00", 80, "Botella"),
	product("Agua Mineral", "Agua mineral 500ml", "2.50", 120, "Botella"),
}

func product(name, description, price string, stock int, unit string) catalog.ProductInput {
	return catalog.ProductInput{
		Name:        name,
		Description: description,
		Price:       decimal.RequireFromString(price),
		Stock:       stock,
		Unit:        unit,
	}
}

// Run наполняет каждый справочник, только если он пуст. Повторный запуск ничего не меняет.
func Run(ctx context.Context, repos domain.Repositories, svc *catalog.Service, logger *log.Entry) (Result, error) {
	if logger == nil {
		logger = log.WithField("component", "seed")
	}
	var res Result

	customers, err := repos.Customers().Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count customers: %w", err)
	}
	if customers == 0 {
		for _, in := range sampleCustomers {
			if _, err := svc.CreateCustomer(ctx, in); err != nil {
				return res, fmt.Errorf("seed customer %s: %w", in.Email, err)
			}
			res.Customers++
		}
	}

	products, err := repos.Products().Count(ctx)
	if err != nil {
		return res, fmt.Errorf("count products: %w", err)
	}
	if products == 0 {
		for _, in := range sampleProducts {
			if _, err := svc.CreateProduct(ctx, in); err != nil {
				return res, fmt.Errorf("seed product %s: %w", in.Name, err)
			}
			res.Products++
		}
	}

	logger.WithFields(log.Fields{
		"customers": res.Customers,
		"products":  res.Products,
	}).Info("sample data seeded")
	return res, nil
}
