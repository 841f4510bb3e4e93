package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type timelineRepository struct {
	v view
}

// Append добавляет событие, сохраняя хронологический порядок.
func (r timelineRepository) Append(_ context.Context, event domain.TimelineEvent) error {
	defer r.v.lock()()

	// Новый слайс: сортировка не должна задевать массив, на который ссылается журнал отката.
	events := append(slices.Clone(r.v.st().timeline[event.SaleID]), event)
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Occurred.Before(events[j].Occurred)
	})
	remember(r.v, r.v.st().timeline, event.SaleID)
	r.v.st().timeline[event.SaleID] = events
	return nil
}

// List возвращает события продажи в хронологическом порядке.
func (r timelineRepository) List(_ context.Context, saleID string) ([]domain.TimelineEvent, error) {
	defer r.v.rlock()()

	events := r.v.st().timeline[saleID]
	result := make([]domain.TimelineEvent, len(events))
	copy(result, events)
	return result, nil
}

var _ domain.TimelineRepository = timelineRepository{}
