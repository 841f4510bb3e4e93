package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/vladislavdragonenkov/pos/internal/domain"
)

type timelineRepository struct {
	c conn
}

func (r *timelineRepository) Append(ctx context.Context, event domain.TimelineEvent) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if event.Occurred.IsZero() {
		event.Occurred = time.Now().UTC()
	}

	if _, err := r.c.q.ExecContext(ctx, `
		INSERT INTO timeline_events (sale_id, type, reason, occurred)
		VALUES ($1,$2,$3,$4)
	`, event.SaleID, event.Type, event.Reason, event.Occurred.UTC()); err != nil {
		return fmt.Errorf("append timeline event: %w", err)
	}

	return nil
}

// List возвращает историю продажи в порядке появления событий.
func (r *timelineRepository) List(ctx context.Context, saleID string) ([]domain.TimelineEvent, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	rows, err := r.c.q.QueryContext(ctx, `
		SELECT sale_id, type, reason, occurred
		FROM timeline_events
		WHERE sale_id = $1
		ORDER BY occurred ASC, id ASC
	`, saleID)
	if err != nil {
		return nil, fmt.Errorf("list timeline events: %w", err)
	}
	defer rows.Close()

	events := make([]domain.TimelineEvent, 0)
	for rows.Next() {
		var event domain.TimelineEvent
		if err := rows.Scan(&event.SaleID, &event.Type, &event.Reason, &event.Occurred); err != nil {
			return nil, fmt.Errorf("scan timeline event: %w", err)
		}
		event.Occurred = event.Occurred.UTC()
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate timeline events: %w", err)
	}

	return events, nil
}

var _ domain.TimelineRepository = (*timelineRepository)(nil)
