package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/broadcasts"
)

const deliveriesTable = "broadcast_deliveries"

var deliveryRowFields = fields(deliveryRow{})

type deliveryRow struct {
	ID                int64      `db:"id"`
	BroadcastID       int64      `db:"broadcast_id"`
	UserID            int64      `db:"user_id"`
	TelegramMessageID string     `db:"telegram_message_id"`
	Status            string     `db:"status"`
	ErrorMessage      string     `db:"error_message"`
	SentAt            *time.Time `db:"sent_at"`
	CreatedAt         time.Time  `db:"created_at"`
	UpdatedAt         time.Time  `db:"updated_at"`
}

func (d deliveryRow) ToModel() *broadcasts.Delivery {
	return &broadcasts.Delivery{
		ID:                d.ID,
		BroadcastID:       d.BroadcastID,
		UserID:            d.UserID,
		TelegramMessageID: d.TelegramMessageID,
		Status:            d.Status,
		ErrorMessage:      d.ErrorMessage,
		SentAt:            d.SentAt,
		CreatedAt:         d.CreatedAt,
		UpdatedAt:         d.UpdatedAt,
	}
}

// UpsertDelivery держит по одной строке на пару (broadcast, user):
// повторная отправка перезаписывает статус, а не плодит дубли.
func (s *storageImpl) UpsertDelivery(ctx context.Context, delivery broadcasts.Delivery) (*broadcasts.Delivery, error) {
	existing, err := s.getDelivery(ctx, delivery.BroadcastID, delivery.UserID)
	if err != nil {
		return nil, err
	}

	params := map[string]interface{}{
		"telegram_message_id": delivery.TelegramMessageID,
		"status":              delivery.Status,
		"error_message":       delivery.ErrorMessage,
		"sent_at":             delivery.SentAt,
		"updated_at":          s.now(),
	}

	var q string
	var args []interface{}
	if existing == nil {
		params["broadcast_id"] = delivery.BroadcastID
		params["user_id"] = delivery.UserID
		params["created_at"] = s.now()
		q, args, err = s.stmpBuilder().
			Insert(deliveriesTable).
			SetMap(params).
			ToSql()
	} else {
		q, args, err = s.stmpBuilder().
			Update(deliveriesTable).
			SetMap(params).
			Where(sq.Eq{"id": existing.ID}).
			ToSql()
	}
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.getDelivery(ctx, delivery.BroadcastID, delivery.UserID)
}

func (s *storageImpl) getDelivery(ctx context.Context, broadcastID, userID int64) (*broadcasts.Delivery, error) {
	q, args, err := s.stmpBuilder().
		Select(deliveryRowFields).
		From(deliveriesTable).
		Where(sq.Eq{"broadcast_id": broadcastID, "user_id": userID}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var d deliveryRow
	err = row.Scan(&d.ID, &d.BroadcastID, &d.UserID, &d.TelegramMessageID, &d.Status,
		&d.ErrorMessage, &d.SentAt, &d.CreatedAt, &d.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return d.ToModel(), nil
}

func (s *storageImpl) ListDeliveries(ctx context.Context, broadcastID int64) ([]*broadcasts.Delivery, error) {
	query := s.stmpBuilder().
		Select(deliveryRowFields).
		From(deliveriesTable).
		Where(sq.Eq{"broadcast_id": broadcastID}).
		OrderBy("id ASC")

	return s.selectDeliveries(ctx, query)
}

func (s *storageImpl) ListFailedDeliveries(ctx context.Context, limit int) ([]*broadcasts.Delivery, error) {
	query := s.stmpBuilder().
		Select(deliveryRowFields).
		From(deliveriesTable).
		Where(sq.Eq{"status": broadcasts.DeliveryFailed}).
		OrderBy("updated_at ASC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	return s.selectDeliveries(ctx, query)
}

func (s *storageImpl) selectDeliveries(ctx context.Context, query sq.SelectBuilder) ([]*broadcasts.Delivery, error) {
	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*broadcasts.Delivery
	for rows.Next() {
		var d deliveryRow
		err = rows.Scan(&d.ID, &d.BroadcastID, &d.UserID, &d.TelegramMessageID, &d.Status,
			&d.ErrorMessage, &d.SentAt, &d.CreatedAt, &d.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, d.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}
