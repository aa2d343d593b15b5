package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/broadcasts"
)

const broadcastsTable = "broadcasts"

var broadcastRowFields = fields(broadcastRow{})

type broadcastRow struct {
	ID        int64      `db:"id"`
	Title     string     `db:"title"`
	Body      string     `db:"body"`
	Editable  bool       `db:"editable"`
	Status    string     `db:"status"`
	Audience  string     `db:"audience"`
	SentAt    *time.Time `db:"sent_at"`
	CreatedAt time.Time  `db:"created_at"`
	UpdatedAt time.Time  `db:"updated_at"`
}

func (b broadcastRow) ToModel() *broadcasts.Broadcast {
	return &broadcasts.Broadcast{
		ID:        b.ID,
		Title:     b.Title,
		Body:      b.Body,
		Editable:  b.Editable,
		Status:    b.Status,
		Audience:  b.Audience,
		SentAt:    b.SentAt,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (s *storageImpl) CreateBroadcast(ctx context.Context, broadcast broadcasts.Broadcast) (*broadcasts.Broadcast, error) {
	params := map[string]interface{}{
		"title":      broadcast.Title,
		"body":       broadcast.Body,
		"editable":   broadcast.Editable,
		"status":     broadcast.Status,
		"audience":   broadcast.Audience,
		"created_at": s.now(),
		"updated_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(broadcastsTable).
		SetMap(params).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("result.LastInsertId: %w", err)
	}

	return s.GetBroadcast(ctx, id)
}

func (s *storageImpl) GetBroadcast(ctx context.Context, id int64) (*broadcasts.Broadcast, error) {
	q, args, err := s.stmpBuilder().
		Select(broadcastRowFields).
		From(broadcastsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var b broadcastRow
	err = row.Scan(&b.ID, &b.Title, &b.Body, &b.Editable, &b.Status, &b.Audience, &b.SentAt, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	broadcast := b.ToModel()
	deliveries, err := s.ListDeliveries(ctx, broadcast.ID)
	if err != nil {
		return nil, err
	}
	for _, d := range deliveries {
		broadcast.Deliveries = append(broadcast.Deliveries, *d)
	}

	return broadcast, nil
}

// UpdateBroadcast правит содержимое, но не статус: переход в sent
// делается только через MarkBroadcastSent.
func (s *storageImpl) UpdateBroadcast(ctx context.Context, broadcast broadcasts.Broadcast) (*broadcasts.Broadcast, error) {
	params := map[string]interface{}{
		"title":      broadcast.Title,
		"body":       broadcast.Body,
		"editable":   broadcast.Editable,
		"audience":   broadcast.Audience,
		"updated_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Update(broadcastsTable).
		SetMap(params).
		Where(sq.Eq{"id": broadcast.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetBroadcast(ctx, broadcast.ID)
}

func (s *storageImpl) MarkBroadcastSent(ctx context.Context, id int64, sentAt time.Time) error {
	q, args, err := s.stmpBuilder().
		Update(broadcastsTable).
		Set("status", broadcasts.StatusSent).
		Set("sent_at", sentAt).
		Set("updated_at", s.now()).
		Where(sq.Eq{"id": id, "status": broadcasts.StatusDraft}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("result.RowsAffected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("broadcast %d is not a draft", id)
	}

	return nil
}

func (s *storageImpl) ListBroadcasts(ctx context.Context) ([]*broadcasts.Broadcast, error) {
	q, args, err := s.stmpBuilder().
		Select(broadcastRowFields).
		From(broadcastsTable).
		OrderBy("created_at DESC", "id DESC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*broadcasts.Broadcast
	for rows.Next() {
		var b broadcastRow
		err = rows.Scan(&b.ID, &b.Title, &b.Body, &b.Editable, &b.Status, &b.Audience, &b.SentAt, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, b.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	for _, broadcast := range result {
		deliveries, err := s.ListDeliveries(ctx, broadcast.ID)
		if err != nil {
			return nil, err
		}
		for _, d := range deliveries {
			broadcast.Deliveries = append(broadcast.Deliveries, *d)
		}
	}

	return result, nil
}

func (s *storageImpl) DeleteBroadcast(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Delete(broadcastsTable).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}
