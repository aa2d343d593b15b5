package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/tariffs"
)

const tariffsTable = "tariffs"

var tariffRowFields = fields(tariffRow{})

type tariffRow struct {
	ID           int64     `db:"id"`
	Title        string    `db:"title"`
	Description  string    `db:"description"`
	PriceMinor   int64     `db:"price_minor"`
	Currency     string    `db:"currency"`
	DurationDays int       `db:"duration_days"`
	SortOrder    int       `db:"sort_order"`
	IsActive     bool      `db:"is_active"`
	CreatedAt    time.Time `db:"created_at"`
	UpdatedAt    time.Time `db:"updated_at"`
}

func (t tariffRow) ToModel() *tariffs.Tariff {
	return &tariffs.Tariff{
		ID:           t.ID,
		Title:        t.Title,
		Description:  t.Description,
		PriceMinor:   t.PriceMinor,
		Currency:     t.Currency,
		DurationDays: t.DurationDays,
		SortOrder:    t.SortOrder,
		Active:       t.IsActive,
		CreatedAt:    t.CreatedAt,
		UpdatedAt:    t.UpdatedAt,
	}
}

func (s *storageImpl) tariffParams(tariff tariffs.Tariff) map[string]interface{} {
	return map[string]interface{}{
		"title":         tariff.Title,
		"description":   tariff.Description,
		"price_minor":   tariff.PriceMinor,
		"currency":      tariff.Currency,
		"duration_days": tariff.DurationDays,
		"sort_order":    tariff.SortOrder,
		"is_active":     tariff.Active,
		"updated_at":    s.now(),
	}
}

func (s *storageImpl) CreateTariff(ctx context.Context, tariff tariffs.Tariff) (*tariffs.Tariff, error) {
	params := s.tariffParams(tariff)
	params["created_at"] = s.now()

	q, args, err := s.stmpBuilder().
		Insert(tariffsTable).
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

	return s.GetTariff(ctx, id)
}

func (s *storageImpl) GetTariff(ctx context.Context, id int64) (*tariffs.Tariff, error) {
	q, args, err := s.stmpBuilder().
		Select(tariffRowFields).
		From(tariffsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var t tariffRow
	err = row.Scan(&t.ID, &t.Title, &t.Description, &t.PriceMinor, &t.Currency,
		&t.DurationDays, &t.SortOrder, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	tariff := t.ToModel()
	buttons, err := s.listButtons(ctx, tariff.ID)
	if err != nil {
		return nil, err
	}
	tariff.Buttons = buttons

	return tariff, nil
}

func (s *storageImpl) UpdateTariff(ctx context.Context, tariff tariffs.Tariff) (*tariffs.Tariff, error) {
	q, args, err := s.stmpBuilder().
		Update(tariffsTable).
		SetMap(s.tariffParams(tariff)).
		Where(sq.Eq{"id": tariff.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetTariff(ctx, tariff.ID)
}

func (s *storageImpl) ListTariffs(ctx context.Context, criteria tariffs.ListCriteria) ([]*tariffs.Tariff, error) {
	query := s.stmpBuilder().
		Select(tariffRowFields).
		From(tariffsTable)

	if criteria.Active != nil {
		query = query.Where(sq.Eq{"is_active": *criteria.Active})
	}
	if criteria.Limit > 0 {
		query = query.Limit(uint64(criteria.Limit))
	}

	query = query.OrderBy("sort_order ASC", "id ASC")

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*tariffs.Tariff
	for rows.Next() {
		var t tariffRow
		err = rows.Scan(&t.ID, &t.Title, &t.Description, &t.PriceMinor, &t.Currency,
			&t.DurationDays, &t.SortOrder, &t.IsActive, &t.CreatedAt, &t.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, t.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	for _, tariff := range result {
		buttons, err := s.listButtons(ctx, tariff.ID)
		if err != nil {
			return nil, err
		}
		tariff.Buttons = buttons
	}

	return result, nil
}

func (s *storageImpl) DeleteTariff(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Delete(tariffsTable).
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
