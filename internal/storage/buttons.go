package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/tariffs"
)

const tariffButtonsTable = "tariff_buttons"

var buttonRowFields = fields(buttonRow{})

type buttonRow struct {
	ID        int64     `db:"id"`
	TariffID  int64     `db:"tariff_id"`
	Label     string    `db:"label"`
	Action    string    `db:"action"`
	Payload   string    `db:"payload"`
	SortOrder int       `db:"sort_order"`
	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

func (b buttonRow) ToModel() tariffs.Button {
	return tariffs.Button{
		ID:        b.ID,
		TariffID:  b.TariffID,
		Label:     b.Label,
		Action:    b.Action,
		Payload:   b.Payload,
		SortOrder: b.SortOrder,
		CreatedAt: b.CreatedAt,
		UpdatedAt: b.UpdatedAt,
	}
}

func (s *storageImpl) CreateButton(ctx context.Context, button tariffs.Button) (*tariffs.Button, error) {
	params := map[string]interface{}{
		"tariff_id":  button.TariffID,
		"label":      button.Label,
		"action":     button.Action,
		"payload":    button.Payload,
		"sort_order": button.SortOrder,
		"created_at": s.now(),
		"updated_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(tariffButtonsTable).
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

	return s.GetButton(ctx, id)
}

func (s *storageImpl) GetButton(ctx context.Context, id int64) (*tariffs.Button, error) {
	q, args, err := s.stmpBuilder().
		Select(buttonRowFields).
		From(tariffButtonsTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var b buttonRow
	err = row.Scan(&b.ID, &b.TariffID, &b.Label, &b.Action, &b.Payload, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	model := b.ToModel()
	return &model, nil
}

func (s *storageImpl) UpdateButton(ctx context.Context, button tariffs.Button) (*tariffs.Button, error) {
	params := map[string]interface{}{
		"label":      button.Label,
		"action":     button.Action,
		"payload":    button.Payload,
		"sort_order": button.SortOrder,
		"updated_at": s.now(),
	}

	q, args, err := s.stmpBuilder().
		Update(tariffButtonsTable).
		SetMap(params).
		Where(sq.Eq{"id": button.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetButton(ctx, button.ID)
}

func (s *storageImpl) DeleteButton(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Delete(tariffButtonsTable).
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

func (s *storageImpl) listButtons(ctx context.Context, tariffID int64) ([]tariffs.Button, error) {
	q, args, err := s.stmpBuilder().
		Select(buttonRowFields).
		From(tariffButtonsTable).
		Where(sq.Eq{"tariff_id": tariffID}).
		OrderBy("sort_order ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []tariffs.Button
	for rows.Next() {
		var b buttonRow
		err = rows.Scan(&b.ID, &b.TariffID, &b.Label, &b.Action, &b.Payload, &b.SortOrder, &b.CreatedAt, &b.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, b.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}
