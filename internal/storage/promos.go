package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/promos"
)

const promosTable = "promo_codes"

var promoRowFields = fields(promoRow{})

type promoRow struct {
	ID              int64      `db:"id"`
	Code            string     `db:"code"`
	Description     string     `db:"description"`
	DiscountPercent int        `db:"discount_percent"`
	FreeDays        int        `db:"free_days"`
	MaxUses         int        `db:"max_uses"`
	UsedCount       int        `db:"used_count"`
	IsActive        bool       `db:"is_active"`
	ExpiresAt       *time.Time `db:"expires_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (p promoRow) ToModel() *promos.Promo {
	return &promos.Promo{
		ID:              p.ID,
		Code:            p.Code,
		Description:     p.Description,
		DiscountPercent: p.DiscountPercent,
		FreeDays:        p.FreeDays,
		MaxUses:         p.MaxUses,
		UsedCount:       p.UsedCount,
		Active:          p.IsActive,
		ExpiresAt:       p.ExpiresAt,
		CreatedAt:       p.CreatedAt,
		UpdatedAt:       p.UpdatedAt,
	}
}

func (s *storageImpl) promoParams(promo promos.Promo) map[string]interface{} {
	return map[string]interface{}{
		"code":             promo.Code,
		"description":      promo.Description,
		"discount_percent": promo.DiscountPercent,
		"free_days":        promo.FreeDays,
		"max_uses":         promo.MaxUses,
		"used_count":       promo.UsedCount,
		"is_active":        promo.Active,
		"expires_at":       promo.ExpiresAt,
		"updated_at":       s.now(),
	}
}

func (s *storageImpl) CreatePromo(ctx context.Context, promo promos.Promo) (*promos.Promo, error) {
	params := s.promoParams(promo)
	params["created_at"] = s.now()

	q, args, err := s.stmpBuilder().
		Insert(promosTable).
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

	return s.GetPromo(ctx, id)
}

func (s *storageImpl) GetPromo(ctx context.Context, id int64) (*promos.Promo, error) {
	return s.getPromo(ctx, sq.Eq{"id": id})
}

func (s *storageImpl) GetPromoByCode(ctx context.Context, code string) (*promos.Promo, error) {
	return s.getPromo(ctx, sq.Eq{"code": code})
}

func (s *storageImpl) getPromo(ctx context.Context, where sq.Eq) (*promos.Promo, error) {
	q, args, err := s.stmpBuilder().
		Select(promoRowFields).
		From(promosTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var p promoRow
	err = row.Scan(&p.ID, &p.Code, &p.Description, &p.DiscountPercent, &p.FreeDays,
		&p.MaxUses, &p.UsedCount, &p.IsActive, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return p.ToModel(), nil
}

func (s *storageImpl) UpdatePromo(ctx context.Context, promo promos.Promo) (*promos.Promo, error) {
	q, args, err := s.stmpBuilder().
		Update(promosTable).
		SetMap(s.promoParams(promo)).
		Where(sq.Eq{"id": promo.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetPromo(ctx, promo.ID)
}

func (s *storageImpl) ListPromos(ctx context.Context) ([]*promos.Promo, error) {
	q, args, err := s.stmpBuilder().
		Select(promoRowFields).
		From(promosTable).
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

	var result []*promos.Promo
	for rows.Next() {
		var p promoRow
		err = rows.Scan(&p.ID, &p.Code, &p.Description, &p.DiscountPercent, &p.FreeDays,
			&p.MaxUses, &p.UsedCount, &p.IsActive, &p.ExpiresAt, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, p.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}

func (s *storageImpl) DeletePromo(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Delete(promosTable).
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

func (s *storageImpl) IncrementPromoUse(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Update(promosTable).
		Set("used_count", sq.Expr("used_count + 1")).
		Set("updated_at", s.now()).
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

func (s *storageImpl) DeactivateExpiredPromos(ctx context.Context, now time.Time) (int64, error) {
	q, args, err := s.stmpBuilder().
		Update(promosTable).
		Set("is_active", false).
		Set("updated_at", s.now()).
		Where(sq.Eq{"is_active": true}).
		Where(sq.NotEq{"expires_at": nil}).
		Where(sq.Lt{"expires_at": now}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("result.RowsAffected: %w", err)
	}

	return affected, nil
}
