package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/conversations"
)

const userProfilesTable = "user_profiles"

var profileRowFields = fields(profileRow{})

type profileRow struct {
	ID                    int64      `db:"id"`
	TelegramID            int64      `db:"telegram_id"`
	Username              string     `db:"username"`
	FirstName             string     `db:"first_name"`
	LastName              string     `db:"last_name"`
	Language              string     `db:"language"`
	EverPaid              bool       `db:"ever_paid"`
	ActiveSubscription    bool       `db:"active_subscription"`
	SubscriptionExpiresAt *time.Time `db:"subscription_expires_at"`
	LastTariffID          *int64     `db:"last_tariff_id"`
	LastInteractionAt     time.Time  `db:"last_interaction_at"`
	CreatedAt             time.Time  `db:"created_at"`
	UpdatedAt             time.Time  `db:"updated_at"`
}

func (p profileRow) ToModel() *conversations.Profile {
	return &conversations.Profile{
		ID:                    p.ID,
		TelegramID:            p.TelegramID,
		Username:              p.Username,
		FirstName:             p.FirstName,
		LastName:              p.LastName,
		Language:              p.Language,
		EverPaid:              p.EverPaid,
		ActiveSubscription:    p.ActiveSubscription,
		SubscriptionExpiresAt: p.SubscriptionExpiresAt,
		LastTariffID:          p.LastTariffID,
		LastInteractionAt:     p.LastInteractionAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}

func (s *storageImpl) profileParams(profile conversations.Profile) map[string]interface{} {
	return map[string]interface{}{
		"username":                profile.Username,
		"first_name":              profile.FirstName,
		"last_name":               profile.LastName,
		"language":                profile.Language,
		"ever_paid":               profile.EverPaid,
		"active_subscription":     profile.ActiveSubscription,
		"subscription_expires_at": profile.SubscriptionExpiresAt,
		"last_tariff_id":          profile.LastTariffID,
		"last_interaction_at":     profile.LastInteractionAt,
		"updated_at":              s.now(),
	}
}

func (s *storageImpl) CreateProfile(ctx context.Context, profile conversations.Profile) (*conversations.Profile, error) {
	params := s.profileParams(profile)
	params["telegram_id"] = profile.TelegramID
	params["created_at"] = s.now()
	if profile.LastInteractionAt.IsZero() {
		params["last_interaction_at"] = s.now()
	}

	q, args, err := s.stmpBuilder().
		Insert(userProfilesTable).
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

	return s.GetProfile(ctx, id)
}

func (s *storageImpl) GetProfile(ctx context.Context, id int64) (*conversations.Profile, error) {
	return s.getProfile(ctx, sq.Eq{"id": id})
}

func (s *storageImpl) GetProfileByTelegramID(ctx context.Context, telegramID int64) (*conversations.Profile, error) {
	return s.getProfile(ctx, sq.Eq{"telegram_id": telegramID})
}

func (s *storageImpl) getProfile(ctx context.Context, where sq.Eq) (*conversations.Profile, error) {
	q, args, err := s.stmpBuilder().
		Select(profileRowFields).
		From(userProfilesTable).
		Where(where).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var p profileRow
	err = row.Scan(&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.Language,
		&p.EverPaid, &p.ActiveSubscription, &p.SubscriptionExpiresAt, &p.LastTariffID,
		&p.LastInteractionAt, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return p.ToModel(), nil
}

func (s *storageImpl) UpdateProfile(ctx context.Context, profile conversations.Profile) (*conversations.Profile, error) {
	q, args, err := s.stmpBuilder().
		Update(userProfilesTable).
		SetMap(s.profileParams(profile)).
		Where(sq.Eq{"id": profile.ID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return nil, fmt.Errorf("db.ExecContext: %w", err)
	}

	return s.GetProfile(ctx, profile.ID)
}

// ListProfiles отдаёт свежие переписки первыми: инбокс сортируется
// по последнему обновлению профиля.
func (s *storageImpl) ListProfiles(ctx context.Context, limit int) ([]*conversations.Profile, error) {
	query := s.stmpBuilder().
		Select(profileRowFields).
		From(userProfilesTable).
		OrderBy("updated_at DESC", "id DESC")

	if limit > 0 {
		query = query.Limit(uint64(limit))
	}

	q, args, err := query.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*conversations.Profile
	for rows.Next() {
		var p profileRow
		err = rows.Scan(&p.ID, &p.TelegramID, &p.Username, &p.FirstName, &p.LastName, &p.Language,
			&p.EverPaid, &p.ActiveSubscription, &p.SubscriptionExpiresAt, &p.LastTariffID,
			&p.LastInteractionAt, &p.CreatedAt, &p.UpdatedAt)
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

func (s *storageImpl) TouchProfile(ctx context.Context, id int64) error {
	q, args, err := s.stmpBuilder().
		Update(userProfilesTable).
		Set("last_interaction_at", s.now()).
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
