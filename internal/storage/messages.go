package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"tgadmin/internal/stories/conversations"
)

const userMessagesTable = "user_messages"

var messageRowFields = fields(messageRow{})

type messageRow struct {
	ID                int64     `db:"id"`
	UserID            int64     `db:"user_id"`
	Direction         string    `db:"direction"`
	Body              string    `db:"body"`
	TelegramMessageID string    `db:"telegram_message_id"`
	Seen              bool      `db:"seen"`
	CreatedAt         time.Time `db:"created_at"`
	UpdatedAt         time.Time `db:"updated_at"`
}

func (m messageRow) ToModel() *conversations.Message {
	return &conversations.Message{
		ID:                m.ID,
		UserID:            m.UserID,
		Direction:         m.Direction,
		Body:              m.Body,
		TelegramMessageID: m.TelegramMessageID,
		Seen:              m.Seen,
		CreatedAt:         m.CreatedAt,
		UpdatedAt:         m.UpdatedAt,
	}
}

func (s *storageImpl) CreateMessage(ctx context.Context, message conversations.Message) (*conversations.Message, error) {
	params := map[string]interface{}{
		"user_id":             message.UserID,
		"direction":           message.Direction,
		"body":                message.Body,
		"telegram_message_id": message.TelegramMessageID,
		"seen":                message.Seen,
		"created_at":          s.now(),
		"updated_at":          s.now(),
	}

	q, args, err := s.stmpBuilder().
		Insert(userMessagesTable).
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

	return s.getMessage(ctx, id)
}

func (s *storageImpl) getMessage(ctx context.Context, id int64) (*conversations.Message, error) {
	q, args, err := s.stmpBuilder().
		Select(messageRowFields).
		From(userMessagesTable).
		Where(sq.Eq{"id": id}).
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var m messageRow
	err = row.Scan(&m.ID, &m.UserID, &m.Direction, &m.Body, &m.TelegramMessageID, &m.Seen, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return m.ToModel(), nil
}

func (s *storageImpl) ListMessages(ctx context.Context, userID int64) ([]*conversations.Message, error) {
	q, args, err := s.stmpBuilder().
		Select(messageRowFields).
		From(userMessagesTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at ASC", "id ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("db.QueryContext: %w", err)
	}
	defer rows.Close()

	var result []*conversations.Message
	for rows.Next() {
		var m messageRow
		err = rows.Scan(&m.ID, &m.UserID, &m.Direction, &m.Body, &m.TelegramMessageID, &m.Seen, &m.CreatedAt, &m.UpdatedAt)
		if err != nil {
			return nil, fmt.Errorf("rows.Scan: %w", err)
		}
		result = append(result, m.ToModel())
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("rows.Err: %w", err)
	}

	return result, nil
}

func (s *storageImpl) LastMessage(ctx context.Context, userID int64) (*conversations.Message, error) {
	q, args, err := s.stmpBuilder().
		Select(messageRowFields).
		From(userMessagesTable).
		Where(sq.Eq{"user_id": userID}).
		OrderBy("created_at DESC", "id DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build sql query: %w", err)
	}

	row := s.db.QueryRowContext(ctx, q, args...)

	var m messageRow
	err = row.Scan(&m.ID, &m.UserID, &m.Direction, &m.Body, &m.TelegramMessageID, &m.Seen, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("row.Scan: %w", err)
	}

	return m.ToModel(), nil
}

// CountUnread считает входящие без отметки о прочтении.
func (s *storageImpl) CountUnread(ctx context.Context, userID int64) (int, error) {
	q, args, err := s.stmpBuilder().
		Select("COUNT(*)").
		From(userMessagesTable).
		Where(sq.Eq{"user_id": userID, "direction": conversations.DirectionInbound, "seen": false}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build sql query: %w", err)
	}

	var count int
	if err = s.db.QueryRowContext(ctx, q, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("row.Scan: %w", err)
	}

	return count, nil
}

func (s *storageImpl) MarkInboundSeen(ctx context.Context, userID int64) error {
	q, args, err := s.stmpBuilder().
		Update(userMessagesTable).
		Set("seen", true).
		Set("updated_at", s.now()).
		Where(sq.Eq{"user_id": userID, "direction": conversations.DirectionInbound, "seen": false}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build sql query: %w", err)
	}

	if _, err = s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("db.ExecContext: %w", err)
	}

	return nil
}

// UpdateMessageBody правит текст исходящего сообщения по telegram id.
// Возвращает false, когда такого сообщения в ленте ещё нет.
func (s *storageImpl) UpdateMessageBody(ctx context.Context, userID int64, telegramMessageID, body string) (bool, error) {
	q, args, err := s.stmpBuilder().
		Update(userMessagesTable).
		Set("body", body).
		Set("updated_at", s.now()).
		Where(sq.Eq{
			"user_id":             userID,
			"direction":           conversations.DirectionOutbound,
			"telegram_message_id": telegramMessageID,
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build sql query: %w", err)
	}

	result, err := s.db.ExecContext(ctx, q, args...)
	if err != nil {
		return false, fmt.Errorf("db.ExecContext: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("result.RowsAffected: %w", err)
	}

	return affected > 0, nil
}
