// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package message

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taibuivan/messagely/internal/platform/database/schema"
	"github.com/taibuivan/messagely/internal/platform/dberr"
	"github.com/taibuivan/messagely/internal/platform/validate"
)

// PostgresRepository implements [Repository] using pgx.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository creates a new PostgreSQL implementation of the Repository.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

/*
Create inserts a message and fills in its store-assigned ID.

Returns:
  - error: VALIDATION_ERROR if either participant does not exist
*/
func (repository *PostgresRepository) Create(ctx context.Context, message *Message) error {
	query := fmt.Sprintf(`
		INSERT INTO %s (%s, %s, %s, %s)
		VALUES ($1, $2, $3, $4)
		RETURNING %s`,
		schema.Message.Table,
		schema.Message.FromUsername, schema.Message.ToUsername, schema.Message.Body, schema.Message.SentAt,
		schema.Message.ID)

	err := repository.pool.QueryRow(ctx, query,
		message.FromUsername,
		message.ToUsername,
		message.Body,
		message.SentAt,
	).Scan(&message.ID)

	if err != nil {
		if dberr.IsForeignKeyViolation(err) {
			field := FieldToUsername
			if strings.Contains(dberr.ConstraintName(err), FieldFromUsername) {
				field = FieldFromUsername
			}
			return validate.InvalidError(field, "User does not exist")
		}
		return fmt.Errorf("postgres_message_repo_create_failed: %w", dberr.Wrap(err, "Message"))
	}

	return nil
}

// FindByID retrieves a bare message by ID.
func (repository *PostgresRepository) FindByID(ctx context.Context, id int64) (*Message, error) {
	query := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = $1`,
		strings.Join(schema.Message.Columns(), ", "), schema.Message.Table, schema.Message.ID)

	message, err := scanMessage(repository.pool.QueryRow(ctx, query, id))
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_find_by_id_failed: %w", dberr.Wrap(err, "Message"))
	}

	return message, nil
}

/*
FindDetail retrieves a message joined with both participants' public profiles.

Returns:
  - *Detail: Hydrated message
  - error: apperr.NotFound or database errors
*/
func (repository *PostgresRepository) FindDetail(ctx context.Context, id int64) (*Detail, error) {
	detail := &Detail{}
	err := repository.pool.QueryRow(ctx, detailQuery(), id).Scan(
		&detail.ID, &detail.Body, &detail.SentAt, &detail.ReadAt,
		&detail.FromUser.Username, &detail.FromUser.FirstName, &detail.FromUser.LastName, &detail.FromUser.Phone,
		&detail.ToUser.Username, &detail.ToUser.FirstName, &detail.ToUser.LastName, &detail.ToUser.Phone,
	)

	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_find_detail_failed: %w", dberr.Wrap(err, "Message"))
	}

	detail.SentAt = detail.SentAt.UTC()
	detail.ReadAt = utcPtr(detail.ReadAt)

	return detail, nil
}

// ListBySender returns messages sent by username with the recipient's profile.
func (repository *PostgresRepository) ListBySender(ctx context.Context, username string) ([]ToView, error) {
	query := listQuery(schema.Message.ToUsername, schema.Message.FromUsername)

	rows, err := repository.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_list_by_sender_failed: %w", dberr.Wrap(err, "Message"))
	}
	defer rows.Close()

	views := make([]ToView, 0)
	for rows.Next() {
		var view ToView
		if err := rows.Scan(
			&view.ID, &view.Body, &view.SentAt, &view.ReadAt,
			&view.ToUser.Username, &view.ToUser.FirstName, &view.ToUser.LastName, &view.ToUser.Phone,
		); err != nil {
			return nil, fmt.Errorf("postgres_message_repo_list_by_sender_scan_failed: %w", dberr.Wrap(err, "Message"))
		}
		view.SentAt = view.SentAt.UTC()
		view.ReadAt = utcPtr(view.ReadAt)
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_repo_list_by_sender_failed: %w", dberr.Wrap(err, "Message"))
	}

	return views, nil
}

// ListByRecipient returns messages received by username with the sender's profile.
func (repository *PostgresRepository) ListByRecipient(ctx context.Context, username string) ([]FromView, error) {
	query := listQuery(schema.Message.FromUsername, schema.Message.ToUsername)

	rows, err := repository.pool.Query(ctx, query, username)
	if err != nil {
		return nil, fmt.Errorf("postgres_message_repo_list_by_recipient_failed: %w", dberr.Wrap(err, "Message"))
	}
	defer rows.Close()

	views := make([]FromView, 0)
	for rows.Next() {
		var view FromView
		if err := rows.Scan(
			&view.ID, &view.Body, &view.SentAt, &view.ReadAt,
			&view.FromUser.Username, &view.FromUser.FirstName, &view.FromUser.LastName, &view.FromUser.Phone,
		); err != nil {
			return nil, fmt.Errorf("postgres_message_repo_list_by_recipient_scan_failed: %w", dberr.Wrap(err, "Message"))
		}
		view.SentAt = view.SentAt.UTC()
		view.ReadAt = utcPtr(view.ReadAt)
		views = append(views, view)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres_message_repo_list_by_recipient_failed: %w", dberr.Wrap(err, "Message"))
	}

	return views, nil
}

/*
MarkRead performs the read transition in a single statement.

Description: COALESCE keeps an existing read_at, so a second call returns the
first timestamp unchanged. The row lock taken by the sub-select makes a
concurrent caller observe the committed read_at, so exactly one caller
reports the transition.

Returns:
  - *Message: The message after the update
  - bool: Whether this call moved the message from Unread to Read
  - error: apperr.NotFound if the id does not exist
*/
func (repository *PostgresRepository) MarkRead(ctx context.Context, id int64, at time.Time) (*Message, bool, error) {
	message := &Message{}
	var transitioned bool
	err := repository.pool.QueryRow(ctx, markReadQuery(), id, at).Scan(
		&message.ID,
		&message.FromUsername,
		&message.ToUsername,
		&message.Body,
		&message.SentAt,
		&message.ReadAt,
		&transitioned,
	)

	if err != nil {
		return nil, false, fmt.Errorf("postgres_message_repo_mark_read_failed: %w", dberr.Wrap(err, "Message"))
	}

	message.SentAt = message.SentAt.UTC()
	message.ReadAt = utcPtr(message.ReadAt)

	return message, transitioned, nil
}

// # Query Builders

// qualified prefixes each column with a table alias.
func qualified(alias string, columns ...string) string {
	parts := make([]string, len(columns))
	for i, column := range columns {
		parts[i] = alias + "." + column
	}
	return strings.Join(parts, ", ")
}

// detailQuery selects one message with both participants' public profiles.
func detailQuery() string {
	m, u := schema.Message, schema.User
	return fmt.Sprintf(`
		SELECT %s,
		       %s,
		       %s
		FROM %s m
		JOIN %s f ON f.%s = m.%s
		JOIN %s t ON t.%s = m.%s
		WHERE m.%s = $1`,
		qualified("m", m.ID, m.Body, m.SentAt, m.ReadAt),
		qualified("f", u.PublicColumns()...),
		qualified("t", u.PublicColumns()...),
		m.Table,
		u.Table, u.Username, m.FromUsername,
		u.Table, u.Username, m.ToUsername,
		m.ID)
}

/*
listQuery selects the messages whose filterColumn equals $1, joined with the
profile of the user named by joinColumn, newest first.
*/
func listQuery(joinColumn, filterColumn string) string {
	m, u := schema.Message, schema.User
	return fmt.Sprintf(`
		SELECT %s,
		       %s
		FROM %s m
		JOIN %s u ON u.%s = m.%s
		WHERE m.%s = $1
		ORDER BY m.%s DESC, m.%s DESC`,
		qualified("m", m.ID, m.Body, m.SentAt, m.ReadAt),
		qualified("u", u.PublicColumns()...),
		m.Table,
		u.Table, u.Username, joinColumn,
		filterColumn,
		m.SentAt, m.ID)
}

// markReadQuery sets read_at once and reports whether this statement set it.
func markReadQuery() string {
	m := schema.Message
	return fmt.Sprintf(`
		UPDATE %s m
		SET %s = COALESCE(m.%s, $2)
		FROM (SELECT %s, %s FROM %s WHERE %s = $1 FOR UPDATE) previous
		WHERE m.%s = previous.%s
		RETURNING %s,
		          previous.%s IS NULL`,
		m.Table,
		m.ReadAt, m.ReadAt,
		m.ID, m.ReadAt, m.Table, m.ID,
		m.ID, m.ID,
		qualified("m", m.Columns()...),
		m.ReadAt)
}

// scanMessage hydrates a Message from a row selected with schema.Message.Columns.
func scanMessage(row pgx.Row) (*Message, error) {
	message := &Message{}
	if err := row.Scan(
		&message.ID,
		&message.FromUsername,
		&message.ToUsername,
		&message.Body,
		&message.SentAt,
		&message.ReadAt,
	); err != nil {
		return nil, err
	}

	message.SentAt = message.SentAt.UTC()
	message.ReadAt = utcPtr(message.ReadAt)

	return message, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	utc := t.UTC()
	return &utc
}

var _ Repository = (*PostgresRepository)(nil)
