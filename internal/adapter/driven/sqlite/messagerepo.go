package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/ericfisherdev/repotalk/internal/domain/model"
	"github.com/ericfisherdev/repotalk/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MessageStore = (*MessageRepo)(nil)

// MessageRepo is the SQLite implementation of the MessageStore port interface.
type MessageRepo struct {
	db *DB
}

// NewMessageRepo creates a new MessageRepo backed by the given DB.
func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

// AppendBatch inserts one sync cycle's items for a repository and advances
// its watermark to syncedAt in the same transaction. Items already stored
// for the same (repository_id, url) are skipped via INSERT OR IGNORE against
// the partial unique index. Returns the number of rows actually inserted.
func (r *MessageRepo) AppendBatch(ctx context.Context, repositoryID int64, items []model.SourceItem, syncedAt time.Time) (int, error) {
	tx, err := r.db.Writer.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin append batch: %w", err)
	}
	// Rollback is a no-op once the transaction is committed.
	defer func() { _ = tx.Rollback() }()

	const insert = `INSERT OR IGNORE INTO messages
		(repository_id, content, timestamp, author, url, message_type, parent_title, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

	stmt, err := tx.PrepareContext(ctx, insert)
	if err != nil {
		return 0, fmt.Errorf("prepare append batch: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339)

	var inserted int
	for _, item := range items {
		result, err := stmt.ExecContext(ctx,
			repositoryID,
			item.Content,
			item.Timestamp.UTC().Format(time.RFC3339),
			item.Author,
			item.URL,
			string(item.Type),
			item.ParentTitle,
			createdAt,
		)
		if err != nil {
			return 0, fmt.Errorf("insert message %s: %w", item.URL, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("check rows affected: %w", err)
		}
		inserted += int(rows)
	}

	// Advancing the watermark inside the batch transaction means a crash
	// can never separate the two: either the batch and the new watermark
	// both land, or the same window is re-fetched next cycle.
	if _, err := tx.ExecContext(ctx,
		`UPDATE repositories SET last_synced = ? WHERE id = ?`,
		syncedAt.UTC().Format(time.RFC3339), repositoryID,
	); err != nil {
		return 0, fmt.Errorf("advance watermark for repository %d: %w", repositoryID, err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit append batch: %w", err)
	}

	return inserted, nil
}

// AppendLocal inserts one locally authored message into the seeded local
// repository and returns its id.
func (r *MessageRepo) AppendLocal(ctx context.Context, content, author string, timestamp time.Time) (int64, error) {
	var repoID int64
	err := r.db.Writer.QueryRowContext(ctx,
		`SELECT id FROM repositories WHERE url = ?`, model.LocalRepositoryURL,
	).Scan(&repoID)
	if err != nil {
		return 0, fmt.Errorf("find local repository: %w", err)
	}

	const insert = `INSERT INTO messages
		(repository_id, content, timestamp, author, url, message_type, parent_title, created_at)
		VALUES (?, ?, ?, ?, '', ?, '', ?)`

	now := time.Now().UTC().Format(time.RFC3339)
	result, err := r.db.Writer.ExecContext(ctx, insert,
		repoID,
		content,
		timestamp.UTC().Format(time.RFC3339),
		author,
		string(model.MessageTypeLocal),
		now,
	)
	if err != nil {
		return 0, fmt.Errorf("append local message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get local message id: %w", err)
	}

	return id, nil
}

// queryer is satisfied by both *sql.DB and *sql.Tx.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// List returns messages matching the filter, ordered by source timestamp
// with id as a stable tie-break.
func (r *MessageRepo) List(ctx context.Context, filter model.MessageFilter) ([]model.Message, error) {
	return listMessages(ctx, r.db.Reader, filter)
}

// Count returns the number of messages matching the filter, ignoring
// pagination.
func (r *MessageRepo) Count(ctx context.Context, filter model.MessageFilter) (int, error) {
	return countMessages(ctx, r.db.Reader, filter)
}

// Page returns one page of messages together with the total match count. Both
// reads run in a single transaction, so the pair can never straddle a batch
// committing in between.
func (r *MessageRepo) Page(ctx context.Context, filter model.MessageFilter) ([]model.Message, int, error) {
	tx, err := r.db.Reader.BeginTx(ctx, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("begin page read: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	total, err := countMessages(ctx, tx, filter)
	if err != nil {
		return nil, 0, err
	}

	messages, err := listMessages(ctx, tx, filter)
	if err != nil {
		return nil, 0, err
	}

	if err := tx.Commit(); err != nil {
		return nil, 0, fmt.Errorf("commit page read: %w", err)
	}

	return messages, total, nil
}

func listMessages(ctx context.Context, q queryer, filter model.MessageFilter) ([]model.Message, error) {
	where, args := buildFilterClause(filter)

	order := "DESC"
	if filter.Sort == model.SortAsc {
		order = "ASC"
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1 // SQLite: no limit.
	}

	query := fmt.Sprintf(`SELECT id, repository_id, content, timestamp, author, url, message_type, parent_title, created_at
		FROM messages%s
		ORDER BY timestamp %s, id ASC
		LIMIT ? OFFSET ?`, where, order)
	args = append(args, limit, filter.Offset)

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var messages []model.Message
	for rows.Next() {
		var msg model.Message
		var timestamp, createdAt, msgType string

		err := rows.Scan(&msg.ID, &msg.RepositoryID, &msg.Content, &timestamp, &msg.Author, &msg.URL, &msgType, &msg.ParentTitle, &createdAt)
		if err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}

		msg.Timestamp, err = parseTime(timestamp)
		if err != nil {
			return nil, fmt.Errorf("parse timestamp: %w", err)
		}
		msg.CreatedAt, err = parseTime(createdAt)
		if err != nil {
			return nil, fmt.Errorf("parse created_at: %w", err)
		}
		msg.Type = model.MessageType(msgType)

		messages = append(messages, msg)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate messages: %w", err)
	}

	return messages, nil
}

func countMessages(ctx context.Context, q queryer, filter model.MessageFilter) (int, error) {
	where, args := buildFilterClause(filter)

	var count int
	query := "SELECT COUNT(*) FROM messages" + where
	if err := q.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count messages: %w", err)
	}

	return count, nil
}

// buildFilterClause renders the optional repository/type inclusion lists as
// a WHERE clause with positional placeholders.
func buildFilterClause(filter model.MessageFilter) (string, []any) {
	var conditions []string
	var args []any

	if len(filter.RepositoryIDs) > 0 {
		conditions = append(conditions, "repository_id IN ("+placeholders(len(filter.RepositoryIDs))+")")
		for _, id := range filter.RepositoryIDs {
			args = append(args, id)
		}
	}

	if len(filter.Types) > 0 {
		conditions = append(conditions, "message_type IN ("+placeholders(len(filter.Types))+")")
		for _, t := range filter.Types {
			args = append(args, string(t))
		}
	}

	if len(conditions) == 0 {
		return "", nil
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
