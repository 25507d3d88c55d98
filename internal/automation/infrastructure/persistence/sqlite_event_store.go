package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// SQLiteEventStore implements the append-only event log for local
// mode. SQLite has no sequences, so Append computes the next seq
// itself; the single-writer connection makes that race-free.
type SQLiteEventStore struct {
	conn database.Connection
}

// NewSQLiteEventStore creates a new SQLite event store.
func NewSQLiteEventStore(conn database.Connection) *SQLiteEventStore {
	return &SQLiteEventStore{conn: conn}
}

// Append persists an event and returns the stored record with its
// assigned sequence.
func (s *SQLiteEventStore) Append(ctx context.Context, event sharedDomain.DomainEvent) (*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	record := domain.RecordFromDomainEvent(event)
	payload, err := marshalJSON(record.Payload)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO events (
			id, seq, workspace_id, event_type, entity_type, entity_id,
			actor_type, actor_id, correlation_id, payload, created_at
		) VALUES (
			?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM events),
			?, ?, ?, ?, ?, NULLIF(?, ''), NULLIF(?, ''), ?, ?
		)
		RETURNING seq
	`
	err = exec.QueryRow(ctx, query,
		record.ID.String(),
		record.WorkspaceID.String(),
		record.EventType,
		record.EntityType,
		record.EntityID,
		string(record.Actor.Type),
		record.Actor.ID,
		record.CorrelationID,
		string(payload),
		formatSQLiteTime(record.CreatedAt),
	).Scan(&record.Seq)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return record, nil
}

// FindByID loads one record.
func (s *SQLiteEventStore) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	query := sqliteEventColumns + ` WHERE workspace_id = ? AND id = ?`
	record, err := scanSQLiteEvent(exec.QueryRow(ctx, query, workspaceID.String(), id.String()))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return record, nil
}

// ReadSince returns an ordered page of records after the cursor. The
// fixed-width timestamp encoding keeps string comparison in log order.
func (s *SQLiteEventStore) ReadSince(
	ctx context.Context,
	workspaceID uuid.UUID,
	eventType string,
	since domain.Cursor,
	limit int,
) ([]*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	var clauses []string
	var args []any

	if workspaceID != uuid.Nil {
		clauses = append(clauses, "workspace_id = ?")
		args = append(args, workspaceID.String())
	}
	if eventType != "" {
		clauses = append(clauses, "event_type = ?")
		args = append(args, eventType)
	}
	if !since.IsZero() {
		clauses = append(clauses, "(created_at > ? OR (created_at = ? AND seq > ?))")
		cursorTime := formatSQLiteTime(since.CreatedAt)
		args = append(args, cursorTime, cursorTime, since.Seq)
	}

	query := sqliteEventColumns
	if len(clauses) > 0 {
		query += " WHERE " + strings.Join(clauses, " AND ")
	}
	query += " ORDER BY created_at, seq"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	var records []*domain.EventRecord
	for rows.Next() {
		record, err := scanSQLiteEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const sqliteEventColumns = `
	SELECT id, seq, workspace_id, event_type, entity_type, entity_id,
	       actor_type, COALESCE(actor_id, ''), COALESCE(correlation_id, ''),
	       payload, created_at
	FROM events`

func scanSQLiteEvent(row database.Row) (*domain.EventRecord, error) {
	var (
		record    domain.EventRecord
		actorType string
		payload   string
		createdAt string
	)
	err := row.Scan(
		&record.ID, &record.Seq, &record.WorkspaceID, &record.EventType,
		&record.EntityType, &record.EntityID,
		&actorType, &record.Actor.ID, &record.CorrelationID,
		&payload, &createdAt,
	)
	if err != nil {
		return nil, err
	}
	record.Actor.Type = sharedDomain.ActorType(actorType)
	record.CreatedAt, err = parseSQLiteTime(createdAt)
	if err != nil {
		return nil, err
	}
	record.Payload, err = unmarshalMap([]byte(payload))
	if err != nil {
		return nil, err
	}
	return &record, nil
}
