package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/automation/domain"
	sharedDomain "github.com/bookline/bookline/internal/shared/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresEventStore implements the append-only event log on
// PostgreSQL. The sequence comes from a BIGSERIAL, so (created_at, seq)
// is a total order even when two events share a timestamp.
type PostgresEventStore struct {
	conn database.Connection
}

// NewPostgresEventStore creates a new PostgreSQL event store.
func NewPostgresEventStore(conn database.Connection) *PostgresEventStore {
	return &PostgresEventStore{conn: conn}
}

// Append persists an event and returns the stored record with its
// assigned sequence.
func (s *PostgresEventStore) Append(ctx context.Context, event sharedDomain.DomainEvent) (*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	record := domain.RecordFromDomainEvent(event)
	payload, err := marshalJSON(record.Payload)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO events (
			id, workspace_id, event_type, entity_type, entity_id,
			actor_type, actor_id, correlation_id, payload, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), NULLIF($8, ''), $9, $10)
		RETURNING seq
	`
	err = exec.QueryRow(ctx, query,
		record.ID,
		record.WorkspaceID,
		record.EventType,
		record.EntityType,
		record.EntityID,
		string(record.Actor.Type),
		record.Actor.ID,
		record.CorrelationID,
		payload,
		record.CreatedAt,
	).Scan(&record.Seq)
	if err != nil {
		return nil, fmt.Errorf("failed to append event: %w", err)
	}
	return record, nil
}

// FindByID loads one record.
func (s *PostgresEventStore) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	query := eventColumns + ` WHERE workspace_id = $1 AND id = $2`
	record, err := scanPostgresEvent(exec.QueryRow(ctx, query, workspaceID, id))
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load event: %w", err)
	}
	return record, nil
}

// ReadSince returns an ordered page of records after the cursor.
func (s *PostgresEventStore) ReadSince(
	ctx context.Context,
	workspaceID uuid.UUID,
	eventType string,
	since domain.Cursor,
	limit int,
) ([]*domain.EventRecord, error) {
	exec := database.ExecutorFromContext(ctx, s.conn)

	query := eventColumns + ` WHERE 1=1`
	var args []any

	if workspaceID != uuid.Nil {
		args = append(args, workspaceID)
		query += fmt.Sprintf(" AND workspace_id = $%d", len(args))
	}
	if eventType != "" {
		args = append(args, eventType)
		query += fmt.Sprintf(" AND event_type = $%d", len(args))
	}
	if !since.IsZero() {
		args = append(args, since.CreatedAt, since.Seq)
		query += fmt.Sprintf(" AND (created_at, seq) > ($%d, $%d)", len(args)-1, len(args))
	}
	query += " ORDER BY created_at, seq"
	if limit > 0 {
		args = append(args, limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := exec.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	var records []*domain.EventRecord
	for rows.Next() {
		record, err := scanPostgresEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

const eventColumns = `
	SELECT id, seq, workspace_id, event_type, entity_type, entity_id,
	       COALESCE(actor_type, ''), COALESCE(actor_id, ''),
	       COALESCE(correlation_id, ''), payload, created_at
	FROM events`

func scanPostgresEvent(row database.Row) (*domain.EventRecord, error) {
	var (
		record    domain.EventRecord
		actorType string
		payload   []byte
		createdAt time.Time
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
	record.CreatedAt = createdAt.UTC()
	record.Payload, err = unmarshalMap(payload)
	if err != nil {
		return nil, err
	}
	return &record, nil
}
