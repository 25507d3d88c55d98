// Package persistence implements the inbox repositories on PostgreSQL.
package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/inbox/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresContactRepository implements domain.ContactRepository using
// PostgreSQL.
type PostgresContactRepository struct {
	conn database.Connection
}

// NewPostgresContactRepository creates a new PostgreSQL contact
// repository.
func NewPostgresContactRepository(conn database.Connection) *PostgresContactRepository {
	return &PostgresContactRepository{conn: conn}
}

// Save upserts a contact.
func (r *PostgresContactRepository) Save(ctx context.Context, contact *domain.Contact) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO contacts (id, workspace_id, name, email, phone, preferred_channel, created_at, updated_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			preferred_channel = EXCLUDED.preferred_channel,
			updated_at = EXCLUDED.updated_at
	`
	_, err := exec.Exec(ctx, query,
		contact.ID(),
		contact.WorkspaceID(),
		contact.Name(),
		contact.Email(),
		contact.Phone(),
		string(contact.PreferredChannel()),
		contact.CreatedAt(),
		contact.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save contact: %w", err)
	}
	return nil
}

// FindByID finds a contact by its ID within a workspace.
func (r *PostgresContactRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Contact, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, name, COALESCE(email, ''), COALESCE(phone, ''),
		       preferred_channel, created_at, updated_at
		FROM contacts
		WHERE workspace_id = $1 AND id = $2
	`
	return r.scanContact(exec.QueryRow(ctx, query, workspaceID, id))
}

// FindByIdentity matches on email first, then phone.
func (r *PostgresContactRepository) FindByIdentity(ctx context.Context, workspaceID uuid.UUID, email, phone string) (*domain.Contact, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	if email != "" {
		query := `
			SELECT id, workspace_id, name, COALESCE(email, ''), COALESCE(phone, ''),
			       preferred_channel, created_at, updated_at
			FROM contacts
			WHERE workspace_id = $1 AND email = $2
		`
		contact, err := r.scanContact(exec.QueryRow(ctx, query, workspaceID, email))
		if err == nil || err != domain.ErrNotFound {
			return contact, err
		}
	}

	if phone != "" {
		query := `
			SELECT id, workspace_id, name, COALESCE(email, ''), COALESCE(phone, ''),
			       preferred_channel, created_at, updated_at
			FROM contacts
			WHERE workspace_id = $1 AND phone = $2
		`
		return r.scanContact(exec.QueryRow(ctx, query, workspaceID, phone))
	}

	return nil, domain.ErrNotFound
}

func (r *PostgresContactRepository) scanContact(row database.Row) (*domain.Contact, error) {
	var (
		id, wsID             uuid.UUID
		name, email, phone   string
		preferred            string
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &wsID, &name, &email, &phone, &preferred, &createdAt, &updatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load contact: %w", err)
	}
	return domain.RehydrateContact(id, wsID, name, email, phone, domain.Channel(preferred), createdAt, updatedAt), nil
}
