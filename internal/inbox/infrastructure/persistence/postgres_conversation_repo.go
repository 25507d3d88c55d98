package persistence

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/bookline/bookline/internal/inbox/domain"
	"github.com/bookline/bookline/internal/shared/infrastructure/database"
)

// PostgresConversationRepository implements domain.ConversationRepository
// using PostgreSQL.
type PostgresConversationRepository struct {
	conn database.Connection
}

// NewPostgresConversationRepository creates a new PostgreSQL
// conversation repository.
func NewPostgresConversationRepository(conn database.Connection) *PostgresConversationRepository {
	return &PostgresConversationRepository{conn: conn}
}

// Save upserts a conversation.
func (r *PostgresConversationRepository) Save(ctx context.Context, conversation *domain.Conversation) error {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		INSERT INTO conversations (id, workspace_id, contact_id, channel, automation_paused, last_staff_reply_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (id) DO UPDATE SET
			automation_paused = EXCLUDED.automation_paused,
			last_staff_reply_at = EXCLUDED.last_staff_reply_at,
			updated_at = EXCLUDED.updated_at
	`
	_, err := exec.Exec(ctx, query,
		conversation.ID(),
		conversation.WorkspaceID(),
		conversation.ContactID(),
		string(conversation.Channel()),
		conversation.IsAutomationPaused(),
		conversation.LastStaffReplyAt(),
		conversation.CreatedAt(),
		conversation.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to save conversation: %w", err)
	}
	return nil
}

// FindByID finds a conversation by its ID within a workspace.
func (r *PostgresConversationRepository) FindByID(ctx context.Context, workspaceID, id uuid.UUID) (*domain.Conversation, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, contact_id, channel, automation_paused, last_staff_reply_at, created_at, updated_at
		FROM conversations
		WHERE workspace_id = $1 AND id = $2
	`
	return r.scanConversation(exec.QueryRow(ctx, query, workspaceID, id))
}

// FindOpenByContact returns the newest conversation of a contact on a
// channel.
func (r *PostgresConversationRepository) FindOpenByContact(ctx context.Context, workspaceID, contactID uuid.UUID, channel domain.Channel) (*domain.Conversation, error) {
	exec := database.ExecutorFromContext(ctx, r.conn)

	query := `
		SELECT id, workspace_id, contact_id, channel, automation_paused, last_staff_reply_at, created_at, updated_at
		FROM conversations
		WHERE workspace_id = $1 AND contact_id = $2 AND channel = $3
		ORDER BY created_at DESC
		LIMIT 1
	`
	return r.scanConversation(exec.QueryRow(ctx, query, workspaceID, contactID, string(channel)))
}

func (r *PostgresConversationRepository) scanConversation(row database.Row) (*domain.Conversation, error) {
	var (
		id, wsID, contactID  uuid.UUID
		channel              string
		automationPaused     bool
		lastStaffReplyAt     *time.Time
		createdAt, updatedAt time.Time
	)
	err := row.Scan(&id, &wsID, &contactID, &channel, &automationPaused, &lastStaffReplyAt, &createdAt, &updatedAt)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}
	return domain.RehydrateConversation(id, wsID, contactID, domain.Channel(channel), automationPaused, lastStaffReplyAt, createdAt, updatedAt), nil
}
