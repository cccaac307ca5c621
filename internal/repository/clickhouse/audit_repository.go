package clickhouse

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"admin-service/internal/client"
	"admin-service/internal/models"
	"admin-service/internal/util"
)

// AuditRepository is the append-only audit trail backed by ClickHouse.
// Entries are only ever inserted and queried; there is no update path.
type AuditRepository interface {
	Insert(ctx context.Context, entry *models.AuditLogEntry) error
	InsertBatch(ctx context.Context, entries []*models.AuditLogEntry) error
	Query(ctx context.Context, q models.AuditQuery) ([]*models.AuditLogEntry, error)
	CountSince(ctx context.Context, since time.Time) (uint64, error)
}

type auditRepository struct {
	client *client.ClickHouseClient
}

func NewAuditRepository(ch *client.ClickHouseClient) AuditRepository {
	return &auditRepository{client: ch}
}

const insertQuery = `
    INSERT INTO admin_audit_log
        (id, actor_email, action, resource_type, resource_id, outcome, detail, timestamp)
    VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

func (r *auditRepository) Insert(ctx context.Context, entry *models.AuditLogEntry) error {
	err := r.client.Exec(ctx, insertQuery,
		entry.ID, entry.ActorEmail, entry.Action, entry.ResourceType,
		entry.ResourceID, entry.Outcome, entry.Detail, entry.Timestamp)
	if err != nil {
		util.Error("Failed to insert audit entry",
			zap.String("actor_email", entry.ActorEmail),
			zap.String("action", entry.Action),
			zap.Error(err))
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}
	return nil
}

// InsertBatch writes many entries in one block. Used by the replay path
// when draining a backlog.
func (r *auditRepository) InsertBatch(ctx context.Context, entries []*models.AuditLogEntry) error {
	rows := make([][]interface{}, len(entries))
	for i, e := range entries {
		rows[i] = []interface{}{
			e.ID, e.ActorEmail, e.Action, e.ResourceType,
			e.ResourceID, e.Outcome, e.Detail, e.Timestamp,
		}
	}

	query := `INSERT INTO admin_audit_log
        (id, actor_email, action, resource_type, resource_id, outcome, detail, timestamp)`
	if err := r.client.BatchInsert(ctx, query, rows); err != nil {
		return fmt.Errorf("failed to batch insert audit entries: %w", err)
	}
	return nil
}

func (r *auditRepository) Query(ctx context.Context, q models.AuditQuery) ([]*models.AuditLogEntry, error) {
	query := `
        SELECT id, actor_email, action, resource_type, resource_id, outcome, detail, timestamp
        FROM admin_audit_log
        WHERE 1 = 1`
	var args []interface{}

	if q.ActorEmail != "" {
		query += " AND actor_email = ?"
		args = append(args, q.ActorEmail)
	}
	if q.Action != "" {
		query += " AND action = ?"
		args = append(args, q.Action)
	}
	if !q.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, q.Since)
	}
	if !q.Until.IsZero() {
		query += " AND timestamp < ?"
		args = append(args, q.Until)
	}

	limit := q.Limit
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	query += " ORDER BY timestamp DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.client.QueryRows(ctx, query, args...)
	if err != nil {
		util.Error("Failed to query audit log", zap.Error(err))
		return nil, fmt.Errorf("failed to query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*models.AuditLogEntry
	for rows.Next() {
		entry := &models.AuditLogEntry{}
		if err := rows.Scan(
			&entry.ID, &entry.ActorEmail, &entry.Action, &entry.ResourceType,
			&entry.ResourceID, &entry.Outcome, &entry.Detail, &entry.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan audit entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read audit entries: %w", err)
	}

	return entries, nil
}

func (r *auditRepository) CountSince(ctx context.Context, since time.Time) (uint64, error) {
	var count uint64
	row := r.client.QueryRow(ctx,
		`SELECT count() FROM admin_audit_log WHERE timestamp >= ?`, since)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count audit entries: %w", err)
	}
	return count, nil
}
