package repository

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/tanaste-io/tanaste/internal/db"
)

// TransactionLogRepository appends an audit trail entry for every entity
// mutation, pruned by config.MaintenanceConfig.MaxTransactionLogEntries
// (SPEC_FULL.md §7 item 5).
type TransactionLogRepository struct {
	conn *sql.DB
}

func NewTransactionLogRepository(conn *sql.DB) *TransactionLogRepository {
	return &TransactionLogRepository{conn: conn}
}

// Append records one mutation.
func (r *TransactionLogRepository) Append(entityKind, entityID, action, detail string) error {
	_, err := r.conn.Exec(
		`INSERT INTO transaction_log (entity_kind, entity_id, action, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		entityKind, entityID, action, detail, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("transaction log append: %w", err)
	}
	return nil
}

// Prune drops everything beyond the most recent maxRows entries.
func (r *TransactionLogRepository) Prune(maxRows int) error {
	return db.PruneTransactionLog(r.conn, maxRows)
}
