// Package audit records who changed what through the HTTP surface. Entries
// always go to the structured logger and, when a database is configured, to
// the audit_logs table.
package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"
)

// OperationType represents the type of operation performed
type OperationType string

const (
	OperationCreate OperationType = "CREATE"
	OperationUpdate OperationType = "UPDATE"
	OperationDelete OperationType = "DELETE"
	OperationRead   OperationType = "READ"
)

// ResourceType represents the type of resource being accessed
type ResourceType string

const (
	ResourceSession     ResourceType = "session"
	ResourcePatient     ResourceType = "patient"
	ResourceCondition   ResourceType = "condition"
	ResourceVitalLog    ResourceType = "vital_log"
	ResourceMessage     ResourceType = "doctor_message"
	ResourceAppointment ResourceType = "appointment"
	ResourceFeedback    ResourceType = "feedback"
	ResourceChat        ResourceType = "chat_transcript"
	ResourceReport      ResourceType = "report"
)

const createAuditTable = `
CREATE TABLE IF NOT EXISTS audit_logs (
	id              BIGSERIAL PRIMARY KEY,
	user_id         TEXT NOT NULL,
	operation_type  TEXT NOT NULL,
	resource_type   TEXT NOT NULL,
	resource_id     TEXT NOT NULL,
	timestamp       TIMESTAMPTZ NOT NULL,
	ip_address      TEXT,
	user_agent      TEXT,
	additional_data JSONB
);
CREATE INDEX IF NOT EXISTS audit_logs_user_id_idx ON audit_logs (user_id, timestamp DESC);
`

// AuditLog represents an audit log entry
type AuditLog struct {
	UserID         string
	OperationType  OperationType
	ResourceType   ResourceType
	ResourceID     string
	Timestamp      time.Time
	IPAddress      string
	UserAgent      string
	AdditionalData map[string]any
}

// Logger handles audit logging
type Logger struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewLogger creates a new audit logger. db may be nil, in which case entries
// only reach the structured log.
func NewLogger(db *pgxpool.Pool, logger *zap.Logger) *Logger {
	return &Logger{
		db:     db,
		logger: logger,
	}
}

// Open connects to databaseURL and prepares the audit_logs table. An empty
// URL yields a log-only Logger. The returned close function is never nil.
func Open(ctx context.Context, databaseURL string, logger *zap.Logger) (*Logger, func(), error) {
	if databaseURL == "" {
		return NewLogger(nil, logger), func() {}, nil
	}

	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to audit database: %w", err)
	}

	l := NewLogger(pool, logger)
	if err := l.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, err
	}
	return l, pool.Close, nil
}

// Migrate creates the audit_logs table if it does not exist
func (l *Logger) Migrate(ctx context.Context) error {
	if l.db == nil {
		return nil
	}
	if _, err := l.db.Exec(ctx, createAuditTable); err != nil {
		return fmt.Errorf("failed to create audit_logs table: %w", err)
	}
	return nil
}

// Persistent reports whether entries are written to a database
func (l *Logger) Persistent() bool {
	return l.db != nil
}

// Log creates an audit log entry
func (l *Logger) Log(ctx context.Context, entry AuditLog) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}

	l.logger.Info("Audit log entry",
		zap.String("user_id", entry.UserID),
		zap.String("operation", string(entry.OperationType)),
		zap.String("resource_type", string(entry.ResourceType)),
		zap.String("resource_id", entry.ResourceID),
		zap.Time("timestamp", entry.Timestamp),
		zap.String("ip_address", entry.IPAddress),
	)

	if l.db == nil {
		return nil
	}

	query := `
		INSERT INTO audit_logs (
			user_id, operation_type, resource_type, resource_id,
			timestamp, ip_address, user_agent, additional_data
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := l.db.Exec(ctx, query,
		entry.UserID,
		string(entry.OperationType),
		string(entry.ResourceType),
		entry.ResourceID,
		entry.Timestamp,
		entry.IPAddress,
		entry.UserAgent,
		entry.AdditionalData,
	)
	if err != nil {
		l.logger.Error("Failed to write audit log to database",
			zap.Error(err),
			zap.String("user_id", entry.UserID),
			zap.String("operation", string(entry.OperationType)),
			zap.String("resource_type", string(entry.ResourceType)),
		)
		return fmt.Errorf("failed to write audit log: %w", err)
	}

	return nil
}

// GetAuditLogs retrieves the newest audit logs for a user
func (l *Logger) GetAuditLogs(ctx context.Context, userID string, limit int) ([]AuditLog, error) {
	if l.db == nil {
		return []AuditLog{}, nil
	}

	query := `
		SELECT user_id, operation_type, resource_type, resource_id,
		       timestamp, ip_address, user_agent, additional_data
		FROM audit_logs
		WHERE user_id = $1
		ORDER BY timestamp DESC, id DESC
		LIMIT $2
	`

	rows, err := l.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit logs: %w", err)
	}
	defer rows.Close()

	logs := []AuditLog{}
	for rows.Next() {
		var (
			log                 AuditLog
			operation, resource string
			ip, agent           *string
		)
		err := rows.Scan(
			&log.UserID,
			&operation,
			&resource,
			&log.ResourceID,
			&log.Timestamp,
			&ip,
			&agent,
			&log.AdditionalData,
		)
		if err != nil {
			l.logger.Error("Failed to scan audit log", zap.Error(err))
			continue
		}
		log.OperationType = OperationType(operation)
		log.ResourceType = ResourceType(resource)
		if ip != nil {
			log.IPAddress = *ip
		}
		if agent != nil {
			log.UserAgent = *agent
		}
		logs = append(logs, log)
	}

	return logs, rows.Err()
}
