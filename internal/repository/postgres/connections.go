package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/merchanthub/omsapi/internal/domain"
	"github.com/merchanthub/omsapi/pkg/errors"
)

type connectionRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewConnectionRepository creates a new platform connection repository
func NewConnectionRepository(db *sql.DB, logger *zap.Logger) *connectionRepository {
	return &connectionRepository{
		db:     db,
		logger: logger,
	}
}

const connectionColumns = `id, owner_id, platform_type, name, credentials, status, last_synced_at, last_error, created_at, updated_at`

func (r *connectionRepository) Create(ctx context.Context, conn *domain.PlatformConnection) error {
	query := `
		INSERT INTO platform_connections (` + connectionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	now := time.Now()
	if conn.ID == uuid.Nil {
		conn.ID = uuid.New()
	}
	if conn.CreatedAt.IsZero() {
		conn.CreatedAt = now
	}
	if conn.UpdatedAt.IsZero() {
		conn.UpdatedAt = now
	}

	credentials, err := json.Marshal(conn.Credentials)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		conn.ID,
		conn.OwnerID,
		conn.PlatformType,
		conn.Name,
		credentials,
		conn.Status,
		conn.LastSyncedAt,
		conn.LastError,
		conn.CreatedAt,
		conn.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to create connection", zap.Error(err))
		return err
	}

	return nil
}

func (r *connectionRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.PlatformConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM platform_connections
		WHERE id = $1
	`

	conn, err := scanConnection(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}
	if err != nil {
		r.logger.Error("Failed to get connection by ID", zap.Error(err))
		return nil, err
	}

	return conn, nil
}

func (r *connectionRepository) ListByOwner(ctx context.Context, ownerID uuid.UUID) ([]*domain.PlatformConnection, error) {
	query := `
		SELECT ` + connectionColumns + `
		FROM platform_connections
		WHERE owner_id = $1
		ORDER BY created_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, ownerID)
	if err != nil {
		r.logger.Error("Failed to list connections", zap.Error(err))
		return nil, err
	}
	defer rows.Close()

	var conns []*domain.PlatformConnection
	for rows.Next() {
		conn, err := scanConnection(rows)
		if err != nil {
			r.logger.Error("Failed to scan connection row", zap.Error(err))
			continue
		}
		conns = append(conns, conn)
	}

	return conns, rows.Err()
}

func (r *connectionRepository) Update(ctx context.Context, conn *domain.PlatformConnection) error {
	query := `
		UPDATE platform_connections
		SET name = $2, credentials = $3, status = $4, last_error = $5, updated_at = $6
		WHERE id = $1
	`

	conn.UpdatedAt = time.Now()

	credentials, err := json.Marshal(conn.Credentials)
	if err != nil {
		return err
	}

	_, err = r.db.ExecContext(ctx, query,
		conn.ID,
		conn.Name,
		credentials,
		conn.Status,
		conn.LastError,
		conn.UpdatedAt,
	)

	if err != nil {
		r.logger.Error("Failed to update connection", zap.Error(err))
		return err
	}

	return nil
}

func (r *connectionRepository) UpdateSyncState(ctx context.Context, id uuid.UUID, status domain.ConnectionStatus, lastError *string, lastSyncedAt *time.Time) error {
	query := `
		UPDATE platform_connections
		SET status = $2, last_error = $3, last_synced_at = COALESCE($4, last_synced_at), updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, id, status, lastError, lastSyncedAt, time.Now())
	if err != nil {
		r.logger.Error("Failed to update connection sync state", zap.Error(err))
		return err
	}

	return nil
}

func (r *connectionRepository) Delete(ctx context.Context, id uuid.UUID) error {
	// Orders already imported through this connection stay as historical
	// records; only the live connection goes away.
	query := `DELETE FROM platform_connections WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		r.logger.Error("Failed to delete connection", zap.Error(err))
		return err
	}

	affected, err := result.RowsAffected()
	if err == nil && affected == 0 {
		return &errors.ErrNotFound{Resource: "connection", ID: id.String()}
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanConnection(row rowScanner) (*domain.PlatformConnection, error) {
	var (
		conn         domain.PlatformConnection
		credentials  []byte
		lastSyncedAt sql.NullTime
		lastError    sql.NullString
	)

	err := row.Scan(
		&conn.ID,
		&conn.OwnerID,
		&conn.PlatformType,
		&conn.Name,
		&credentials,
		&conn.Status,
		&lastSyncedAt,
		&lastError,
		&conn.CreatedAt,
		&conn.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(credentials) > 0 {
		if err := json.Unmarshal(credentials, &conn.Credentials); err != nil {
			return nil, err
		}
	}
	if lastSyncedAt.Valid {
		conn.LastSyncedAt = &lastSyncedAt.Time
	}
	if lastError.Valid {
		conn.LastError = &lastError.String
	}

	return &conn, nil
}
