package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

// SQLActuationStore ожидающие сигналы в таблице ordenes_pendientes.
// Переживает рестарт сервиса и годится для нескольких реплик.
type SQLActuationStore struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLActuationStore(db *sqlx.DB) *SQLActuationStore {
	return &SQLActuationStore{db: db, now: time.Now}
}

// Put перезаписывает ожидающий сигнал
func (s *SQLActuationStore) Put(ctx context.Context, binCode string, signal entity.ActuationSignal) error {
	query := s.db.Rebind(`
		INSERT INTO ordenes_pendientes (tacho_codigo, parpadeos, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT (tacho_codigo) DO UPDATE SET
			parpadeos = excluded.parpadeos,
			updated_at = excluded.updated_at`)

	if _, err := s.db.ExecContext(ctx, query, strings.TrimSpace(binCode), int(signal), s.now().UTC()); err != nil {
		return fmt.Errorf("failed to put actuation: %w", err)
	}
	return nil
}

// Take забирает сигнал одним DELETE ... RETURNING, поэтому два опроса не получат одну команду.
func (s *SQLActuationStore) Take(ctx context.Context, binCode string) (entity.ActuationSignal, error) {
	query := s.db.Rebind(`DELETE FROM ordenes_pendientes WHERE tacho_codigo = ? RETURNING parpadeos`)

	var blinks int
	err := s.db.QueryRowxContext(ctx, query, strings.TrimSpace(binCode)).Scan(&blinks)
	if errors.Is(err, sql.ErrNoRows) {
		return entity.SignalNone, nil
	}
	if err != nil {
		return entity.SignalNone, fmt.Errorf("failed to take actuation: %w", err)
	}
	return entity.ActuationSignal(blinks), nil
}

var _ port.ActuationStore = (*SQLActuationStore)(nil)
