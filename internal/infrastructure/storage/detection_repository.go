package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

const defaultDetectionLimit = 100

// detectionRow строка detecciones вместе с кодом тачо
type detectionRow struct {
	ID          int64     `db:"id"`
	BinCode     string    `db:"codigo"`
	Category    string    `db:"clasificacion"`
	Confidence  float64   `db:"confianza_ia"`
	Latitude    float64   `db:"ubicacion_lat"`
	Longitude   float64   `db:"ubicacion_lon"`
	Backend     string    `db:"backend"`
	Description string    `db:"descripcion"`
	Processed   bool      `db:"procesado"`
	Active      bool      `db:"activo"`
	CreatedAt   time.Time `db:"created_at"`
}

func (r detectionRow) toEntity() entity.Detection {
	return entity.Detection{
		ID:          r.ID,
		BinCode:     r.BinCode,
		Category:    entity.Category(r.Category),
		Confidence:  r.Confidence,
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Backend:     entity.BackendKind(r.Backend),
		Description: r.Description,
		Processed:   r.Processed,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
	}
}

const selectDetections = `
	SELECT d.id, t.codigo, d.clasificacion, d.confianza_ia,
	       d.ubicacion_lat, d.ubicacion_lon, d.backend, d.descripcion,
	       d.procesado, d.activo, d.created_at
	FROM detecciones d
	JOIN tachos t ON t.id = d.tacho_id`

// SQLDetectionRepository хранит детекции в SQL базе (sqlite или postgres)
type SQLDetectionRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLDetectionRepository(db *sqlx.DB) *SQLDetectionRepository {
	return &SQLDetectionRepository{db: db, now: time.Now}
}

// Record сохраняет детекцию. Координаты берутся из тачо на момент записи.
func (r *SQLDetectionRepository) Record(ctx context.Context, d *entity.Detection) error {
	query := r.db.Rebind(`
		INSERT INTO detecciones (
			tacho_id, clasificacion, confianza_ia,
			ubicacion_lat, ubicacion_lon,
			backend, descripcion, procesado, activo, created_at
		)
		SELECT t.id, ?, ?, t.ubicacion_lat, t.ubicacion_lon, ?, ?, ?, ?, ?
		FROM tachos t
		WHERE t.codigo = ? AND t.activo = ?
		RETURNING id, ubicacion_lat, ubicacion_lon, created_at`)

	createdAt := r.now().UTC()
	var out struct {
		ID        int64     `db:"id"`
		Latitude  float64   `db:"ubicacion_lat"`
		Longitude float64   `db:"ubicacion_lon"`
		CreatedAt time.Time `db:"created_at"`
	}
	err := r.db.QueryRowxContext(ctx, query,
		string(d.Category), d.Confidence,
		string(d.Backend), d.Description, d.Processed, d.Active, createdAt,
		d.BinCode, true,
	).StructScan(&out)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: tacho %q", entity.ErrNotFound, d.BinCode)
	}
	if err != nil {
		return fmt.Errorf("failed to insert detection: %w", err)
	}

	d.ID = out.ID
	d.Latitude = out.Latitude
	d.Longitude = out.Longitude
	d.CreatedAt = out.CreatedAt
	return nil
}

// List возвращает активные детекции, новые первыми
func (r *SQLDetectionRepository) List(ctx context.Context, filter entity.DetectionFilter) ([]entity.Detection, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultDetectionLimit
	}

	query := selectDetections + ` WHERE d.activo = ?`
	args := []any{true}
	if filter.BinCode != "" {
		query += ` AND t.codigo = ?`
		args = append(args, filter.BinCode)
	}
	query += ` ORDER BY d.created_at DESC, d.id DESC LIMIT ?`
	args = append(args, limit)

	var rows []detectionRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("failed to query detections: %w", err)
	}

	out := make([]entity.Detection, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

// Get возвращает активную детекцию по ID
func (r *SQLDetectionRepository) Get(ctx context.Context, id int64) (*entity.Detection, error) {
	query := r.db.Rebind(selectDetections + ` WHERE d.id = ? AND d.activo = ?`)

	var row detectionRow
	err := r.db.GetContext(ctx, &row, query, id, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: deteccion %d", entity.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query detection: %w", err)
	}

	d := row.toEntity()
	return &d, nil
}

// Deactivate логически удаляет детекцию
func (r *SQLDetectionRepository) Deactivate(ctx context.Context, id int64) error {
	query := r.db.Rebind(`UPDATE detecciones SET activo = ? WHERE id = ? AND activo = ?`)

	res, err := r.db.ExecContext(ctx, query, false, id, true)
	if err != nil {
		return fmt.Errorf("failed to deactivate detection: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to deactivate detection: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: deteccion %d", entity.ErrNotFound, id)
	}
	return nil
}

var _ port.DetectionRepository = (*SQLDetectionRepository)(nil)
