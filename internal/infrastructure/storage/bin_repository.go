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

type binRow struct {
	ID          int64     `db:"id"`
	Code        string    `db:"codigo"`
	Name        string    `db:"nombre"`
	Type        string    `db:"tipo"`
	Latitude    float64   `db:"ubicacion_lat"`
	Longitude   float64   `db:"ubicacion_lon"`
	Description string    `db:"descripcion"`
	Status      string    `db:"estado"`
	FillLevel   int       `db:"nivel_llenado"`
	Active      bool      `db:"activo"`
	CreatedAt   time.Time `db:"created_at"`
	UpdatedAt   time.Time `db:"updated_at"`
}

func (r binRow) toEntity() entity.Bin {
	return entity.Bin{
		ID:          r.ID,
		Code:        r.Code,
		Name:        r.Name,
		Type:        entity.BinType(r.Type),
		Latitude:    r.Latitude,
		Longitude:   r.Longitude,
		Description: r.Description,
		Status:      entity.BinStatus(r.Status),
		FillLevel:   r.FillLevel,
		Active:      r.Active,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

const selectBins = `
	SELECT id, codigo, nombre, tipo, ubicacion_lat, ubicacion_lon,
	       descripcion, estado, nivel_llenado, activo, created_at, updated_at
	FROM tachos`

// SQLBinRepository хранит тачо в SQL базе
type SQLBinRepository struct {
	db  *sqlx.DB
	now func() time.Time
}

func NewSQLBinRepository(db *sqlx.DB) *SQLBinRepository {
	return &SQLBinRepository{db: db, now: time.Now}
}

// Save создаёт тачо или обновляет существующий с тем же кодом
func (r *SQLBinRepository) Save(ctx context.Context, bin *entity.Bin) error {
	query := r.db.Rebind(`
		INSERT INTO tachos (
			codigo, nombre, tipo, ubicacion_lat, ubicacion_lon,
			descripcion, estado, nivel_llenado, activo, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (codigo) DO UPDATE SET
			nombre = excluded.nombre,
			tipo = excluded.tipo,
			ubicacion_lat = excluded.ubicacion_lat,
			ubicacion_lon = excluded.ubicacion_lon,
			descripcion = excluded.descripcion,
			estado = excluded.estado,
			nivel_llenado = excluded.nivel_llenado,
			activo = excluded.activo,
			updated_at = excluded.updated_at
		RETURNING id, created_at, updated_at`)

	now := r.now().UTC()
	var out struct {
		ID        int64     `db:"id"`
		CreatedAt time.Time `db:"created_at"`
		UpdatedAt time.Time `db:"updated_at"`
	}
	err := r.db.QueryRowxContext(ctx, query,
		bin.Code, bin.Name, string(bin.Type), bin.Latitude, bin.Longitude,
		bin.Description, string(bin.Status), bin.FillLevel, bin.Active, now, now,
	).StructScan(&out)
	if err != nil {
		return fmt.Errorf("failed to save tacho: %w", err)
	}

	bin.ID = out.ID
	bin.CreatedAt = out.CreatedAt
	bin.UpdatedAt = out.UpdatedAt
	return nil
}

// GetByCode возвращает активный тачо по коду
func (r *SQLBinRepository) GetByCode(ctx context.Context, code string) (*entity.Bin, error) {
	var row binRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(selectBins+` WHERE codigo = ? AND activo = ?`), code, true)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: tacho %q", entity.ErrNotFound, code)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query tacho: %w", err)
	}

	b := row.toEntity()
	return &b, nil
}

// List возвращает активные тачо, отсортированные по коду
func (r *SQLBinRepository) List(ctx context.Context) ([]entity.Bin, error) {
	var rows []binRow
	if err := r.db.SelectContext(ctx, &rows, r.db.Rebind(selectBins+` WHERE activo = ? ORDER BY codigo`), true); err != nil {
		return nil, fmt.Errorf("failed to query tachos: %w", err)
	}

	out := make([]entity.Bin, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toEntity())
	}
	return out, nil
}

var _ port.BinRepository = (*SQLBinRepository)(nil)
