package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"

	"ecotachos/internal/domain/entity"
	"ecotachos/internal/domain/port"
)

const sheetName = "Detecciones"

var headers = []string{
	"ID",
	"Tacho",
	"Clasificación",
	"Confianza (%)",
	"Latitud",
	"Longitud",
	"Backend",
	"Descripción",
	"Fecha",
}

// XLSXExporter выгружает детекции в книгу Excel.
type XLSXExporter struct {
	logger *slog.Logger
}

func NewXLSXExporter(logger *slog.Logger) *XLSXExporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &XLSXExporter{logger: logger}
}

// Export возвращает XLSX с одной строкой на детекцию, порядок сохраняется.
func (e *XLSXExporter) Export(ctx context.Context, detections []entity.Detection) ([]byte, error) {
	start := time.Now()

	f := excelize.NewFile()
	defer f.Close()

	// Переименовываем лист по умолчанию, чтобы в книге не было пустого Sheet1
	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheetName, cell, h)
	}

	for i, d := range detections {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := i + 2
		write := func(col int, v any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheetName, cell, v)
		}

		write(1, d.ID)
		write(2, d.BinCode)
		write(3, entity.InfoFor(d.Category).Label)
		write(4, d.Confidence)
		write(5, d.Latitude)
		write(6, d.Longitude)
		write(7, string(d.Backend))
		write(8, d.Description)
		write(9, d.CreatedAt.UTC().Format(time.RFC3339))
	}

	_ = f.SetColWidth(sheetName, "A", "A", 8)
	_ = f.SetColWidth(sheetName, "B", "C", 18)
	_ = f.SetColWidth(sheetName, "D", "F", 14)
	_ = f.SetColWidth(sheetName, "G", "G", 20)
	_ = f.SetColWidth(sheetName, "H", "H", 40)
	_ = f.SetColWidth(sheetName, "I", "I", 22)

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx write: %w", err)
	}

	e.logger.Info("export.xlsx.ok",
		"rows", len(detections),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return buf.Bytes(), nil
}

var _ port.DetectionExporter = (*XLSXExporter)(nil)
