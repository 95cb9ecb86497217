package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"strconv"
	"time"

	"homeweather.app/internal/ports"
	"homeweather.app/pkg/errors"
)

// CSVHeader is the fixed column order of CSV exports
var CSVHeader = []string{"Location", "Timestamp", "Temperature", "Condition", "Humidity", "Wind Speed", "Pressure", "PM2.5", "PM10"}

// EncodeRecords serializes records in the requested export format
func EncodeRecords(records []ports.PersistedRecord, format ports.ExportFormat) ([]byte, error) {
	switch format {
	case ports.ExportJSON:
		if records == nil {
			records = []ports.PersistedRecord{}
		}
		data, err := json.MarshalIndent(records, "", "  ")
		if err != nil {
			return nil, errors.NewStorageError("failed to encode JSON export", err)
		}
		return data, nil
	case ports.ExportCSV:
		rows := make([]ports.ExportRow, 0, len(records))
		for _, record := range records {
			rows = append(rows, ports.NewExportRow(record))
		}
		return EncodeCSV(rows)
	default:
		return nil, errors.NewValidationError("export format must be json or csv")
	}
}

// EncodeCSV writes export rows with the CSV header. Missing air quality
// values are written as empty cells.
func EncodeCSV(rows []ports.ExportRow) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(CSVHeader); err != nil {
		return nil, errors.NewStorageError("failed to encode CSV export", err)
	}
	for _, row := range rows {
		if err := w.Write([]string{
			row.Location,
			row.Timestamp.UTC().Format(time.RFC3339),
			formatFloat(row.Temperature),
			row.Condition,
			formatFloat(row.Humidity),
			formatFloat(row.WindSpeed),
			formatFloat(row.Pressure),
			formatOptional(row.PM25),
			formatOptional(row.PM10),
		}); err != nil {
			return nil, errors.NewStorageError("failed to encode CSV export", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, errors.NewStorageError("failed to encode CSV export", err)
	}
	return buf.Bytes(), nil
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatOptional(v *float64) string {
	if v == nil {
		return ""
	}
	return formatFloat(*v)
}
