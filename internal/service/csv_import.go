package service

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"clarisync/internal/models"
)

// ReadCallIDs returns the non-empty values of the call_id column of a CSV
// file with a header row
func ReadCallIDs(r io.Reader) ([]string, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err != nil {
		return nil, fmt.Errorf("failed to read header: %w", err)
	}

	col := -1
	for i, name := range header {
		if strings.TrimPrefix(strings.TrimSpace(name), "\ufeff") == "call_id" {
			col = i
			break
		}
	}
	if col < 0 {
		return nil, fmt.Errorf("missing column %q", "call_id")
	}

	var ids []string
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to read row: %w", err)
		}
		if col < len(record) {
			if id := strings.TrimSpace(record[col]); id != "" {
				ids = append(ids, id)
			}
		}
	}
	return ids, nil
}

// ImportCallsFromCSV imports every call id listed in the file at path
func (s *ReconciliationService) ImportCallsFromCSV(ctx context.Context, path string) (models.ImportResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	ids, err := ReadCallIDs(f)
	if err != nil {
		return models.ImportResult{}, fmt.Errorf("failed to read %s: %w", path, err)
	}

	s.logger.Info().Str("path", path).Int("count", len(ids)).Msg("importing calls from csv")
	return s.Import(ctx, ids), nil
}
