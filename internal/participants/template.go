package participants

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"clarisync/internal/models"
)

var templateRows = [][]string{
	{"example-call-id-1", "person-123", "john.doe@company.com", models.RoleDecisionMaker, "Example Corp"},
	{"example-call-id-1", "person-456", "jane.smith@company.com", models.RoleTechnicalContact, "Example Corp"},
}

// WriteTemplate writes an example mapping file with the full header
func WriteTemplate(w io.Writer) error {
	writer := csv.NewWriter(w)
	if err := writer.Write([]string{ColumnCallID, ColumnPersonID, ColumnNameOrEmail, ColumnRole, ColumnCompany}); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if err := writer.WriteAll(templateRows); err != nil {
		return fmt.Errorf("failed to write rows: %w", err)
	}
	return nil
}

// WriteTemplateFile creates or truncates path and writes the template to it
func WriteTemplateFile(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create template: %w", err)
	}
	if err := WriteTemplate(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
