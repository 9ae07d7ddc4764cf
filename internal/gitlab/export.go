package gitlab

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/alimgiray/perfguide/internal/models"
	"github.com/xuri/excelize/v2"
)

const issueSheet = "Issues"

var issueColumns = []string{"IID", "Title", "State", "Author", "Labels", "Created", "Updated", "URL"}

// WriteIssuesXLSX writes issues as a single-sheet workbook
func WriteIssuesXLSX(w io.Writer, issues []models.Issue) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), issueSheet); err != nil {
		return fmt.Errorf("failed to name sheet: %w", err)
	}

	header := make([]interface{}, len(issueColumns))
	for i, column := range issueColumns {
		header[i] = column
	}
	if err := f.SetSheetRow(issueSheet, "A1", &header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return fmt.Errorf("failed to create header style: %w", err)
	}
	if err := f.SetRowStyle(issueSheet, 1, 1, bold); err != nil {
		return fmt.Errorf("failed to style header: %w", err)
	}

	for i, issue := range issues {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := []interface{}{
			issue.IID,
			issue.Title,
			issue.State,
			issue.Author.Name,
			strings.Join(issue.Labels, ", "),
			formatTime(issue.CreatedAt),
			formatTime(issue.UpdatedAt),
			issue.WebURL,
		}
		if err := f.SetSheetRow(issueSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write issue %d: %w", issue.IID, err)
		}
	}

	if err := f.SetColWidth(issueSheet, "B", "B", 60); err != nil {
		return err
	}

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
