// Package xlsx renders feedback exports as Excel workbooks for the admin
// review flow.
package xlsx

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/ethioguide/procedure-gateway/internal/core/domain"
)

const sheetName = "Feedback"

var columns = []string{
	"ID",
	"Content",
	"Type",
	"Status",
	"Likes",
	"Dislikes",
	"Tags",
	"Admin Response",
	"Created At",
	"User ID",
}

type Exporter struct{}

func NewExporter() *Exporter {
	return &Exporter{}
}

func (e *Exporter) BuildFeedbackWorkbook(procedureID string, items []domain.FeedbackItem) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", sheetName); err != nil {
		return nil, fmt.Errorf("rename sheet: %w", err)
	}

	header := make([]any, len(columns))
	for i, col := range columns {
		header[i] = col
	}
	if err := f.SetSheetRow(sheetName, "A1", &header); err != nil {
		return nil, fmt.Errorf("write header row: %w", err)
	}

	for i, item := range items {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, fmt.Errorf("row coordinates: %w", err)
		}
		row := []any{
			item.ID,
			item.Content,
			string(item.Type),
			item.Status,
			item.LikeCount,
			item.DislikeCount,
			strings.Join(item.Tags, ", "),
			item.AdminResponse,
			item.CreatedAt,
			item.UserID,
		}
		if err := f.SetSheetRow(sheetName, cell, &row); err != nil {
			return nil, fmt.Errorf("write row %d: %w", i+2, err)
		}
	}

	if err := f.SetColWidth(sheetName, "B", "B", 60); err != nil {
		return nil, fmt.Errorf("set content width: %w", err)
	}
	if err := f.SetDocProps(&excelize.DocProperties{
		Title:   "Feedback export " + procedureID,
		Creator: "procedure-gateway",
	}); err != nil {
		return nil, fmt.Errorf("set doc props: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("serialize workbook: %w", err)
	}
	return buf.Bytes(), nil
}
