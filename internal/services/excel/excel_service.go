package excel

import (
	"bytes"
	"fmt"
	"time"

	"github.com/ledropshop/wa-drops-backend/internal/database/repository"

	"github.com/xuri/excelize/v2"
)

// Service builds xlsx send reports from the drop ledger
type Service struct {
	dropRepo    *repository.DropRepository
	historyRepo *repository.DropHistoryRepository
}

// NewExcelService creates a new Excel service instance
func NewExcelService(dropRepo *repository.DropRepository, historyRepo *repository.DropHistoryRepository) *Service {
	return &Service{
		dropRepo:    dropRepo,
		historyRepo: historyRepo,
	}
}

// ExportResult contains the generated workbook and a suggested filename
type ExportResult struct {
	Filename string
	Content  *bytes.Buffer
}

// ExportDropHistory renders the full ledger of a drop into a workbook, one
// row per (group, article) send
func (s *Service) ExportDropHistory(dropID string) (*ExportResult, error) {
	drop, err := s.dropRepo.GetByID(dropID)
	if err != nil {
		return nil, fmt.Errorf("failed to get drop: %w", err)
	}

	rows, _, err := s.historyRepo.GetByDrop(dropID, 0, 10000)
	if err != nil {
		return nil, fmt.Errorf("failed to load drop history: %w", err)
	}

	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	sentStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"C6EFCE"}, // Light green
			Pattern: 1,
		},
	})
	failedStyle, _ := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"FFC7CE"}, // Light red
			Pattern: 1,
		},
	})

	headers := []string{"Drop", "Group", "Article", "Sent At", "Status", "Messages", "Gateway Message ID"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}

	for i, row := range rows {
		rowIdx := i + 2
		values := []interface{}{
			drop.Name,
			row.Group.Name,
			row.Article.Name,
			row.SentAt.Format(time.RFC3339),
			row.DeliveryStatus,
			row.MessagesSent,
			row.GatewayMessageID,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, rowIdx)
			f.SetCellValue(sheet, cell, v)
		}

		statusCell, _ := excelize.CoordinatesToCellName(5, rowIdx)
		if row.DeliveryStatus == "sent" {
			f.SetCellStyle(sheet, statusCell, statusCell, sentStyle)
		} else {
			f.SetCellStyle(sheet, statusCell, statusCell, failedStyle)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	return &ExportResult{
		Filename: fmt.Sprintf("drop_%s_%d.xlsx", dropID, time.Now().Unix()),
		Content:  buf,
	}, nil
}
