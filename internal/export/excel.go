// Package export writes booking reports as xlsx files.
package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"rentacar/internal/domain"
	"rentacar/internal/models"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

// ExcelExporter renders bookings over a date range into a spreadsheet file
// under the configured export directory.
type ExcelExporter struct {
	bookings domain.BookingRepository
	path     string
	logger   *zerolog.Logger
}

func NewExcelExporter(bookings domain.BookingRepository, path string, logger *zerolog.Logger) *ExcelExporter {
	return &ExcelExporter{
		bookings: bookings,
		path:     path,
		logger:   logger,
	}
}

// ExportBookings writes one row per booking overlapping the range and
// returns the file path.
func (e *ExcelExporter) ExportBookings(ctx context.Context, start, end models.Date) (string, error) {
	if end.Before(start) {
		return "", fmt.Errorf("invalid export range: %s after %s", start, end)
	}

	if err := os.MkdirAll(e.path, 0o755); err != nil {
		return "", fmt.Errorf("error creating export directory: %w", err)
	}

	bookings, err := e.bookings.GetBookingsByDateRange(ctx, start, end)
	if err != nil {
		return "", fmt.Errorf("error getting bookings: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		return "", fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)

	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("Bookings %s - %s", start, end))

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})

	headers := []string{
		"ID", "User", "Car", "Delegation", "Start", "End",
		"Pickup", "Return", "Status", "Payment", "Total",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, header)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	for i, booking := range bookings {
		row := i + 3
		values := []interface{}{
			booking.ID,
			booking.UserID,
			booking.Car.Make + " " + booking.Car.Model,
			booking.Car.DelegationID,
			booking.StartDate.String(),
			booking.EndDate.String(),
			booking.PickupLocation,
			booking.ReturnLocation,
			string(booking.Status),
			string(booking.PaymentStatus),
			booking.TotalPrice,
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(sheetName, cell, value)
		}

		if styleID, err := e.statusStyle(f, booking.Status); err == nil {
			statusCell, _ := excelize.CoordinatesToCellName(9, row)
			_ = f.SetCellStyle(sheetName, statusCell, statusCell, styleID)
		}
	}

	_ = f.SetColWidth(sheetName, "A", "A", 38)
	_ = f.SetColWidth(sheetName, "B", "K", 16)
	_ = f.MergeCell(sheetName, "A1", "K1")

	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	_ = f.DeleteSheet("Sheet1")

	fileName := fmt.Sprintf("bookings_%s_to_%s.xlsx", start, end)
	filePath := filepath.Join(e.path, fileName)

	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("error saving file: %w", err)
	}

	e.logger.Info().Str("file_path", filePath).Int("bookings", len(bookings)).Msg("export file created")
	return filePath, nil
}

func (e *ExcelExporter) statusStyle(f *excelize.File, status models.BookingStatus) (int, error) {
	var color string
	switch status {
	case models.BookingConfirmed, models.BookingCompleted:
		color = "#C6EFCE"
	case models.BookingReserved:
		color = "#FFEB9C"
	case models.BookingCancelled:
		color = "#FFC7CE"
	default:
		color = "#FFFFFF"
	}
	return f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
}
