package service

import (
	"fmt"

	"github.com/medibook/medibook-api/internal/models"
	"github.com/medibook/medibook-api/pkg/export"
)

// ExportService renders appointment listings into downloadable documents.
type ExportService struct {
	csv *export.CSVExporter
	pdf *export.PDFExporter
}

// NewExportService constructs an ExportService.
func NewExportService() *ExportService {
	return &ExportService{
		csv: export.NewCSVExporter(),
		pdf: export.NewPDFExporter(),
	}
}

// RenderAppointments produces the encoded document and its file extension.
func (s *ExportService) RenderAppointments(format models.ReportFormat, appointments []models.Appointment) ([]byte, string, error) {
	dataset := appointmentDataset(appointments)
	switch format {
	case models.ReportFormatCSV:
		data, err := s.csv.Render(dataset)
		return data, "csv", err
	case models.ReportFormatPDF:
		data, err := s.pdf.Render(dataset, "Appointments Report")
		return data, "pdf", err
	default:
		return nil, "", fmt.Errorf("unsupported report format %q", format)
	}
}

func appointmentDataset(appointments []models.Appointment) export.Dataset {
	headers := []string{"ID", "Patient ID", "Doctor ID", "Date", "Start", "End", "Status", "Booked At"}
	rows := make([]map[string]string, 0, len(appointments))
	for _, appt := range appointments {
		rows = append(rows, map[string]string{
			"ID":         appt.ID,
			"Patient ID": appt.PatientID,
			"Doctor ID":  appt.DoctorID,
			"Date":       appt.Date.UTC().Format("2006-01-02"),
			"Start":      appt.Start,
			"End":        appt.End,
			"Status":     string(appt.Status),
			"Booked At":  appt.CreatedAt.UTC().Format("2006-01-02 15:04:05"),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
