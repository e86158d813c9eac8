package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/careplanner/backend/pkg/model"
	"github.com/jung-kurt/gofpdf"
	"go.uber.org/zap"
)

const (
	dateLayout     = "2006-01-02"
	dateTimeLayout = "2006-01-02 15:04"
	maxVitalRows   = 20
)

// PDFGenerator renders patient summary reports
type PDFGenerator struct {
	logger *zap.Logger
}

// NewPDFGenerator creates a new PDFGenerator
func NewPDFGenerator(logger *zap.Logger) *PDFGenerator {
	return &PDFGenerator{
		logger: logger,
	}
}

// ReportData contains all data needed for report generation
type ReportData struct {
	Patient      model.Patient
	Appointments []model.Appointment
	GeneratedAt  time.Time
	GeneratedBy  string
}

// Generate creates a PDF report from the provided data
func (g *PDFGenerator) Generate(data *ReportData) ([]byte, error) {
	g.logger.Info("generating PDF report",
		zap.String("patient_id", data.Patient.ID),
		zap.Int("vital_logs", len(data.Patient.Logs)),
	)

	generatedAt := data.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now()
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.SetAutoPageBreak(true, 20)
	pdf.SetTitle(fmt.Sprintf("Care summary: %s", data.Patient.Name), true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()

	g.addTitle(pdf, tr, data.Patient, generatedAt, data.GeneratedBy)
	g.addProfile(pdf, tr, data.Patient)
	g.addVitals(pdf, tr, data.Patient.Logs)
	g.addMessages(pdf, tr, data.Patient.Messages)
	g.addAppointments(pdf, tr, data.Appointments)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		g.logger.Error("failed to generate PDF", zap.Error(err))
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	g.logger.Info("PDF report generated successfully",
		zap.String("patient_id", data.Patient.ID),
		zap.Int("size_bytes", buf.Len()),
	)

	return buf.Bytes(), nil
}

type translator func(string) string

func (g *PDFGenerator) addTitle(pdf *gofpdf.Fpdf, tr translator, p model.Patient, generatedAt time.Time, generatedBy string) {
	pdf.SetFont("Arial", "B", 20)
	pdf.CellFormat(0, 10, "Patient Care Summary", "", 1, "C", false, 0, "")
	pdf.Ln(5)

	pdf.SetFont("Arial", "", 12)
	pdf.CellFormat(0, 8, tr(fmt.Sprintf("Patient: %s (%s)", p.Name, p.ID)), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 8, fmt.Sprintf("Generated: %s", generatedAt.Format(dateTimeLayout)), "", 1, "L", false, 0, "")
	if generatedBy != "" {
		pdf.CellFormat(0, 8, tr(fmt.Sprintf("Requested by: %s", generatedBy)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(10)
}

func (g *PDFGenerator) addSectionHeader(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 14)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(0, 10, title, "", 1, "L", true, 0, "")
	pdf.Ln(3)
	pdf.SetFont("Arial", "", 10)
}

func (g *PDFGenerator) addProfile(pdf *gofpdf.Fpdf, tr translator, p model.Patient) {
	g.addSectionHeader(pdf, "Profile")

	conditions := "None recorded"
	if len(p.Conditions) > 0 {
		conditions = strings.Join(p.Conditions, ", ")
	}

	pdf.CellFormat(0, 6, fmt.Sprintf("Age: %d", p.Age), "", 1, "L", false, 0, "")
	pdf.MultiCell(0, 6, tr(fmt.Sprintf("Conditions: %s", conditions)), "", "L", false)

	r, gr, b := riskColor(p.RiskScore)
	pdf.SetFont("Arial", "B", 10)
	pdf.SetTextColor(r, gr, b)
	pdf.CellFormat(0, 6, fmt.Sprintf("Risk score: %d / 100", p.RiskScore), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Arial", "", 10)

	if p.Notes != "" {
		pdf.MultiCell(0, 6, tr(fmt.Sprintf("Notes: %s", p.Notes)), "", "L", false)
	}
	pdf.Ln(5)
}

// riskColor maps a score onto the triage palette
func riskColor(score int) (int, int, int) {
	switch {
	case score > 80:
		return 200, 30, 30
	case score > 50:
		return 220, 120, 0
	default:
		return 30, 140, 60
	}
}

func (g *PDFGenerator) addVitals(pdf *gofpdf.Fpdf, tr translator, logs []model.VitalLog) {
	g.addSectionHeader(pdf, "Vitals History")

	if len(logs) == 0 {
		pdf.CellFormat(0, 8, "No vitals recorded.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	var totalSystolic, totalDiastolic, totalGlucose int
	for _, l := range logs {
		totalSystolic += l.Systolic
		totalDiastolic += l.Diastolic
		totalGlucose += l.Glucose
	}
	count := float64(len(logs))
	pdf.CellFormat(0, 6, fmt.Sprintf("Average: %.0f/%.0f mmHg, Glucose: %.0f mg/dL",
		float64(totalSystolic)/count, float64(totalDiastolic)/count, float64(totalGlucose)/count), "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Total readings: %d", len(logs)), "", 1, "L", false, 0, "")
	pdf.Ln(3)

	widths := []float64{45, 35, 35, 30, 25}
	headers := []string{"Recorded", "Blood pressure", "Glucose", "Status", "Note"}
	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(245, 245, 245)
	for i, h := range headers {
		pdf.CellFormat(widths[i], 7, h, "1", 0, "C", true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Arial", "", 9)
	rows := logs
	if len(rows) > maxVitalRows {
		rows = rows[:maxVitalRows]
	}
	for _, l := range rows {
		note := ""
		if l.Note != "" {
			note = "yes"
		}
		pdf.CellFormat(widths[0], 6, l.Timestamp.Format(dateTimeLayout), "1", 0, "L", false, 0, "")
		pdf.CellFormat(widths[1], 6, fmt.Sprintf("%d/%d mmHg", l.Systolic, l.Diastolic), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[2], 6, fmt.Sprintf("%d mg/dL", l.Glucose), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[3], 6, tr(string(l.Status)), "1", 0, "C", false, 0, "")
		pdf.CellFormat(widths[4], 6, note, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	if len(logs) > maxVitalRows {
		pdf.SetFont("Arial", "I", 9)
		pdf.CellFormat(0, 6, fmt.Sprintf("%d older readings omitted.", len(logs)-maxVitalRows), "", 1, "L", false, 0, "")
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addMessages(pdf *gofpdf.Fpdf, tr translator, messages []model.DoctorMessage) {
	g.addSectionHeader(pdf, "Care Team Messages")

	if len(messages) == 0 {
		pdf.CellFormat(0, 8, "No messages sent.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, m := range messages {
		status := "unread"
		if m.IsRead {
			status = "read"
		}
		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s - %s (%s, %s)", m.Date.Format(dateLayout), m.DoctorName, m.Type, status)), "", 1, "L", false, 0, "")
		pdf.SetFont("Arial", "", 10)
		pdf.MultiCell(0, 5, tr(m.Text), "", "L", false)
		pdf.Ln(2)
	}
	pdf.Ln(5)
}

func (g *PDFGenerator) addAppointments(pdf *gofpdf.Fpdf, tr translator, appointments []model.Appointment) {
	g.addSectionHeader(pdf, "Appointments")

	if len(appointments) == 0 {
		pdf.CellFormat(0, 8, "No appointments booked.", "", 1, "L", false, 0, "")
		pdf.Ln(5)
		return
	}

	for _, a := range appointments {
		line := fmt.Sprintf("%s with %s, %s (%s)", a.Date.Format(dateTimeLayout), a.DoctorName, a.Type, a.Status)
		pdf.CellFormat(0, 6, tr(line), "", 1, "L", false, 0, "")
		if a.Reason != "" {
			pdf.CellFormat(0, 5, tr(fmt.Sprintf("  Reason: %s", a.Reason)), "", 1, "L", false, 0, "")
		}
	}
	pdf.Ln(5)
}
