package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/careplanner/backend/internal/azure"
	"github.com/careplanner/backend/internal/pdf"
	"github.com/careplanner/backend/pkg/model"
	"go.uber.org/zap"
)

// ErrPatientNotFound is returned when a report is requested for an unknown patient
var ErrPatientNotFound = errors.New("patient not found")

// PatientSource reads the records a report is built from; *store.Store implements it
type PatientSource interface {
	Patient(id string) (model.Patient, bool)
	PatientAppointments(patientID string) []model.Appointment
}

// Report is a rendered patient summary
type Report struct {
	Filename string
	Data     []byte
	// BlobPath is set when the report was archived
	BlobPath string
}

// ReportService renders patient summaries and archives them to blob storage
type ReportService struct {
	patients PatientSource
	blobs    azure.BlobStorage
	pdfGen   *pdf.PDFGenerator
	logger   *zap.Logger
	now      func() time.Time
}

// NewReportService creates a new ReportService. blobs may be nil to skip archiving.
func NewReportService(
	patients PatientSource,
	blobs azure.BlobStorage,
	pdfGen *pdf.PDFGenerator,
	logger *zap.Logger,
) *ReportService {
	return &ReportService{
		patients: patients,
		blobs:    blobs,
		pdfGen:   pdfGen,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Generate renders the summary of patientID. Archiving failures are logged
// and do not fail the request.
func (s *ReportService) Generate(ctx context.Context, patientID, requestedBy string) (*Report, error) {
	s.logger.Info("generating patient report",
		zap.String("patient_id", patientID),
		zap.String("requested_by", requestedBy),
	)

	patient, ok := s.patients.Patient(patientID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}

	generatedAt := s.now()
	pdfBytes, err := s.pdfGen.Generate(&pdf.ReportData{
		Patient:      patient,
		Appointments: s.patients.PatientAppointments(patientID),
		GeneratedAt:  generatedAt,
		GeneratedBy:  requestedBy,
	})
	if err != nil {
		s.logger.Error("failed to generate PDF",
			zap.Error(err),
			zap.String("patient_id", patientID),
		)
		return nil, fmt.Errorf("failed to generate PDF: %w", err)
	}

	report := &Report{
		Filename: fmt.Sprintf("%s-%s.pdf", patientID, generatedAt.Format("20060102T150405Z")),
		Data:     pdfBytes,
	}

	if s.blobs != nil {
		blobPath, err := s.blobs.UploadPDF(ctx, report.Filename, pdfBytes)
		if err != nil {
			s.logger.Warn("failed to archive report",
				zap.Error(err),
				zap.String("patient_id", patientID),
			)
		} else {
			report.BlobPath = blobPath
		}
	}

	s.logger.Info("patient report generated successfully",
		zap.String("patient_id", patientID),
		zap.String("blob_path", report.BlobPath),
		zap.Int("size_bytes", len(pdfBytes)),
	)

	return report, nil
}
