package service

import (
	"context"
	"io"

	"go.uber.org/zap"

	"bgv-dashboard/internal/audit"
	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/session"
	"bgv-dashboard/internal/util"
)

const resumeContentType = "application/pdf"

// Accepted declared types for identity document images.
var imageContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/jpg":  true,
	"image/png":  true,
	"image/webp": true,
}

// ValidationError is a local pre-flight failure. It blocks submission
// and renders inline; no backend request is made for it.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Upload describes one file received from the browser, before
// validation.
type Upload struct {
	Filename    string
	ContentType string
	Content     io.Reader
}

// BGVService fronts the verification request operations.
type BGVService struct {
	backend *client.BackendClient
	audit   *audit.Publisher
	logger  *zap.Logger
}

func NewBGVService(backend *client.BackendClient, auditor *audit.Publisher, logger *zap.Logger) *BGVService {
	return &BGVService{
		backend: backend,
		audit:   auditor,
		logger:  logger,
	}
}

// List fetches the caller's verification requests.
func (s *BGVService) List(ctx context.Context, sess *session.Session) ([]model.BGVRequest, error) {
	return s.backend.ListRequests(ctx, sess.Tokens.Access)
}

// Detail fetches one verification request by ID.
func (s *BGVService) Detail(ctx context.Context, sess *session.Session, id int) (*model.BGVRequest, error) {
	return s.backend.GetRequest(ctx, sess.Tokens.Access, id)
}

// UploadResume validates the declared type and forwards the file. Only
// application/pdf is accepted, regardless of the file extension.
func (s *BGVService) UploadResume(ctx context.Context, sess *session.Session, up Upload) (*model.BGVRequest, error) {
	if up.ContentType != resumeContentType {
		return nil, &ValidationError{
			Field:   "file",
			Message: "Please upload a PDF file",
		}
	}

	req, err := s.backend.UploadResume(ctx, sess.Tokens.Access, client.FileUpload{
		Filename:    up.Filename,
		ContentType: up.ContentType,
		Content:     up.Content,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, audit.Event{
		Action:    audit.ActionResumeUploaded,
		UserEmail: sess.User.Email,
		UserRole:  sess.User.Role,
		RequestID: req.ID,
		Metadata:  map[string]string{"filename": up.Filename},
	})
	s.logger.Info("resume uploaded",
		util.String("filename", up.Filename),
		util.Int("request_id", req.ID),
	)
	return req, nil
}

// SubmitDocuments requires both slots populated and each declared as an
// accepted image type, then issues one multipart request carrying both
// files.
func (s *BGVService) SubmitDocuments(ctx context.Context, sess *session.Session, id int, pan, aadhaar *Upload) (*model.BGVRequest, error) {
	if pan == nil || aadhaar == nil {
		return nil, &ValidationError{
			Message: "Please upload both PAN and Aadhaar documents",
		}
	}
	if !imageContentTypes[pan.ContentType] {
		return nil, &ValidationError{
			Field:   model.DocumentTypePAN,
			Message: "PAN: Please upload a valid image file (JPG, PNG, or WebP)",
		}
	}
	if !imageContentTypes[aadhaar.ContentType] {
		return nil, &ValidationError{
			Field:   model.DocumentTypeAadhaar,
			Message: "Aadhaar: Please upload a valid image file (JPG, PNG, or WebP)",
		}
	}

	req, err := s.backend.SubmitDocuments(ctx, sess.Tokens.Access, id,
		client.FileUpload{Filename: pan.Filename, ContentType: pan.ContentType, Content: pan.Content},
		client.FileUpload{Filename: aadhaar.Filename, ContentType: aadhaar.ContentType, Content: aadhaar.Content},
	)
	if err != nil {
		return nil, err
	}

	s.audit.Publish(ctx, audit.Event{
		Action:    audit.ActionDocumentsSubmitted,
		UserEmail: sess.User.Email,
		UserRole:  sess.User.Role,
		RequestID: id,
	})
	s.logger.Info("identity documents submitted", util.Int("request_id", id))
	return req, nil
}
