package handler

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"bgv-dashboard/internal/client"
	"bgv-dashboard/internal/model"
	"bgv-dashboard/internal/service"
)

const maxUploadBytes = 10 << 20 // matches the backend's upload limit

type dashboardPage struct {
	User        *model.User
	Requests    []model.BGVRequest
	Flash       string
	LoadError   string
	UploadError string
}

type detailPage struct {
	User        *model.User
	Request     *model.BGVRequest
	Submitted   bool
	UploadError string
	BackPath    string
	SubmitPath  string
}

type errorPage struct {
	User     *model.User
	Message  string
	BackPath string
}

// Home routes the signed-in user to their dashboard.
func (h *Handlers) Home(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	if !sess.IsAuthenticated() {
		http.Redirect(w, r, loginPath, http.StatusSeeOther)
		return
	}
	http.Redirect(w, r, roleHome(sess.User.Role), http.StatusSeeOther)
}

// RecruiterDashboard renders the full request table with the resume
// upload panel.
func (h *Handlers) RecruiterDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	page := dashboardPage{User: sess.User}
	if r.URL.Query().Get("uploaded") == "1" {
		page.Flash = "Resume uploaded successfully!"
	}

	requests, err := h.bgv.List(r.Context(), sess)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		page.LoadError = listErrorMessage(err)
	}
	page.Requests = requests

	h.renderer.Render(w, http.StatusOK, "recruiter_dashboard.html", page)
}

// CandidateDashboard renders the candidate's own requests, with the
// document upload action on rows whose status asks for it.
func (h *Handlers) CandidateDashboard(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	page := dashboardPage{User: sess.User}
	requests, err := h.bgv.List(r.Context(), sess)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		page.LoadError = listErrorMessage(err)
	}
	page.Requests = requests

	h.renderer.Render(w, http.StatusOK, "candidate_dashboard.html", page)
}

// UploadResume validates and forwards a recruiter's resume upload,
// then lands back on the refreshed table.
func (h *Handlers) UploadResume(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.renderUploadFailure(w, r, "File too large or invalid (max 10MB)")
		return
	}

	up, err := formUpload(r, "file")
	if err != nil || up == nil {
		h.renderUploadFailure(w, r, "Please select a resume file")
		return
	}

	_, err = h.bgv.UploadResume(r.Context(), sess, *up)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		h.renderUploadFailure(w, r, uploadErrorMessage(err, "file"))
		return
	}

	http.Redirect(w, r, recruiterHomePath+"?uploaded=1", http.StatusSeeOther)
}

// renderUploadFailure re-renders the recruiter dashboard with the
// upload error inline. The table is fetched again so the page stays
// complete; a fetch failure on this path only loses the table, not the
// error message.
func (h *Handlers) renderUploadFailure(w http.ResponseWriter, r *http.Request, message string) {
	sess := sessionFrom(r.Context())
	page := dashboardPage{User: sess.User, UploadError: message}

	requests, err := h.bgv.List(r.Context(), sess)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		page.LoadError = listErrorMessage(err)
	}
	page.Requests = requests

	h.renderer.Render(w, http.StatusOK, "recruiter_dashboard.html", page)
}

// Detail renders one verification request. A non-numeric id renders a
// local error page without touching the backend.
func (h *Handlers) Detail(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	home := roleHome(sess.User.Role)

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.Render(w, http.StatusNotFound, "error.html", errorPage{
			User:     sess.User,
			Message:  "Invalid verification request ID",
			BackPath: home,
		})
		return
	}

	req, err := h.bgv.Detail(r.Context(), sess, id)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		h.renderer.Render(w, detailErrorStatus(err), "error.html", errorPage{
			User:     sess.User,
			Message:  detailErrorMessage(err),
			BackPath: home,
		})
		return
	}

	h.renderer.Render(w, http.StatusOK, "bgv_detail.html", detailPage{
		User:       sess.User,
		Request:    req,
		Submitted:  r.URL.Query().Get("submitted") == "1",
		BackPath:   home,
		SubmitPath: fmt.Sprintf("%s/bgv/%d/documents", candidateHomePath, id),
	})
}

// SubmitDocuments forwards the PAN and Aadhaar files. Success redirects
// to the detail page with a confirmation banner, which re-fetches the
// record; failures re-render the detail page with the error inline and
// the form still open.
func (h *Handlers) SubmitDocuments(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())

	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		h.renderer.Render(w, http.StatusNotFound, "error.html", errorPage{
			User:     sess.User,
			Message:  "Invalid verification request ID",
			BackPath: roleHome(sess.User.Role),
		})
		return
	}

	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		h.renderDocumentFailure(w, r, id, "Files too large or invalid (max 10MB)")
		return
	}

	pan, err := formUpload(r, model.DocumentTypePAN)
	if err != nil {
		h.renderDocumentFailure(w, r, id, "Please upload both PAN and Aadhaar documents")
		return
	}
	aadhaar, err := formUpload(r, model.DocumentTypeAadhaar)
	if err != nil {
		h.renderDocumentFailure(w, r, id, "Please upload both PAN and Aadhaar documents")
		return
	}

	if _, err := h.bgv.SubmitDocuments(r.Context(), sess, id, pan, aadhaar); err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		h.renderDocumentFailure(w, r, id, uploadErrorMessage(err, model.DocumentTypePAN, model.DocumentTypeAadhaar))
		return
	}

	detailPath := fmt.Sprintf("%s/bgv/%d?submitted=1", candidateHomePath, id)
	http.Redirect(w, r, detailPath, http.StatusSeeOther)
}

func (h *Handlers) renderDocumentFailure(w http.ResponseWriter, r *http.Request, id int, message string) {
	sess := sessionFrom(r.Context())

	req, err := h.bgv.Detail(r.Context(), sess, id)
	if err != nil {
		if errors.Is(err, client.ErrUnauthorized) {
			h.evictAndRedirect(w, r)
			return
		}
		h.renderer.Render(w, detailErrorStatus(err), "error.html", errorPage{
			User:     sess.User,
			Message:  message,
			BackPath: roleHome(sess.User.Role),
		})
		return
	}

	h.renderer.Render(w, http.StatusOK, "bgv_detail.html", detailPage{
		User:        sess.User,
		Request:     req,
		UploadError: message,
		BackPath:    roleHome(sess.User.Role),
		SubmitPath:  fmt.Sprintf("%s/bgv/%d/documents", candidateHomePath, id),
	})
}

// formUpload reads one optional file field. A missing file reports
// (nil, error) so callers can enforce their own presence rules.
func formUpload(r *http.Request, field string) (*service.Upload, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, http.ErrMissingFile
		}
		return nil, err
	}
	return &service.Upload{
		Filename:    header.Filename,
		ContentType: partContentType(header),
		Content:     file,
	}, nil
}

func partContentType(header *multipart.FileHeader) string {
	return header.Header.Get("Content-Type")
}

func listErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Failed to fetch verification requests"
}

func detailErrorMessage(err error) string {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		if apiErr.StatusCode == http.StatusNotFound {
			return "Verification request not found"
		}
		if apiErr.Message != "" {
			return apiErr.Message
		}
	}
	return "Failed to load verification request"
}

func detailErrorStatus(err error) int {
	var apiErr *client.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return http.StatusNotFound
	}
	return http.StatusBadGateway
}

// uploadErrorMessage prefers local validation text, then field-level
// backend messages, then the generic envelope message.
func uploadErrorMessage(err error, fields ...string) string {
	var vErr *service.ValidationError
	if errors.As(err, &vErr) {
		return vErr.Message
	}
	var apiErr *client.APIError
	if errors.As(err, &apiErr) {
		return apiErr.FieldError(fields...)
	}
	return "An error occurred during upload. Please try again."
}
