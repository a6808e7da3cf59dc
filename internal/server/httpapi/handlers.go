package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/apetrov/assetgate/internal/server/models"
)

type requestUploadBody struct {
	Filename    string `json:"filename"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type requestUploadResponse struct {
	SessionID string    `json:"sessionId"`
	UploadURL string    `json:"uploadUrl"`
	ObjectURL string    `json:"objectUrl"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// RequestUpload validates the upload request and returns a signed PUT URL
// plus the session to report against.
func (s *Server) RequestUpload(w http.ResponseWriter, r *http.Request) {
	var body requestUploadBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	result, err := s.uploads.Start(r.Context(), models.UploadRequest{
		Filename:    body.Filename,
		ContentType: body.ContentType,
		SizeBytes:   body.SizeBytes,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeCreated(w, requestUploadResponse{
		SessionID: result.SessionID,
		UploadURL: result.UploadURL,
		ObjectURL: result.ObjectURL,
		ExpiresAt: result.ExpiresAt,
	})
}

type uploadProgressBody struct {
	BytesSent  int64 `json:"bytesSent"`
	BytesTotal int64 `json:"bytesTotal"`
}

// UploadProgress applies a client progress report to an in-flight session.
func (s *Server) UploadProgress(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body uploadProgressBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	pct, err := s.uploads.Progress(sessionID, body.BytesSent, body.BytesTotal)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]any{"progressPercent": pct})
}

type uploadCompleteBody struct {
	OK            bool `json:"ok"`
	SaveAsProfile bool `json:"saveAsProfile"`
}

// UploadComplete resolves a session from the reported transport outcome.
// On success the object's public URL is returned and, when requested,
// stored as the caller's profile image.
func (s *Server) UploadComplete(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")

	var body uploadCompleteBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	url, err := s.uploads.Complete(r.Context(), sessionID, body.OK)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if body.SaveAsProfile {
		if err := s.users.SetProfileImage(r.Context(), userID(r.Context()), url); err != nil {
			s.logger.Error(r.Context(), "saving profile image failed", "error", err.Error())
			writeServiceError(w, err)
			return
		}
	}

	writeOK(w, map[string]any{"objectUrl": url})
}

// ListFiles resolves the caller's tier-scoped file listing with fresh
// signed download URLs. The tier comes from the verified token, never the
// request.
func (s *Server) ListFiles(w http.ResponseWriter, r *http.Request) {
	tier, ok := accountTier(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	files, err := s.files.ListAccessibleFiles(r.Context(), tier)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeOK(w, map[string]any{"files": files})
}
