package handlers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"golang.org/x/sync/errgroup"

	"github.com/RendaniXcode/moneypro/src/config"
	"github.com/RendaniXcode/moneypro/src/logger"
	"github.com/RendaniXcode/moneypro/src/services"
	"github.com/RendaniXcode/moneypro/src/upload"
	"github.com/RendaniXcode/moneypro/src/utils"
)

// UploadHandler exposes the upload session over HTTP. It owns one session
// for the lifetime of the server, mirroring the single active upload flow of
// the dashboard.
type UploadHandler struct {
	uploadService services.UploadService
	session       *upload.Session
}

func NewUploadHandler(service services.UploadService) *UploadHandler {
	return &UploadHandler{
		uploadService: service,
		session:       upload.NewSession(),
	}
}

type uploadResponse struct {
	Files       []upload.FileItem `json:"files"`
	AllComplete bool              `json:"allComplete"`
	HasSuccess  bool              `json:"hasSuccess"`
}

// HandleUpload accepts one or more statement files as multipart form data
// and runs each through the upload lifecycle. Files transfer concurrently;
// one file's failure never aborts its siblings.
func (h *UploadHandler) HandleUpload(w http.ResponseWriter, r *http.Request) {
	// The form limit leaves headroom over the per-file ceiling so the
	// per-file size error is the one the user sees.
	if err := r.ParseMultipartForm(config.Cfg.MaxUploadSizeBytes * 2); err != nil {
		logger.L.Warn("Failed to parse multipart form or request too large", "error", err, "limit", config.Cfg.MaxUploadSizeBytes)
		utils.SendJSONError(w, fmt.Sprintf("Failed to parse form or request too large (max %d MB per file)", config.Cfg.MaxUploadSizeBytes/(1024*1024)), http.StatusBadRequest)
		return
	}

	var fileHeaders []*multipart.FileHeader
	if r.MultipartForm != nil {
		fileHeaders = append(fileHeaders, r.MultipartForm.File["files"]...)
		fileHeaders = append(fileHeaders, r.MultipartForm.File["file"]...)
	}
	if len(fileHeaders) == 0 {
		utils.SendJSONError(w, "No files in request. Use the 'files' form field.", http.StatusBadRequest)
		return
	}

	g, ctx := errgroup.WithContext(r.Context())
	for _, fh := range fileHeaders {
		g.Go(func() error {
			file, err := fh.Open()
			if err != nil {
				logger.L.Warn("Failed to open uploaded file", "filename", fh.Filename, "error", err)
				return nil
			}
			defer file.Close()

			contentType := fh.Header.Get("Content-Type")
			if _, err := h.uploadService.ProcessUpload(ctx, h.session, fh.Filename, contentType, fh.Size, file); err != nil {
				// Per-file failures are already recorded on the session;
				// returning nil keeps sibling transfers running.
				logger.L.Warn("File upload failed", "filename", fh.Filename, "error", err)
			}
			return nil
		})
	}
	g.Wait()

	utils.SendJSON(w, uploadResponse{
		Files:       h.session.Files(),
		AllComplete: h.session.AllComplete(),
		HasSuccess:  h.session.HasSuccess(),
	}, http.StatusOK)
}

// HandleListFiles returns the current session state.
func (h *UploadHandler) HandleListFiles(w http.ResponseWriter, r *http.Request) {
	utils.SendJSON(w, uploadResponse{
		Files:       h.session.Files(),
		AllComplete: h.session.AllComplete(),
		HasSuccess:  h.session.HasSuccess(),
	}, http.StatusOK)
}

// HandleRemoveFile drops one file from the session. In-flight transfers
// cannot be removed; cancellation mid-transfer is not supported.
func (h *UploadHandler) HandleRemoveFile(w http.ResponseWriter, r *http.Request) {
	fileID := r.PathValue("id")
	if err := h.session.Remove(fileID); err != nil {
		if errors.Is(err, upload.ErrFileNotFound) {
			utils.SendJSONError(w, err.Error(), http.StatusNotFound)
		} else {
			utils.SendJSONError(w, err.Error(), http.StatusConflict)
		}
		return
	}
	utils.SendJSON(w, map[string]string{"removed": fileID}, http.StatusOK)
}

// HandleResetSession clears the session back to its initial state.
func (h *UploadHandler) HandleResetSession(w http.ResponseWriter, r *http.Request) {
	h.session.Reset()
	utils.SendJSON(w, map[string]string{"status": "reset"}, http.StatusOK)
}
