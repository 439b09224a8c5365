package handlers

import (
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const maxUploadBytes = 10 << 20

var allowedImageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
}

// Upload stores a reference image and returns its stable filename. Once the
// filename is returned the file exists and is readable.
func (a *App) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "invalid multipart payload")
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "no image file provided")
		return
	}
	defer func() {
		_ = file.Close()
	}()

	ext := strings.ToLower(filepath.Ext(header.Filename))
	if !allowedImageExts[ext] {
		a.error(w, http.StatusBadRequest, "unsupported_type", "only jpg, png, webp images are allowed")
		return
	}

	// Read one byte past the limit so an oversized file is detected instead
	// of being silently truncated.
	data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		a.error(w, http.StatusInternalServerError, "internal", "failed to read image")
		return
	}
	if len(data) > maxUploadBytes {
		a.error(w, http.StatusRequestEntityTooLarge, "file_too_large", "image exceeds the 10MB upload limit")
		return
	}

	filename := uuid.NewString() + ext
	key, err := a.Uploads.Write(r.Context(), filename, data)
	if err != nil {
		a.Logger.Error().Err(err).Msg("handlers: upload save failed")
		a.error(w, http.StatusInternalServerError, "internal", "failed to save image")
		return
	}

	a.json(w, http.StatusOK, map[string]string{
		"message":   "image uploaded successfully",
		"filename":  key,
		"image_url": fmt.Sprintf("%s/uploads/%s", a.PublicBaseURL, key),
	})
}
