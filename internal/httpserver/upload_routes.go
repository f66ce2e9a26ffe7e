package httpserver

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"campusmarket/internal/domain"
	"campusmarket/internal/storage"
)

const (
	maxUploadFiles = 6
	maxImageBytes  = 4 << 20
)

type uploadResponse struct {
	URLs []string `json:"urls"`
}

// UploadRoutes returns a sub-router mounted at /api/uploads. POST stores
// 1-6 images (field "files"); GET serves images of the local backend.
func UploadRoutes(images storage.ImageStore, local *storage.LocalStore, auth Authenticator, log *zap.Logger) chi.Router {
	r := chi.NewRouter()

	r.With(RequireAuth(auth, log)).Post("/", handleUpload(images, log))

	if local != nil {
		r.Get("/{filename}", func(w http.ResponseWriter, r *http.Request) {
			path, err := local.Path(chi.URLParam(r, "filename"))
			if errors.Is(err, storage.ErrNotFound) {
				writeError(w, r, log, domain.Errorf(domain.ErrNotFound, "image not found"))
				return
			}
			if err != nil {
				writeError(w, r, log, domain.Errorf(domain.ErrInvalidInput, "invalid filename"))
				return
			}
			http.ServeFile(w, r, path)
		})
	}
	return r
}

// @Summary      Upload images
// @Description  Multipart upload of 1-6 images, each at most 4 MB
// @Tags         uploads
// @Security     BearerAuth
// @Accept       multipart/form-data
// @Produce      json
// @Param        files formData file true "Images"
// @Success      201  {object}  uploadResponse
// @Failure      400  {object}  errorBody
// @Router       /uploads [post]
func handleUpload(images storage.ImageStore, log *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxUploadFiles*maxImageBytes+(1<<20))
		if err := r.ParseMultipartForm(8 << 20); err != nil {
			writeError(w, r, log, domain.Errorf(domain.ErrInvalidInput, "failed to parse multipart form"))
			return
		}
		defer r.MultipartForm.RemoveAll()

		files := r.MultipartForm.File["files"]
		if len(files) == 0 || len(files) > maxUploadFiles {
			writeError(w, r, log, domain.NewValidationError("files", fmt.Sprintf("must contain between 1 and %d images", maxUploadFiles)))
			return
		}

		urls := make([]string, 0, len(files))
		for _, fh := range files {
			url, err := storeImage(r, images, fh)
			if err != nil {
				cleanup(r, images, urls, log)
				writeError(w, r, log, err)
				return
			}
			urls = append(urls, url)
		}
		writeJSON(w, http.StatusCreated, uploadResponse{URLs: urls})
	}
}

func storeImage(r *http.Request, images storage.ImageStore, fh *multipart.FileHeader) (string, error) {
	if fh.Size > maxImageBytes {
		return "", domain.NewValidationError("files", fmt.Sprintf("%s exceeds 4 MB", fh.Filename))
	}
	f, err := fh.Open()
	if err != nil {
		return "", fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", domain.NewValidationError("files", fmt.Sprintf("%s exceeds 4 MB", fh.Filename))
	}

	mt := mimetype.Detect(data)
	if !strings.HasPrefix(mt.String(), "image/") {
		return "", domain.NewValidationError("files", fmt.Sprintf("%s is not an image", fh.Filename))
	}
	name := uuid.NewString() + mt.Extension()
	return images.Put(r.Context(), name, mt.String(), bytes.NewReader(data))
}

// cleanup removes images already stored by a failed batch.
func cleanup(r *http.Request, images storage.ImageStore, urls []string, log *zap.Logger) {
	for _, u := range urls {
		if err := images.Delete(r.Context(), u); err != nil && !errors.Is(err, storage.ErrNotFound) {
			log.Warn("remove orphaned upload", zap.String("url", u), zap.Error(err))
		}
	}
}
