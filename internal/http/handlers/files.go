package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"evidence-hub/internal/db"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/media"
	"evidence-hub/internal/models"
	"evidence-hub/internal/security"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

type FileHandler struct {
	base
	media *media.Store
	files http.Handler
}

func NewFileHandler(d Deps, store *media.Store) *FileHandler {
	return &FileHandler{
		base:  newBase(d),
		media: store,
		files: store.Handler("/media/"),
	}
}

type deletePage struct {
	Upload *models.Project
}

// DeleteUpload confirms on GET and removes exactly one submission on POST.
func (h *FileHandler) DeleteUpload(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(mux.Vars(r)["id"])
	if err != nil {
		http.NotFound(w, r)
		return
	}

	upload, err := h.db.GetProject(r.Context(), id)
	if errors.Is(err, db.ErrNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		h.serverError(w, r, err)
		return
	}

	user := middleware.UserFrom(r.Context())
	if !user.IsAdmin() {
		h.flash(w, r, security.LevelError, "Only administrators can delete uploads.")
		redirect(w, r, "/dashboard/")
		return
	}

	if r.Method != http.MethodPost {
		h.render(w, r, http.StatusOK, "upload_confirm_delete", "Delete upload", deletePage{Upload: upload})
		return
	}

	if err := h.db.DeleteProject(r.Context(), upload.ID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.serverError(w, r, err)
		return
	}
	if err := h.media.Remove(upload.FilePath); err != nil {
		h.log.Warn("failed to remove stored file", zap.String("path", upload.FilePath), zap.Error(err))
	}
	h.log.Info("submission deleted", zap.String("public_id", upload.PublicID), zap.String("by", user.Username))

	h.flash(w, r, security.LevelSuccess, upload.PublicID+" removed.")
	redirect(w, r, "/project/")
}

// Media serves stored evidence files and profile pictures to signed-in accounts.
func (h *FileHandler) Media(w http.ResponseWriter, r *http.Request) {
	h.files.ServeHTTP(w, r)
}
