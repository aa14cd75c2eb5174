package handlers

import (
	"cmp"
	"context"
	"errors"
	"math"
	"net/http"
	"slices"
	"time"

	"evidence-hub/internal/db"
	"evidence-hub/internal/forms"
	"evidence-hub/internal/http/middleware"
	"evidence-hub/internal/media"
	"evidence-hub/internal/models"
	"evidence-hub/internal/scoring"
	"evidence-hub/internal/security"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	base
	media     *media.Store
	maxUpload int64
}

func NewDashboardHandler(d Deps, store *media.Store, maxUpload int64) *DashboardHandler {
	return &DashboardHandler{
		base:      newBase(d),
		media:     store,
		maxUpload: maxUpload,
	}
}

type Summary struct {
	Uploads    int
	Recent     int
	Statistics int
}

type IDConfidence struct {
	ID       int
	PublicID string
	Username string
	AvgConf  float64
}

type uploadForm struct {
	FileType models.FileType
	LinkURL  string
	Errors   forms.Errors
}

// DashboardData backs the dashboard, project, statistics and profile pages.
type DashboardData struct {
	IsAdmin       bool
	History       []models.Project
	AvgConfidence *float64
	IdeaStats     []db.IdeaStat
	MonthlyReport []models.Project
	Summary       Summary
	IDConfidence  []IDConfidence
	Profile       *models.User

	SearchQuery string
	Form        uploadForm
	FileTypes   []models.FileType
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// collectDashboardData gathers what the signed-in account may see. Administrators
// see every submission; everyone else only their own.
func collectDashboardData(ctx context.Context, store *db.DB, user *models.User, search string) (*DashboardData, error) {
	data := &DashboardData{
		IsAdmin:     user.IsAdmin(),
		Profile:     user,
		SearchQuery: search,
		FileTypes:   models.FileTypes,
		Form:        uploadForm{FileType: models.FileTypeImage},
	}

	scope := db.ProjectFilter{}
	if !data.IsAdmin {
		scope.UserID = user.ID
	}

	history := scope
	history.Search = search
	var err error
	if data.History, err = store.ListProjects(ctx, history); err != nil {
		return nil, err
	}

	avg, ok, err := store.AverageConfidence(ctx, history)
	if err != nil {
		return nil, err
	}
	if ok {
		v := round2(avg)
		data.AvgConfidence = &v
	}

	if data.IsAdmin {
		if data.IdeaStats, err = store.IdeaStats(ctx); err != nil {
			return nil, err
		}
	}

	now := time.Now().UTC()
	monthly := scope
	monthly.Since, monthly.Until = db.MonthRange(now.Year(), now.Month())
	if data.MonthlyReport, err = store.ListProjects(ctx, monthly); err != nil {
		return nil, err
	}

	recent := history
	recent.Since = now.AddDate(0, 0, -7)
	if data.Summary.Recent, err = store.CountProjects(ctx, recent); err != nil {
		return nil, err
	}
	data.Summary.Uploads = len(data.History)
	data.Summary.Statistics = len(data.IdeaStats)

	data.IDConfidence = make([]IDConfidence, 0, len(data.History))
	for _, p := range data.History {
		data.IDConfidence = append(data.IDConfidence, IDConfidence{
			ID:       p.ID,
			PublicID: p.PublicID,
			Username: p.Username,
			AvgConf:  p.PredictionConfidence,
		})
	}
	slices.SortStableFunc(data.IDConfidence, func(a, b IDConfidence) int {
		return cmp.Compare(b.AvgConf, a.AvgConf)
	})

	return data, nil
}

func (h *DashboardHandler) page(w http.ResponseWriter, r *http.Request, name, title string) {
	data, err := collectDashboardData(r.Context(), h.db, middleware.UserFrom(r.Context()), "")
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, name, title, data)
}

func (h *DashboardHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	search := r.URL.Query().Get("search")
	form := uploadForm{FileType: models.FileTypeImage}

	if r.Method == http.MethodPost {
		if user.IsAdmin() {
			h.flash(w, r, security.LevelError, "Administrators can only monitor submissions.")
			redirect(w, r, "/dashboard/")
			return
		}
		saved, submitted, err := h.saveUpload(w, r, user)
		if err != nil {
			h.serverError(w, r, err)
			return
		}
		if saved {
			h.flash(w, r, security.LevelSuccess, "Upload received. Confidence score prepared for your review.")
			redirect(w, r, "/dashboard/")
			return
		}
		form = submitted
		h.flash(w, r, security.LevelError, "We could not save the upload. Please check the form for details.")
	}

	data, err := collectDashboardData(r.Context(), h.db, user, search)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	data.Form = form
	h.render(w, r, http.StatusOK, "dashboard", "Dashboard", data)
}

// saveUpload validates the upload form and stores the submission. When the form is
// invalid it returns saved == false together with the form to re-render.
func (h *DashboardHandler) saveUpload(w http.ResponseWriter, r *http.Request, user *models.User) (bool, uploadForm, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	upload, err := forms.ParseUpload(r, h.maxUpload)
	if err != nil {
		h.log.Info("unreadable upload", zap.Error(err))
		errs := forms.Errors{}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			errs.Add(forms.NonField, "The upload is too large.")
		} else {
			errs.Add(forms.NonField, "The upload could not be read. Please try again.")
		}
		return false, uploadForm{FileType: models.FileTypeImage, Errors: errs}, nil
	}
	defer upload.Close()

	form := uploadForm{FileType: upload.FileType, LinkURL: upload.LinkURL}
	if errs := upload.Validate(); !errs.Valid() {
		form.Errors = errs
		return false, form, nil
	}

	project := &models.Project{UserID: user.ID, FileType: upload.FileType}
	if upload.FileType.NeedsFile() {
		stored, err := h.media.Save(media.UploadsDir, upload.Header.Filename, upload.File)
		if err != nil {
			return false, form, err
		}
		project.Idea = upload.Header.Filename
		project.FilePath = stored.Path
		project.FileSize = stored.Size
	} else {
		project.LinkURL = upload.LinkURL
	}
	project.Normalize()
	project.PredictionConfidence, project.Verdict = scoring.Assess(project.Idea, project.Description, string(project.FileType))

	if err := h.db.CreateProject(r.Context(), project); err != nil {
		if rmErr := h.media.Remove(project.FilePath); rmErr != nil {
			h.log.Warn("failed to remove orphaned upload", zap.String("path", project.FilePath), zap.Error(rmErr))
		}
		return false, form, err
	}
	h.log.Info("submission stored",
		zap.String("public_id", project.PublicID),
		zap.String("username", user.Username),
		zap.Float64("confidence", project.PredictionConfidence),
	)
	return true, form, nil
}

func (h *DashboardHandler) Project(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "project", "Projects")
}

func (h *DashboardHandler) Statistics(w http.ResponseWriter, r *http.Request) {
	h.page(w, r, "statistics", "Statistics")
}

func (h *DashboardHandler) Profile(w http.ResponseWriter, r *http.Request) {
	if r.Method == http.MethodPost {
		h.updatePicture(w, r)
		return
	}
	h.page(w, r, "profile", "Profile")
}

func (h *DashboardHandler) updatePicture(w http.ResponseWriter, r *http.Request) {
	user := middleware.UserFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		h.flash(w, r, security.LevelError, "Please choose an image to upload.")
		redirect(w, r, "/profile/")
		return
	}
	file, header, err := r.FormFile("profile_picture")
	if err != nil {
		h.flash(w, r, security.LevelError, "Please choose an image to upload.")
		redirect(w, r, "/profile/")
		return
	}
	defer file.Close()

	if !forms.ValidImage(file) {
		h.flash(w, r, security.LevelError, "Upload a valid image. The file you uploaded was either not an image or a corrupted image.")
		redirect(w, r, "/profile/")
		return
	}

	stored, err := h.media.Save(media.ProfilePicturesDir, header.Filename, file)
	if err != nil {
		h.serverError(w, r, err)
		return
	}
	if err := h.db.SetProfilePicture(r.Context(), user.ID, stored.Path); err != nil {
		_ = h.media.Remove(stored.Path)
		h.serverError(w, r, err)
		return
	}
	if err := h.media.Remove(user.ProfilePicture); err != nil {
		h.log.Warn("failed to remove previous profile picture", zap.String("path", user.ProfilePicture), zap.Error(err))
	}
	h.flash(w, r, security.LevelSuccess, "Profile picture updated.")
	redirect(w, r, "/profile/")
}

func (h *DashboardHandler) Logo(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "logo", "Logo", nil)
}

func (h *DashboardHandler) Poster(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "poster", "Poster", nil)
}

func (h *DashboardHandler) Advertisement(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "advertisement", "Advertisement", nil)
}
