package jobserver

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"apexgrab/internal/domain"
)

const maxFormBytes = 1 << 20

// App serves the job contract on top of a Registry.
type App struct {
	Registry *Registry
}

func NewApp(registry *Registry) *App {
	return &App{Registry: registry}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, msg string) {
	a.json(w, code, map[string]string{"error": msg})
}

func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{"status": "ok", "jobs": a.Registry.Len()})
}

// Start accepts the multipart form the client submits and registers a job.
func (a *App) Start(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBytes)
	if err := r.ParseMultipartForm(maxFormBytes); err != nil {
		a.error(w, http.StatusBadRequest, "expected multipart form")
		return
	}
	req := domain.JobRequest{
		URL:        strings.TrimSpace(r.FormValue("url")),
		Tool:       domain.ToolKind(r.FormValue("tool")),
		Quality:    r.FormValue("quality"),
		SubQuality: r.FormValue("subQuality"),
		Language:   r.FormValue("language"),
		Timestamps: r.FormValue("timestamps"),
		Format:     r.FormValue("format"),
	}
	if err := req.Validate(); err != nil {
		a.error(w, http.StatusBadRequest, err.Error())
		return
	}
	id := a.Registry.Create(req)
	zerolog.Ctx(r.Context()).Info().
		Str("job_id", id).
		Str("tool", string(req.Tool)).
		Msg("job started")
	a.json(w, http.StatusOK, map[string]string{"job_id": id})
}

func (a *App) Status(w http.ResponseWriter, r *http.Request) {
	status, err := a.Registry.Status(chi.URLParam(r, "id"))
	if err != nil {
		a.error(w, http.StatusNotFound, err.Error())
		return
	}
	a.json(w, http.StatusOK, status)
}

func (a *App) Cancel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	status, err := a.Registry.Cancel(id)
	if err != nil {
		a.error(w, http.StatusNotFound, err.Error())
		return
	}
	zerolog.Ctx(r.Context()).Info().Str("job_id", id).Bool("cancelled", status.Cancelled).Msg("job cancel requested")
	a.json(w, http.StatusOK, status)
}

// Download serves the artifact of a ready job as an attachment.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	artifact, err := a.Registry.Artifact(chi.URLParam(r, "id"))
	switch {
	case errors.Is(err, ErrJobNotFound):
		a.error(w, http.StatusNotFound, err.Error())
		return
	case errors.Is(err, ErrJobNotReady):
		a.error(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, ErrJobCancelled):
		a.error(w, http.StatusGone, err.Error())
		return
	case err != nil:
		a.error(w, http.StatusInternalServerError, "internal error")
		return
	}
	w.Header().Set("Content-Type", artifact.ContentType)
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": artifact.Filename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(artifact.Body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(artifact.Body)
}
