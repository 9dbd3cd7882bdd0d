package controllers

import (
	"errors"
	"gitviewer/internal/models"
	"gitviewer/internal/providers"
	"gitviewer/internal/render"
	"gitviewer/internal/services"
	"net/http"
	"time"
)

type CounterController struct {
	logger   providers.Logger
	views    services.ViewServiceInterface
	identity services.IdentityServiceInterface
	themes   render.ThemeRegistryInterface
	renderer render.ImageRendererInterface
}

type countResponse struct {
	Username  string    `json:"username"`
	Count     int64     `json:"count"`
	LastVisit time.Time `json:"lastVisit"`
}

type validateResponse struct {
	Valid bool               `json:"valid"`
	User  *models.GitHubUser `json:"user,omitempty"`
}

func NewCounterController(logger providers.Logger, views services.ViewServiceInterface, identity services.IdentityServiceInterface, themes render.ThemeRegistryInterface, renderer render.ImageRendererInterface) *CounterController {
	return &CounterController{
		logger:   logger,
		views:    views,
		identity: identity,
		themes:   themes,
		renderer: renderer,
	}
}

// Views records a visit and renders the counter image.
func (cc *CounterController) Views(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !services.ValidUsername(username) {
		writeError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	q := r.URL.Query()
	format := q.Get("format")
	if format != "" && format != render.FormatSVG && format != render.FormatPNG {
		writeError(w, http.StatusBadRequest, "Unsupported format")
		return
	}

	exists, err := cc.identity.Exists(r.Context(), username)
	if err != nil {
		// The counter still renders when the identity API is down.
		cc.logger.Warnf(providers.TypeGet, "[%s] identity check for %s skipped: %v", providers.RequestID(r.Context()), username, err)
		exists = true
	}
	if !exists {
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	visitor := services.VisitorID(r)
	data, err := cc.views.RecordVisit(r.Context(), username, visitor)
	if err != nil {
		if errors.Is(err, services.ErrInvalidUsername) {
			writeError(w, http.StatusBadRequest, "Invalid username")
			return
		}
		cc.logger.Errorf(providers.TypeGet, "[%s] record visit for %s: %v", providers.RequestID(r.Context()), username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	theme := cc.themes.Resolve(q.Get("theme"), q.Get("customTheme"))
	image, contentType, err := cc.renderer.Render(format, data, theme, username)
	if err != nil {
		cc.logger.Errorf(providers.TypeGet, "[%s] render counter for %s: %v", providers.RequestID(r.Context()), username, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	cc.logger.Debugf(providers.TypeGet, "[%s] %s viewed by %s, count %d", providers.RequestID(r.Context()), username, visitor, data.Count)

	setNoCache(w)
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(image)
}

// Count returns the current counter without recording a visit.
func (cc *CounterController) Count(w http.ResponseWriter, r *http.Request) {
	username := r.PathValue("username")
	if !services.ValidUsername(username) {
		writeError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	data, err := cc.views.GetViews(r.Context(), username)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid username")
		return
	}

	setNoCache(w)
	writeJSON(w, http.StatusOK, countResponse{
		Username:  username,
		Count:     data.Count,
		LastVisit: data.LastVisit,
	})
}

func (cc *CounterController) ValidateUsername(w http.ResponseWriter, r *http.Request) {
	username := r.URL.Query().Get("username")
	if username == "" {
		writeError(w, http.StatusBadRequest, "Username is required")
		return
	}
	if !services.ValidUsername(username) {
		writeJSON(w, http.StatusOK, validateResponse{Valid: false})
		return
	}

	user, err := cc.identity.Lookup(r.Context(), username)
	if err != nil {
		cc.logger.Errorf(providers.TypeGet, "[%s] validate %s: %v", providers.RequestID(r.Context()), username, err)
		writeError(w, http.StatusBadGateway, "Identity service unavailable")
		return
	}
	writeJSON(w, http.StatusOK, validateResponse{Valid: user != nil, User: user})
}
