package controllers

import (
	"gitviewer/internal/providers"
	"gitviewer/internal/render"
	"net/http"

	json "github.com/goccy/go-json"
)

const themesCacheKey = "themes"

type ThemeController struct {
	themes render.ThemeRegistryInterface
	cache  providers.CacheProviderInterface
}

type themesResponse struct {
	Themes any `json:"themes"`
}

func NewThemeController(themes render.ThemeRegistryInterface, cache providers.CacheProviderInterface) *ThemeController {
	return &ThemeController{
		themes: themes,
		cache:  cache,
	}
}

func (tc *ThemeController) Themes(w http.ResponseWriter, r *http.Request) {
	if data, ok := tc.cache.Get(themesCacheKey); ok {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
		return
	}

	gson, err := json.Marshal(themesResponse{Themes: tc.themes.Themes()})
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}

	tc.cache.Set(themesCacheKey, gson)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(gson)
}
