package render

import (
	"errors"
	"fmt"
	"gitviewer/internal/models"
	"net/url"

	json "github.com/goccy/go-json"
)

const (
	DefaultThemeName = "Default"
	customThemeName  = "Custom"

	BackgroundSolid    = "solid"
	BackgroundGradient = "gradient"

	defaultBorderRadius  = 8
	defaultPadding       = 20
	defaultViewCountSize = 24
	defaultLastVisitSize = 14
	maxFontSize          = 64
	maxCustomThemeSize   = 4 << 10
)

var ErrInvalidTheme = errors.New("invalid theme")

var predefinedThemes = []models.Theme{
	{
		Name:         DefaultThemeName,
		Background:   models.Background{Type: BackgroundSolid, Color: "#ffffff"},
		Colors:       models.ThemeColors{ViewCountColor: "#333333", LastVisitColor: "#666666"},
		BorderRadius: 8,
		Padding:      20,
		FontSize:     &models.FontSize{ViewCount: 24, LastVisit: 14},
	},
	{
		Name:         "Dark",
		Background:   models.Background{Type: BackgroundSolid, Color: "#1a1a1a"},
		Colors:       models.ThemeColors{ViewCountColor: "#ffffff", LastVisitColor: "#cccccc"},
		BorderRadius: 8,
		Padding:      20,
		FontSize:     &models.FontSize{ViewCount: 24, LastVisit: 14},
	},
	{
		Name: "Ocean Gradient",
		Background: models.Background{
			Type:     BackgroundGradient,
			Gradient: &models.Gradient{Rotation: 45, Color1: "#667eea", Color2: "#764ba2"},
		},
		Colors:       models.ThemeColors{ViewCountColor: "#ffffff", LastVisitColor: "#f0f0f0"},
		BorderRadius: 12,
		Padding:      25,
		FontSize:     &models.FontSize{ViewCount: 26, LastVisit: 15},
	},
	{
		Name: "Sunset Gradient",
		Background: models.Background{
			Type:     BackgroundGradient,
			Gradient: &models.Gradient{Rotation: 90, Color1: "#ff9a9e", Color2: "#fecfef"},
		},
		Colors:       models.ThemeColors{ViewCountColor: "#333333", LastVisitColor: "#555555"},
		BorderRadius: 15,
		Padding:      22,
		FontSize:     &models.FontSize{ViewCount: 25, LastVisit: 14},
	},
	{
		Name:         "Neon",
		Background:   models.Background{Type: BackgroundSolid, Color: "#0a0a0a"},
		Colors:       models.ThemeColors{ViewCountColor: "#00ff88", LastVisitColor: "#88ffff"},
		BorderRadius: 6,
		Padding:      18,
		FontSize:     &models.FontSize{ViewCount: 22, LastVisit: 13},
	},
}

type ThemeRegistryInterface interface {
	Themes() []models.Theme
	ByName(name string) (models.Theme, bool)
	// Resolve picks the custom theme when given, then the named one, and
	// falls back to the default theme when either is unusable.
	Resolve(name, custom string) models.Theme
}

type ThemeRegistry struct {
	themes []models.Theme
	byName map[string]int
}

func (tr *ThemeRegistry) Themes() []models.Theme {
	out := make([]models.Theme, len(tr.themes))
	for i, t := range tr.themes {
		out[i] = cloneTheme(t)
	}
	return out
}

func (tr *ThemeRegistry) ByName(name string) (models.Theme, bool) {
	idx, ok := tr.byName[name]
	if !ok {
		return models.Theme{}, false
	}
	return cloneTheme(tr.themes[idx]), true
}

func (tr *ThemeRegistry) Resolve(name, custom string) models.Theme {
	if custom != "" {
		if theme, err := ParseCustomTheme(custom); err == nil {
			return theme
		}
		return tr.fallback()
	}
	if theme, ok := tr.ByName(name); ok {
		return theme
	}
	return tr.fallback()
}

func (tr *ThemeRegistry) fallback() models.Theme {
	theme, _ := tr.ByName(DefaultThemeName)
	return theme
}

// ParseCustomTheme decodes a theme passed as JSON, optionally still
// URL-encoded, and fills in the layout defaults.
func ParseCustomTheme(raw string) (models.Theme, error) {
	if len(raw) > maxCustomThemeSize {
		return models.Theme{}, fmt.Errorf("%w: too large", ErrInvalidTheme)
	}

	var theme models.Theme
	if err := json.Unmarshal([]byte(raw), &theme); err != nil {
		decoded, uerr := url.QueryUnescape(raw)
		if uerr != nil {
			return models.Theme{}, fmt.Errorf("%w: %w", ErrInvalidTheme, err)
		}
		if err := json.Unmarshal([]byte(decoded), &theme); err != nil {
			return models.Theme{}, fmt.Errorf("%w: %w", ErrInvalidTheme, err)
		}
	}

	if err := validateTheme(theme); err != nil {
		return models.Theme{}, err
	}

	if theme.Name == "" {
		theme.Name = customThemeName
	}
	if theme.BorderRadius <= 0 {
		theme.BorderRadius = defaultBorderRadius
	}
	if theme.Padding <= 0 {
		theme.Padding = defaultPadding
	}
	if theme.FontSize == nil || theme.FontSize.ViewCount <= 0 || theme.FontSize.LastVisit <= 0 {
		theme.FontSize = &models.FontSize{ViewCount: defaultViewCountSize, LastVisit: defaultLastVisitSize}
	}
	theme.FontSize.ViewCount = min(theme.FontSize.ViewCount, maxFontSize)
	theme.FontSize.LastVisit = min(theme.FontSize.LastVisit, maxFontSize)
	return theme, nil
}

// validateTheme only lets through hex colors, since they end up inside SVG
// attributes.
func validateTheme(theme models.Theme) error {
	if _, err := parseHexColor(theme.Colors.ViewCountColor); err != nil {
		return fmt.Errorf("%w: viewCountColor: %w", ErrInvalidTheme, err)
	}
	if _, err := parseHexColor(theme.Colors.LastVisitColor); err != nil {
		return fmt.Errorf("%w: lastVisitColor: %w", ErrInvalidTheme, err)
	}

	switch theme.Background.Type {
	case BackgroundSolid:
		if _, err := parseHexColor(theme.Background.Color); err != nil {
			return fmt.Errorf("%w: background: %w", ErrInvalidTheme, err)
		}
	case BackgroundGradient:
		g := theme.Background.Gradient
		if g == nil {
			return fmt.Errorf("%w: gradient background without gradient", ErrInvalidTheme)
		}
		if _, err := parseHexColor(g.Color1); err != nil {
			return fmt.Errorf("%w: color1: %w", ErrInvalidTheme, err)
		}
		if _, err := parseHexColor(g.Color2); err != nil {
			return fmt.Errorf("%w: color2: %w", ErrInvalidTheme, err)
		}
	default:
		return fmt.Errorf("%w: background type %q", ErrInvalidTheme, theme.Background.Type)
	}
	return nil
}

func cloneTheme(t models.Theme) models.Theme {
	if t.Background.Gradient != nil {
		g := *t.Background.Gradient
		t.Background.Gradient = &g
	}
	if t.FontSize != nil {
		fs := *t.FontSize
		t.FontSize = &fs
	}
	return t
}

func NewThemeRegistry() ThemeRegistryInterface {
	tr := &ThemeRegistry{
		themes: predefinedThemes,
		byName: make(map[string]int, len(predefinedThemes)),
	}
	for i, t := range tr.themes {
		tr.byName[t.Name] = i
	}
	return tr
}
