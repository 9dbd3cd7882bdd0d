package models

type Gradient struct {
	Rotation float64 `json:"rotation"`
	Color1   string  `json:"color1"`
	Color2   string  `json:"color2"`
}

type Background struct {
	Type     string    `json:"type"`
	Color    string    `json:"color,omitempty"`
	Gradient *Gradient `json:"gradient,omitempty"`
}

type ThemeColors struct {
	ViewCountColor string `json:"viewCountColor"`
	LastVisitColor string `json:"lastVisitColor"`
}

type FontSize struct {
	ViewCount int `json:"viewCount"`
	LastVisit int `json:"lastVisit"`
}

// Theme only drives rendering; the counting core never reads it.
type Theme struct {
	Name         string      `json:"name"`
	Background   Background  `json:"background"`
	Colors       ThemeColors `json:"colors"`
	BorderRadius int         `json:"borderRadius,omitempty"`
	Padding      int         `json:"padding,omitempty"`
	FontSize     *FontSize   `json:"fontSize,omitempty"`
}
