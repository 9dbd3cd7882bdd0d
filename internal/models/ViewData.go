package models

import "time"

// ViewData is what a request handler receives after a visit has been recorded.
type ViewData struct {
	Count     int64     `json:"count"`
	LastVisit time.Time `json:"lastVisit"`
}
