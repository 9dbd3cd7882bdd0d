package models

import (
	"slices"
	"time"
)

const (
	// CooldownWindow is how long a repeat visit from the same visitor is not counted.
	CooldownWindow = time.Hour
	// CooldownRetention is the age after which a cooldown entry may be pruned.
	CooldownRetention = 24 * time.Hour
	// RecentVisitorsCap bounds ViewRecord.RecentVisitors.
	RecentVisitorsCap = 10
	// AnonymousVisitor is the cooldown bucket for requests with no visitor identity.
	AnonymousVisitor = "fallback-anonymous"
)

// ViewRecord is the persisted state of one counter. RecentVisitors is kept for
// display only and is serialized as "ips" to stay readable by older data files.
type ViewRecord struct {
	Username       string    `json:"username" bson:"_id"`
	Count          int64     `json:"count" bson:"count"`
	LastVisit      time.Time `json:"lastVisit" bson:"lastVisit"`
	RecentVisitors []string  `json:"ips" bson:"ips"`
}

func NewViewRecord(username string, now time.Time) *ViewRecord {
	return &ViewRecord{
		Username:       username,
		LastVisit:      now,
		RecentVisitors: make([]string, 0, RecentVisitorsCap),
	}
}

// AddRecentVisitor appends visitorID unless already present and evicts the
// oldest entries beyond RecentVisitorsCap.
func (r *ViewRecord) AddRecentVisitor(visitorID string) {
	if slices.Contains(r.RecentVisitors, visitorID) {
		return
	}
	r.RecentVisitors = append(r.RecentVisitors, visitorID)
	if over := len(r.RecentVisitors) - RecentVisitorsCap; over > 0 {
		r.RecentVisitors = slices.Clone(r.RecentVisitors[over:])
	}
}

func (r *ViewRecord) Clone() *ViewRecord {
	if r == nil {
		return nil
	}
	cp := *r
	cp.RecentVisitors = slices.Clone(r.RecentVisitors)
	return &cp
}

func (r *ViewRecord) ViewData() *ViewData {
	return &ViewData{
		Count:     r.Count,
		LastVisit: r.LastVisit,
	}
}
