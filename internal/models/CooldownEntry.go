package models

import "time"

type CooldownEntry struct {
	Username  string    `json:"username"`
	VisitorID string    `json:"visitorId"`
	At        time.Time `json:"at"`
}

// CooldownTable maps username -> visitor id -> last counted visit.
type CooldownTable map[string]map[string]time.Time

func (t CooldownTable) Get(username, visitorID string) (time.Time, bool) {
	visitors, ok := t[username]
	if !ok {
		return time.Time{}, false
	}
	at, ok := visitors[visitorID]
	return at, ok
}

func (t CooldownTable) Set(username, visitorID string, at time.Time) {
	visitors, ok := t[username]
	if !ok {
		visitors = make(map[string]time.Time)
		t[username] = visitors
	}
	visitors[visitorID] = at
}

// Prune drops entries for username last counted before olderThan.
func (t CooldownTable) Prune(username string, olderThan time.Time) int {
	visitors, ok := t[username]
	if !ok {
		return 0
	}
	removed := 0
	for id, at := range visitors {
		if at.Before(olderThan) {
			delete(visitors, id)
			removed++
		}
	}
	if len(visitors) == 0 {
		delete(t, username)
	}
	return removed
}

// InCooldown reports whether a visit at now falls inside window of at.
func InCooldown(at, now time.Time, window time.Duration) bool {
	return now.Sub(at) < window
}
