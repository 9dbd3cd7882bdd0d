package services

import (
	"context"
	"errors"
	"gitviewer/internal/models"
	"gitviewer/internal/providers"
	"gitviewer/internal/storage"
	"gitviewer/internal/storage/interfaces"
	"gitviewer/internal/structures"
	"strings"
	"time"
)

var ErrInvalidUsername = errors.New("invalid username")

const (
	opGet           = "get"
	opPut           = "put"
	opGetCooldown   = "get_cooldown"
	opPutCooldown   = "put_cooldown"
	opClaimCooldown = "claim_cooldown"
	opIncrement     = "increment"
	opPrune         = "prune"
)

type ViewServiceInterface interface {
	RecordVisit(ctx context.Context, username, visitorID string) (*models.ViewData, error)
	RecordVisitAt(ctx context.Context, username, visitorID string, now time.Time) (*models.ViewData, error)
	GetViews(ctx context.Context, username string) (*models.ViewData, error)
}

// ViewService decides whether a visit is counted. A visitor is counted at
// most once per models.CooldownWindow for each username.
//
// Storage is fail-open: a failed read is treated as an absent value and a
// failed write is logged and dropped, so callers always get a usable
// ViewData. Every store call gets its own deadline and is detached from the
// caller's cancellation, so a mutation that reached the store is not undone.
type ViewService struct {
	store   interfaces.ViewStoreInterface
	logger  providers.Logger
	metrics providers.MetricsProviderInterface
	timeout time.Duration
	now     func() time.Time
}

func (vs *ViewService) RecordVisit(ctx context.Context, username, visitorID string) (*models.ViewData, error) {
	return vs.RecordVisitAt(ctx, username, visitorID, vs.now())
}

func (vs *ViewService) RecordVisitAt(ctx context.Context, username, visitorID string, now time.Time) (*models.ViewData, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrInvalidUsername
	}
	if strings.TrimSpace(visitorID) == "" {
		visitorID = models.AnonymousVisitor
	}

	record := vs.load(ctx, username)
	if record == nil {
		record = models.NewViewRecord(username, now)
	}

	if vs.shouldCount(ctx, username, visitorID, now) {
		record.Count = vs.increment(ctx, username, record.Count, now)
		record.AddRecentVisitor(visitorID)
		vs.prune(ctx, username, now)
		vs.metrics.IncVisits(providers.VisitCounted)
	} else {
		vs.metrics.IncVisits(providers.VisitSuppressed)
	}

	// lastVisit never moves backwards, even for a call with an older clock.
	if now.After(record.LastVisit) {
		record.LastVisit = now
	}
	_ = vs.call(ctx, opPut, username, func(ctx context.Context) error {
		return vs.store.Put(ctx, username, record)
	})

	return record.ViewData(), nil
}

// GetViews reads the current counter without recording a visit.
func (vs *ViewService) GetViews(ctx context.Context, username string) (*models.ViewData, error) {
	if strings.TrimSpace(username) == "" {
		return nil, ErrInvalidUsername
	}
	record := vs.load(ctx, username)
	if record == nil {
		return &models.ViewData{LastVisit: vs.now()}, nil
	}
	return record.ViewData(), nil
}

func (vs *ViewService) load(ctx context.Context, username string) *models.ViewRecord {
	var record *models.ViewRecord
	err := vs.call(ctx, opGet, username, func(ctx context.Context) error {
		var err error
		record, err = vs.store.Get(ctx, username)
		return err
	})
	if err != nil {
		return nil
	}
	return record
}

// shouldCount reports whether visitorID is outside its cooldown and, if so,
// starts a new cooldown at now.
func (vs *ViewService) shouldCount(ctx context.Context, username, visitorID string, now time.Time) bool {
	if claimer, ok := vs.store.(interfaces.CooldownClaimer); ok {
		claimed := true
		_ = vs.call(ctx, opClaimCooldown, username, func(ctx context.Context) error {
			var err error
			claimed, err = claimer.ClaimCooldown(ctx, username, visitorID, now, models.CooldownWindow)
			if err != nil {
				claimed = true
			}
			return err
		})
		return claimed
	}

	var (
		at    time.Time
		found bool
	)
	err := vs.call(ctx, opGetCooldown, username, func(ctx context.Context) error {
		var err error
		at, found, err = vs.store.GetCooldown(ctx, username, visitorID)
		return err
	})
	if err == nil && found && models.InCooldown(at, now, models.CooldownWindow) {
		return false
	}

	_ = vs.call(ctx, opPutCooldown, username, func(ctx context.Context) error {
		return vs.store.PutCooldown(ctx, username, visitorID, now)
	})
	return true
}

func (vs *ViewService) increment(ctx context.Context, username string, current int64, now time.Time) int64 {
	inc, ok := vs.store.(interfaces.CountIncrementer)
	if !ok {
		return current + 1
	}

	var count int64
	err := vs.call(ctx, opIncrement, username, func(ctx context.Context) error {
		var err error
		count, err = inc.IncrementCount(ctx, username, now)
		return err
	})
	if err != nil || count <= current {
		return current + 1
	}
	return count
}

func (vs *ViewService) prune(ctx context.Context, username string, now time.Time) {
	var removed int
	err := vs.call(ctx, opPrune, username, func(ctx context.Context) error {
		var err error
		removed, err = vs.store.PruneCooldowns(ctx, username, now.Add(-models.CooldownRetention))
		return err
	})
	if err == nil && removed > 0 {
		vs.logger.Debugf(providers.TypeStorage, "Pruned %d cooldown entries for %s", removed, username)
	}
}

func (vs *ViewService) call(ctx context.Context, op, username string, fn func(context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), vs.timeout)
	defer cancel()

	start := time.Now()
	err := fn(ctx)
	vs.metrics.ObserveStorageDuration(op, time.Since(start))
	if err != nil {
		vs.metrics.IncStorageFailures(op)
		vs.logger.Errorf(providers.TypeStorage, "Storage %s failed for %s: %v", op, username, err)
	}
	return err
}

func NewViewService(conf *structures.Config, store interfaces.ViewStoreInterface, logger providers.Logger, metrics providers.MetricsProviderInterface) ViewServiceInterface {
	return &ViewService{
		store:   store,
		logger:  logger,
		metrics: metrics,
		timeout: storage.Timeout(conf),
		now:     time.Now,
	}
}
