package services

import (
	"context"
	"fmt"
	"gitviewer/internal/models"
	"gitviewer/internal/providers"
	"gitviewer/internal/storage"
	"gitviewer/internal/storage/interfaces"
	"gitviewer/internal/structures"
	"gitviewer/internal/testutil"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 5, 4, 10, 0, 0, 0, time.UTC)

func newTestService(store interfaces.ViewStoreInterface) (*ViewService, *testutil.MockLogger, *testutil.MockMetrics) {
	conf := &structures.Config{}
	conf.Storage.Timeout = 50 * time.Millisecond
	logger := &testutil.MockLogger{}
	metrics := testutil.NewMockMetrics()
	vs := NewViewService(conf, store, logger, metrics).(*ViewService)
	vs.now = func() time.Time { return t0 }
	return vs, logger, metrics
}

// engineStores covers both decision paths: get/put against a plain store and
// claim/increment against a store with atomic capabilities.
func engineStores() map[string]func() interfaces.ViewStoreInterface {
	return map[string]func() interfaces.ViewStoreInterface{
		"plain":  func() interfaces.ViewStoreInterface { return testutil.NewMockViewStore() },
		"atomic": func() interfaces.ViewStoreInterface { return storage.NewMemoryStore() },
	}
}

func TestRecordVisit_Scenarios(t *testing.T) {
	for name, open := range engineStores() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			t.Run("fresh user counts first visit", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				data, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)
				assert.Equal(t, int64(1), data.Count)
				assert.Equal(t, t0, data.LastVisit)
			})

			t.Run("repeat within cooldown is suppressed", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)

				t1 := t0.Add(5 * time.Minute)
				data, err := vs.RecordVisitAt(ctx, "alice", "v1", t1)
				require.NoError(t, err)
				assert.Equal(t, int64(1), data.Count)
				assert.Equal(t, t1, data.LastVisit)
			})

			t.Run("repeat after cooldown counts again", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)
				_, err = vs.RecordVisitAt(ctx, "alice", "v1", t0.Add(5*time.Minute))
				require.NoError(t, err)

				data, err := vs.RecordVisitAt(ctx, "alice", "v1", t0.Add(61*time.Minute))
				require.NoError(t, err)
				assert.Equal(t, int64(2), data.Count)
			})

			t.Run("exactly one window later counts", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)

				data, err := vs.RecordVisitAt(ctx, "alice", "v1", t0.Add(models.CooldownWindow))
				require.NoError(t, err)
				assert.Equal(t, int64(2), data.Count)
			})

			t.Run("other visitor has independent cooldown", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)

				data, err := vs.RecordVisitAt(ctx, "alice", "v2", t0)
				require.NoError(t, err)
				assert.Equal(t, int64(2), data.Count)
			})

			t.Run("cooldown is per username", func(t *testing.T) {
				vs, _, _ := newTestService(open())
				_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
				require.NoError(t, err)

				data, err := vs.RecordVisitAt(ctx, "bob", "v1", t0)
				require.NoError(t, err)
				assert.Equal(t, int64(1), data.Count)
			})
		})
	}
}

func TestRecordVisit_MonotonicAndLastVisitAdvances(t *testing.T) {
	for name, open := range engineStores() {
		t.Run(name, func(t *testing.T) {
			vs, _, _ := newTestService(open())
			ctx := context.Background()

			var prev *models.ViewData
			for i := 0; i < 200; i++ {
				now := t0.Add(time.Duration(i*7) * time.Minute)
				data, err := vs.RecordVisitAt(ctx, "alice", fmt.Sprintf("v%d", i%7), now)
				require.NoError(t, err)
				if prev != nil {
					assert.GreaterOrEqual(t, data.Count, prev.Count)
					assert.False(t, data.LastVisit.Before(prev.LastVisit))
				}
				assert.Equal(t, now, data.LastVisit)
				prev = data
			}
		})
	}
}

func TestRecordVisit_OutOfOrderCallsKeepLatestLastVisit(t *testing.T) {
	for name, open := range engineStores() {
		t.Run(name, func(t *testing.T) {
			vs, _, _ := newTestService(open())
			ctx := context.Background()
			later := t0.Add(10 * time.Minute)
			earlier := t0.Add(5 * time.Minute)

			_, err := vs.RecordVisitAt(ctx, "alice", "v1", later)
			require.NoError(t, err)
			data, err := vs.RecordVisitAt(ctx, "alice", "v2", earlier)
			require.NoError(t, err)
			assert.Equal(t, int64(2), data.Count)
			assert.Equal(t, later, data.LastVisit)

			got, err := vs.GetViews(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(2), got.Count)
			assert.True(t, later.Equal(got.LastVisit), "lastVisit %s", got.LastVisit)
		})
	}
}

func TestRecordVisit_RecentVisitorsCapped(t *testing.T) {
	for name, open := range engineStores() {
		t.Run(name, func(t *testing.T) {
			store := open()
			vs, _, _ := newTestService(store)
			ctx := context.Background()

			for i := 0; i < 25; i++ {
				_, err := vs.RecordVisitAt(ctx, "alice", fmt.Sprintf("v%d", i), t0)
				require.NoError(t, err)
			}

			rec, err := store.Get(ctx, "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(25), rec.Count)
			require.Len(t, rec.RecentVisitors, models.RecentVisitorsCap)
			assert.Equal(t, "v15", rec.RecentVisitors[0])
			assert.Equal(t, "v24", rec.RecentVisitors[models.RecentVisitorsCap-1])
		})
	}
}

func TestRecordVisit_RecentVisitorsDoNotSuppress(t *testing.T) {
	store := testutil.NewMockViewStore()
	seeded := models.NewViewRecord("alice", t0.Add(-2*time.Hour))
	seeded.Count = 4
	seeded.AddRecentVisitor("v1")
	store.Records["alice"] = seeded

	vs, _, _ := newTestService(store)
	data, err := vs.RecordVisitAt(context.Background(), "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(5), data.Count)
}

func TestRecordVisit_ReadFailureIsFailOpen(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.FailGet = true
	vs, logger, metrics := newTestService(store)

	data, err := vs.RecordVisitAt(context.Background(), "bob", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)
	assert.Equal(t, t0, data.LastVisit)
	assert.Equal(t, 1, logger.Count("error"))
	assert.Equal(t, 1, metrics.StorageFailures[opGet])
}

func TestRecordVisit_AllReadsFail(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.FailGet = true
	store.FailGetCooldown = true
	vs, _, _ := newTestService(store)

	for i := 0; i < 3; i++ {
		data, err := vs.RecordVisitAt(context.Background(), "bob", "v1", t0)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, data.Count, int64(0))
	}
}

func TestRecordVisit_WriteFailureIsSwallowed(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.FailPut = true
	store.FailPutCooldown = true
	vs, logger, metrics := newTestService(store)

	data, err := vs.RecordVisitAt(context.Background(), "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)
	assert.Equal(t, 2, logger.Count("error"))
	assert.Equal(t, 1, metrics.StorageFailures[opPut])
	assert.Equal(t, 1, metrics.StorageFailures[opPutCooldown])
	assert.Empty(t, store.Records)
}

func TestRecordVisit_PrunesStaleCooldowns(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.Cooldowns.Set("alice", "ancient", t0.Add(-25*time.Hour))
	store.Cooldowns.Set("alice", "recent", t0.Add(-2*time.Hour))
	store.Cooldowns.Set("bob", "ancient", t0.Add(-25*time.Hour))
	vs, _, _ := newTestService(store)
	ctx := context.Background()

	_, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, 1, store.PruneCalls)

	_, ok := store.Cooldowns.Get("alice", "ancient")
	assert.False(t, ok)
	_, ok = store.Cooldowns.Get("alice", "recent")
	assert.True(t, ok)
	_, ok = store.Cooldowns.Get("bob", "ancient")
	assert.True(t, ok)

	_, err = vs.RecordVisitAt(ctx, "alice", "v1", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 1, store.PruneCalls, "suppressed visits do not prune")
}

func TestRecordVisit_PruneFailureIsSwallowed(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.FailPrune = true
	vs, _, metrics := newTestService(store)

	data, err := vs.RecordVisitAt(context.Background(), "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)
	assert.Equal(t, 1, metrics.StorageFailures[opPrune])
}

func TestRecordVisit_InvalidUsername(t *testing.T) {
	vs, _, _ := newTestService(testutil.NewMockViewStore())

	for _, username := range []string{"", "   "} {
		_, err := vs.RecordVisitAt(context.Background(), username, "v1", t0)
		assert.ErrorIs(t, err, ErrInvalidUsername)
	}
}

func TestRecordVisit_AnonymousVisitorsShareCooldown(t *testing.T) {
	store := testutil.NewMockViewStore()
	vs, _, _ := newTestService(store)
	ctx := context.Background()

	data, err := vs.RecordVisitAt(ctx, "alice", "", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)

	data, err = vs.RecordVisitAt(ctx, "alice", "  ", t0.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)

	_, ok := store.Cooldowns.Get("alice", models.AnonymousVisitor)
	assert.True(t, ok)
}

func TestRecordVisit_StoreTimeout(t *testing.T) {
	store := testutil.NewBlockingViewStore()
	vs, logger, _ := newTestService(store)
	vs.timeout = 20 * time.Millisecond

	start := time.Now()
	data, err := vs.RecordVisitAt(context.Background(), "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, 2, logger.Count("error"))
}

func TestRecordVisit_CallerCancellationDoesNotAbortWrites(t *testing.T) {
	store := storage.NewMemoryStore()
	vs, _, _ := newTestService(store)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	data, err := vs.RecordVisitAt(ctx, "alice", "v1", t0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), data.Count)

	rec, err := store.Get(context.Background(), "alice")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, int64(1), rec.Count)
}

// concurrentStores are the backends that keep every update made from one
// process under concurrent visits.
func concurrentStores(t *testing.T) map[string]interfaces.ViewStoreInterface {
	return map[string]interfaces.ViewStoreInterface{
		"memory": storage.NewMemoryStore(),
		"file":   storage.NewFileStore(filepath.Join(t.TempDir(), "views.json"), storage.NoCompression()),
	}
}

func TestRecordVisit_ConcurrentSameVisitorCountsOnce(t *testing.T) {
	for name, store := range concurrentStores(t) {
		t.Run(name, func(t *testing.T) {
			vs, _, _ := newTestService(store)
			vs.timeout = 10 * time.Second

			var wg sync.WaitGroup
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, err := vs.RecordVisitAt(context.Background(), "alice", "v1", t0)
					assert.NoError(t, err)
				}()
			}
			wg.Wait()

			rec, err := store.Get(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(1), rec.Count)
		})
	}
}

func TestRecordVisit_ConcurrentDistinctVisitorsAllCount(t *testing.T) {
	for name, store := range concurrentStores(t) {
		t.Run(name, func(t *testing.T) {
			vs, logger, _ := newTestService(store)
			vs.timeout = 10 * time.Second

			var wg sync.WaitGroup
			for i := 0; i < 30; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					_, err := vs.RecordVisitAt(context.Background(), "alice", fmt.Sprintf("v%d", i), t0)
					assert.NoError(t, err)
				}(i)
			}
			wg.Wait()

			rec, err := store.Get(context.Background(), "alice")
			require.NoError(t, err)
			assert.Equal(t, int64(30), rec.Count)
			assert.Equal(t, 0, logger.Count("error"))
		})
	}
}

func TestRecordVisit_UsesClockAndCountsMetrics(t *testing.T) {
	vs, _, metrics := newTestService(storage.NewMemoryStore())
	ctx := context.Background()

	data, err := vs.RecordVisit(ctx, "alice", "v1")
	require.NoError(t, err)
	assert.Equal(t, t0, data.LastVisit)

	_, err = vs.RecordVisit(ctx, "alice", "v1")
	require.NoError(t, err)

	assert.Equal(t, 1, metrics.Visits[providers.VisitCounted])
	assert.Equal(t, 1, metrics.Visits[providers.VisitSuppressed])
}

func TestGetViews(t *testing.T) {
	store := storage.NewMemoryStore()
	vs, _, _ := newTestService(store)
	ctx := context.Background()

	data, err := vs.GetViews(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), data.Count)
	assert.Equal(t, t0, data.LastVisit)

	_, err = vs.RecordVisitAt(ctx, "alice", "v1", t0.Add(-time.Hour))
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		data, err = vs.GetViews(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, int64(1), data.Count)
		assert.Equal(t, t0.Add(-time.Hour), data.LastVisit)
	}

	_, err = vs.GetViews(ctx, "")
	assert.ErrorIs(t, err, ErrInvalidUsername)
}

func TestGetViews_ReadFailure(t *testing.T) {
	store := testutil.NewMockViewStore()
	store.FailGet = true
	vs, _, _ := newTestService(store)

	data, err := vs.GetViews(context.Background(), "alice")
	require.NoError(t, err)
	assert.Equal(t, int64(0), data.Count)
}
