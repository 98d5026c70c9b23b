package service

import (
	"context"
	"errors"
	"sync"

	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
	"golang.org/x/sync/errgroup"
)

// SnapshotFetcher downloads index snapshots
type SnapshotFetcher interface {
	FetchSegmentSnapshot(ctx context.Context, groupKey string) (snapshot.Table, error)
	FetchAllIndicesSnapshot(ctx context.Context) (snapshot.Table, error)
}

// SnapshotStore persists snapshots
type SnapshotStore interface {
	SaveSnapshot(t snapshot.Table) error
	GetLatestSnapshot(view, group string) (snapshot.Table, bool, error)
}

// SnapshotCacher caches the latest snapshots
type SnapshotCacher interface {
	Get(ctx context.Context, view, group string) (snapshot.Table, bool, error)
	Set(ctx context.Context, t snapshot.Table) error
}

// SnapshotService serves index snapshots from cache, NSE or the database
type SnapshotService struct {
	fetcher SnapshotFetcher
	store   SnapshotStore
	cache   SnapshotCacher
	groups  []string
	workers int
}

// NewSnapshotService creates a new snapshot service. groups are the index
// groups refreshed by RefreshSnapshots, at most workers at a time.
func NewSnapshotService(fetcher SnapshotFetcher, store SnapshotStore, cache SnapshotCacher, groups []string, workers int) *SnapshotService {
	if workers < 1 {
		workers = 1
	}
	return &SnapshotService{
		fetcher: fetcher,
		store:   store,
		cache:   cache,
		groups:  groups,
		workers: workers,
	}
}

// Groups returns the configured index groups
func (s *SnapshotService) Groups() []string {
	return append([]string(nil), s.groups...)
}

// GetIndexSnapshot returns the constituents snapshot of an index group
func (s *SnapshotService) GetIndexSnapshot(ctx context.Context, group string) (snapshot.Table, error) {
	return s.get(ctx, snapshot.SegmentView.Name, group, func(ctx context.Context) (snapshot.Table, error) {
		return s.fetcher.FetchSegmentSnapshot(ctx, group)
	})
}

// GetAllIndicesSnapshot returns the all-indices snapshot
func (s *SnapshotService) GetAllIndicesSnapshot(ctx context.Context) (snapshot.Table, error) {
	return s.get(ctx, snapshot.AllIndicesView.Name, "", s.fetcher.FetchAllIndicesSnapshot)
}

// get serves from the cache, then NSE. An empty or failed download falls
// back to the last stored snapshot when there is one.
func (s *SnapshotService) get(ctx context.Context, view, group string, fetch func(context.Context) (snapshot.Table, error)) (snapshot.Table, error) {
	if s.cache != nil {
		t, ok, err := s.cache.Get(ctx, view, group)
		if err != nil {
			zaplogger.Warn("Snapshot cache read failed", zaplogger.Fields{"view": view, "group": group, "error": err.Error()})
		} else if ok {
			return t, nil
		}
	}

	t, fetchErr := fetch(ctx)
	if fetchErr == nil && t.Len() > 0 {
		s.keep(ctx, t)
		return t, nil
	}

	if s.store != nil {
		stored, ok, err := s.store.GetLatestSnapshot(view, group)
		if err != nil {
			zaplogger.Warn("Stored snapshot read failed", zaplogger.Fields{"view": view, "group": group, "error": err.Error()})
		} else if ok {
			zaplogger.Info("Serving stored snapshot", zaplogger.Fields{"view": view, "group": group, "as_of": stored.AsOf})
			return stored, nil
		}
	}
	return t, fetchErr
}

// keep caches and stores a fresh snapshot. Failures are logged only.
func (s *SnapshotService) keep(ctx context.Context, t snapshot.Table) {
	if s.cache != nil {
		if err := s.cache.Set(ctx, t); err != nil {
			zaplogger.Warn("Snapshot cache write failed", zaplogger.Fields{"view": t.View, "group": t.Group, "error": err.Error()})
		}
	}
	if s.store != nil {
		if err := s.store.SaveSnapshot(t); err != nil {
			zaplogger.Error("Failed to store snapshot", zaplogger.Fields{"view": t.View, "group": t.Group, "error": err.Error()})
		}
	}
}

// RefreshSnapshots downloads the all-indices view and every configured
// group, keeping the non-empty ones. It returns how many were kept and the
// joined errors of the rest.
func (s *SnapshotService) RefreshSnapshots(ctx context.Context) (int, error) {
	var (
		mu    sync.Mutex
		kept  int
		errs  []error
		group errgroup.Group
	)
	group.SetLimit(s.workers)

	record := func(t snapshot.Table, err error) {
		if err == nil && t.Len() > 0 {
			s.keep(ctx, t)
		}
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			errs = append(errs, err)
		} else if t.Len() > 0 {
			kept++
		}
	}

	group.Go(func() error {
		record(s.fetcher.FetchAllIndicesSnapshot(ctx))
		return nil
	})
	for _, g := range s.groups {
		g := g
		group.Go(func() error {
			record(s.fetcher.FetchSegmentSnapshot(ctx, g))
			return nil
		})
	}
	_ = group.Wait()

	return kept, errors.Join(errs...)
}
