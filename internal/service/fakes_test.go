package service

import (
	"context"
	"sync"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/internal/nse/snapshot"
)

type fakeInstrumentStore struct {
	stored   map[string][]models.InstrumentModel
	replaced []string
	err      error
}

func newFakeInstrumentStore() *fakeInstrumentStore {
	return &fakeInstrumentStore{stored: map[string][]models.InstrumentModel{}}
}

func (f *fakeInstrumentStore) ReplaceSegment(segment string, instruments []models.InstrumentModel) (int64, error) {
	if f.err != nil {
		return 0, f.err
	}
	f.replaced = append(f.replaced, segment)
	f.stored[segment] = instruments
	return int64(len(instruments)), nil
}

func (f *fakeInstrumentStore) GetBySegment(segment string) ([]models.InstrumentModel, error) {
	return f.stored[segment], f.err
}

type fakeState struct {
	times map[string]time.Time
}

func newFakeState() *fakeState {
	return &fakeState{times: map[string]time.Time{}}
}

func (f *fakeState) GetTime(key string) (time.Time, bool, error) {
	t, ok := f.times[key]
	return t, ok, nil
}

func (f *fakeState) SetTime(key string, t time.Time) error {
	f.times[key] = t
	return nil
}

type fakeFetcher struct {
	mu       sync.Mutex
	tables   map[string]snapshot.Table
	errs     map[string]error
	requests []string
}

func (f *fakeFetcher) fetch(key string) (snapshot.Table, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, key)
	return f.tables[key], f.errs[key]
}

func (f *fakeFetcher) FetchSegmentSnapshot(_ context.Context, groupKey string) (snapshot.Table, error) {
	return f.fetch(groupKey)
}

func (f *fakeFetcher) FetchAllIndicesSnapshot(context.Context) (snapshot.Table, error) {
	return f.fetch("")
}

type fakeSnapshotStore struct {
	mu     sync.Mutex
	saved  []snapshot.Table
	latest map[string]snapshot.Table
}

func (f *fakeSnapshotStore) SaveSnapshot(t snapshot.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, t)
	return nil
}

func (f *fakeSnapshotStore) GetLatestSnapshot(view, group string) (snapshot.Table, bool, error) {
	t, ok := f.latest[view+"|"+group]
	return t, ok, nil
}

type fakeCache struct {
	mu     sync.Mutex
	tables map[string]snapshot.Table
}

func (f *fakeCache) Get(_ context.Context, view, group string) (snapshot.Table, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.tables[view+"|"+group]
	return t, ok, nil
}

func (f *fakeCache) Set(_ context.Context, t snapshot.Table) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.tables == nil {
		f.tables = map[string]snapshot.Table{}
	}
	f.tables[t.View+"|"+t.Group] = t
	return nil
}

type fakeHistorical struct {
	series historical.Series
	err    error
	got    historical.Request
	calls  int
}

func (f *fakeHistorical) Historical(_ context.Context, req historical.Request) (historical.Series, error) {
	f.calls++
	f.got = req
	return f.series, f.err
}

type fakeBars struct {
	upserted []models.BarModel
	stored   []models.BarModel
	query    []any
}

func (f *fakeBars) UpsertBars(bars []models.BarModel) (int64, error) {
	f.upserted = append(f.upserted, bars...)
	return int64(len(bars)), nil
}

func (f *fakeBars) GetBars(segment, symbol, interval string, from, to int64) ([]models.BarModel, error) {
	f.query = []any{segment, symbol, interval, from, to}
	return f.stored, nil
}
