// Package service contains the service layer for the Moneybots Charts API
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nsvirk/moneybotscharts/internal/models"
	"github.com/nsvirk/moneybotscharts/internal/nse/directory"
	"github.com/nsvirk/moneybotscharts/internal/nse/historical"
	"github.com/nsvirk/moneybotscharts/pkg/utils/zaplogger"
)

var instrumentsUpdatedAtKey = "INSTRUMENTS_UPDATED_AT"

// InstrumentStore persists instrument masters
type InstrumentStore interface {
	ReplaceSegment(segment string, instruments []models.InstrumentModel) (int64, error)
	GetBySegment(segment string) ([]models.InstrumentModel, error)
}

// StateStore keeps job markers
type StateStore interface {
	GetTime(key string) (time.Time, bool, error)
	SetTime(key string, t time.Time) error
}

// InstrumentService is the service for managing instrument masters
type InstrumentService struct {
	dir   *directory.Directory
	repo  InstrumentStore
	state StateStore
	now   func() time.Time
}

// NewInstrumentService creates a new instrument service
func NewInstrumentService(dir *directory.Directory, repo InstrumentStore, state StateStore) *InstrumentService {
	return &InstrumentService{
		dir:   dir,
		repo:  repo,
		state: state,
		now:   time.Now,
	}
}

// UpdateInstrumentsResult reports a master refresh of one segment
type UpdateInstrumentsResult struct {
	Segment   directory.Segment `json:"segment"`
	Records   int               `json:"records"`
	Skipped   bool              `json:"skipped,omitempty"`
	Error     string            `json:"error,omitempty"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// UpdateInstruments downloads the masters of every segment, installs them in
// the directory and stores them. A segment already refreshed today after
// 08:00 IST and loaded in the directory is skipped unless force is set. One failing segment does not
// stop the others.
func (s *InstrumentService) UpdateInstruments(ctx context.Context, force bool) ([]UpdateInstrumentsResult, error) {
	results := make([]UpdateInstrumentsResult, 0, len(directory.Segments))
	var errs []error

	for _, segment := range directory.Segments {
		key := instrumentsUpdatedAtKey + ":" + string(segment)

		if !force {
			lastUpdatedAt, ok, err := s.state.GetTime(key)
			table, tableErr := s.dir.Table(segment)
			if err == nil && ok && tableErr == nil && !s.isUpdateInstrumentsRequired(lastUpdatedAt) {
				zaplogger.Info("Instruments update not required", zaplogger.Fields{
					"segment": string(segment),
					key:       lastUpdatedAt.Format(time.RFC3339),
				})
				results = append(results, UpdateInstrumentsResult{
					Segment: segment, Records: table.Len(), Skipped: true, FetchedAt: table.FetchedAt,
				})
				continue
			}
		}

		table, err := s.dir.Refresh(ctx, segment)
		if err != nil {
			errs = append(errs, err)
			results = append(results, UpdateInstrumentsResult{Segment: segment, Error: err.Error()})
			continue
		}

		inserted, err := s.repo.ReplaceSegment(string(segment), models.InstrumentModelsFromTable(table))
		if err != nil {
			err = fmt.Errorf("failed to store %s instruments: %w", segment, err)
			errs = append(errs, err)
			results = append(results, UpdateInstrumentsResult{
				Segment: segment, Records: table.Len(), Error: err.Error(), FetchedAt: table.FetchedAt,
			})
			continue
		}

		if err := s.state.SetTime(key, table.FetchedAt); err != nil {
			zaplogger.Warn("Failed to update instruments state", zaplogger.Fields{
				"segment": string(segment),
				"error":   err.Error(),
			})
		}

		zaplogger.Info("Instruments updated", zaplogger.Fields{
			"segment":       string(segment),
			"totalInserted": inserted,
		})
		results = append(results, UpdateInstrumentsResult{
			Segment: segment, Records: table.Len(), FetchedAt: table.FetchedAt,
		})
	}

	return results, errors.Join(errs...)
}

// isUpdateInstrumentsRequired is false only if the last update is today and at or after 08:00 IST
func (s *InstrumentService) isUpdateInstrumentsRequired(lastUpdatedAt time.Time) bool {
	now := s.now().In(historical.IST)
	last := lastUpdatedAt.In(historical.IST)

	if last.Year() != now.Year() || last.YearDay() != now.YearDay() {
		return true
	}
	return last.Hour() < 8
}

// WarmUp loads the stored masters into the directory so lookups work
// before the first download. Segments with nothing stored are left empty.
func (s *InstrumentService) WarmUp() error {
	var errs []error
	for _, segment := range directory.Segments {
		rows, err := s.repo.GetBySegment(string(segment))
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if len(rows) == 0 {
			continue
		}

		instruments := make([]directory.Instrument, 0, len(rows))
		for _, row := range rows {
			instruments = append(instruments, row.Instrument())
		}
		if err := s.dir.Load(segment, instruments, rows[0].FetchedAt); err != nil {
			errs = append(errs, err)
			continue
		}
		zaplogger.Info("Instruments loaded from database", zaplogger.Fields{
			"segment": string(segment),
			"records": len(instruments),
		})
	}
	return errors.Join(errs...)
}

// SearchInstruments returns every instrument of the segment matching query
func (s *InstrumentService) SearchInstruments(params models.SearchInstrumentsParams) ([]directory.Instrument, error) {
	segment, err := directory.ParseSegment(params.Segment)
	if err != nil {
		return nil, err
	}
	return s.dir.Search(params.Query, segment, params.Exact)
}

// ResolveInstrument returns the first instrument of the segment matching query
func (s *InstrumentService) ResolveInstrument(params models.SearchInstrumentsParams) (directory.Instrument, bool, error) {
	segment, err := directory.ParseSegment(params.Segment)
	if err != nil {
		return directory.Instrument{}, false, err
	}
	return s.dir.Resolve(params.Query, segment, params.Exact)
}
