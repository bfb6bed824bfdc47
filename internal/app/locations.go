package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"nanjing_go/internal/domain"
)

// AllKey is the feed key for the unfiltered list.
const AllKey = "all"

type LocationService struct {
	store domain.DocumentStore
	feed  *Feed
	seq   atomic.Uint64
}

func NewLocationService(s domain.DocumentStore, f *Feed) *LocationService {
	if f == nil {
		f = NewFeed()
	}
	return &LocationService{store: s, feed: f}
}

func (s *LocationService) Feed() *Feed { return s.feed }

// FeedKey is the key a season query publishes under.
func FeedKey(season string) string {
	if season == "" {
		return AllKey
	}
	return "season:" + strings.ToLower(season)
}

func (s *LocationService) LoadAll(ctx context.Context) ([]domain.Location, error) {
	return s.load(ctx, AllKey, func(map[string]any) bool { return true })
}

// LoadBySeason keeps records whose raw best-season text contains season,
// ignoring case. Unknown seasons simply match nothing.
func (s *LocationService) LoadBySeason(ctx context.Context, season string) ([]domain.Location, error) {
	needle := strings.ToLower(season)
	return s.load(ctx, FeedKey(season), func(raw map[string]any) bool {
		return strings.Contains(strings.ToLower(rawBestSeason(raw)), needle)
	})
}

// Snapshot is the last list published for season ("" for all).
func (s *LocationService) Snapshot(season string) ([]domain.Location, bool) {
	return s.feed.Latest(FeedKey(season))
}

func (s *LocationService) load(ctx context.Context, key string, keep func(map[string]any) bool) ([]domain.Location, error) {
	seq := s.seq.Add(1)
	docs, err := s.store.List(ctx, domain.LocationsCollection)
	if err != nil {
		// observers keep the previous snapshot
		log.Error().Err(err).Str("context", "LocationService.load").Str("key", key).Msg("failed to load locations")
		return nil, fmt.Errorf("load locations: %w", remote(err))
	}

	out := make([]domain.Location, 0, len(docs))
	for _, d := range docs {
		raw := decodeRaw(d)
		if raw == nil || !keep(raw) {
			continue
		}
		out = append(out, mapLocation(raw))
	}
	s.feed.Publish(key, seq, out)
	log.Debug().Str("key", key).Int("count", len(out)).Msg("locations published")
	return out, nil
}

// FindByName returns the first record carrying exactly this name.
func (s *LocationService) FindByName(ctx context.Context, name string) (domain.Location, error) {
	raw, err := s.findRaw(ctx, name)
	if err != nil {
		return domain.Location{}, err
	}
	return mapLocation(raw), nil
}

// Tips parses the free-form tips text stored on the named location.
func (s *LocationService) Tips(ctx context.Context, name string) ([]domain.TipLine, error) {
	raw, err := s.findRaw(ctx, name)
	if err != nil {
		return nil, err
	}
	lines := ParseTips(rawTips(raw))
	if len(lines) == 0 {
		return nil, fmt.Errorf("tips for %q: %w", name, domain.ErrNotFound)
	}
	return lines, nil
}

func (s *LocationService) findRaw(ctx context.Context, name string) (map[string]any, error) {
	if name == "" {
		return nil, fmt.Errorf("location name: %w", domain.ErrInvalidArgument)
	}
	docs, err := s.store.List(ctx, domain.LocationsCollection)
	if err != nil {
		return nil, fmt.Errorf("find location: %w", remote(err))
	}
	for _, d := range docs {
		if raw := decodeRaw(d); raw != nil && aliasStr(raw, "name") == name {
			return raw, nil
		}
	}
	return nil, fmt.Errorf("location %q: %w", name, domain.ErrNotFound)
}

// Watch reloads the season query every interval until ctx is done, keeping
// the feed fresh the way a live listener would.
func (s *LocationService) Watch(ctx context.Context, interval time.Duration, season string) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		_, _ = s.LoadBySeason(ctx, season)
		select {
		case <-ctx.Done():
			return
		case <-t.C:
		}
	}
}

// CurrentSeason maps the month of t to the season names the data uses.
func CurrentSeason(t time.Time) string {
	switch t.Month() {
	case time.March, time.April, time.May:
		return "Spring"
	case time.June, time.July, time.August:
		return "Summer"
	case time.September, time.October, time.November:
		return "Autumn"
	default:
		return "Winter"
	}
}

// remote tags store failures that are not already classified.
func remote(err error) error {
	if err == nil {
		return nil
	}
	if isDomainErr(err) {
		return err
	}
	return fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
}

func isDomainErr(err error) bool {
	for _, target := range []error{
		domain.ErrRemoteUnavailable, domain.ErrNotFound, domain.ErrAlreadyExists,
		domain.ErrInvalidArgument, domain.ErrUnauthenticated,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
