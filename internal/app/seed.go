package app

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/semaphore"

	"nanjing_go/internal/domain"
)

// SeedService uploads raw location records under locations/{index}.
type SeedService struct {
	store   domain.DocumentStore
	workers int
}

type SeedResult struct {
	Written int
	Skipped int
	Failed  int
}

func NewSeedService(s domain.DocumentStore, workers int) *SeedService {
	if workers <= 0 {
		workers = 1
	}
	return &SeedService{store: s, workers: workers}
}

// ReadSeed decodes a JSON array of location objects.
func ReadSeed(r io.Reader) ([]map[string]any, error) {
	var records []map[string]any
	if err := json.NewDecoder(r).Decode(&records); err != nil {
		return nil, fmt.Errorf("decode seed: %w", err)
	}
	return records, nil
}

// Seed writes record i at key start+i. Records without a name are skipped;
// a failed write is logged and counted, the rest still go through.
func (s *SeedService) Seed(ctx context.Context, records []map[string]any, start int) (SeedResult, error) {
	if start < 0 {
		return SeedResult{}, fmt.Errorf("seed start index %d: %w", start, domain.ErrInvalidArgument)
	}
	var written, skipped, failed atomic.Int64
	sem := semaphore.NewWeighted(int64(s.workers))
	var wg sync.WaitGroup

	for i, rec := range records {
		if aliasStr(rec, "name") == "" {
			log.Warn().Int("index", i).Msg("seed record without a name skipped")
			skipped.Add(1)
			continue
		}
		// acquire before launching the goroutine; release inside it
		if err := sem.Acquire(ctx, 1); err != nil {
			wg.Wait()
			return s.result(&written, &skipped, &failed), err
		}
		wg.Add(1)
		go func(key string, rec map[string]any) {
			defer wg.Done()
			defer sem.Release(1)

			if err := s.store.Put(ctx, domain.LocationsCollection, key, rec); err != nil {
				log.Warn().Str("key", key).Err(err).Msg("seed write failed")
				failed.Add(1)
				return
			}
			log.Debug().Str("key", key).Str("name", aliasStr(rec, "name")).Msg("seed ok")
			written.Add(1)
		}(strconv.Itoa(start+i), rec)
	}
	wg.Wait()
	return s.result(&written, &skipped, &failed), nil
}

func (s *SeedService) result(w, sk, f *atomic.Int64) SeedResult {
	return SeedResult{Written: int(w.Load()), Skipped: int(sk.Load()), Failed: int(f.Load())}
}
