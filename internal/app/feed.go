package app

import (
	"sync"

	"nanjing_go/internal/adapters/observability"
	"nanjing_go/internal/domain"
)

// Feed holds the latest published location list per query key and fans it
// out to subscribers. The service is the only writer.
type Feed struct {
	mu     sync.RWMutex
	topics map[string]*topic
}

type topic struct {
	seq     uint64
	has     bool
	latest  []domain.Location
	nextSub int
	subs    map[int]chan []domain.Location
}

func NewFeed() *Feed {
	return &Feed{topics: map[string]*topic{}}
}

func (f *Feed) topic(key string) *topic {
	t, ok := f.topics[key]
	if !ok {
		t = &topic{subs: map[int]chan []domain.Location{}}
		f.topics[key] = t
	}
	return t
}

// Publish replaces the snapshot for key unless a newer request already
// published. It reports whether the snapshot was replaced.
func (f *Feed) Publish(key string, seq uint64, list []domain.Location) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.topic(key)
	if t.has && seq < t.seq {
		observability.ObservePublish("stale")
		return false
	}
	t.seq, t.has = seq, true
	t.latest = copyLocations(list)
	for _, ch := range t.subs {
		offer(ch, copyLocations(list))
	}
	observability.ObservePublish("published")
	return true
}

// Latest returns a copy of the current snapshot for key.
func (f *Feed) Latest(key string) ([]domain.Location, bool) {
	f.mu.RLock()
	defer f.mu.RUnlock()
	t, ok := f.topics[key]
	if !ok || !t.has {
		return nil, false
	}
	return copyLocations(t.latest), true
}

// Subscribe returns a channel that always holds the newest snapshot; the
// current one is delivered immediately when present.
func (f *Feed) Subscribe(key string) (<-chan []domain.Location, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	t := f.topic(key)
	id := t.nextSub
	t.nextSub++
	ch := make(chan []domain.Location, 1)
	t.subs[id] = ch
	if t.has {
		ch <- copyLocations(t.latest)
	}

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			f.mu.Lock()
			delete(t.subs, id)
			f.mu.Unlock()
		})
	}
	return ch, cancel
}

// offer drops whatever the subscriber has not read yet; called under f.mu.
func offer(ch chan []domain.Location, v []domain.Location) {
	select {
	case <-ch:
	default:
	}
	ch <- v
}

// copyLocations clones the pointer fields and tips too, so no reader can
// reach another reader's memory.
func copyLocations(in []domain.Location) []domain.Location {
	out := make([]domain.Location, len(in))
	for i, l := range in {
		l.Website = cloneStr(l.Website)
		l.Picture = cloneStr(l.Picture)
		if l.Ticket != nil {
			t := domain.TicketInfo{
				GroupGuideService:   cloneStr(l.Ticket.GroupGuideService),
				DigitalTour:         cloneStr(l.Ticket.DigitalTour),
				PrivateGuideService: cloneStr(l.Ticket.PrivateGuideService),
				Other:               cloneStr(l.Ticket.Other),
			}
			l.Ticket = &t
		}
		if l.TravelTips != nil {
			l.TravelTips = append([]string(nil), l.TravelTips...)
			if l.TravelTips == nil {
				l.TravelTips = []string{}
			}
		}
		out[i] = l
	}
	return out
}

func cloneStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
