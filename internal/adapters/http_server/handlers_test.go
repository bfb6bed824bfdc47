package httpserver_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"nanjing_go/internal/adapters/firebase"
	httpserver "nanjing_go/internal/adapters/http_server"
	redisad "nanjing_go/internal/adapters/redis"
	"nanjing_go/internal/app"
	"nanjing_go/internal/domain"
)

type fakeGen struct {
	reply  string
	prompt string
}

func (g *fakeGen) Generate(_ context.Context, prompt string) (string, error) {
	g.prompt = prompt
	return g.reply, nil
}

type env struct {
	ts    *httptest.Server
	mr    *miniredis.Miniredis
	store *redisad.Store
	gen   *fakeGen
}

func newEnv(t *testing.T, withChat bool) *env {
	t.Helper()
	mr := miniredis.RunT(t)
	store := redisad.NewWithClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	ctx := context.Background()

	seed := []map[string]any{
		{"name": "Confucius Temple", "best_season": "Spring, Autumn", "rating": "4.6", "phone1": "025-1",
			"tips": `Getting there:\n- Take Metro Line 3\nArrive early to avoid crowds`},
		{"name": "Xuanwu Lake", "best_season": "Summer", "rating": 4.4},
		{"name": "Purple Mountain", "best_season": "Autumn", "rating": 4.8,
			"ticket": map[string]any{"other": "Free entry"}},
	}
	for i, s := range seed {
		if err := store.Put(ctx, domain.LocationsCollection, strconv.Itoa(i), s); err != nil {
			t.Fatal(err)
		}
	}

	favs := app.NewFavoritesService(store)
	h := &httpserver.Handlers{
		Locations: app.NewLocationService(store, nil),
		Favorites: favs,
		Accounts:  app.NewAccountService(store, favs),
		Verifier:  firebase.HeaderVerifier{},
		Now:       func() time.Time { return time.Date(2024, time.October, 3, 0, 0, 0, 0, time.UTC) },
	}
	gen := &fakeGen{reply: "Try **Purple Mountain**\\nin the morning"}
	if withChat {
		h.Chat = app.NewChatService(store, gen, favs)
	}
	srv := httpserver.New()
	srv.MountHandlers(h)
	ts := httptest.NewServer(srv.Mux())
	t.Cleanup(ts.Close)
	return &env{ts: ts, mr: mr, store: store, gen: gen}
}

func (e *env) do(t *testing.T, method, path, body string, hdr map[string]string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, e.ts.URL+path, strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	t.Cleanup(func() { res.Body.Close() })
	return res
}

var mei = map[string]string{"X-User-ID": "u1", "X-User-Email": "mei@example.com"}

func decode[T any](t *testing.T, res *http.Response) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(res.Body).Decode(&v); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return v
}

func names(ls []domain.Location) string {
	out := make([]string, 0, len(ls))
	for _, l := range ls {
		out = append(out, l.Name)
	}
	return strings.Join(out, ",")
}

func TestLocations_ListFilterAndETag(t *testing.T) {
	e := newEnv(t, false)

	res := e.do(t, http.MethodGet, "/v1/locations", "", nil)
	if res.StatusCode != http.StatusOK {
		t.Fatalf("status %d", res.StatusCode)
	}
	all := decode[[]domain.Location](t, res)
	if names(all) != "Confucius Temple,Xuanwu Lake,Purple Mountain" {
		t.Fatalf("unexpected list %s", names(all))
	}
	if all[0].Rating != 4.6 || all[0].Phone != "025-1" {
		t.Fatalf("seed fields not mapped: %+v", all[0])
	}

	res = e.do(t, http.MethodGet, "/v1/locations?season=current", "", nil)
	if got := decode[[]domain.Location](t, res); names(got) != "Confucius Temple,Purple Mountain" {
		t.Fatalf("october should be autumn, got %s", names(got))
	}

	etag := res.Header.Get("ETag")
	if etag == "" {
		t.Fatalf("missing ETag")
	}
	res = e.do(t, http.MethodGet, "/v1/locations?season=Autumn", "", map[string]string{"If-None-Match": etag})
	if res.StatusCode != http.StatusNotModified {
		t.Fatalf("expected 304, got %d", res.StatusCode)
	}
}

func TestLocations_StaleSnapshotOnFailure(t *testing.T) {
	e := newEnv(t, false)

	_ = decode[[]domain.Location](t, e.do(t, http.MethodGet, "/v1/locations?season=summer", "", nil))

	e.mr.SetError("connection reset")
	res := e.do(t, http.MethodGet, "/v1/locations?season=summer", "", nil)
	if res.StatusCode != http.StatusOK || res.Header.Get("Warning") == "" {
		t.Fatalf("expected stale 200, got %d", res.StatusCode)
	}
	if got := decode[[]domain.Location](t, res); names(got) != "Xuanwu Lake" {
		t.Fatalf("unexpected stale list %s", names(got))
	}

	res = e.do(t, http.MethodGet, "/v1/locations?season=winter", "", nil)
	if res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 without snapshot, got %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/problem+json" {
		t.Fatalf("unexpected content type %q", ct)
	}
}

func TestLocations_DetailAndTips(t *testing.T) {
	e := newEnv(t, false)

	res := e.do(t, http.MethodGet, "/v1/locations/Purple%20Mountain", "", nil)
	loc := decode[domain.Location](t, res)
	if loc.Ticket == nil || loc.Ticket.Other == nil || *loc.Ticket.Other != "Free entry" || loc.IsFavorite {
		t.Fatalf("unexpected detail %+v", loc)
	}

	if res := e.do(t, http.MethodGet, "/v1/locations/Nowhere", "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", res.StatusCode)
	}

	tips := decode[[]domain.TipLine](t, e.do(t, http.MethodGet, "/v1/locations/Confucius%20Temple/tips", "", nil))
	if len(tips) != 3 || tips[0].Kind != domain.TipHeading || tips[1].Kind != domain.TipPoint || tips[2].Kind != domain.TipParagraph {
		t.Fatalf("unexpected tips %+v", tips)
	}
	if res := e.do(t, http.MethodGet, "/v1/locations/Xuanwu%20Lake/tips", "", nil); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for missing tips, got %d", res.StatusCode)
	}
}

func TestMe_RequiresAuth(t *testing.T) {
	e := newEnv(t, false)
	if res := e.do(t, http.MethodGet, "/v1/me", "", nil); res.StatusCode != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", res.StatusCode)
	}
}

func TestMe_ProfileAndFavorites(t *testing.T) {
	e := newEnv(t, false)

	if res := e.do(t, http.MethodPost, "/v1/me", "", mei); res.StatusCode != http.StatusCreated {
		t.Fatalf("register: %d", res.StatusCode)
	}

	res := e.do(t, http.MethodPut, "/v1/me/profile-image", `{"url":"not a url"}`, mei)
	if res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", res.StatusCode)
	}
	if p := decode[map[string]any](t, res); p["errors"] == nil {
		t.Fatalf("expected field errors, got %v", p)
	}
	if res := e.do(t, http.MethodPut, "/v1/me/profile-image", `{"url":"https://cdn.example.com/u1.jpg"}`, mei); res.StatusCode != http.StatusNoContent {
		t.Fatalf("set image: %d", res.StatusCode)
	}

	if res := e.do(t, http.MethodPost, "/v1/me/favorites", `{"name":"Xuanwu Lake"}`, mei); res.StatusCode != http.StatusCreated {
		t.Fatalf("add favorite: %d", res.StatusCode)
	}
	if res := e.do(t, http.MethodPost, "/v1/me/favorites", `{"name":"Xuanwu Lake"}`, mei); res.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409 on duplicate, got %d", res.StatusCode)
	}
	if res := e.do(t, http.MethodPost, "/v1/me/favorites", `{"name":"Atlantis"}`, mei); res.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown location, got %d", res.StatusCode)
	}

	st := decode[map[string]any](t, e.do(t, http.MethodGet, "/v1/me/favorites/Xuanwu%20Lake", "", mei))
	if st["isFavorite"] != true {
		t.Fatalf("unexpected status %v", st)
	}
	loc := decode[domain.Location](t, e.do(t, http.MethodGet, "/v1/locations/Xuanwu%20Lake", "", mei))
	if !loc.IsFavorite {
		t.Fatalf("detail should reflect favorite state")
	}

	p := decode[domain.UserProfile](t, e.do(t, http.MethodGet, "/v1/me", "", mei))
	if p.Username != "mei" || p.ProfileImageURL != "https://cdn.example.com/u1.jpg" || names(p.Favorites) != "Xuanwu Lake" {
		t.Fatalf("unexpected profile %+v", p)
	}

	if res := e.do(t, http.MethodDelete, "/v1/me/favorites/Xuanwu%20Lake", "", mei); res.StatusCode != http.StatusNoContent {
		t.Fatalf("remove: %d", res.StatusCode)
	}
	if res := e.do(t, http.MethodDelete, "/v1/me/favorites/Xuanwu%20Lake", "", mei); res.StatusCode != http.StatusNoContent {
		t.Fatalf("remove of missing entry should be a no-op, got %d", res.StatusCode)
	}
	if got := decode[[]domain.Location](t, e.do(t, http.MethodGet, "/v1/me/favorites", "", mei)); len(got) != 0 {
		t.Fatalf("expected no favorites, got %s", names(got))
	}
}

func TestMe_Chat(t *testing.T) {
	e := newEnv(t, true)

	first := decode[[]domain.Message](t, e.do(t, http.MethodGet, "/v1/me/chat", "", mei))
	if len(first) != 1 || first[0].IsUser || first[0].Text != app.Greeting {
		t.Fatalf("expected greeting, got %+v", first)
	}

	if res := e.do(t, http.MethodPost, "/v1/me/chat", `{"message":""}`, mei); res.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for empty message, got %d", res.StatusCode)
	}

	reply := decode[domain.Message](t, e.do(t, http.MethodPost, "/v1/me/chat", `{"message":"Where to hike?"}`, mei))
	if reply.Text != "Try Purple Mountain\nin the morning" {
		t.Fatalf("unexpected reply %q", reply.Text)
	}
	if !strings.Contains(e.gen.prompt, "Current question: Where to hike?") {
		t.Fatalf("prompt missing question: %s", e.gen.prompt)
	}

	hist := decode[[]domain.Message](t, e.do(t, http.MethodGet, "/v1/me/chat", "", mei))
	if len(hist) != 2 || !hist[0].IsUser || hist[1].IsUser {
		t.Fatalf("unexpected history %+v", hist)
	}

	if res := e.do(t, http.MethodDelete, "/v1/me/chat", "", mei); res.StatusCode != http.StatusNoContent {
		t.Fatalf("reset: %d", res.StatusCode)
	}
	if hist := decode[[]domain.Message](t, e.do(t, http.MethodGet, "/v1/me/chat", "", mei)); len(hist) != 1 || hist[0].Text != app.Greeting {
		t.Fatalf("expected greeting after reset, got %+v", hist)
	}
}

func TestMe_ChatDisabled(t *testing.T) {
	e := newEnv(t, false)
	if res := e.do(t, http.MethodPost, "/v1/me/chat", `{"message":"hi"}`, mei); res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected 503, got %d", res.StatusCode)
	}
}

func TestLocations_MalformedRatingKeepsCatalogServable(t *testing.T) {
	e := newEnv(t, false)
	if err := e.store.Put(context.Background(), domain.LocationsCollection, "3", map[string]any{"name": "Broken", "rating": "Infinity"}); err != nil {
		t.Fatal(err)
	}

	res := e.do(t, http.MethodGet, "/v1/locations", "", nil)
	if res.StatusCode != http.StatusOK || res.Header.Get("ETag") == "" {
		t.Fatalf("status %d etag %q", res.StatusCode, res.Header.Get("ETag"))
	}
	got := decode[[]domain.Location](t, res)
	if len(got) != 4 || got[3].Name != "Broken" || got[3].Rating != 0 {
		t.Fatalf("unexpected list %+v", got)
	}
}

func TestLocations_NameDecodedOnce(t *testing.T) {
	e := newEnv(t, false)
	ctx := context.Background()
	_ = e.store.Put(ctx, domain.LocationsCollection, "3", map[string]any{"name": "100%41"})
	_ = e.store.Put(ctx, domain.LocationsCollection, "4", map[string]any{"name": "Gate A/B"})

	loc := decode[domain.Location](t, e.do(t, http.MethodGet, "/v1/locations/100%2541", "", nil))
	if loc.Name != "100%41" {
		t.Fatalf("literal percent sequence was decoded twice: %q", loc.Name)
	}

	loc = decode[domain.Location](t, e.do(t, http.MethodGet, "/v1/locations/Gate%20A%2FB", "", nil))
	if loc.Name != "Gate A/B" {
		t.Fatalf("encoded slash not decoded: %q", loc.Name)
	}
}
