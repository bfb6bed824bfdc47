package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"nanjing_go/internal/app"
	"nanjing_go/internal/domain"
)

type Handlers struct {
	Locations *app.LocationService
	Favorites *app.FavoritesService
	Accounts  *app.AccountService
	Chat      *app.ChatService // nil when no model is configured
	Verifier  domain.IdentityVerifier
	Now       func() time.Time
}

type problem struct {
	Type   string            `json:"type"`
	Title  string            `json:"title"`
	Status int               `json:"status"`
	Detail string            `json:"detail,omitempty"`
	Errors map[string]string `json:"errors,omitempty"`
}

type profileImageRequest struct {
	URL string `json:"url" validate:"required,http_url"`
}

type favoriteRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type chatRequest struct {
	Message string `json:"message" validate:"required,max=4000"`
}

type favoriteStatus struct {
	Name       string `json:"name"`
	IsFavorite bool   `json:"isFavorite"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })

	s.mux.Route("/v1/locations", func(r chi.Router) {
		r.Use(OptionalAuth(h.Verifier))
		r.Get("/", h.listLocations)
		r.Get("/{name}", h.getLocation)
		r.Get("/{name}/tips", h.getTips)
	})

	s.mux.Route("/v1/me", func(r chi.Router) {
		r.Use(Auth(h.Verifier))
		r.Get("/", h.getProfile)
		r.Post("/", h.register)
		r.Put("/profile-image", h.setProfileImage)

		r.Get("/favorites", h.listFavorites)
		r.Post("/favorites", h.addFavorite)
		r.Get("/favorites/{name}", h.favoriteStatus)
		r.Delete("/favorites/{name}", h.removeFavorite)

		r.Get("/chat", h.transcript)
		r.Post("/chat", h.ask)
		r.Delete("/chat", h.resetChat)
	})
}

func (h *Handlers) now() time.Time {
	if h.Now != nil {
		return h.Now()
	}
	return time.Now()
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	writeProblemBody(w, problem{Type: "about:blank", Title: title, Status: status, Detail: detail})
}

func writeProblemBody(w http.ResponseWriter, p problem) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(p.Status)
	if err := json.NewEncoder(w).Encode(p); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// writeError maps domain errors onto HTTP statuses.
func writeError(w http.ResponseWriter, err error) {
	var fe fieldErrors
	switch {
	case errors.As(err, &fe):
		writeProblemBody(w, problem{Type: "about:blank", Title: "Validation failed", Status: http.StatusBadRequest, Errors: fe})
	case errors.Is(err, domain.ErrInvalidArgument):
		writeProblem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, domain.ErrUnauthenticated):
		writeProblem(w, http.StatusUnauthorized, "Unauthorized", "a valid sign-in token is required")
	case errors.Is(err, domain.ErrNotFound):
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrAlreadyExists):
		writeProblem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, domain.ErrRemoteUnavailable):
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "the data service is unreachable, try again later")
	default:
		log.Error().Err(err).Msg("unhandled error")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("marshal response: %w", err)
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body, nil
}

// writeJSON marshals before touching the status so an unencodable value
// still gets a proper error response.
func writeJSON(w http.ResponseWriter, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		writeError(w, fmt.Errorf("marshal response: %w", err))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(append(body, '\n')); err != nil {
		log.Error().Err(err).Msg("failed to write JSON body")
	}
}

// writeCached answers 304 when the client already holds this representation.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body, err := calcETagAndBody(v)
	if err != nil {
		writeError(w, err)
		return
	}
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.Header().Set("ETag", etag)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("ETag", etag)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Msg("failed to write body")
	}
}

// nameParam returns the decoded {name}. chi matches on RawPath when the
// request needed one (e.g. an encoded "/"), and on the already decoded Path
// otherwise, so only the former is unescaped here.
func nameParam(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if r.URL.RawPath == "" {
		return raw
	}
	if v, err := url.PathUnescape(raw); err == nil {
		return v
	}
	return raw
}

func mustIdentity(r *http.Request) domain.Identity {
	id, _ := IdentityFrom(r.Context())
	return id
}

// ---- locations ----

func (h *Handlers) listLocations(w http.ResponseWriter, r *http.Request) {
	season := strings.TrimSpace(r.URL.Query().Get("season"))
	if strings.EqualFold(season, "current") {
		season = app.CurrentSeason(h.now())
	}

	var (
		list []domain.Location
		err  error
	)
	if season == "" {
		list, err = h.Locations.LoadAll(r.Context())
	} else {
		list, err = h.Locations.LoadBySeason(r.Context(), season)
	}
	if err != nil {
		stale, ok := h.Locations.Snapshot(season)
		if !ok {
			writeError(w, err)
			return
		}
		w.Header().Set("Warning", `110 - "Response is Stale"`)
		list = stale
	}
	writeCached(w, r, list)
}

func (h *Handlers) getLocation(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	loc, err := h.Locations.FindByName(r.Context(), name)
	if err != nil {
		writeError(w, err)
		return
	}
	if id, ok := IdentityFrom(r.Context()); ok {
		loc.IsFavorite = h.Favorites.IsFavorite(r.Context(), id.UserID, name)
	}
	writeCached(w, r, loc)
}

func (h *Handlers) getTips(w http.ResponseWriter, r *http.Request) {
	tips, err := h.Locations.Tips(r.Context(), nameParam(r))
	if err != nil {
		writeError(w, err)
		return
	}
	writeCached(w, r, tips)
}

// ---- account ----

func (h *Handlers) getProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.Accounts.Profile(r.Context(), mustIdentity(r)))
}

func (h *Handlers) register(w http.ResponseWriter, r *http.Request) {
	id := mustIdentity(r)
	if err := h.Accounts.Register(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.Accounts.Profile(r.Context(), id))
}

func (h *Handlers) setProfileImage(w http.ResponseWriter, r *http.Request) {
	var req profileImageRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	if err := h.Accounts.SetProfileImage(r.Context(), mustIdentity(r).UserID, req.URL); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- favorites ----

func (h *Handlers) listFavorites(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, h.Favorites.List(r.Context(), mustIdentity(r).UserID))
}

func (h *Handlers) addFavorite(w http.ResponseWriter, r *http.Request) {
	var req favoriteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	loc, err := h.Locations.FindByName(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.Favorites.Add(r.Context(), mustIdentity(r).UserID, loc); err != nil {
		writeError(w, err)
		return
	}
	loc.IsFavorite = true
	writeJSON(w, http.StatusCreated, loc)
}

func (h *Handlers) favoriteStatus(w http.ResponseWriter, r *http.Request) {
	name := nameParam(r)
	writeJSON(w, http.StatusOK, favoriteStatus{
		Name:       name,
		IsFavorite: h.Favorites.IsFavorite(r.Context(), mustIdentity(r).UserID, name),
	})
}

func (h *Handlers) removeFavorite(w http.ResponseWriter, r *http.Request) {
	if err := h.Favorites.Remove(r.Context(), mustIdentity(r).UserID, nameParam(r)); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- chat ----

func (h *Handlers) chatEnabled(w http.ResponseWriter) bool {
	if h.Chat == nil {
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "the travel assistant is not configured")
		return false
	}
	return true
}

func (h *Handlers) transcript(w http.ResponseWriter, r *http.Request) {
	if !h.chatEnabled(w) {
		return
	}
	writeJSON(w, http.StatusOK, h.Chat.Transcript(r.Context(), mustIdentity(r).UserID))
}

func (h *Handlers) ask(w http.ResponseWriter, r *http.Request) {
	if !h.chatEnabled(w) {
		return
	}
	var req chatRequest
	if err := decodeJSON(r, &req); err != nil {
		writeDecodeError(w, err)
		return
	}
	reply, err := h.Chat.Ask(r.Context(), mustIdentity(r).UserID, req.Message)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reply)
}

func (h *Handlers) resetChat(w http.ResponseWriter, r *http.Request) {
	if !h.chatEnabled(w) {
		return
	}
	if err := h.Chat.Reset(r.Context(), mustIdentity(r).UserID); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeDecodeError(w http.ResponseWriter, err error) {
	var fe fieldErrors
	if errors.As(err, &fe) {
		writeError(w, err)
		return
	}
	writeProblem(w, http.StatusBadRequest, "Invalid request format", err.Error())
}
