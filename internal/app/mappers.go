package app

import (
	"math"
	"strconv"
	"strings"

	"nanjing_go/internal/domain"
)

/********** alias registry (seed shape first, favorite shape second) **********/

var locationAliases = map[string][]string{
	"name":               {"name"},
	"address":            {"address"},
	"phone":              {"phone", "phone1"},
	"website":            {"website"},
	"description":        {"description"},
	"opening_time":       {"opening_time", "openingTime"},
	"rating":             {"rating"},
	"suggested_duration": {"suggested_duration", "suggestedDuration"},
	"best_season":        {"best_season", "bestSeason"},
	"picture":            {"picture"},
	"travel_tips":        {"travel_tips", "travelTips"},
	"tips":               {"tips"},
	"is_favorite":        {"isFavorite", "is_favorite", "favorite"},
}

var ticketAliases = map[string][]string{
	"group":   {"groupGuideService", "group_guide_service"},
	"digital": {"digitalTour", "digital_tour"},
	"private": {"privateGuideService", "private_guide_service"},
	"other":   {"other"},
}

/********** tiny helpers **********/

// lookupAny: safe nested lookup with dot paths on maps.
func lookupAny(m map[string]any, path string) any {
	cur := any(m)
	for _, part := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil
		}
		v, ok := obj[part]
		if !ok {
			return nil
		}
		cur = v
	}
	return cur
}

// lookupStr returns string at path or "".
func lookupStr(m map[string]any, path string) string {
	if v := lookupAny(m, path); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

// firstNonEmptyAlias: first non-empty string for a named alias set.
func firstNonEmptyAlias(m map[string]any, aliases map[string][]string, key string) *string {
	for _, p := range aliases[key] {
		if s := lookupStr(m, p); s != "" {
			return &s
		}
	}
	return nil
}

func deref(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func aliasStr(m map[string]any, key string) string {
	return deref(firstNonEmptyAlias(m, locationAliases, key))
}

// getFloatFlexible: number from several paths (float64/int/string like "4,6").
func getFloatFlexible(m map[string]any, paths ...string) *float64 {
	for _, k := range paths {
		switch v := lookupAny(m, k).(type) {
		case float64:
			f := v
			return &f
		case int:
			f := float64(v)
			return &f
		case int64:
			f := float64(v)
			return &f
		case string:
			s := strings.TrimSpace(strings.ReplaceAll(v, ",", "."))
			if s == "" {
				continue
			}
			if f, err := strconv.ParseFloat(s, 64); err == nil {
				return &f
			}
		}
	}
	return nil
}

// firstSliceStrings: first path holding a list; keeps string items only.
func firstSliceStrings(m map[string]any, paths ...string) []string {
	for _, k := range paths {
		if raw, ok := lookupAny(m, k).([]any); ok {
			out := make([]string, 0, len(raw))
			for _, it := range raw {
				if s, ok := it.(string); ok && s != "" {
					out = append(out, s)
				}
			}
			return out
		}
	}
	return []string{}
}

func firstBool(m map[string]any, paths ...string) bool {
	for _, k := range paths {
		if b, ok := lookupAny(m, k).(bool); ok {
			return b
		}
	}
	return false
}

/********** location mapper **********/

// rawBestSeason is the season text the filter matches against.
func rawBestSeason(raw map[string]any) string {
	return aliasStr(raw, "best_season")
}

// rawTips is the unparsed "tips" blob some seed records carry.
func rawTips(raw map[string]any) string {
	return aliasStr(raw, "tips")
}

// mapLocation never fails: absent or mistyped fields fall back to zero values.
func mapLocation(raw map[string]any) domain.Location {
	rating := 0.0
	if f := getFloatFlexible(raw, locationAliases["rating"]...); f != nil {
		rating = clampRating(*f)
	}

	return domain.Location{
		Name:              aliasStr(raw, "name"),
		Address:           aliasStr(raw, "address"),
		Phone:             aliasStr(raw, "phone"),
		Website:           firstNonEmptyAlias(raw, locationAliases, "website"),
		Description:       aliasStr(raw, "description"),
		OpeningTime:       aliasStr(raw, "opening_time"),
		Rating:            rating,
		SuggestedDuration: aliasStr(raw, "suggested_duration"),
		BestSeason:        rawBestSeason(raw),
		Picture:           firstNonEmptyAlias(raw, locationAliases, "picture"),
		Ticket:            mapTicket(raw),
		TravelTips:        firstSliceStrings(raw, locationAliases["travel_tips"]...),
		IsFavorite:        firstBool(raw, locationAliases["is_favorite"]...),
	}
}

// clampRating keeps ratings finite and non-negative; "Infinity" and "NaN"
// parse as floats but cannot be encoded back to JSON.
func clampRating(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}

func mapTicket(raw map[string]any) *domain.TicketInfo {
	t, ok := lookupAny(raw, "ticket").(map[string]any)
	if !ok {
		return nil
	}
	out := domain.TicketInfo{
		GroupGuideService:   firstNonEmptyAlias(t, ticketAliases, "group"),
		DigitalTour:         firstNonEmptyAlias(t, ticketAliases, "digital"),
		PrivateGuideService: firstNonEmptyAlias(t, ticketAliases, "private"),
		Other:               firstNonEmptyAlias(t, ticketAliases, "other"),
	}
	if out.GroupGuideService == nil && out.DigitalTour == nil && out.PrivateGuideService == nil && out.Other == nil {
		return nil
	}
	return &out
}

// decodeRaw turns a stored document into the untyped map the mapper reads.
// Non-object documents yield nil.
func decodeRaw(d domain.Document) map[string]any {
	var raw map[string]any
	if err := d.Decode(&raw); err != nil {
		return nil
	}
	return raw
}
