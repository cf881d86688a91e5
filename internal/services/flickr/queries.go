package flickr

import (
	"fmt"
	"strconv"
	"strings"
)

// SearchQueries returns the query cascade for a show, most specific first,
// with empty and duplicate entries removed.
func SearchQueries(artist, venue string, year int) []string {
	artist = strings.Join(strings.Fields(artist), " ")
	venue = strings.Join(strings.Fields(venue), " ")
	yearText := ""
	decade := ""
	if year > 0 {
		yearText = strconv.Itoa(year)
		decade = fmt.Sprintf("%ds", year/10*10)
	}

	candidates := [][]string{
		{artist, venue, yearText},
		{venue, yearText},
		{artist, yearText},
	}
	if artist != "" {
		if decade != "" {
			candidates = append(candidates, []string{artist, "concert", decade})
		}
		candidates = append(candidates, []string{artist, "live"})
	}

	seen := make(map[string]struct{}, len(candidates))
	queries := make([]string, 0, len(candidates))
	for _, parts := range candidates {
		query := joinNonEmpty(parts)
		if query == "" || query == yearText {
			continue
		}
		folded := strings.ToLower(query)
		if _, ok := seen[folded]; ok {
			continue
		}
		seen[folded] = struct{}{}
		queries = append(queries, query)
	}
	return queries
}

func joinNonEmpty(parts []string) string {
	kept := parts[:0:0]
	for _, part := range parts {
		if part != "" {
			kept = append(kept, part)
		}
	}
	return strings.Join(kept, " ")
}
