package dashboard

import (
	"net/url"
	"sort"
	"strings"

	"nbme-dashboard-go/models"
	"nbme-dashboard-go/query"
)

// MaskKey hides all but the last four characters of an API key.
func MaskKey(key string) string {
	if len(key) <= 4 {
		return strings.Repeat("*", len(key))
	}
	return strings.Repeat("*", len(key)-4) + key[len(key)-4:]
}

func maskParams(params url.Values) map[string]string {
	out := make(map[string]string, len(params))
	for k := range params {
		v := params.Get(k)
		if k == query.ParamAPIKey {
			v = MaskKey(v)
		}
		out[k] = v
	}
	return out
}

func paramNames(params url.Values) []string {
	names := make([]string, 0, len(params))
	for k := range params {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

// columnsOf returns the union of row keys: first-seen order across rows,
// sorted within each row.
func columnsOf(rows []models.Record) []string {
	seen := make(map[string]bool)
	var cols []string
	for _, row := range rows {
		keys := make([]string, 0, len(row))
		for k := range row {
			if !seen[k] {
				keys = append(keys, k)
			}
		}
		sort.Strings(keys)
		for _, k := range keys {
			seen[k] = true
			cols = append(cols, k)
		}
	}
	return cols
}
