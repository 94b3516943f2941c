package tabular

import (
	"regexp"
	"strconv"
	"strings"
)

// Columns maps each known role to the matched header name. An empty string
// means the export has no header for that role.
type Columns struct {
	Title            string
	URL              string
	Rating           string
	Traffic          string
	ReferringDomains string
	PageTraffic      string
	Keywords         string
	Anchor           string
	Nofollow         string
}

// DetectColumns resolves column roles by case-insensitive alias matching.
// Each header is claimed by at most one role; the first header matching a
// role wins.
func DetectColumns(headers []string) Columns {
	var c Columns
	for _, h := range headers {
		hl := strings.ToLower(strings.TrimSpace(h))
		switch {
		case c.Title == "" && (strings.Contains(hl, "referring page title") || hl == "title"):
			c.Title = h
		case c.URL == "" && (strings.Contains(hl, "referring page url") || hl == "url"):
			c.URL = h
		case c.Rating == "" && (strings.Contains(hl, "domain rating") || hl == "dr"):
			c.Rating = h
		case c.Traffic == "" && strings.Contains(hl, "domain traffic"):
			c.Traffic = h
		case c.ReferringDomains == "" && (strings.Contains(hl, "referring domains") || strings.Contains(hl, "ref. domains")):
			c.ReferringDomains = h
		case c.PageTraffic == "" && strings.Contains(hl, "page traffic"):
			c.PageTraffic = h
		case c.Keywords == "" && strings.Contains(hl, "keyword"):
			c.Keywords = h
		case c.Anchor == "" && strings.Contains(hl, "anchor"):
			c.Anchor = h
		case c.Nofollow == "" && strings.Contains(hl, "nofollow"):
			c.Nofollow = h
		}
	}
	return c
}

var metricNumber = regexp.MustCompile(`\d+\.?\d*`)

// ParseMetric extracts the first number from a cell value. Returns nil for
// empty cells and the usual not-available spellings.
func ParseMetric(value string) *float64 {
	v := strings.TrimSpace(value)
	switch strings.ToLower(v) {
	case "", "n/a", "na", "-":
		return nil
	}
	m := metricNumber.FindString(v)
	if m == "" {
		return nil
	}
	f, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return nil
	}
	return &f
}

// ParseNofollow interprets a nofollow cell value.
func ParseNofollow(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "true", "yes", "1", "nofollow":
		return true
	}
	return false
}
