package validate

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

var (
	reEmail = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	reID    = regexp.MustCompile(`^[A-Za-z0-9_-]{1,64}$`)
)

const (
	MinPasswordLen = 8
	MaxPageSize    = 100
	MaxPage        = 1_000_000
	maxNameLen     = 255
	maxFilterLen   = 100
)

// Email trims and checks the local@domain.tld shape.
func Email(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 254 {
		return "", false
	}
	return s, reEmail.MatchString(s)
}

// Password enforces the minimum length only.
func Password(s string) bool {
	return len(s) >= MinPasswordLen
}

// ID validates a resource identifier (uuid or seeded slug).
func ID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != "" && reID.MatchString(s)
}

// Name validates a required display string such as a title or genre name.
func Name(s string) (string, bool) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > maxNameLen {
		return "", false
	}
	return s, true
}

// Filter trims an optional substring filter and caps its length.
func Filter(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > maxFilterLen {
		s = s[:maxFilterLen]
	}
	return s
}

// Page parses page/limit query values. Invalid or missing values fall back to
// page 1 and defaultSize, then Bounds applies.
func Page(page, limit string, defaultSize int) (int, int) {
	p, err := strconv.Atoi(strings.TrimSpace(page))
	if err != nil {
		p = 1
	}
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil {
		n = defaultSize
	}
	return Bounds(p, n, defaultSize)
}

// Bounds clamps page to [1, MaxPage] and size to [1, MaxPageSize], so
// (page-1)*size always fits an SQL OFFSET.
func Bounds(page, size, defaultSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if page > MaxPage {
		page = MaxPage
	}
	if size < 1 {
		size = defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	return page, size
}

// Year accepts publication years up to next year.
func Year(y int) bool {
	return y >= 0 && y <= time.Now().Year()+1
}
