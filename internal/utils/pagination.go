// Package utils provides small helpers for query parsing and paging that are
// shared by the handler and service layers.
package utils

import (
	"math"
	"strconv"
	"strings"
)

// AtoiDefault parses s as a base-10 int. Empty or malformed input (including
// overflow) yields def. Surrounding whitespace is ignored.
func AtoiDefault(s string, def int) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return def
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return def
}

// IntInRange parses s like AtoiDefault and bounds the result to [lo, hi].
//
//	utils.IntInRange("500", 20, 1, 100) // 100
//	utils.IntInRange("", 20, 1, 100)    // 20
func IntInRange(s string, def, lo, hi int) int {
	return min(max(AtoiDefault(s, def), lo), hi)
}

// Offset returns the row offset of a 1-based page. Pages below 1 are treated
// as the first page and the result never overflows.
func Offset(page, pageSize int) int {
	if page < 1 || pageSize <= 0 {
		return 0
	}
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}
