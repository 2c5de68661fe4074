// Package query derives the filtered views shared by the report list, the
// dashboard counters and the map.
package query

import (
	"strings"

	"safaisetu/models"
)

// StatusAll is the status filter wildcard.
const StatusAll = "All"

// StatusFilter is either StatusAll (or empty) or an exact status.
type StatusFilter string

func (f StatusFilter) matches(s models.Status) bool {
	if f == "" || f == StatusAll {
		return true
	}
	return models.Status(f) == s
}

// Filter returns the reports whose address contains searchText, ignoring
// case, and whose status matches statusFilter. Blank search text matches
// every report; otherwise the text is matched as given, surrounding spaces
// included. The input order is kept and the input slice is not modified.
func Filter(reports []models.Report, searchText string, statusFilter StatusFilter) []models.Report {
	needle := ""
	if strings.TrimSpace(searchText) != "" {
		needle = strings.ToLower(searchText)
	}
	res := make([]models.Report, 0, len(reports))
	for _, r := range reports {
		if !statusFilter.matches(r.Status) {
			continue
		}
		if needle != "" && !strings.Contains(strings.ToLower(r.Address), needle) {
			continue
		}
		res = append(res, r)
	}
	return res
}

type StatusCounts struct {
	Total               int `json:"total"`
	Pending             int `json:"pending"`
	PendingVerification int `json:"pending_verification"`
	Resolved            int `json:"resolved"`
}

// Count tallies reports per status. Unrecognized statuses only count toward
// Total.
func Count(reports []models.Report) StatusCounts {
	var c StatusCounts
	for _, r := range reports {
		c.Total++
		switch r.Status {
		case models.StatusPending:
			c.Pending++
		case models.StatusPendingVerification:
			c.PendingVerification++
		case models.StatusResolved:
			c.Resolved++
		}
	}
	return c
}
