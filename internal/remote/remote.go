// Package remote provides order sinks that persist a view's row order.
package remote

import (
	"strings"

	"github.com/munkhbileg/openproject/internal/publish"
)

// DefaultAPIBase is the API root used when none is configured.
const DefaultAPIBase = "/api/v3"

// WorkPackageHref returns a formatter that turns a work package id into its
// API href, e.g. /api/v3/work_packages/42.
func WorkPackageHref(apiBase string) publish.IDFormatter {
	base := strings.TrimRight(apiBase, "/")
	if base == "" {
		base = DefaultAPIBase
	}
	return func(id string) string {
		return base + "/work_packages/" + id
	}
}
