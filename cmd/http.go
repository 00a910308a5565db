// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package cmd

import (
	"unifimon/common/httpserver"
	"unifimon/common/reporter"
)

// addCommonHTTPHandlers configures various endpoints common to all
// services. Each endpoint is registered under `/api/v0`.
func addCommonHTTPHandlers(r *reporter.Reporter, httpComponent *httpserver.Component) {
	httpComponent.AddHandler("/api/v0/metrics", r.MetricsHTTPHandler())
	httpComponent.GinRouter.GET("/api/v0/healthcheck", r.HealthcheckHTTPHandler)
	httpComponent.GinRouter.GET("/api/v0/version", versionHandler)
}
