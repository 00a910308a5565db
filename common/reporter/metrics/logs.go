// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package metrics

import (
	"fmt"

	"unifimon/common/reporter/logger"
)

// promHTTPLogger adapts a logger to promhttp.Logger.
type promHTTPLogger struct {
	l logger.Logger
}

// Println logs at debug level.
func (m promHTTPLogger) Println(v ...interface{}) {
	if e := m.l.Debug(); e.Enabled() {
		e.Msg(fmt.Sprint(v...))
	}
}
