// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

// Package schema defines the data exchanged between unifimon components:
// flow records decoded from the gateway, polled status of the WAN link,
// devices, clients and alarms, and the overview built from them.
package schema
