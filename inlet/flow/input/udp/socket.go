// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package udp

import (
	"net"
	"syscall"

	"golang.org/x/sys/unix"
)

type oobMessage struct {
	Drops uint32
}

// listenConfig configures a listening socket to reuse address and return
// overflows.
var listenConfig = net.ListenConfig{
	Control: func(_, _ string, c syscall.RawConn) error {
		var err error
		c.Control(func(fd uintptr) {
			for _, opt := range udpSocketOptions {
				err = unix.SetsockoptInt(int(fd), unix.SOL_SOCKET, opt, 1)
				if err != nil {
					return
				}
			}
		})
		return err
	},
}
