package reactor

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// Keepalive tuning matching the original AcceptNewConnect: enable
// keepalive, probe after 30s idle, every 5s thereafter, up to 3 probes.
const (
	keepaliveIdle     = 30 * time.Second
	keepaliveInterval = 5 * time.Second
	keepaliveCount    = 3
)

// enableKeepalive sets SO_KEEPALIVE plus the idle/interval/count triple.
// net.TCPConn.SetKeepAlive alone only toggles SO_KEEPALIVE; the triple
// requires the raw TCP_KEEPIDLE/TCP_KEEPINTVL/TCP_KEEPCNT socket options,
// reached through SyscallConn the way the original reaches them through
// setsockopt directly.
func enableKeepalive(conn net.Conn) error {
	tcpConn, ok := conn.(*net.TCPConn)
	if !ok {
		return nil
	}
	if err := tcpConn.SetKeepAlive(true); err != nil {
		return errors.Wrap(err, "enabling keepalive")
	}

	rawConn, err := tcpConn.SyscallConn()
	if err != nil {
		return errors.Wrap(err, "obtaining raw connection")
	}

	var sockErr error
	controlErr := rawConn.Control(func(fd uintptr) {
		if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPIDLE, int(keepaliveIdle.Seconds())); sockErr != nil {
			return
		}
		if sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPINTVL, int(keepaliveInterval.Seconds())); sockErr != nil {
			return
		}
		sockErr = unix.SetsockoptInt(int(fd), unix.IPPROTO_TCP, unix.TCP_KEEPCNT, keepaliveCount)
	})
	if controlErr != nil {
		return errors.Wrap(controlErr, "controlling raw connection")
	}
	return errors.Wrap(sockErr, "setting keepalive options")
}
