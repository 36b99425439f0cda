// Package reactor owns the listening socket, accepts connections, and
// drives each one through the handshake/fan-out state machine until it
// closes. The original single-threaded epoll loop is re-expressed as one
// goroutine per connection; the registry's mutex stands in for the
// original's single-thread exclusivity.
package reactor

import (
	"net"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/handshake"
	"github.com/ntripcaster/caster/registry"
)

const maxReadSize = 64 * 1024

// Reactor accepts TCP connections on a listener and routes each through
// the handshake parser into a publisher, subscriber, or source-table
// role, backed by a shared registry.Registry.
type Reactor struct {
	Registry *registry.Registry
	Agent    string
	Logger   logrus.FieldLogger

	listener net.Listener
	wg       sync.WaitGroup

	mu        sync.Mutex
	conns     map[string]net.Conn
	closing   chan struct{}
	closeOnce sync.Once
}

// New returns a Reactor driven by reg, identifying itself as agent in the
// source-table Server header.
func New(reg *registry.Registry, agent string, logger logrus.FieldLogger) *Reactor {
	return &Reactor{
		Registry: reg,
		Agent:    agent,
		Logger:   logger,
		conns:    map[string]net.Conn{},
	}
}

// Start binds addr and spawns the accept loop in the background. It
// returns once the listener is bound; callers should call Stop to shut
// down.
func (re *Reactor) Start(addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	re.listener = ln
	re.closing = make(chan struct{})

	re.wg.Add(1)
	go re.acceptLoop()
	return nil
}

// Addr returns the bound listener's address. Only valid after Start.
func (re *Reactor) Addr() net.Addr {
	return re.listener.Addr()
}

func (re *Reactor) acceptLoop() {
	defer re.wg.Done()

	for {
		conn, err := re.listener.Accept()
		if err != nil {
			select {
			case <-re.closing:
				return
			default:
				re.Logger.WithError(err).Warn("accept failed")
				continue
			}
		}

		if err := enableKeepalive(conn); err != nil {
			re.Logger.WithError(err).Debug("could not tune keepalive")
		}

		re.wg.Add(1)
		go func() {
			defer re.wg.Done()
			re.handleConnection(conn)
		}()
	}
}

// Stop closes the listener and every tracked connection, then waits for
// all connection goroutines to exit. It is idempotent and safe to call
// from any goroutine.
func (re *Reactor) Stop() {
	re.closeOnce.Do(func() {
		close(re.closing)
		re.listener.Close()

		re.mu.Lock()
		conns := make([]net.Conn, 0, len(re.conns))
		for _, c := range re.conns {
			conns = append(conns, c)
		}
		re.mu.Unlock()

		for _, c := range conns {
			c.Close()
		}
	})
	re.wg.Wait()
}

func (re *Reactor) track(id string, conn net.Conn) {
	re.mu.Lock()
	defer re.mu.Unlock()
	re.conns[id] = conn
}

func (re *Reactor) untrack(id string) {
	re.mu.Lock()
	defer re.mu.Unlock()
	delete(re.conns, id)
}

// closeByID closes a tracked connection by identity, used to tear down a
// publisher's subscribers on disconnect. It is a no-op if the connection
// already untracked itself.
func (re *Reactor) closeByID(id string) {
	re.mu.Lock()
	conn, ok := re.conns[id]
	re.mu.Unlock()
	if ok {
		conn.Close()
	}
}

func (re *Reactor) handleConnection(conn net.Conn) {
	id := uuid.NewString()
	re.track(id, conn)
	defer re.untrack(id)
	defer conn.Close()

	logger := re.Logger.WithFields(logrus.Fields{
		"connection_id": id,
		"remote_addr":   conn.RemoteAddr().String(),
	})

	buf := make([]byte, maxReadSize)
	n, err := conn.Read(buf)
	if err != nil || n == 0 {
		return
	}

	req, err := handshake.Parse(buf[:n])
	if err != nil {
		if errors.Is(err, handshake.ErrMissingPosition) {
			writeLine(conn, handshake.ResponseBadRequest)
		}
		logger.WithError(err).Debug("malformed handshake request")
		return
	}

	switch req.Kind {
	case handshake.KindSourceTable:
		re.serveSourceTable(conn)
	case handshake.KindPublisher:
		re.servePublisher(id, conn, req, logger)
	case handshake.KindSubscriber:
		re.serveSubscriber(id, conn, req, logger)
	}
}

func writeLine(conn net.Conn, line string) error {
	_, err := conn.Write([]byte(line))
	return err
}
