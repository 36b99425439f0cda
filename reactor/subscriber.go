package reactor

import (
	"net"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/codec"
	"github.com/ntripcaster/caster/handshake"
	"github.com/ntripcaster/caster/registry"
)

// subscriberBufferSize bounds how many forwarded chunks a slow subscriber
// can fall behind by before Forward starts dropping for it.
const subscriberBufferSize = 64

const subscriberWriteTimeout = 5 * time.Second

// subscriberSink is the registry.Sink implementation backing a live
// subscriber connection: Forward enqueues without blocking, a dedicated
// writer goroutine drains the queue onto the socket.
type subscriberSink struct {
	ch     chan []byte
	closed chan struct{}
	once   sync.Once
}

func newSubscriberSink() *subscriberSink {
	return &subscriberSink{
		ch:     make(chan []byte, subscriberBufferSize),
		closed: make(chan struct{}),
	}
}

// Send attempts a single non-blocking enqueue. A full buffer reports
// false; the caller (Forward) logs it and moves on without touching the
// subscriber's lifecycle.
func (s *subscriberSink) Send(payload []byte) bool {
	buf := append([]byte(nil), payload...)
	select {
	case s.ch <- buf:
		return true
	default:
		return false
	}
}

func (s *subscriberSink) close() {
	s.once.Do(func() { close(s.closed) })
}

func (s *subscriberSink) writeLoop(conn net.Conn, logger logrus.FieldLogger) {
	for {
		select {
		case data := <-s.ch:
			conn.SetWriteDeadline(time.Now().Add(subscriberWriteTimeout))
			if _, err := conn.Write(data); err != nil {
				logger.WithError(err).Debug("short or failed send to subscriber")
			}
		case <-s.closed:
			return
		}
	}
}

func (re *Reactor) serveSubscriber(id string, conn net.Conn, req *handshake.Request, logger logrus.FieldLogger) {
	name := req.Mount
	creds := registry.Credentials{Username: req.Username, Password: req.Password}

	if name == "auto" {
		// handshake.Parse already guarantees req.Position != nil for auto.
		nearest, ok := re.Registry.Nearest(*req.Position)
		if !ok {
			writeLine(conn, handshake.ResponseServiceUnavailable)
			return
		}
		name = nearest
	} else if _, err := re.Registry.Credentials(name); err != nil {
		if !req.HasAuth {
			re.serveSourceTable(conn)
			return
		}
		writeLine(conn, handshake.ResponseUnauthorized)
		return
	}

	sink := newSubscriberSink()
	if err := re.Registry.AttachSubscriber(name, creds, id, sink); err != nil {
		writeLine(conn, handshake.ResponseUnauthorized)
		return
	}
	defer re.Registry.DetachSubscriber(id)
	defer sink.close()

	response := handshake.ResponseSubscriberOKv2
	if req.Legacy {
		response = handshake.ResponseSubscriberOKv1
	}
	if err := writeLine(conn, response); err != nil {
		return
	}

	logger = logger.WithFields(logrus.Fields{"mount": name, "role": "subscriber"})
	logger.Info("subscriber attached")

	go sink.writeLoop(conn, logger)

	buf := make([]byte, maxReadSize)
	for {
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			return
		}
		handleSubscriberUplink(buf[:n], logger)
	}
}

// handleSubscriberUplink validates and logs an advisory GGA position
// report from a subscriber. It never migrates the subscriber to a
// different mount.
func handleSubscriberUplink(data []byte, logger logrus.FieldLogger) {
	s := string(data)
	if !strings.HasPrefix(s, "$GPGGA,") && !strings.HasPrefix(s, "$GNGGA,") {
		return
	}
	if !codec.GGAChecksumValid(s) {
		return
	}
	pos, err := codec.ParseGGAPosition(s)
	if err != nil {
		return
	}
	logger.WithFields(logrus.Fields{
		"latitude":  pos.Latitude,
		"longitude": pos.Longitude,
	}).Debug("subscriber reported position (advisory)")
}
