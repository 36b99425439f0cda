// Package client is a minimal NTRIP client for exercising a caster end to
// end: it speaks the same POST/GET handshake the reactor package parses,
// over a raw net.Conn rather than net/http, since the wire format here is
// a single buffered read/response rather than a real HTTP transaction.
package client

import (
	"bufio"
	"fmt"
	"net"
	"time"

	"github.com/pkg/errors"

	"github.com/ntripcaster/caster/codec"
)

// ErrUnexpectedResponse is returned when a handshake's status line isn't
// one of the expected OK variants.
var ErrUnexpectedResponse = errors.New("unexpected response from caster")

const dialTimeout = 10 * time.Second

// Publisher is a connected base-station session: Write sends raw
// correction bytes to the caster for fan-out to subscribers.
type Publisher struct {
	conn net.Conn
}

// DialPublisher registers as the publisher of mount, authenticating with
// username/password and advertising itself with str (a full "STR;..."
// source-table line; pass "" to omit Ntrip-STR entirely).
func DialPublisher(addr, mount, username, password, str string) (*Publisher, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "dialing caster")
	}

	req := fmt.Sprintf("POST /%s HTTP/1.1\r\nAuthorization: Basic %s\r\n",
		mount, codec.Base64Encode([]byte(username+":"+password)))
	if str != "" {
		req += "Ntrip-STR: " + str + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "writing publisher handshake")
	}

	if _, err := expectOK(bufio.NewReader(conn)); err != nil {
		conn.Close()
		return nil, err
	}

	return &Publisher{conn: conn}, nil
}

// Write forwards raw correction data to the caster for broadcast to every
// subscriber attached to this publisher's mount.
func (p *Publisher) Write(data []byte) (int, error) {
	return p.conn.Write(data)
}

// Close ends the publisher session, which tears down the mount and
// disconnects every attached subscriber.
func (p *Publisher) Close() error {
	return p.conn.Close()
}

// Subscriber is a connected rover session: Read receives correction bytes
// forwarded from the mount's publisher.
type Subscriber struct {
	conn   net.Conn
	reader *bufio.Reader
}

// DialSubscriber attaches to mount (or "auto", which requires pos). An
// empty username/password sends no Authorization header, matching an
// anonymous rover.
func DialSubscriber(addr, mount, username, password string, pos *codec.Position) (*Subscriber, error) {
	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return nil, errors.Wrap(err, "dialing caster")
	}

	req := fmt.Sprintf("GET /%s HTTP/1.1\r\n", mount)
	if username != "" || password != "" {
		req += "Authorization: Basic " + codec.Base64Encode([]byte(username+":"+password)) + "\r\n"
	}
	if pos != nil {
		req += fmt.Sprintf("Position: %f,%f\r\n", pos.Latitude, pos.Longitude)
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "writing subscriber handshake")
	}

	reader := bufio.NewReader(conn)
	if _, err := expectOK(reader); err != nil {
		conn.Close()
		return nil, err
	}

	return &Subscriber{conn: conn, reader: reader}, nil
}

// Read returns the next chunk of correction data forwarded by the caster.
func (s *Subscriber) Read(buf []byte) (int, error) {
	return s.reader.Read(buf)
}

// ReportPosition sends an advisory GGA position update upstream. The
// caster logs it but never migrates the subscriber to a different mount.
func (s *Subscriber) ReportPosition(pos codec.Position, altitude float64, now time.Time) error {
	_, err := s.conn.Write([]byte(GenerateGGA(pos, altitude, now)))
	return err
}

// Close ends the subscriber session.
func (s *Subscriber) Close() error {
	return s.conn.Close()
}

func expectOK(reader *bufio.Reader) (string, error) {
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", errors.Wrap(err, "reading handshake response")
	}
	switch line {
	case "HTTP/1.1 200 OK\r\n", "ICY 200 OK\r\n":
		return line, nil
	default:
		return "", errors.Wrapf(ErrUnexpectedResponse, "%q", line)
	}
}
