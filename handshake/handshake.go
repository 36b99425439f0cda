// Package handshake parses the first buffered read of an accepted
// connection into a classified request: publisher registration,
// subscriber attach, or source-table fetch. It does no socket I/O so it
// can be exercised by tests with plain byte slices.
package handshake

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"

	"github.com/ntripcaster/caster/codec"
)

// Sentinel errors returned by Parse.
var (
	ErrParse              = errors.New("malformed handshake request")
	ErrMissingCredentials = errors.New("missing or empty Basic credentials")
	ErrMissingPosition    = errors.New("auto subscriber requires a position")
)

// Response line literals, reproduced exactly from the external-interfaces
// wire format.
const (
	ResponsePublisherOK        = "HTTP/1.1 200 OK\r\n"
	ResponseBadPassword        = "ERROR - Bad Password\r\n"
	ResponseSubscriberOKv2     = "HTTP/1.1 200 OK\r\n"
	ResponseSubscriberOKv1     = "ICY 200 OK\r\n"
	ResponseBadRequest         = "HTTP/1.1 400 Bad Request\r\n"
	ResponseServiceUnavailable = "HTTP/1.1 503 Service Unavailable\r\n"
	ResponseUnauthorized       = "HTTP/1.1 401 Unauthorized\r\n"
)

// Kind classifies a parsed Request.
type Kind int

const (
	KindSourceTable Kind = iota
	KindPublisher
	KindSubscriber
)

// Request is the outcome of parsing one connection's initial read.
type Request struct {
	Kind Kind

	Mount    string
	Username string
	Password string
	HasAuth  bool

	Position      *codec.Position
	Advertisement string // publisher's verbatim Ntrip-STR line, if any

	Legacy   bool   // HTTP/1.0 subscriber: reply ICY, not HTTP/1.1
	Trailing []byte // bytes after the blank line; publisher payload only
}

// maxRead matches the 64 KiB buffered-read ceiling the reactor enforces
// before handing bytes to Parse.
const maxRead = 64 * 1024

// Parse classifies a single buffered read, extracting credentials and
// optional position metadata per the publisher/subscriber/source-table
// grammars.
func Parse(data []byte) (*Request, error) {
	if len(data) > maxRead {
		data = data[:maxRead]
	}

	head := data
	var trailing []byte
	if i := bytes.Index(data, []byte("\r\n\r\n")); i >= 0 {
		head = data[:i]
		trailing = data[i+4:]
	}

	lines := strings.Split(string(head), "\r\n")
	if len(lines) == 0 || lines[0] == "" {
		return nil, errors.Wrap(ErrParse, "empty request")
	}

	method, path, version, err := parseRequestLine(lines[0])
	if err != nil {
		return nil, err
	}

	switch {
	case method == "POST" && version == "1.1":
		return parsePublisher(path, lines[1:], trailing)
	case method == "GET" && (version == "1.0" || version == "1.1"):
		return parseSubscriber(path, version == "1.0", lines[1:])
	default:
		return nil, errors.Wrapf(ErrParse, "unsupported %s .../%s", method, version)
	}
}

func parseRequestLine(line string) (method, path, version string, err error) {
	fields := strings.Fields(line)
	if len(fields) != 3 {
		return "", "", "", errors.Wrapf(ErrParse, "request line %q", line)
	}

	method = fields[0]
	if method != "GET" && method != "POST" {
		return "", "", "", errors.Wrapf(ErrParse, "method %q", method)
	}
	if !strings.HasPrefix(fields[1], "/") {
		return "", "", "", errors.Wrapf(ErrParse, "path %q", fields[1])
	}
	path = strings.TrimPrefix(fields[1], "/")

	const prefix = "HTTP/"
	if !strings.HasPrefix(fields[2], prefix) {
		return "", "", "", errors.Wrapf(ErrParse, "version %q", fields[2])
	}
	version = strings.TrimPrefix(fields[2], prefix)
	if version != "1.0" && version != "1.1" {
		return "", "", "", errors.Wrapf(ErrParse, "version %q", fields[2])
	}
	return method, path, version, nil
}

func parsePublisher(mount string, headerLines []string, trailing []byte) (*Request, error) {
	if mount == "" {
		return nil, errors.Wrap(ErrParse, "empty mount name in POST")
	}

	req := &Request{Kind: KindPublisher, Mount: mount, Trailing: trailing}

	username, password, hasAuth, err := extractBasicAuth(headerLines)
	if err != nil {
		return nil, err
	}
	if !hasAuth || username == "" || password == "" {
		return nil, errors.Wrap(ErrMissingCredentials, "publisher")
	}
	req.Username, req.Password, req.HasAuth = username, password, true

	if pos, ok := extractPositionHeader(headerLines); ok {
		req.Position = pos
	}

	if str, ok := extractHeader(headerLines, "Ntrip-STR"); ok {
		req.Advertisement = str
		if err := codec.ValidateAdvertisementName(str, mount); err != nil {
			return nil, err
		}
		if req.Position == nil {
			if pos, err := codec.AdvertisementPosition(str); err == nil {
				req.Position = &pos
			}
		}
	}

	return req, nil
}

func parseSubscriber(mount string, legacy bool, headerLines []string) (*Request, error) {
	if mount == "" {
		return &Request{Kind: KindSourceTable}, nil
	}

	req := &Request{Kind: KindSubscriber, Mount: mount, Legacy: legacy}

	username, password, hasAuth, err := extractBasicAuth(headerLines)
	if err != nil {
		return nil, err
	}
	req.Username, req.Password, req.HasAuth = username, password, hasAuth

	if pos, ok := extractPositionHeader(headerLines); ok {
		req.Position = pos
	}

	if mount == "auto" && req.Position == nil {
		return nil, ErrMissingPosition
	}

	return req, nil
}

func extractHeader(lines []string, name string) (string, bool) {
	prefix := name + ":"
	for _, line := range lines {
		if strings.HasPrefix(line, prefix) {
			return strings.TrimSpace(strings.TrimPrefix(line, prefix)), true
		}
	}
	return "", false
}

func extractBasicAuth(lines []string) (username, password string, ok bool, err error) {
	value, found := extractHeader(lines, "Authorization")
	if !found {
		return "", "", false, nil
	}
	const prefix = "Basic "
	if !strings.HasPrefix(value, prefix) {
		return "", "", false, nil
	}

	decoded, decErr := codec.Base64Decode(strings.TrimPrefix(value, prefix))
	if decErr != nil {
		return "", "", false, errors.Wrap(decErr, "decoding Basic credentials")
	}
	parts := strings.SplitN(string(decoded), ":", 2)
	if len(parts) != 2 {
		return "", "", false, errors.New("malformed user:pass in Basic credentials")
	}
	return parts[0], parts[1], true, nil
}

func extractPositionHeader(lines []string) (*codec.Position, bool) {
	value, ok := extractHeader(lines, "Position")
	if !ok {
		return nil, false
	}
	pos, err := codec.ParsePositionHeader(value)
	if err != nil {
		return nil, false
	}
	return &pos, true
}
