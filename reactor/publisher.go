package reactor

import (
	"net"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/codec"
	"github.com/ntripcaster/caster/handshake"
	"github.com/ntripcaster/caster/registry"
)

func (re *Reactor) servePublisher(id string, conn net.Conn, req *handshake.Request, logger logrus.FieldLogger) {
	var position *codec.Position
	if req.Position != nil {
		position = req.Position
	} else if req.Advertisement != "" {
		if p, err := codec.AdvertisementPosition(req.Advertisement); err == nil {
			position = &p
		}
	}

	creds := registry.Credentials{Username: req.Username, Password: req.Password}
	err := re.Registry.AddMount(req.Mount, creds, position, req.Advertisement, id)
	if err != nil {
		if errors.Is(err, registry.ErrNameInUse) {
			writeLine(conn, handshake.ResponseBadPassword)
		}
		return
	}
	defer re.teardownMount(id, logger)

	if err := writeLine(conn, handshake.ResponsePublisherOK); err != nil {
		return
	}

	logger = logger.WithFields(logrus.Fields{"mount": req.Mount, "role": "publisher"})
	logger.Info("publisher registered")

	Forward(re.Registry, id, req.Trailing, logger)

	buf := make([]byte, maxReadSize)
	for {
		conn.SetReadDeadline(time.Time{})
		n, err := conn.Read(buf)
		if err != nil || n == 0 {
			return
		}
		Forward(re.Registry, id, buf[:n], logger)
	}
}

// teardownMount removes the publisher's mount and closes every subscriber
// still attached to it, mirroring the original's cascade of closing all
// client sockets tied to a source that drops.
func (re *Reactor) teardownMount(publisherID string, logger logrus.FieldLogger) {
	subscriberIDs := re.Registry.RemoveMount(publisherID)
	logger.WithField("subscriber_count", len(subscriberIDs)).Info("publisher disconnected, closing subscribers")
	for _, subID := range subscriberIDs {
		re.closeByID(subID)
	}
}
