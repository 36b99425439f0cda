package reactor

import (
	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/registry"
)

// Forward fans payload out to every subscriber currently attached to the
// mount owned by publisherID. Drops are expected under load and are never
// fatal to the subscriber connection; only the subscriber's own read loop
// decides when to detach.
func Forward(reg *registry.Registry, publisherID string, payload []byte, logger logrus.FieldLogger) {
	if len(payload) == 0 {
		return
	}
	for _, sink := range reg.Subscribers(publisherID) {
		if !sink.Send(payload) {
			logger.Debug("dropped chunk for slow subscriber")
		}
	}
}
