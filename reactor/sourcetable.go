package reactor

import (
	"net"
	"time"

	"github.com/ntripcaster/caster/codec"
)

func (re *Reactor) serveSourceTable(conn net.Conn) {
	lines := re.Registry.SourceTableText()
	table := codec.FormatSourceTable(re.Agent, lines, time.Now())
	writeLine(conn, table)
}
