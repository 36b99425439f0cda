// Package monitor exposes a read-only JSON view of the caster's live
// mount-point table for dashboards and health checks. It never accepts
// writes: mounts are created and destroyed only by live publisher
// connections, never by an administrator.
package monitor

import (
	"encoding/json"
	"net"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/ntripcaster/caster/codec"
	"github.com/ntripcaster/caster/registry"
)

// Server is the read-only status API.
type Server struct {
	http.Server

	listener net.Listener
	registry *registry.Registry
	agent    string
	logger   logrus.FieldLogger
}

// NewServer builds a monitor Server over reg, listening at addr once
// started. agent is reported as the Server header on the /sourcetable
// endpoint, matching the caster's own NTRIP advertisement identity.
func NewServer(addr string, reg *registry.Registry, agent string, logger logrus.FieldLogger) *Server {
	server := &Server{
		Server: http.Server{
			Addr:         addr,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		registry: reg,
		agent:    agent,
		logger:   logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /mounts", server.handleListMounts)
	mux.HandleFunc("GET /mounts/{name}", server.handleGetMount)
	mux.HandleFunc("GET /sourcetable", server.handleSourceTable)
	server.Handler = mux

	return server
}

// Start binds the configured address and serves in the background. When
// Addr requests an ephemeral port, BoundAddr reports the one the kernel
// assigned.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return err
	}
	s.listener = ln

	go func() {
		if err := s.Serve(ln); err != nil && err != http.ErrServerClosed {
			s.logger.WithError(err).Error("monitor server stopped")
		}
	}()
	return nil
}

// BoundAddr returns the listening address. Only valid after Start.
func (s *Server) BoundAddr() net.Addr {
	return s.listener.Addr()
}

func (s *Server) handleListMounts(w http.ResponseWriter, r *http.Request) {
	mounts := s.registry.Mounts()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mounts); err != nil {
		s.logger.WithError(err).Error("failed to encode mount list")
	}
}

func (s *Server) handleGetMount(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("name")

	mount, ok := s.registry.Mount(name)
	if !ok {
		http.Error(w, "mount not found", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(mount); err != nil {
		s.logger.WithError(err).Error("failed to encode mount")
	}
}

func (s *Server) handleSourceTable(w http.ResponseWriter, r *http.Request) {
	table := codec.FormatSourceTable(s.agent, s.registry.SourceTableText(), time.Now())

	w.Header().Set("Content-Type", "text/plain")
	if _, err := w.Write([]byte(table)); err != nil {
		s.logger.WithError(err).Error("failed to write source table")
	}
}
