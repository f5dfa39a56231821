// Package diag serves the state of the GPIO driver over HTTP.
package diag

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/BertoldVdb/zybo-gpio/gpiodrv"
	"github.com/sirupsen/logrus"
)

// Source is what the status page reports on, normally a *gpiodrv.Driver
type Source interface {
	Stats() []gpiodrv.DeviceStats
	MissedInterrupts() uint64
	Capacity() int
}

// Status is the JSON document served at /status
type Status struct {
	Capacity         int                   `json:"capacity"`
	MissedInterrupts uint64                `json:"missedInterrupts"`
	Devices          []gpiodrv.DeviceStats `json:"devices"`
}

// Server is a runnable HTTP server for the diagnostics pages
type Server struct {
	Source     Source
	ListenPort int
	Logger     *logrus.Entry

	serverLock sync.Mutex
	server     *http.Server
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	status := Status{
		Capacity:         s.Source.Capacity(),
		MissedInterrupts: s.Source.MissedInterrupts(),
		Devices:          s.Source.Stats(),
	}
	if status.Devices == nil {
		status.Devices = []gpiodrv.DeviceStats{}
	}

	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(status); err != nil {
		s.Logger.WithError(err).Warn("Could not send status")
	}
}

// Handler returns the request handler with logging attached
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/status", s.status)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintln(w, "ok")
	})
	return logRequests(s.Logger, mux)
}

func (s *Server) getServer() *http.Server {
	s.serverLock.Lock()
	defer s.serverLock.Unlock()

	if s.server == nil {
		s.server = &http.Server{
			Addr:    fmt.Sprintf(":%d", s.ListenPort),
			Handler: s.Handler(),
		}
	}
	return s.server
}

// Run serves until Close is called
func (s *Server) Run() error {
	server := s.getServer()

	s.Logger.Infof("Serving diagnostics on port %d", s.ListenPort)
	err := server.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Close stops the server. Calling it before Run makes Run return immediately.
func (s *Server) Close() error {
	return s.getServer().Shutdown(context.Background())
}
