// Package server serves a generated report directory over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"time"
)

// Server serves a report directory on the loopback interface
type Server struct {
	listener net.Listener
	server   *http.Server
	dir      string
	done     chan error
}

// Start serves dir on addr. An empty addr or a zero port picks a free port on 127.0.0.1.
func Start(dir, addr string) (*Server, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to open report dir: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", dir)
	}

	if addr == "" {
		addr = "127.0.0.1:0"
	}
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	srv := &Server{
		listener: listener,
		dir:      dir,
		done:     make(chan error, 1),
		server: &http.Server{
			Handler:           http.FileServer(http.Dir(dir)),
			ReadHeaderTimeout: 10 * time.Second,
		},
	}

	go func() {
		err := srv.server.Serve(listener)
		if errors.Is(err, http.ErrServerClosed) {
			err = nil
		}
		srv.done <- err
	}()

	return srv, nil
}

// Dir returns the served directory
func (s *Server) Dir() string {
	return s.dir
}

// URL returns the URL of a file inside the served directory
func (s *Server) URL(file string) string {
	u := url.URL{
		Scheme: "http",
		Host:   s.listener.Addr().String(),
		Path:   "/" + path.Clean(filepath.ToSlash(file)),
	}
	return u.String()
}

// Wait blocks until the server stops or ctx is done, then shuts it down.
func (s *Server) Wait(ctx context.Context) error {
	select {
	case err := <-s.done:
		return err
	case <-ctx.Done():
		return s.Stop()
	}
}

// Stop shuts down the server. The served directory is left in place.
func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}
