package inspect

import (
	"crypto/md5"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"sync"
	"time"
)

// Server is an http.Server that can be stopped and waited on
type Server struct {
	*http.Server

	instanceID  string
	listener    net.Listener
	mu          sync.Mutex
	lastError   error
	serverGroup sync.WaitGroup
	active      sync.WaitGroup
}

// NewServer creates a server for handler listening on addr
func NewServer(addr string, handler http.Handler) *Server {
	return &Server{Server: &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}}
}

// InstanceID identifies the server, it is set once started
func (s *Server) InstanceID() string {
	return s.instanceID
}

// ListenAddr returns the address the server listens on, it is only known once started
func (s *Server) ListenAddr() string {
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Start listens and serves in the background
func (s *Server) Start() error {
	if s.Handler == nil {
		return errors.New("no server handler set")
	}
	if s.listener != nil {
		return errors.New("server already started")
	}

	addr := s.Server.Addr
	if addr == "" {
		addr = ":http"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}

	hostname, _ := os.Hostname()
	s.instanceID = fmt.Sprintf("%x", md5.Sum([]byte(hostname+listener.Addr().String())))
	s.listener = listener
	s.Handler = &serverHandler{handler: s.Handler, active: &s.active, instanceID: s.instanceID}

	s.serverGroup.Add(1)
	go func() {
		defer s.serverGroup.Done()

		if err := s.Serve(listener); err != nil && !errors.Is(err, net.ErrClosed) && !errors.Is(err, http.ErrServerClosed) {
			s.mu.Lock()
			s.lastError = err
			s.mu.Unlock()
		}
	}()

	return nil
}

// Stop closes the listener, requests in flight keep running
func (s *Server) Stop() error {
	if s.listener == nil {
		return errors.New("server not started")
	}
	if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastError
}

// WaitStop waits for the server to stop and for the requests in flight to
// finish, at most timeout
func (s *Server) WaitStop(timeout time.Duration) error {
	if s.listener == nil {
		return errors.New("server not started")
	}

	s.serverGroup.Wait()

	done := make(chan struct{})
	go func() {
		s.active.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.mu.Lock()
		defer s.mu.Unlock()
		return s.lastError
	case <-time.After(timeout):
		return fmt.Errorf("timeout after %s waiting for requests to finish", timeout)
	}
}

type serverHandler struct {
	handler    http.Handler
	active     *sync.WaitGroup
	instanceID string
}

func (sh *serverHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	sh.active.Add(1)
	defer sh.active.Done()

	w.Header().Add("X-Server-Instance-Id", sh.instanceID)
	sh.handler.ServeHTTP(w, r)
}
