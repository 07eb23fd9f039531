package hashpay

import (
	"context"
	"net"
	"net/http"
	"sync"
	"time"
)

type Server struct {
	mu         sync.Mutex
	httpServer *http.Server
	cancel     context.CancelFunc
}

// Run blocks until the server stops. WriteTimeout stays zero so event
// streams are not cut off; Shutdown ends them through the base context.
func (s *Server) Run(port string, handler http.Handler) error {
	base, cancel := context.WithCancel(context.Background())
	srv := &http.Server{
		Addr:              "127.0.0.1:" + port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       time.Minute,
		IdleTimeout:       2 * time.Minute,
		BaseContext:       func(net.Listener) context.Context { return base },
	}
	s.mu.Lock()
	s.httpServer, s.cancel = srv, cancel
	s.mu.Unlock()

	return srv.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	srv, cancel := s.httpServer, s.cancel
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	cancel()
	return srv.Shutdown(ctx)
}
