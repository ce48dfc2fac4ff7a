// Package livereload notifies pages under development about rebuilt
// responsive stylesheet and serves its builds.
package livereload

import (
	"bytes"
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net"
	"net/http"
	"path"
	"strconv"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"kfcss/config"
)

// Endpoints besides the stylesheet itself.
const (
	SocketPath = "/livereload"
	ClientPath = "/livereload.js"
	// VirtualPrefix is followed by configured virtual module id.
	VirtualPrefix = "/@id/"
)

const shutdownTimeout = 5 * time.Second

//go:embed client.js
var clientScript []byte

type artifact struct {
	id      string
	version int
	data    []byte
	stamp   time.Time
}

// Server serves latest generated stylesheet, keeps a few previous builds
// addressable by build id and pushes change notifications over websocket.
type Server struct {
	listen      string
	cssPath     string
	virtualPath string
	hub         *Hub
	builds      *lru.Cache[string, *artifact]
	log         *zap.Logger

	mu      sync.RWMutex
	current *artifact
	version int
}

// NewServer creates server for the stylesheet named name (base name of the
// responsive stylesheet, it is served from the root).
func NewServer(conf *config.ServerConfig, name string, log *zap.Logger) (*Server, error) {
	if log == nil {
		log = zap.NewNop()
	}
	builds, err := lru.New[string, *artifact](conf.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("unable to create build cache: %w", err)
	}
	s := &Server{
		listen:      conf.Listen,
		cssPath:     path.Join("/", name),
		virtualPath: VirtualPrefix + conf.VirtualID,
		builds:      builds,
		log:         log.Named("livereload"),
	}
	s.hub = NewHub(s.hello, s.log)
	return s, nil
}

// CSSPath returns URL path of the current stylesheet.
func (s *Server) CSSPath() string {
	return s.cssPath
}

// Hub returns client hub of the server.
func (s *Server) Hub() *Hub {
	return s.hub
}

func (s *Server) hello() Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msg := Message{Type: TypeHello, Path: s.cssPath, Version: s.version}
	if s.current != nil {
		msg.ID = s.current.id
	}
	return msg
}

// Publish makes data current stylesheet and notifies clients. Previous
// current build stays reachable by its id while it is in cache.
func (s *Server) Publish(id string, data []byte) {
	s.mu.Lock()
	s.version++
	a := &artifact{id: id, version: s.version, data: data, stamp: time.Now()}
	s.current = a
	s.mu.Unlock()

	s.builds.Add(id, a)
	s.hub.Broadcast(Message{Type: TypeCSSUpdate, ID: id, Path: s.cssPath, Version: a.version})
	s.log.Debug("Published", zap.String("id", id), zap.Int("version", a.version), zap.Int("clients", s.hub.Len()))
}

// PublishError tells clients that the last build failed. Current stylesheet
// is left as is.
func (s *Server) PublishError(err error) {
	s.hub.Broadcast(Message{Type: TypeBuildError, Message: err.Error()})
}

// Handler returns HTTP handler with all server endpoints.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("GET "+SocketPath, s.hub)
	mux.HandleFunc("GET "+ClientPath, s.serveClient)
	mux.HandleFunc("GET /", s.serveStylesheet)
	return mux
}

func (s *Server) serveClient(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/javascript; charset=utf-8")
	http.ServeContent(w, r, ClientPath, time.Time{}, bytes.NewReader(clientScript))
}

func (s *Server) serveStylesheet(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != s.cssPath && r.URL.Path != s.virtualPath {
		http.NotFound(w, r)
		return
	}

	var a *artifact
	if id := r.URL.Query().Get("v"); len(id) > 0 {
		var ok bool
		if a, ok = s.builds.Get(id); !ok {
			http.Error(w, "build is not available: "+id, http.StatusNotFound)
			return
		}
	} else {
		s.mu.RLock()
		a = s.current
		s.mu.RUnlock()
	}
	if a == nil {
		http.Error(w, "stylesheet is not built yet", http.StatusServiceUnavailable)
		return
	}

	h := w.Header()
	h.Set("Content-Type", "text/css; charset=utf-8")
	h.Set("Cache-Control", "no-cache")
	h.Set("ETag", strconv.Quote(a.id))
	h.Set("X-Build-Version", strconv.Itoa(a.version))
	http.ServeContent(w, r, s.cssPath, a.stamp, bytes.NewReader(a.data))
}

// ListenAndServe serves until context is done, then shuts server down and
// drops connected clients.
func (s *Server) ListenAndServe(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.listen)
	if err != nil {
		return fmt.Errorf("unable to listen on %s: %w", s.listen, err)
	}
	return s.Serve(ctx, ln)
}

// Serve is ListenAndServe on provided listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(s.log),
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info("Serving", zap.String("address", ln.Addr().String()), zap.String("stylesheet", s.cssPath), zap.String("socket", SocketPath))
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		return multierr.Append(fmt.Errorf("live reload server failed: %w", err), s.hub.Close())
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	err := multierr.Append(srv.Shutdown(sctx), s.hub.Close())
	if serr := <-errCh; serr != nil && !errors.Is(serr, http.ErrServerClosed) {
		err = multierr.Append(err, serr)
	}
	return err
}
