// Copyright 2024 The Carvel Authors.
// SPDX-License-Identifier: Apache-2.0

package website

import (
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("vtl.website")

type ServerOpts struct {
	ListenAddr      string
	RedirectToHTTPS bool
	// MaxBodyBytes limits size of render requests (0 means no limit)
	MaxBodyBytes int64
	RenderFunc   func([]byte) ([]byte, error)
	ErrorFunc    func(error) ([]byte, error)
}

type Server struct {
	opts ServerOpts
}

func NewServer(opts ServerOpts) *Server {
	return &Server{opts}
}

func (s *Server) Mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.secure(withNoCache(s.usageHandler)))
	mux.HandleFunc("/render", s.secure(withCORS(s.renderHandler)))
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

func (s *Server) Run() error {
	server := &http.Server{
		Addr:              s.opts.ListenAddr,
		Handler:           s.Mux(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	fmt.Printf("Listening on http://%s\n", server.Addr)
	return server.ListenAndServe()
}

func (s *Server) usageHandler(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	s.write(w, []byte(usage))
}

func (s *Server) renderHandler(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodOptions:
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", http.MethodPost)
		s.fail(w, http.StatusMethodNotAllowed, fmt.Errorf("Expected POST request, but was %s", r.Method))
		return
	}

	body := r.Body
	if s.opts.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, s.opts.MaxBodyBytes)
	}

	data, err := io.ReadAll(body)
	if err != nil {
		s.fail(w, http.StatusRequestEntityTooLarge, fmt.Errorf("Reading request: %s", err))
		return
	}

	resp, err := s.opts.RenderFunc(data)
	if err != nil {
		s.fail(w, http.StatusOK, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	s.write(w, resp)
}

func (s *Server) healthHandler(w http.ResponseWriter, _ *http.Request) {
	s.write(w, []byte("ok"))
}

// fail responds with error encoded by ErrorFunc. Render errors
// are part of the API response hence they keep 200 status.
func (s *Server) fail(w http.ResponseWriter, status int, err error) {
	log.Errorf("%s", err)

	resp, encErr := s.opts.ErrorFunc(err)
	if encErr != nil {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprintf(w, "render error: %s", encErr)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if status != http.StatusOK {
		w.WriteHeader(status)
	}
	s.write(w, resp)
}

func (s *Server) write(w http.ResponseWriter, data []byte) {
	_, err := w.Write(data)
	if err != nil {
		log.Warningf("Writing response: %s", err)
	}
}

// secure redirects plain HTTP GET/HEAD requests to HTTPS and rejects
// other plain HTTP requests. Loopback clients are let through.
func (s *Server) secure(next http.HandlerFunc) http.HandlerFunc {
	if !s.opts.RedirectToHTTPS {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		if isLoopback(r.RemoteAddr) || r.Header.Get("X-Forwarded-Proto") == "https" {
			next(w, r)
			return
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead {
			// body may have been sent in clear text already
			s.fail(w, http.StatusForbidden, fmt.Errorf("Expected HTTPS connection"))
			return
		}

		host := r.Header.Get("Host")
		if len(host) == 0 {
			host = r.Host
		}
		if len(host) == 0 {
			s.fail(w, http.StatusBadRequest, fmt.Errorf("Expected non-empty Host header"))
			return
		}

		http.Redirect(w, r, "https://"+host+r.URL.RequestURI(), http.StatusMovedPermanently)
	}
}

func isLoopback(remoteAddr string) bool {
	host, _, err := net.SplitHostPort(remoteAddr)
	if err != nil {
		return false
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

var noCacheHeaders = map[string]string{
	"Expires":         time.Unix(0, 0).UTC().Format(http.TimeFormat),
	"Cache-Control":   "no-cache, private, max-age=0",
	"Pragma":          "no-cache",
	"X-Accel-Expires": "0",
}

func withNoCache(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		for k, v := range noCacheHeaders {
			w.Header().Set(k, v)
		}
		next(w, r)
	}
}

func withCORS(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Headers", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		next(w, r)
	}
}
