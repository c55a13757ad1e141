package server

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/jrsteele09/go-link-server/credstore"
	"github.com/jrsteele09/go-link-server/internal/config"
	"github.com/jrsteele09/go-link-server/linker"
	"github.com/jrsteele09/go-link-server/linksession"
	"github.com/rs/zerolog"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "production")
	mux    *http.ServeMux
	routes []string
	config config.Config
	log    zerolog.Logger

	linker   *linker.Service
	sessions linksession.Repo
	codes    *credstore.ShortCodeStore
}

func New(config config.Config, linkService *linker.Service, sessions linksession.Repo, codes *credstore.ShortCodeStore, log zerolog.Logger) (*Server, error) {
	if linkService == nil {
		return nil, fmt.Errorf("[Server New] link service is required")
	}
	if sessions == nil {
		return nil, fmt.Errorf("[Server New] session repo is required")
	}

	s := &Server{
		mux:      http.NewServeMux(),
		config:   config,
		log:      log.With().Str("component", "http").Logger(),
		linker:   linkService,
		sessions: sessions,
		codes:    codes,
	}
	s.env = config.GetEnv()

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			s.logRoute(parts[0], parts[1])
		} else {
			s.logRoute("", parts[0])
		}
	}
}

func (s *Server) logRoute(method, path string) {
	var displayMethod string
	paddedMethod := fmt.Sprintf(" %-7s", method)
	if color, ok := methodColors[method]; ok {
		displayMethod = color + paddedMethod + ResetColor
	} else {
		displayMethod = Gray + paddedMethod + ResetColor
	}
	s.log.Info().Msgf("[%-19s] %s", displayMethod, path)
}
