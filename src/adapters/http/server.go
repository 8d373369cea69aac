package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// HeaderOwnerID identifies the viewer of a request.
const HeaderOwnerID = "X-Owner-ID"

// Server representa o servidor HTTP da API
type Server struct {
	logger *slog.Logger
	server *http.Server
	mux    *http.ServeMux
	port   int
}

// NewServer cria uma nova instância do servidor
func NewServer(logger *slog.Logger, port int) *Server {
	server := &Server{
		mux:    http.NewServeMux(),
		port:   port,
		logger: logger,
	}

	server.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      server.mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Rotas de Leitura
	server.mux.HandleFunc("GET /v1/nodes/{class}/{id}", server.GetNode)
	server.mux.HandleFunc("GET /v1/nodes/{class}", server.ListNodes)
	server.mux.HandleFunc("GET /v1/nodes/{class}/{id}/related/{relationship}", server.GetRelated)

	// Rotas de Escritas
	server.mux.HandleFunc("POST /v1/nodes/{class}", server.CreateNode)
	server.mux.HandleFunc("POST /v1/nodes/{class}/{id}/related/{relationship}", server.CreateRelated)
	server.mux.HandleFunc("PATCH /v1/nodes/{class}/{id}", server.UpdateNode)
	server.mux.HandleFunc("DELETE /v1/nodes/{class}/{id}", server.DeleteNode)

	return server
}

// Handler exposes the routes without a listener (httptest).
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start inicia o servidor HTTP
func (s *Server) Start() error {
	s.logger.Info("Server started", "port", s.port)

	return s.server.ListenAndServe()
}

// Shutdown encerra o servidor HTTP de forma graciosa
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}
