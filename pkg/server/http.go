// Package server provides an HTTP surface over the query engine, for
// collaborators that would rather speak JSON-over-HTTP than import the
// Go packages directly. It is a demonstration wiring, not a spec-mandated
// component: the actual client surface is out of scope (§1), same as
// the command-line front-end in cmd/codeindex.
package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/codeindex/pkg/query"
)

// Server exposes query.Engine operations over HTTP.
type Server struct {
	engine *query.Engine
	addr   string
	mux    *http.ServeMux
}

// NewServer creates a new HTTP server backed by eng.
func NewServer(eng *query.Engine, addr string) *Server {
	s := &Server{
		engine: eng,
		addr:   addr,
		mux:    http.NewServeMux(),
	}
	s.setupRoutes()
	return s
}

// setupRoutes configures all HTTP routes.
func (s *Server) setupRoutes() {
	s.mux.HandleFunc("/api/symbols", s.handleFindSymbols)
	s.mux.HandleFunc("/api/definition", s.handleDefinition)
	s.mux.HandleFunc("/api/references", s.handleReferences)
	s.mux.HandleFunc("/api/callchain", s.handleCallChain)
	s.mux.HandleFunc("/api/properties", s.handleProperties)
	s.mux.HandleFunc("/api/semantic-search", s.handleSemanticSearch)

	s.mux.HandleFunc("/health", s.handleHealth)
}

// Start starts the HTTP server.
func (s *Server) Start() error {
	fmt.Printf("codeindex server listening on %s\n", s.addr)
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.mux,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return srv.ListenAndServe()
}

// MaxRequestBodySize limits request body size to 1MB.
const MaxRequestBodySize = 1 << 20 // 1MB

func limitRequestBody(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, MaxRequestBodySize)
}

func jsonResponse(w http.ResponseWriter, data interface{}, status int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		log.Printf("http: failed to encode response: %v", err)
	}
}

func errorResponse(w http.ResponseWriter, message string, status int) {
	jsonResponse(w, map[string]string{"error": message}, status)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	jsonResponse(w, map[string]string{"status": "ok"}, http.StatusOK)
}

// handleFindSymbols handles GET /api/symbols?name=&language=&kind=
func (s *Server) handleFindSymbols(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		errorResponse(w, "query parameter 'name' required", http.StatusBadRequest)
		return
	}

	symbols, err := s.engine.FindSymbols(name, r.URL.Query().Get("language"), r.URL.Query().Get("kind"))
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, symbols, http.StatusOK)
}

// handleDefinition handles GET /api/definition?symbolId=
func (s *Server) handleDefinition(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbolID := r.URL.Query().Get("symbolId")
	if symbolID == "" {
		errorResponse(w, "query parameter 'symbolId' required", http.StatusBadRequest)
		return
	}

	loc, err := s.engine.GetDefinition(symbolID)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if loc == nil {
		errorResponse(w, "symbol not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, loc, http.StatusOK)
}

// handleReferences handles GET /api/references?symbolId=
func (s *Server) handleReferences(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbolID := r.URL.Query().Get("symbolId")
	if symbolID == "" {
		errorResponse(w, "query parameter 'symbolId' required", http.StatusBadRequest)
		return
	}

	refs, err := s.engine.GetReferences(symbolID)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, refs, http.StatusOK)
}

// handleCallChain handles GET /api/callchain?symbolId=&direction=forward|backward&depth=
func (s *Server) handleCallChain(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbolID := r.URL.Query().Get("symbolId")
	if symbolID == "" {
		errorResponse(w, "query parameter 'symbolId' required", http.StatusBadRequest)
		return
	}

	dir := query.Forward
	if strings.EqualFold(r.URL.Query().Get("direction"), "backward") {
		dir = query.Backward
	}

	depth := query.DefaultCallChainDepth
	if raw := r.URL.Query().Get("depth"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			errorResponse(w, "invalid 'depth' parameter", http.StatusBadRequest)
			return
		}
		depth = n
	}

	tree, err := s.engine.BuildCallChain(symbolID, dir, depth)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if tree == nil {
		errorResponse(w, "symbol not found", http.StatusNotFound)
		return
	}
	jsonResponse(w, tree, http.StatusOK)
}

// handleProperties handles GET /api/properties?name=&language=
func (s *Server) handleProperties(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	name := r.URL.Query().Get("name")
	if name == "" {
		errorResponse(w, "query parameter 'name' required", http.StatusBadRequest)
		return
	}

	props, err := s.engine.GetObjectProperties(name, r.URL.Query().Get("language"))
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, props, http.StatusOK)
}

type semanticSearchRequest struct {
	Vector        []float32 `json:"vector"`
	Model         string    `json:"model"`
	TopK          int       `json:"topK"`
	Language      string    `json:"language"`
	Kind          string    `json:"kind"`
	MinSimilarity float64   `json:"minSimilarity"`
}

// handleSemanticSearch handles POST /api/semantic-search with a JSON body,
// since an embedding vector does not fit comfortably in a query string.
func (s *Server) handleSemanticSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		errorResponse(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limitRequestBody(w, r)
	var req semanticSearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		errorResponse(w, "invalid JSON or request too large", http.StatusBadRequest)
		return
	}
	if req.Model == "" {
		errorResponse(w, "'model' required", http.StatusBadRequest)
		return
	}

	hits, err := s.engine.SemanticSearch(req.Vector, req.Model, req.TopK, req.Language, req.Kind, req.MinSimilarity)
	if err != nil {
		errorResponse(w, err.Error(), http.StatusInternalServerError)
		return
	}
	jsonResponse(w, hits, http.StatusOK)
}
