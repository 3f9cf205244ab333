// Package httpapi exposes the knowledge service's HTTP façade: CRUD on
// subscriptions/collections/resource-types/resources, resource upload, and
// the query (search) surface (spec.md §6). It translates each request into
// one use-case call against a *registry.Registry and never touches a port
// directly, grounded on the teacher's net/http + http.ServeMux method-pattern
// style in the original internal/httpapi/server.go.
package httpapi

import (
	"net/http"

	"knowledgeservice/internal/registry"
)

// Server is the HTTP façade over the use-case layer.
type Server struct {
	reg *registry.Registry
	mux *http.ServeMux
}

// NewServer builds a Server wired to reg and registers every route named
// in spec.md §6.
func NewServer(reg *registry.Registry) *Server {
	s := &Server{reg: reg, mux: http.NewServeMux()}
	s.registerRoutes()
	return s
}

// ServeHTTP satisfies http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /{$}", s.handleRoot)

	s.mux.HandleFunc("POST /subscriptions/", s.handleCreateSubscription)
	s.mux.HandleFunc("GET /subscriptions/", s.handleListSubscriptions)
	s.mux.HandleFunc("GET /subscriptions/{sid}", s.handleGetSubscription)
	s.mux.HandleFunc("DELETE /subscriptions/{sid}", s.handleDeleteSubscription)
	s.mux.HandleFunc("GET /subscriptions/{sid}/resource-types", s.handleSubscriptionResourceTypes)
	s.mux.HandleFunc("GET /subscriptions/{sid}/collections", s.handleListCollections)
	s.mux.HandleFunc("POST /subscriptions/{sid}/collections", s.handleCreateCollection)

	s.mux.HandleFunc("GET /collections/{cid}", s.handleGetCollection)
	s.mux.HandleFunc("DELETE /collections/{cid}", s.handleDeleteCollection)
	s.mux.HandleFunc("GET /collections/{cid}/resource-types", s.handleCollectionResourceTypes)
	s.mux.HandleFunc("GET /collections/{cid}/resources", s.handleListResources)
	s.mux.HandleFunc("POST /collections/{cid}/{rtid}", s.handleUploadResource)
	s.mux.HandleFunc("POST /collections/{cid}/query", s.handleQueryCollection)

	s.mux.HandleFunc("DELETE /resources/{rid}", s.handleDeleteResource)
	s.mux.HandleFunc("POST /resource/{rid}/query", s.handleQueryResource)

	s.mux.HandleFunc("GET /resource-types/", s.handleListResourceTypes)

	s.mux.HandleFunc("GET /query-results/{qid}", s.handleQueryResult)
	s.mux.HandleFunc("GET /query-results/{qid}/metadata", s.handleQueryResultMetadata)
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]any{"service": "knowledgeservice", "status": "ok"})
}
