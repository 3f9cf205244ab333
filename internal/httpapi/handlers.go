package httpapi

import (
	"encoding/json"
	"io"
	"net/http"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/usecases"
)

// --- subscriptions ---------------------------------------------------

type newSubscriptionRequest struct {
	Name            string   `json:"name"`
	ResourceTypeIDs []string `json:"resource_type_ids"`
	Status          string   `json:"status"`
}

func (s *Server) handleCreateSubscription(w http.ResponseWriter, r *http.Request) {
	var req newSubscriptionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("body", "malformed JSON"))
		return
	}
	sub, err := usecases.CreateSubscription(r.Context(), s.reg, req.Name, req.ResourceTypeIDs)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleListSubscriptions(w http.ResponseWriter, r *http.Request) {
	subs, err := usecases.ListSubscriptions(r.Context(), s.reg)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, subs)
}

func (s *Server) handleGetSubscription(w http.ResponseWriter, r *http.Request) {
	sub, err := usecases.GetSubscription(r.Context(), s.reg, r.PathValue("sid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, sub)
}

func (s *Server) handleDeleteSubscription(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("sid")
	if err := usecases.DeleteSubscription(r.Context(), s.reg, id); err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, deleteResponse{Success: true, ID: id})
}

func (s *Server) handleSubscriptionResourceTypes(w http.ResponseWriter, r *http.Request) {
	sub, err := usecases.GetSubscription(r.Context(), s.reg, r.PathValue("sid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	all, err := usecases.ListResourceTypes(r.Context(), s.reg)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, filterResourceTypes(all, sub.ResourceTypeIDs))
}

// --- collections -------------------------------------------------------

type newCollectionRequest struct {
	Name            string   `json:"name"`
	ResourceTypeIDs []string `json:"resource_type_ids"`
	Description     string   `json:"description"`
}

func (s *Server) handleCreateCollection(w http.ResponseWriter, r *http.Request) {
	var req newCollectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("body", "malformed JSON"))
		return
	}
	c, err := usecases.CreateCollection(r.Context(), s.reg, r.PathValue("sid"), req.Name, req.Description, req.ResourceTypeIDs)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleListCollections(w http.ResponseWriter, r *http.Request) {
	cols, err := usecases.ListCollections(r.Context(), s.reg, r.PathValue("sid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, cols)
}

func (s *Server) handleGetCollection(w http.ResponseWriter, r *http.Request) {
	c, err := usecases.GetCollection(r.Context(), s.reg, r.PathValue("cid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCollection(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("cid")
	if err := usecases.DeleteCollection(r.Context(), s.reg, id); err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, deleteResponse{Success: true, ID: id})
}

func (s *Server) handleCollectionResourceTypes(w http.ResponseWriter, r *http.Request) {
	c, err := usecases.GetCollection(r.Context(), s.reg, r.PathValue("cid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	all, err := usecases.ListResourceTypes(r.Context(), s.reg)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, filterResourceTypes(all, c.ResourceTypeIDs))
}

func filterResourceTypes(all []domain.ResourceType, ids []string) []domain.ResourceType {
	allowed := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		allowed[id] = struct{}{}
	}
	out := make([]domain.ResourceType, 0, len(ids))
	for _, rt := range all {
		if _, ok := allowed[rt.ID]; ok {
			out = append(out, rt)
		}
	}
	return out
}

// --- resource types ------------------------------------------------------

func (s *Server) handleListResourceTypes(w http.ResponseWriter, r *http.Request) {
	types, err := usecases.ListResourceTypes(r.Context(), s.reg)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, types)
}

// --- resources -----------------------------------------------------------

type resourceUploadResponse struct {
	Status      string   `json:"status"`
	ResourceURL string   `json:"resource_url"`
	Webhooks    []string `json:"webhooks"`
}

func (s *Server) handleUploadResource(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(64 << 20); err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("multipart", "could not parse upload: "+err.Error()))
		return
	}
	file, header, err := r.FormFile("new_resource")
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("new_resource", "file is required"))
		return
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("new_resource", "could not read file: "+err.Error()))
		return
	}

	name := r.FormValue("name")
	if name == "" {
		name = header.Filename
	}
	webhooks := r.MultipartForm.Value["webhooks"]

	resource, err := usecases.CreateResource(r.Context(), s.reg, r.PathValue("cid"), r.PathValue("rtid"), name, header.Filename, content, webhooks)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, resourceUploadResponse{
		Status:      string(resource.Status),
		ResourceURL: "/resources/" + resource.ID,
		Webhooks:    webhooks,
	})
}

func (s *Server) handleListResources(w http.ResponseWriter, r *http.Request) {
	resources, err := usecases.ListResources(r.Context(), s.reg, r.PathValue("cid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, resources)
}

func (s *Server) handleDeleteResource(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("rid")
	if err := usecases.DeleteResource(r.Context(), s.reg, id); err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, deleteResponse{Success: true, ID: id})
}

// --- query / search --------------------------------------------------------

type queryRequest struct {
	Prompt      string            `json:"prompt"`
	ResourceIDs []string          `json:"resource_ids"`
	Filters     map[string]string `json:"filters"`
	Callbacks   []string          `json:"webhooks"`
	MaxResults  int               `json:"max_results"`
}

type initiateSearchResponse struct {
	SearchURL string `json:"search_url"`
}

func (s *Server) handleQueryCollection(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("body", "malformed JSON"))
		return
	}
	search, err := usecases.CreateSearch(r.Context(), s.reg, r.PathValue("cid"), req.Prompt, req.ResourceIDs, req.Filters, req.Callbacks, req.MaxResults)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, initiateSearchResponse{SearchURL: "/query-results/" + search.ID})
}

func (s *Server) handleQueryResource(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusUnprocessableEntity, domain.NewValidation("body", "malformed JSON"))
		return
	}
	resource, err := usecases.GetResource(r.Context(), s.reg, r.PathValue("rid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	resourceIDs := req.ResourceIDs
	if len(resourceIDs) == 0 {
		resourceIDs = []string{resource.ID}
	}
	search, err := usecases.CreateSearch(r.Context(), s.reg, resource.CollectionID, req.Prompt, resourceIDs, req.Filters, req.Callbacks, req.MaxResults)
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, initiateSearchResponse{SearchURL: "/query-results/" + search.ID})
}

type queryResultResponse struct {
	SearchID      string                 `json:"search_id"`
	Status        string                 `json:"status"`
	Response      string                 `json:"response,omitempty"`
	CredentialURL string                 `json:"credential_url,omitempty"`
	Error         string                 `json:"error,omitempty"`
	Results       []domain.SearchResult  `json:"results,omitempty"`
}

func (s *Server) handleQueryResult(w http.ResponseWriter, r *http.Request) {
	search, results, err := usecases.GetSearchResults(r.Context(), s.reg, r.PathValue("qid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, queryResultResponse{
		SearchID:      search.ID,
		Status:        string(search.Status),
		Response:      search.Response,
		CredentialURL: search.CredentialURL,
		Error:         search.Error,
		Results:       results,
	})
}

func (s *Server) handleQueryResultMetadata(w http.ResponseWriter, r *http.Request) {
	search, err := usecases.GetSearchMetadata(r.Context(), s.reg, r.PathValue("qid"))
	if err != nil {
		respondError(w, statusFromError(err), err)
		return
	}
	respondJSON(w, http.StatusOK, search)
}

// --- shared response helpers ---------------------------------------------

type deleteResponse struct {
	Success bool   `json:"success"`
	ID      string `json:"id"`
}

func respondJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func respondError(w http.ResponseWriter, status int, err error) {
	respondJSON(w, status, map[string]any{"error": err.Error()})
}

// statusFromError maps the closed error taxonomy (domain/errors.go) onto
// the HTTP status codes spec.md §6 names: 404 NotFound, 409 Conflict, 422
// ValidationError/InvalidFormat/VirusDetected, 500 everything else (Transient/Internal surfaced
// synchronously are a backend problem from the caller's perspective).
func statusFromError(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errorAs[*domain.NotFoundError](err):
		return http.StatusNotFound
	case errorAs[*domain.ConflictError](err):
		return http.StatusConflict
	case errorAs[*domain.ValidationError](err), errorAs[*domain.InvalidFormatError](err), errorAs[*domain.VirusDetectedError](err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
