package usecases

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"knowledgeservice/internal/domain"
	"knowledgeservice/internal/registry"
)

// CreateSubscription registers a new tenant scope, grounded on
// PostNewSubscription.execute. Every resource type ID must already exist.
func CreateSubscription(ctx context.Context, reg *registry.Registry, name string, resourceTypeIDs []string) (domain.Subscription, error) {
	if strings.TrimSpace(name) == "" {
		return domain.Subscription{}, domain.NewValidation("name", "subscription name cannot be empty")
	}
	for _, rtID := range resourceTypeIDs {
		if _, err := reg.ResourceType.Get(ctx, rtID); err != nil {
			return domain.Subscription{}, domain.NewValidation("resource_type_ids", "unknown resource type "+rtID)
		}
	}
	sub := domain.Subscription{
		ID:              uuid.New().String(),
		Name:            name,
		IsActive:        true,
		ResourceTypeIDs: resourceTypeIDs,
	}
	sub, err := reg.Subscription.Create(ctx, sub)
	if err != nil {
		return domain.Subscription{}, domain.NewTransient("create subscription", err)
	}
	if err := reg.Graph.UpsertSubscriptionNode(ctx, sub); err != nil {
		return domain.Subscription{}, domain.NewTransient("upsert subscription node", err)
	}
	return sub, nil
}

// GetSubscription fetches a subscription by ID, grounded on
// GetSubscriptionDetails.execute.
func GetSubscription(ctx context.Context, reg *registry.Registry, id string) (domain.Subscription, error) {
	return reg.Subscription.Get(ctx, id)
}

// ListSubscriptions returns every subscription, grounded on
// GetSubscriptionList.execute.
func ListSubscriptions(ctx context.Context, reg *registry.Registry) ([]domain.Subscription, error) {
	return reg.Subscription.List(ctx)
}

// DeleteSubscription removes a subscription and everything scoped beneath
// it, grounded on DeleteSubscription.execute.
func DeleteSubscription(ctx context.Context, reg *registry.Registry, id string) error {
	if _, err := reg.Subscription.Get(ctx, id); err != nil {
		return err
	}
	collections, err := reg.Collection.ListBySubscription(ctx, id)
	if err != nil {
		return domain.NewTransient("list collections for subscription", err)
	}
	for _, c := range collections {
		if err := deleteCollectionResources(ctx, reg, c.ID); err != nil {
			return err
		}
	}
	if err := reg.Collection.DeleteBySubscription(ctx, id); err != nil {
		return domain.NewTransient("delete collections for subscription", err)
	}
	return reg.Subscription.Delete(ctx, id)
}

// ListResourceTypes returns the catalogue of resource types a subscription
// may choose from, grounded on GetResourceTypeList.execute.
func ListResourceTypes(ctx context.Context, reg *registry.Registry) ([]domain.ResourceType, error) {
	return reg.ResourceType.List(ctx)
}

// CreateCollection creates a collection under a subscription, grounded on
// PostNewCollectionToSubscription.execute. Every resource type ID must be
// among those the subscription allows, and the name must be unique within
// the subscription.
func CreateCollection(ctx context.Context, reg *registry.Registry, subscriptionID, name, description string, resourceTypeIDs []string) (domain.Collection, error) {
	sub, err := reg.Subscription.Get(ctx, subscriptionID)
	if err != nil {
		return domain.Collection{}, err
	}
	allowed := make(map[string]struct{}, len(sub.ResourceTypeIDs))
	for _, id := range sub.ResourceTypeIDs {
		allowed[id] = struct{}{}
	}
	for _, rtID := range resourceTypeIDs {
		if _, ok := allowed[rtID]; !ok {
			return domain.Collection{}, domain.NewValidation("resource_type_ids", "resource type "+rtID+" not allowed by subscription")
		}
	}
	exists, err := reg.Collection.ExistsByName(ctx, subscriptionID, name)
	if err != nil {
		return domain.Collection{}, domain.NewTransient("check collection name", err)
	}
	if exists {
		return domain.Collection{}, domain.NewConflict("collection named " + name + " already exists in subscription")
	}
	c := domain.Collection{
		ID:              uuid.New().String(),
		SubscriptionID:  subscriptionID,
		Name:            name,
		Description:     description,
		ResourceTypeIDs: resourceTypeIDs,
	}
	c, err = reg.Collection.Create(ctx, c)
	if err != nil {
		return domain.Collection{}, domain.NewTransient("create collection", err)
	}
	if err := reg.Graph.UpsertCollectionNode(ctx, c); err != nil {
		return domain.Collection{}, domain.NewTransient("upsert collection node", err)
	}
	return c, nil
}

// GetCollection fetches a collection by ID, grounded on
// GetCollectionDetails.execute.
func GetCollection(ctx context.Context, reg *registry.Registry, id string) (domain.Collection, error) {
	return reg.Collection.Get(ctx, id)
}

// ListCollections lists the collections belonging to a subscription,
// grounded on GetSubscriptionCollectionList.execute.
func ListCollections(ctx context.Context, reg *registry.Registry, subscriptionID string) ([]domain.Collection, error) {
	if _, err := reg.Subscription.Get(ctx, subscriptionID); err != nil {
		return nil, err
	}
	return reg.Collection.ListBySubscription(ctx, subscriptionID)
}

// DeleteCollection removes a collection and every resource within it,
// grounded on DeleteCollection.execute.
func DeleteCollection(ctx context.Context, reg *registry.Registry, id string) error {
	if _, err := reg.Collection.Get(ctx, id); err != nil {
		return err
	}
	if err := deleteCollectionResources(ctx, reg, id); err != nil {
		return err
	}
	return reg.Collection.Delete(ctx, id)
}

func deleteCollectionResources(ctx context.Context, reg *registry.Registry, collectionID string) error {
	resources, err := reg.Resource.ListByCollection(ctx, collectionID)
	if err != nil {
		return domain.NewTransient("list resources for collection", err)
	}
	for _, r := range resources {
		if err := reg.Graph.SoftDeleteResourceNode(ctx, r.ID); err != nil {
			return domain.NewTransient("soft delete resource node", err)
		}
	}
	if err := reg.Resource.DeleteByCollection(ctx, collectionID); err != nil {
		return domain.NewTransient("delete resources for collection", err)
	}
	return nil
}

// CreateResource validates and persists a newly uploaded resource, then
// dispatches it into the ingest pipeline, grounded on
// PostNewResourceToCollection.execute. Processing beyond this point is
// entirely asynchronous; status updates arrive via webhook or polling.
func CreateResource(ctx context.Context, reg *registry.Registry, collectionID, resourceTypeID, name, fileName string, file []byte, callbackURLs []string) (domain.Resource, error) {
	collection, err := reg.Collection.Get(ctx, collectionID)
	if err != nil {
		return domain.Resource{}, err
	}
	allowed := false
	for _, id := range collection.ResourceTypeIDs {
		if id == resourceTypeID {
			allowed = true
			break
		}
	}
	if !allowed {
		return domain.Resource{}, domain.NewValidation("resource_type_id", "resource type "+resourceTypeID+" not allowed in collection "+collection.Name)
	}
	if len(file) == 0 {
		return domain.Resource{}, domain.NewValidation("file", "resource upload must include file content")
	}

	r := domain.Resource{
		ID:             uuid.New().String(),
		CollectionID:   collectionID,
		ResourceTypeID: resourceTypeID,
		Name:           name,
		FileName:       fileName,
		File:           file,
		CallbackURLs:   callbackURLs,
		Status:         domain.ResourcePending,
	}
	r, err = reg.Resource.Create(ctx, r)
	if err != nil {
		return domain.Resource{}, domain.NewTransient("create resource", err)
	}
	if err := reg.Dispatch.Enqueue(ctx, StageInitiateProcessing, r.ID); err != nil {
		return domain.Resource{}, domain.NewTransient("enqueue initiate-processing stage", err)
	}
	return r, nil
}

// GetResource fetches a resource by ID, grounded on GetResource.execute.
func GetResource(ctx context.Context, reg *registry.Registry, id string) (domain.Resource, error) {
	return reg.Resource.Get(ctx, id)
}

// ListResources lists the resources within a collection, grounded on
// GetResourceList.execute.
func ListResources(ctx context.Context, reg *registry.Registry, collectionID string) ([]domain.Resource, error) {
	if _, err := reg.Collection.Get(ctx, collectionID); err != nil {
		return nil, err
	}
	return reg.Resource.ListByCollection(ctx, collectionID)
}

// DeleteResource hard-deletes a resource from the relational store and
// soft-deletes its graph node, grounded on DeleteResource.execute.
func DeleteResource(ctx context.Context, reg *registry.Registry, id string) error {
	if _, err := reg.Resource.Get(ctx, id); err != nil {
		return err
	}
	if err := reg.Graph.SoftDeleteResourceNode(ctx, id); err != nil {
		return domain.NewTransient("soft delete resource node", err)
	}
	return reg.Resource.Delete(ctx, id)
}

// CreateSearch validates and persists a new query, then dispatches it into
// the query pipeline, grounded on PostQueryOnCollecton.execute and
// PostQueryOnResource.execute. An empty resourceIDs scopes the search to
// the whole collection; a non-empty one scopes it to those resources.
func CreateSearch(ctx context.Context, reg *registry.Registry, collectionID, query string, resourceIDs []string, filters map[string]string, callbackURLs []string, maxResults int) (domain.SearchRequest, error) {
	if _, err := reg.Collection.Get(ctx, collectionID); err != nil {
		return domain.SearchRequest{}, err
	}
	if strings.TrimSpace(query) == "" {
		return domain.SearchRequest{}, domain.NewValidation("query", "query cannot be empty")
	}
	for _, rID := range resourceIDs {
		resource, err := reg.Resource.Get(ctx, rID)
		if err != nil {
			return domain.SearchRequest{}, domain.NewValidation("resource_ids", "unknown resource "+rID)
		}
		if resource.CollectionID != collectionID {
			return domain.SearchRequest{}, domain.NewValidation("resource_ids", "resource "+rID+" is not in collection "+collectionID)
		}
	}

	s := domain.SearchRequest{
		ID:           uuid.New().String(),
		CollectionID: collectionID,
		Query:        query,
		ResourceIDs:  resourceIDs,
		Filters:      filters,
		CallbackURLs: callbackURLs,
		Status:       domain.SearchPending,
		MaxResults:   maxResults,
	}
	s, err := reg.Search.Save(ctx, s)
	if err != nil {
		return domain.SearchRequest{}, domain.NewTransient("save search request", err)
	}
	if err := reg.Dispatch.EnqueueSearchStage(ctx, StageInitiateSearchRequest, s.ID); err != nil {
		return domain.SearchRequest{}, domain.NewTransient("enqueue initiate-search stage", err)
	}
	return s, nil
}

// GetSearchMetadata returns a search request's own fields without its
// results, grounded on GetQueryResultMetadata.execute.
func GetSearchMetadata(ctx context.Context, reg *registry.Registry, searchID string) (domain.SearchRequest, error) {
	return reg.Search.Get(ctx, searchID)
}

// GetSearchResults returns the evidence chunks and generated answer backing
// a search, grounded on GetQueryResult.execute. Callers should check the
// search's status before assuming results are final.
func GetSearchResults(ctx context.Context, reg *registry.Registry, searchID string) (domain.SearchRequest, []domain.SearchResult, error) {
	search, err := reg.Search.Get(ctx, searchID)
	if err != nil {
		return domain.SearchRequest{}, nil, err
	}
	results, err := reg.Search.Results(ctx, searchID)
	if err != nil {
		return domain.SearchRequest{}, nil, domain.NewTransient("load search results", err)
	}
	return search, results, nil
}
