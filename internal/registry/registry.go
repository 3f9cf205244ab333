// Package registry holds the typed, key-indexed set of port instances that
// use cases are constructed with. Unlike the Python source's dict keyed by
// snake-cased class name, unknown keys are a compile error, not a runtime
// one: the "accepts only keys that name a known port" invariant is enforced
// by the Go type system rather than checked at lookup time.
package registry

import "knowledgeservice/internal/ports"

// Registry is the immutable-after-construction set of capabilities every
// use case is built against. It is grounded on databases.Manager in the
// teacher, generalized from three backends to the full port set spec.md
// §4.1 names.
type Registry struct {
	Dispatch     ports.TaskDispatch
	Subscription ports.SubscriptionStore
	Collection   ports.CollectionStore
	ResourceType ports.ResourceTypeStore
	Resource     ports.ResourceStore
	Search       ports.SearchStore
	Graph        ports.GraphStore
	FileManager  ports.FileManager
	Antivirus    ports.AntivirusScanner
	Quarantine   ports.Quarantine
	LLM          ports.LanguageModel
	Chunker      ports.Chunker
	Webhook      ports.WebhookClient
}

// New builds a Registry from explicitly supplied port instances. There is
// no builder/with-option mutation after this call: the registry is a value
// passed once to the use-case layer, matching spec.md §5's "the registry
// itself is immutable after startup".
func New(
	dispatch ports.TaskDispatch,
	subscription ports.SubscriptionStore,
	collection ports.CollectionStore,
	resourceType ports.ResourceTypeStore,
	resource ports.ResourceStore,
	search ports.SearchStore,
	graph ports.GraphStore,
	fileManager ports.FileManager,
	antivirus ports.AntivirusScanner,
	quarantine ports.Quarantine,
	llm ports.LanguageModel,
	chunker ports.Chunker,
	webhook ports.WebhookClient,
) *Registry {
	return &Registry{
		Dispatch:     dispatch,
		Subscription: subscription,
		Collection:   collection,
		ResourceType: resourceType,
		Resource:     resource,
		Search:       search,
		Graph:        graph,
		FileManager:  fileManager,
		Antivirus:    antivirus,
		Quarantine:   quarantine,
		LLM:          llm,
		Chunker:      chunker,
		Webhook:      webhook,
	}
}
