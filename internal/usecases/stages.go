// Package usecases implements the knowledge service's pipeline stages and
// CRUD operations. Each stage is one exported function taking a
// *registry.Registry and the entity ID it operates on, grounded on the
// one-class-per-task shape of the original's usecases.py, generalized from
// synchronous Celery task execution to functions invoked by the worker's
// Kafka consumer loop.
package usecases

// Stage names double as both the dispatch topic payload and the worker's
// handler lookup key. They mirror worker.py's task names.
const (
	StageInitiateProcessing      = "initiate_processing_of_new_resource"
	StageInitialiseResourceGraph = "initialise_resource_graph"
	StageExtractPlainText        = "extract_plain_text_of_resource"
	StageChunkResourceText       = "chunk_resource_text"
	StageUpdateChunkEmbeddings   = "update_chunks_with_embeddings"
	StageVentilateResource       = "ventilate_resource_processing"

	StageInitiateSearchRequest  = "initiate_search_request"
	StageVectoriseSearchQuery   = "vectorise_the_search_query"
	StageIdentifyRelatedContent = "identify_related_content"
	StageExecuteRagPrompt       = "execute_the_rag_prompt"
	StageIssueCredentials       = "issue_credentials"
	StageVentilateSearch        = "ventilate_search_results"
)
