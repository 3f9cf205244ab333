// Package domain holds the entities, value objects, and status enums of the
// knowledge service's data model.
package domain

import "time"

// Subscription is the top-level tenant scope that owns collections and the
// set of resource types allowed within them.
type Subscription struct {
	ID              string
	Name            string
	IsActive        bool
	ResourceTypeIDs []string
	OrganisationID  string
	UserID          string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResourceType is a named capability that determines chunking strategy and
// prompt templates downstream. Immutable after creation.
type ResourceType struct {
	ID      string
	Name    string
	Tooltip string
}

// Collection is a bag of resources scoped to a subscription.
type Collection struct {
	ID              string
	SubscriptionID  string
	Name            string
	Description     string
	ResourceTypeIDs []string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// ResourceStatus enumerates the states a Resource may occupy in the ingest
// pipeline's state machine (spec.md §4.2).
type ResourceStatus string

const (
	ResourcePending        ResourceStatus = "pending"
	ResourceScanning       ResourceStatus = "scanning"
	ResourceQuarantined    ResourceStatus = "quarantined"
	ResourceInvalidFormat  ResourceStatus = "invalid_format"
	ResourceGraphed        ResourceStatus = "graphed"
	ResourceExtracted      ResourceStatus = "extracted"
	ResourceChunked        ResourceStatus = "chunked"
	ResourceEmbedded       ResourceStatus = "embedded"
	ResourceReady          ResourceStatus = "ready"
	ResourceFailed         ResourceStatus = "failed"
)

// resourceRank orders statuses along the ingest pipeline's happy path so
// callers can cheaply test "has this resource reached at least stage X".
var resourceRank = map[ResourceStatus]int{
	ResourcePending:   0,
	ResourceScanning:  1,
	ResourceGraphed:   2,
	ResourceExtracted: 3,
	ResourceChunked:   4,
	ResourceEmbedded:  5,
	ResourceReady:     6,
}

// IsTerminal reports whether the ingest pipeline stops at this status.
func (s ResourceStatus) IsTerminal() bool {
	switch s {
	case ResourceQuarantined, ResourceInvalidFormat, ResourceFailed, ResourceReady:
		return true
	default:
		return false
	}
}

// AtLeast reports whether s has advanced to or past other along the happy
// path. Terminal non-happy-path statuses (quarantined, invalid_format,
// failed) are never "at least" anything.
func (s ResourceStatus) AtLeast(other ResourceStatus) bool {
	sr, ok := resourceRank[s]
	if !ok {
		return false
	}
	or, ok := resourceRank[other]
	if !ok {
		return false
	}
	return sr >= or
}

// Resource is an ingested artifact moving through the pipeline.
type Resource struct {
	ID              string
	CollectionID    string
	ResourceTypeID  string
	Name            string
	FileName        string
	FileType        string // MIME, empty until detected
	File            []byte // nil once superseded or quarantined
	MarkdownContent string // empty until extracted
	CallbackURLs    []string
	Status          ResourceStatus
	Error           string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// SectionHeader is one entry in a chunk's path of enclosing headings.
type SectionHeader struct {
	ID      string
	Heading string
}

// ResourceChunk is a searchable fragment of a resource.
type ResourceChunk struct {
	ID        string
	ResourceID string
	Sequence  int
	Text      string
	Extract   string
	Preamble  string
	Postamble string
	Path      []SectionHeader
	Metadata  map[string]string
	Embedding []float32
	Score     float64 // transient; only meaningful on a search hit
}

// SearchStatus enumerates the states a SearchRequest may occupy in the
// query pipeline's state machine.
type SearchStatus string

const (
	SearchPending       SearchStatus = "pending"
	SearchVectorised    SearchStatus = "vectorised"
	SearchMatched       SearchStatus = "matched"
	SearchGenerated     SearchStatus = "generated"
	SearchCredentialled SearchStatus = "credentialled"
	SearchReady         SearchStatus = "ready"
	SearchFailed        SearchStatus = "failed"
)

var searchRank = map[SearchStatus]int{
	SearchPending:       0,
	SearchVectorised:    1,
	SearchMatched:       2,
	SearchGenerated:     3,
	SearchCredentialled: 4,
	SearchReady:         5,
}

// IsTerminal reports whether the query pipeline stops at this status.
func (s SearchStatus) IsTerminal() bool {
	return s == SearchReady || s == SearchFailed
}

// AtLeast reports whether s has advanced to or past other along the happy path.
func (s SearchStatus) AtLeast(other SearchStatus) bool {
	sr, ok := searchRank[s]
	if !ok {
		return false
	}
	or, ok := searchRank[other]
	if !ok {
		return false
	}
	return sr >= or
}

// SearchRequest is a query job moving through the query pipeline.
type SearchRequest struct {
	ID           string
	CollectionID string
	Query        string
	ResourceIDs  []string
	Filters      map[string]string
	CallbackURLs []string
	CreatedAt    time.Time
	Status       SearchStatus
	Embedding    []float32
	Prompt       string
	Response     string
	CredentialURL string
	Error        string
	Deadline     time.Time // stored on save when set; no stage reads or enforces it
	// MaxResults is QueryParameters.max_results (spec.md §4.2): the top-k
	// cap for this search. Zero means "absent" — IdentifyRelatedContent
	// falls back to usecases.DefaultTopK.
	MaxResults int
}

// SearchResult is one piece of evidence backing a search's answer.
type SearchResult struct {
	ID        string
	SearchID  string
	ChunkID   string
	Content   string
	Score     float64
	CreatedAt time.Time
}
