package domain

// InvalidationEvent tells other replicas and the snapshot refresher that the
// cached representation of a resource is stale.
type InvalidationEvent struct {
	Resource    string   `json:"resource"`
	ProcedureID string   `json:"procedure_id"`
	CacheKeys   []string `json:"cache_keys,omitempty"`
}

const (
	ResourceProcedure = "procedure"
	ResourceFeedback  = "feedback"
)
