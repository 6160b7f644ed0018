package dto

// PassItemStatus classifies the outcome of one item within a pass
const (
	PassItemSuccess = "success"
	PassItemFailed  = "failed"
	PassItemSkipped = "skipped"
)

// PassItemResult is the outcome of a single item processed by a pass
type PassItemResult struct {
	// ID of the billable item or charge the result refers to
	ID     string `json:"id"`
	Status string `json:"status"`
	Error  string `json:"error,omitempty"`
}

// PassResponse aggregates the outcome of a due-item or reconciliation
// pass
type PassResponse struct {
	Total     int              `json:"total"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Skipped   int              `json:"skipped"`
	Items     []PassItemResult `json:"items"`
}

// NewPassResponse creates an empty pass response
func NewPassResponse() *PassResponse {
	return &PassResponse{
		Items: make([]PassItemResult, 0),
	}
}

// RecordSuccess adds a successful item to the response
func (r *PassResponse) RecordSuccess(id string) {
	r.Total++
	r.Succeeded++
	r.Items = append(r.Items, PassItemResult{ID: id, Status: PassItemSuccess})
}

// RecordFailure adds a failed item to the response
func (r *PassResponse) RecordFailure(id string, err error) {
	r.Total++
	r.Failed++
	r.Items = append(r.Items, PassItemResult{ID: id, Status: PassItemFailed, Error: err.Error()})
}

// RecordSkip adds a skipped item to the response
func (r *PassResponse) RecordSkip(id string, reason string) {
	r.Total++
	r.Skipped++
	r.Items = append(r.Items, PassItemResult{ID: id, Status: PassItemSkipped, Error: reason})
}

// TenantTarget selects one tenant to process in a cron request
type TenantTarget struct {
	TenantID      string `json:"tenant_id" binding:"required"`
	EnvironmentID string `json:"environment_id,omitempty"`
}

// RunPassRequest is the optional body of the cron pass endpoints. When
// no targets are given the pass runs for the ambient tenant.
type RunPassRequest struct {
	Targets []TenantTarget `json:"targets,omitempty"`
}
