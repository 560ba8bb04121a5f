package types

import "time"

// Run statuses.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
	RunUnchanged = "unchanged"
)

// RouteDecl is one pre-resolved route handed to the generator.
type RouteDecl struct {
	Path       string    `yaml:"path" json:"path"`
	Method     string    `yaml:"method" json:"method"`
	Controller string    `yaml:"controller,omitempty" json:"controller,omitempty"`
	Body       TypeField `yaml:"body,omitempty" json:"body,omitempty"`
	Query      TypeField `yaml:"query,omitempty" json:"query,omitempty"`
	Params     TypeField `yaml:"params,omitempty" json:"params,omitempty"`
	Headers    TypeField `yaml:"headers,omitempty" json:"headers,omitempty"`
	Response   TypeField `yaml:"response,omitempty" json:"response,omitempty"`
}

// Fields returns the five typed slots in emission order.
func (r RouteDecl) Fields() [5]TypeField {
	return [5]TypeField{r.Body, r.Query, r.Params, r.Headers, r.Response}
}

// Run records one generation run.
type Run struct {
	ID          string        `json:"id"`
	Input       string        `json:"input"`
	Output      string        `json:"output"`
	ContentHash string        `json:"content_hash,omitempty"`
	RouteCount  int           `json:"route_count"`
	PathCount   int           `json:"path_count"`
	Status      string        `json:"status"`
	ErrorMsg    string        `json:"error_msg,omitempty"`
	Duration    time.Duration `json:"duration"`
	CreatedAt   time.Time     `json:"created_at"`
	FinishedAt  *time.Time    `json:"finished_at,omitempty"`
}

// RunRoute is one route emitted by a run.
type RunRoute struct {
	RunID      string `json:"run_id"`
	Seq        int    `json:"seq"`
	Method     string `json:"method"`
	Path       string `json:"path"`
	Controller string `json:"controller,omitempty"`
	Response   string `json:"response"`
}
