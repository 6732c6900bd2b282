// Package processing runs a transformation request through the pipeline:
// prompt construction, one completion call, normalization and, for
// multi-field tasks, structured extraction.
package processing

import (
	"encoding/json"

	"github.com/teilomillet/quill/extract"
	"github.com/teilomillet/quill/prompt"
)

// Response is the processed output of one request.
//
// Single-answer tasks fill Result. Multi-field tasks fill Fields, where every
// schema field is present, extracted or holding its placeholder.
type Response struct {
	Task    prompt.Task
	Result  string
	Fields  map[string]string
	Sources map[string]extract.Source
	Raw     string // the completion as received
}

// MarshalJSON renders {"result": ...} for single-answer tasks and the fields
// as top-level keys for multi-field tasks.
func (r *Response) MarshalJSON() ([]byte, error) {
	if r.Fields != nil {
		return json.Marshal(r.Fields)
	}
	return json.Marshal(struct {
		Result string `json:"result"`
	}{r.Result})
}
