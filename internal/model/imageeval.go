package model

import "encoding/json"

// ImageEvaluation is the authenticity assessment of a single image.
// The image evaluation artifact maps each image URL to a list of these;
// each evaluation run contributes exactly one entry per image.
type ImageEvaluation struct {
	// ImageURL is the evaluated image's URL.
	ImageURL string `json:"image_url"`

	// ToolsCalled lists the evidence tools invoked, in order.
	ToolsCalled []string `json:"tools_called,omitempty"`

	// ToolResults holds each tool's raw output keyed by tool name.
	// Tool failures are recorded here as {"error": message} rather than
	// failing the evaluation.
	ToolResults map[string]json.RawMessage `json:"tool_results,omitempty"`

	// Assessment is the authenticity score: 0.0 means certainly
	// AI-generated or manipulated, 1.0 means certainly authentic.
	Assessment float64 `json:"assessment"`

	// Evidence is a short explanation of the assessment.
	Evidence string `json:"evidence,omitempty"`

	// Error is set when the image could not be evaluated at all.
	Error string `json:"error,omitempty"`
}
