package engine

import (
	"encoding/json"
	"strings"

	"github.com/molmute/molmute/pkg/api"
	"github.com/molmute/molmute/pkg/debug"
	"github.com/molmute/molmute/pkg/schema"
)

// maxRawPreview caps how much of the backend's raw text is echoed into
// parse error diagnostics.
const maxRawPreview = 512

// ParseAnalysis converts the raw backend text into a structured analysis
// result. It distinguishes three failure modes: no content at all, text
// that is not valid JSON, and JSON that does not conform to the announced
// schema variant. Backends advertising strict schema enforcement still
// get re-validated here; enforcement is advisory on some deployments.
func ParseAnalysis(raw string, variant schema.Variant) (*api.AnalysisResult, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, api.NewMalformedOutputError(api.CodeEmptyResponse, "no content returned")
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		debug.Log("engine", "analysis output is not valid JSON", "error", err)
		return nil, api.NewMalformedOutputError(api.CodeInvalidJSON,
			"backend returned invalid JSON: "+err.Error()+"; raw output: "+debug.Truncate(raw, maxRawPreview))
	}

	if err := checkRequired(fields, variant); err != nil {
		return nil, err
	}

	var result api.AnalysisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, api.NewMalformedOutputError(api.CodeInvalidJSON,
			"backend JSON does not match the analysis structure: "+err.Error())
	}

	if variant == schema.VariantExtended {
		if err := checkExtended(&result); err != nil {
			return nil, err
		}
	}

	return &result, nil
}

// checkRequired verifies that every required top-level field of the
// variant's schema is present and that the backend invented no extras.
func checkRequired(fields map[string]json.RawMessage, variant schema.Variant) error {
	required := schema.RequiredTopLevel(variant)

	allowed := make(map[string]bool, len(required))
	for _, key := range required {
		allowed[key] = true
		if _, ok := fields[key]; !ok {
			return api.NewSchemaViolationError(key, "backend output is missing required field '"+key+"'")
		}
	}

	for key := range fields {
		if !allowed[key] {
			return api.NewSchemaViolationError(key, "backend output contains unexpected field '"+key+"'")
		}
	}

	return nil
}

// checkExtended validates the sub-objects that only the extended variant
// requires.
func checkExtended(result *api.AnalysisResult) error {
	if result.IUPACNames == nil {
		return api.NewSchemaViolationError("iupac_names", "backend output is missing required field 'iupac_names'")
	}
	if result.Structures == nil {
		return api.NewSchemaViolationError("structures", "backend output is missing required field 'structures'")
	}
	return nil
}
