// Package schema defines the fixed structured-output contract for mutation
// analyses. The generation backend is asked to produce JSON conforming to
// one of two variants: the basic five-field analysis, or the extended
// variant that additionally predicts IUPAC names and structure identifiers.
//
// Schemas are process-wide static configuration. Every object node rejects
// unknown properties and marks every declared field required; the backend
// is contractually expected to honor this, and a non-conformant response
// surfaces downstream as a parse failure, not a registry defect.
package schema

import (
	"encoding/json"
	"fmt"
)

// Variant selects which analysis contract the pipeline requests.
type Variant string

const (
	// VariantBasic is the five-field analysis contract.
	VariantBasic Variant = "basic"

	// VariantExtended adds predicted IUPAC names and structure identifier
	// guesses subject to external validation.
	VariantExtended Variant = "extended"
)

// Valid reports whether v names a known schema variant.
func (v Variant) Valid() bool {
	return v == VariantBasic || v == VariantExtended
}

// Node is one node of the JSON Schema tree attached to generation requests.
type Node struct {
	Type                 string           `json:"type"`
	Description          string           `json:"description,omitempty"`
	Properties           map[string]*Node `json:"properties,omitempty"`
	Required             []string         `json:"required,omitempty"`
	Items                *Node            `json:"items,omitempty"`
	AdditionalProperties *bool            `json:"additionalProperties,omitempty"`
}

// schemaFalse is shared by every object node; schemas are read-only.
var schemaFalse = false

func stringNode(desc string) *Node {
	return &Node{Type: "string", Description: desc}
}

func stringArrayNode(desc string) *Node {
	return &Node{Type: "array", Description: desc, Items: &Node{Type: "string"}}
}

func objectNode(desc string, props map[string]*Node) *Node {
	required := make([]string, 0, len(props))
	for name := range props {
		required = append(required, name)
	}
	// Deterministic required order keeps marshaled schemas byte-stable.
	sortStrings(required)
	return &Node{
		Type:                 "object",
		Description:          desc,
		Properties:           props,
		Required:             required,
		AdditionalProperties: &schemaFalse,
	}
}

func sortStrings(s []string) {
	for i := 1; i < len(s); i++ {
		for j := i; j > 0 && s[j] < s[j-1]; j-- {
			s[j], s[j-1] = s[j-1], s[j]
		}
	}
}

// basicSchema and extendedSchema are built once at init and shared
// read-only across requests.
var (
	basicSchema    = buildSchema(VariantBasic)
	extendedSchema = buildSchema(VariantExtended)
)

func buildSchema(v Variant) *Node {
	props := map[string]*Node{
		"summary":           stringNode("One-paragraph summary of how the mutation changes the molecule's behavior"),
		"key_changes":       stringArrayNode("Structural, electronic, and steric changes caused by the mutation"),
		"mechanisms":        stringArrayNode("Reaction mechanisms whose feasibility or rate the mutation affects"),
		"example_reactions": stringArrayNode("Concrete reactions illustrating the changed reactivity"),
		"explanation_levels": objectNode("The analysis explained at three depths", map[string]*Node{
			"beginner":     stringNode("Explanation for a reader with no chemistry background"),
			"intermediate": stringNode("Explanation for an undergraduate chemistry student"),
			"advanced":     stringNode("Explanation for a practicing chemist"),
		}),
	}

	if v == VariantExtended {
		props["iupac_names"] = objectNode("Predicted systematic names", map[string]*Node{
			"original": stringNode("IUPAC name of the base molecule"),
			"mutated":  stringNode("IUPAC name of the mutated molecule"),
		})
		props["structures"] = objectNode("Line-notation identifier guesses, subject to external validation", map[string]*Node{
			"original_identifier_guess": stringNode("Identifier guess for the base molecule"),
			"mutated_identifier_guess":  stringNode("Identifier guess for the mutated molecule"),
		})
	}

	return objectNode("Structured analysis of a molecular mutation", props)
}

// AnalysisSchema returns the fixed analysis schema for the given variant.
// The returned node tree is shared and must not be mutated.
func AnalysisSchema(v Variant) (*Node, error) {
	switch v {
	case VariantBasic:
		return basicSchema, nil
	case VariantExtended:
		return extendedSchema, nil
	default:
		return nil, fmt.Errorf("schema: unknown variant %q", v)
	}
}

// MarshalSchema serializes the analysis schema for the given variant into
// the raw JSON form attached to generation requests.
func MarshalSchema(v Variant) (json.RawMessage, error) {
	node, err := AnalysisSchema(v)
	if err != nil {
		return nil, err
	}
	data, err := json.Marshal(node)
	if err != nil {
		return nil, fmt.Errorf("schema: marshaling %s schema: %w", v, err)
	}
	return data, nil
}

// RequiredTopLevel returns the required top-level field names for the
// given variant, in schema order. Used by the strict response re-validation.
func RequiredTopLevel(v Variant) []string {
	node, err := AnalysisSchema(v)
	if err != nil {
		return nil
	}
	out := make([]string, len(node.Required))
	copy(out, node.Required)
	return out
}
