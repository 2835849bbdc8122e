package api

// MutationRequest describes a structural change applied to a base molecule.
// It is created per inbound call, never mutated, and discarded when the
// call completes.
type MutationRequest struct {
	// BaseMolecule is the starting molecule, as free text (name or formula).
	BaseMolecule string `json:"base_molecule"`

	// Mutation is the structural change applied to the base molecule.
	Mutation string `json:"mutation"`

	// Question is an optional focus question for the analysis.
	Question string `json:"question,omitempty"`
}

// ExplanationLevels holds the analysis explanation at three depths.
type ExplanationLevels struct {
	Beginner     string `json:"beginner"`
	Intermediate string `json:"intermediate"`
	Advanced     string `json:"advanced"`
}

// IUPACNames holds the predicted systematic names for both molecules.
type IUPACNames struct {
	Original string `json:"original"`
	Mutated  string `json:"mutated"`
}

// Structures holds the model's guesses at line-notation identifiers for
// the original and mutated molecules. Guesses are untrusted until checked
// by the structure validator.
type Structures struct {
	OriginalIdentifierGuess string `json:"original_identifier_guess"`
	MutatedIdentifierGuess  string `json:"mutated_identifier_guess"`
}

// AnalysisResult is the parsed, schema-conformant analysis for one request.
// IUPACNames and Structures are only populated for the extended variant.
type AnalysisResult struct {
	Summary           string            `json:"summary"`
	KeyChanges        []string          `json:"key_changes"`
	Mechanisms        []string          `json:"mechanisms"`
	ExampleReactions  []string          `json:"example_reactions"`
	ExplanationLevels ExplanationLevels `json:"explanation_levels"`
	IUPACNames        *IUPACNames       `json:"iupac_names,omitempty"`
	Structures        *Structures       `json:"structures,omitempty"`
}

// StructureValidation is the outcome of checking one candidate identifier
// against the external structure validator. Ephemeral, one per candidate.
type StructureValidation struct {
	Valid               bool   `json:"valid"`
	CanonicalIdentifier string `json:"canonical_identifier,omitempty"`
	Error               string `json:"error,omitempty"`
}

// AnalysisStatus is the terminal state of one analysis request.
type AnalysisStatus string

const (
	// AnalysisStatusCompleted means the pipeline ran to completion and,
	// where applicable, the candidate structure validated.
	AnalysisStatusCompleted AnalysisStatus = "completed"

	// AnalysisStatusRejected means the pipeline completed but the external
	// validator rejected the candidate structure. The analysis content is
	// still surfaced for its diagnostic value.
	AnalysisStatusRejected AnalysisStatus = "rejected"
)

// AnalysisResponse is the reconciled outcome of one analysis request.
//
// For status "completed" the full analysis is present and, when structure
// validation ran, CanonicalIdentifier carries the validator's normalized
// form. For status "rejected" the analysis is surfaced minus its structures
// (which move to the top-level Structures field alongside RDKitError).
type AnalysisResponse struct {
	ID        string         `json:"id"`
	Object    string         `json:"object"`
	Status    AnalysisStatus `json:"status"`
	Model     string         `json:"model,omitempty"`
	CreatedAt int64          `json:"created_at"`

	Analysis *AnalysisResult `json:"analysis"`

	// CanonicalIdentifier is the validator-normalized identifier for the
	// mutated molecule. Present only on completed extended analyses.
	CanonicalIdentifier string `json:"canonical_identifier,omitempty"`

	// Structures carries the AI-proposed identifiers on rejection, so the
	// caller can inspect what the validator turned down.
	Structures *Structures `json:"structures,omitempty"`

	// RDKitError is the validator's reason for rejecting the candidate
	// identifier. Present only on rejected analyses.
	RDKitError string `json:"rdkit_error,omitempty"`
}
