// Package api defines the wire types and error model for the molmute
// mutation-analysis API: the inbound MutationRequest, the reconciled
// AnalysisResponse with its terminal statuses, the StructureValidation
// outcome type, request validation, and the typed APIError hierarchy
// that maps onto HTTP statuses at the transport boundary.
package api
