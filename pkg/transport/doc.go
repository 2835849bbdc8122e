// Package transport defines the protocol-independent request handling
// pipeline. The Analyzer interface is the single entry point for mutation
// analysis requests; middleware (logging, recovery, request IDs) composes
// around it, and protocol adapters (HTTP) sit on top.
package transport
