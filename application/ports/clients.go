// Package ports defines the capability interfaces the orchestration layer
// depends on. The ledger and graph are opaque services reachable only
// through these; adapters live under infrastructure.
package ports

import "context"

// LedgerClient is the capability-restricted interface to the append-only
// contract ledger.
type LedgerClient interface {
	// Invoke submits a state-changing chaincode transaction and returns
	// the transaction id the peer assigned.
	Invoke(ctx context.Context, fn string, args []string) (string, error)
	// Query reads chaincode state without mutating it. The returned bytes
	// are the chaincode's raw payload (may be the literal "null").
	Query(ctx context.Context, fn string, args []string) ([]byte, error)
	// Deploy issues the one-time chaincode deployment. Idempotent on the
	// peer side; only the deployment gate calls it.
	Deploy(ctx context.Context, fn string, args []string) (string, error)
}

// GremlinQuery is a Gremlin script plus its value bindings. Caller-supplied
// strings travel in Bindings, never spliced into the script.
type GremlinQuery struct {
	Gremlin  string            `json:"gremlin"`
	Bindings map[string]string `json:"bindings"`
}

// Vertex is a decoded graph vertex. Properties are flattened to their first
// value per key.
type Vertex struct {
	ID         interface{}
	Label      string
	Properties map[string]string
}

// GremlinResult is the decoded payload of a traversal or mutation.
type GremlinResult struct {
	Vertices []Vertex
}

// GraphClient is the capability-restricted interface to the property graph.
type GraphClient interface {
	// Gremlin executes a script with bindings against the active graph.
	Gremlin(ctx context.Context, q GremlinQuery) (*GremlinResult, error)
	// SetSchema submits the schema document; used once at provisioning.
	// Idempotency is backend-defined.
	SetSchema(ctx context.Context, schema []byte) ([]byte, error)
}
