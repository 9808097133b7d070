// Package orchestrator coordinates contract writes and reads across the
// ledger and the graph. Consistency policy lives here and nowhere else:
// neither backend client owns it.
//
// The policy, deliberately asymmetric: graph failures on create and query
// are caller-visible; ledger failures on create and delete are logged and
// swallowed. The graph is the latency-critical read path, the ledger an
// eventually-consistent audit trail. There is no rollback and no two-phase
// commit; a create is "accepted", not "confirmed and consistent".
package orchestrator

import (
	"context"
	"encoding/json"
	"sync"

	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/domain/contract"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// indexKey is the chaincode key holding the set of all contract names,
// maintained by the chaincode itself.
const indexKey = "_contractindex"

// queryableKeys are the vertex property keys a query may match on. The
// caller's type string is checked against this set before it goes anywhere
// near a script.
var queryableKeys = map[string]bool{
	"name":     true,
	"title":    true,
	"company":  true,
	"location": true,
}

// Orchestrator coordinates creates, deletes and queries across the two
// backends. Safe for concurrent use; it holds no mutable state.
type Orchestrator struct {
	ledger ports.LedgerClient
	graph  ports.GraphClient
	logger *zap.Logger
}

// New builds an orchestrator over the two backend capabilities.
func New(ledger ports.LedgerClient, graph ports.GraphClient, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{ledger: ledger, graph: graph, logger: logger}
}

// createScript adds the contract vertex and connects it to deduplicated
// company and location vertices. Lookup-or-create runs inside this single
// script so two concurrent creates cannot race a duplicate vertex past the
// traversal check. All caller values arrive through bindings.
const createScript = `def contractV = graph.addVertex(T.label, 'contract', 'name', contractName, 'hash', hash, 'title', title);
def company1T = graph.traversal().V().has('company', company1);
def company1V = company1T.hasNext() ? company1T.next() : graph.addVertex(T.label, 'company', 'company', company1);
def company2T = graph.traversal().V().has('company', company2);
def company2V = company2T.hasNext() ? company2T.next() : graph.addVertex(T.label, 'company', 'company', company2);
def locationT = graph.traversal().V().has('location', location);
def locationV = locationT.hasNext() ? locationT.next() : graph.addVertex(T.label, 'location', 'location', location);
contractV.addEdge('companies', company1V);
contractV.addEdge('companies', company2V);
contractV.addEdge('locations', locationV);
graph.tx().commit();`

// Create validates the input, issues the ledger write fire-and-forget, and
// submits the graph mutation. The returned error reflects the graph write
// only; ledger confirmation is asynchronous and never awaited.
func (o *Orchestrator) Create(ctx context.Context, in contract.CreateInput) error {
	if err := in.Validate(); err != nil {
		return apperrors.NewValidationError(err.Error())
	}
	c := in.ToContract()

	// Ledger write. Detached from the request context so the invoke
	// survives the HTTP response; failure is operator-visible only.
	go func(ctx context.Context) {
		txID, err := o.ledger.Invoke(ctx, "init_contract", c.LedgerArgs())
		if err != nil {
			o.logger.Error("Ledger create failed, graph will be ahead of ledger",
				zap.String("name", c.Name),
				zap.Error(err),
			)
			return
		}
		o.logger.Info("Ledger accepted contract",
			zap.String("name", c.Name),
			zap.String("tx_id", txID),
		)
	}(context.WithoutCancel(ctx))

	_, err := o.graph.Gremlin(ctx, ports.GremlinQuery{
		Gremlin: createScript,
		Bindings: map[string]string{
			"contractName": c.Name,
			"hash":         c.Hash,
			"title":        c.Title,
			"company1":     c.Company1,
			"company2":     c.Company2,
			"location":     c.Location,
		},
	})
	if err != nil {
		o.logger.Error("Graph create failed", zap.String("name", c.Name), zap.Error(err))
		return err
	}

	o.logger.Info("Contract accepted", zap.String("name", c.Name), zap.String("hash", c.Hash))
	return nil
}

// deleteScript drops the contract vertex and its edges. Zero matches is a
// no-op, not an error.
const deleteScript = `graph.traversal().V().hasLabel('contract').has('name', contractName).drop();
graph.tx().commit();`

// Delete removes the contract from the graph and, best effort, from the
// ledger. The two removals are independent; a ledger refusal only means the
// stores had already diverged, which is a warning, not a request failure.
func (o *Orchestrator) Delete(ctx context.Context, name string) error {
	if name == "" {
		return apperrors.NewValidationError("name is required")
	}

	_, err := o.graph.Gremlin(ctx, ports.GremlinQuery{
		Gremlin:  deleteScript,
		Bindings: map[string]string{"contractName": name},
	})
	if err != nil {
		o.logger.Error("Graph delete failed", zap.String("name", name), zap.Error(err))
		return err
	}

	go func(ctx context.Context) {
		if _, err := o.ledger.Invoke(ctx, "delete", []string{name}); err != nil {
			o.logger.Warn("Ledger out of sync with graph",
				zap.String("name", name),
				zap.Error(err),
			)
		}
	}(context.WithoutCancel(ctx))

	o.logger.Info("Contract deleted from graph", zap.String("name", name))
	return nil
}

// Query finds every contract vertex connected to the vertex matching
// property qtype = value, then reads each contract's authoritative record
// from the ledger. Records are delivered on the returned channel in
// completion order: the reads race, whichever finishes first is emitted
// first. A ledger read that fails or comes back empty is logged and
// skipped; partial results are expected.
func (o *Orchestrator) Query(ctx context.Context, qtype, value string) (<-chan json.RawMessage, error) {
	if !queryableKeys[qtype] {
		return nil, apperrors.NewValidationError("type must be one of name, title, company, location")
	}

	result, err := o.graph.Gremlin(ctx, ports.GremlinQuery{
		Gremlin:  `graph.traversal().V().has(qtype, qvalue).inE().outV();`,
		Bindings: map[string]string{"qtype": qtype, "qvalue": value},
	})
	if err != nil {
		o.logger.Error("Graph query failed", zap.String("type", qtype), zap.Error(err))
		return nil, err
	}

	var names []string
	for _, v := range result.Vertices {
		name, ok := v.Properties["name"]
		if !ok {
			continue
		}
		names = append(names, name)
	}

	out := make(chan json.RawMessage, len(names))
	if len(names) == 0 {
		close(out)
		return out, nil
	}

	var wg sync.WaitGroup
	for _, name := range names {
		wg.Add(1)
		go func(name string) {
			defer wg.Done()
			record, err := o.ledger.Query(ctx, "read", []string{name})
			if err != nil {
				o.logger.Warn("Skipping contract, ledger read failed",
					zap.String("name", name),
					zap.Error(err),
				)
				return
			}
			if len(record) == 0 || string(record) == "null" {
				o.logger.Warn("Ledger out of sync with graph, contract missing",
					zap.String("name", name),
				)
				return
			}
			out <- json.RawMessage(record)
		}(name)
	}
	go func() {
		wg.Wait()
		close(out)
	}()
	return out, nil
}

// Index reads the authoritative contract name index straight from the
// ledger. No graph involvement; errors propagate.
func (o *Orchestrator) Index(ctx context.Context) ([]byte, error) {
	value, err := o.ledger.Query(ctx, "read", []string{indexKey})
	if err != nil {
		o.logger.Error("Index read failed", zap.Error(err))
		return nil, err
	}
	return value, nil
}

// GraphInit submits the property schema. Provisioning-only; whether a
// resubmission is an error is the backend's call.
func (o *Orchestrator) GraphInit(ctx context.Context) ([]byte, error) {
	schema, err := json.Marshal(graphSchema())
	if err != nil {
		return nil, apperrors.NewInternalError("encoding graph schema").WithCause(err)
	}
	result, err := o.graph.SetSchema(ctx, schema)
	if err != nil {
		o.logger.Error("Graph schema submission failed", zap.Error(err))
		return nil, err
	}
	o.logger.Info("Graph schema submitted")
	return result, nil
}
