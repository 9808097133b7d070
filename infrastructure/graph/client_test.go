package graph

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garrettrowe/contracts-blockchain/application/ports"
	"github.com/garrettrowe/contracts-blockchain/infrastructure/config"
	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

func testConfig(serverURL string) config.GraphConfig {
	return config.GraphConfig{
		// The bound URL points at the instance's default graph segment.
		APIURL:         serverURL + "/g",
		Username:       "graphuser",
		Password:       "graphpass",
		GraphName:      "graphdbcontracts",
		RequestTimeout: 2 * time.Second,
	}
}

func TestOpenSession(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/_session", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "graphuser", user)
		assert.Equal(t, "graphpass", pass)
		w.Write([]byte(`{"gds-token":"tok-abc"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, client.OpenSession(context.Background()))
	assert.Equal(t, "tok-abc", client.token)
}

func TestGremlin_UsesNamedGraphAndToken(t *testing.T) {
	var gotPath, gotAuth string
	var gotQuery ports.GremlinQuery
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/_session" {
			w.Write([]byte(`{"gds-token":"tok-abc"}`))
			return
		}
		gotPath = r.URL.Path
		gotAuth = r.Header.Get("Authorization")
		json.NewDecoder(r.Body).Decode(&gotQuery)
		w.Write([]byte(`{"result":{"data":[]}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	require.NoError(t, client.OpenSession(context.Background()))

	_, err := client.Gremlin(context.Background(), ports.GremlinQuery{
		Gremlin:  "g.V().has(qtype, qvalue)",
		Bindings: map[string]string{"qtype": "company", "qvalue": "Acme"},
	})
	require.NoError(t, err)

	// The configured graph name replaces the bound URL's trailing segment.
	assert.Equal(t, "/graphdbcontracts/gremlin", gotPath)
	assert.Equal(t, "gds-token tok-abc", gotAuth)
	assert.Equal(t, "company", gotQuery.Bindings["qtype"])
}

func TestGremlin_DecodesVertices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"requestId":"abc","status":{"code":200},"result":{"data":[
			{"id":4216,"label":"contract","type":"vertex","properties":{
				"name":[{"id":"p1","value":"C1"}],
				"hash":[{"id":"p2","value":"5d41402abc4b2a76b9719d911017c592"}]}},
			{"id":8333,"label":"contract","type":"vertex","properties":{
				"name":[{"id":"p3","value":"C2"}]}}
		]}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	result, err := client.Gremlin(context.Background(), ports.GremlinQuery{Gremlin: "g.V()"})
	require.NoError(t, err)

	require.Len(t, result.Vertices, 2)
	assert.Equal(t, "contract", result.Vertices[0].Label)
	assert.Equal(t, "C1", result.Vertices[0].Properties["name"])
	assert.Equal(t, "5d41402abc4b2a76b9719d911017c592", result.Vertices[0].Properties["hash"])
	assert.Equal(t, "C2", result.Vertices[1].Properties["name"])
}

func TestGremlin_ReopensSessionOn401(t *testing.T) {
	var sessions int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/_session":
			sessions++
			w.Write([]byte(`{"gds-token":"tok-fresh"}`))
		default:
			if r.Header.Get("Authorization") != "gds-token tok-fresh" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			w.Write([]byte(`{"result":{"data":[]}}`))
		}
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	client.token = "tok-stale"

	_, err := client.Gremlin(context.Background(), ports.GremlinQuery{Gremlin: "g.V()"})
	require.NoError(t, err)
	assert.Equal(t, 1, sessions, "expired token is exchanged exactly once")
}

func TestSetSchema_Passthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/graphdbcontracts/schema", r.URL.Path)
		var schema map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&schema))
		assert.Contains(t, schema, "propertyKeys")
		w.Write([]byte(`{"result":{"data":[{"propertyKeys":[]}]}}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	result, err := client.SetSchema(context.Background(), []byte(`{"propertyKeys":[]}`))
	require.NoError(t, err)
	assert.Contains(t, string(result), "result")
}

func TestGremlin_BackendFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"message":"script evaluation failed"}`))
	}))
	defer server.Close()

	client := NewClient(testConfig(server.URL), zap.NewNop())
	_, err := client.Gremlin(context.Background(), ports.GremlinQuery{Gremlin: "broken"})
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrorTypeBackend))
}

func TestGremlin_TransportError(t *testing.T) {
	client := NewClient(testConfig("http://127.0.0.1:1"), zap.NewNop())
	_, err := client.Gremlin(context.Background(), ports.GremlinQuery{Gremlin: "g.V()"})
	require.Error(t, err)
	assert.True(t, apperrors.IsUnavailable(err))
}
