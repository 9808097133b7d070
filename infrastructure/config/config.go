// Package config loads process configuration from environment variables and,
// when present, Cloud Foundry style VCAP_SERVICES service bindings. Parsed
// once at startup; nothing here is touched on the request path.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	apperrors "github.com/garrettrowe/contracts-blockchain/pkg/errors"
)

// Config holds all application configuration.
type Config struct {
	ServerAddress string
	Environment   string
	EnableCORS    bool

	Ledger LedgerConfig
	Graph  GraphConfig
	Gate   GateConfig
}

// LedgerConfig describes the blockchain peer this process talks to.
type LedgerConfig struct {
	// PeerURL is the REST endpoint of peer 0.
	PeerURL string
	// ChaincodeName is the deployed chaincode id. Empty means the chaincode
	// has no prior deployment and the gate must deploy it.
	ChaincodeName string
	// ChaincodePath is the source path the peer fetches when deploying.
	ChaincodePath string
	// Optional membership credentials; absent on anonymous networks.
	EnrollID     string
	EnrollSecret string

	RequestTimeout time.Duration
}

// GraphConfig describes the property graph service.
type GraphConfig struct {
	APIURL    string
	Username  string
	Password  string
	GraphName string

	RequestTimeout time.Duration
}

// GateConfig tunes the deployment gate probe.
type GateConfig struct {
	// SettleDelay is how long to wait after a fresh deploy before the first
	// probe; the chaincode container takes tens of seconds to start.
	SettleDelay   time.Duration
	ProbeInterval time.Duration
	MaxAttempts   int
}

// Load reads configuration from the environment. VCAP_SERVICES, when set,
// overrides the flat env vars for peer endpoints and graph credentials.
func Load() (*Config, error) {
	cfg := &Config{
		ServerAddress: getEnv("SERVER_ADDRESS", ":8080"),
		Environment:   getEnv("ENVIRONMENT", "development"),
		EnableCORS:    getEnvBool("ENABLE_CORS", true),
		Ledger: LedgerConfig{
			PeerURL:        getEnv("LEDGER_PEER_URL", ""),
			ChaincodeName:  getEnv("LEDGER_CHAINCODE_NAME", ""),
			ChaincodePath:  getEnv("LEDGER_CHAINCODE_PATH", "github.com/garrettrowe/contracts-blockchain/chaincode"),
			EnrollID:       getEnv("LEDGER_ENROLL_ID", ""),
			EnrollSecret:   getEnv("LEDGER_ENROLL_SECRET", ""),
			RequestTimeout: getEnvDuration("LEDGER_REQUEST_TIMEOUT", 30*time.Second),
		},
		Graph: GraphConfig{
			APIURL:         getEnv("GRAPH_API_URL", ""),
			Username:       getEnv("GRAPH_USERNAME", ""),
			Password:       getEnv("GRAPH_PASSWORD", ""),
			GraphName:      getEnv("GRAPH_NAME", "graphdbcontracts"),
			RequestTimeout: getEnvDuration("GRAPH_REQUEST_TIMEOUT", 30*time.Second),
		},
		Gate: GateConfig{
			SettleDelay:   getEnvDuration("GATE_SETTLE_DELAY", 30*time.Second),
			ProbeInterval: getEnvDuration("GATE_PROBE_INTERVAL", 10*time.Second),
			MaxAttempts:   getEnvInt("GATE_MAX_ATTEMPTS", 15),
		},
	}

	if raw := os.Getenv("VCAP_SERVICES"); raw != "" {
		if err := cfg.applyVCAP(raw); err != nil {
			return nil, err
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that both backends are reachable on paper.
func (c *Config) Validate() error {
	if c.Ledger.PeerURL == "" {
		return apperrors.NewConfigurationError("no ledger peer configured: set LEDGER_PEER_URL or bind a blockchain service")
	}
	if c.Graph.APIURL == "" {
		return apperrors.NewConfigurationError("no graph service configured: set GRAPH_API_URL or bind a graph service")
	}
	return nil
}

// IsDevelopment checks if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// vcapService mirrors the slice of bound service instances under each
// service label in VCAP_SERVICES.
type vcapService struct {
	Name        string          `json:"name"`
	Credentials vcapCredentials `json:"credentials"`
}

type vcapCredentials struct {
	Peers []vcapPeer `json:"peers"`
	Users []vcapUser `json:"users"`

	APIURL   string `json:"apiURL"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type vcapPeer struct {
	APIHost    string   `json:"api_host"`
	APIPort    flexPort `json:"api_port"`
	APIPortTLS flexPort `json:"api_port_tls"`
}

// flexPort tolerates bindings that write ports as JSON numbers or strings;
// both occur in the wild.
type flexPort string

func (f *flexPort) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexPort(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexPort(n.String())
	return nil
}

type vcapUser struct {
	EnrollID     string `json:"enrollId"`
	EnrollSecret string `json:"enrollSecret"`
}

// applyVCAP overlays service-binding credentials onto the config. A binding
// whose instance name contains "lockchain" supplies the peer list and
// optional enrollment users; a service label containing "Graph" supplies
// graph credentials.
func (c *Config) applyVCAP(raw string) error {
	var services map[string][]vcapService
	if err := json.Unmarshal([]byte(raw), &services); err != nil {
		return apperrors.NewConfigurationError("malformed VCAP_SERVICES").WithCause(err)
	}

	for label, instances := range services {
		if len(instances) == 0 {
			continue
		}
		inst := instances[0]

		if strings.Contains(inst.Name, "lockchain") && len(inst.Credentials.Peers) > 0 {
			url, err := peerURL(inst.Credentials.Peers[0])
			if err != nil {
				return err
			}
			c.Ledger.PeerURL = url
			if len(inst.Credentials.Users) > 0 {
				c.Ledger.EnrollID = inst.Credentials.Users[0].EnrollID
				c.Ledger.EnrollSecret = inst.Credentials.Users[0].EnrollSecret
			}
		}

		if strings.Contains(label, "Graph") && inst.Credentials.APIURL != "" {
			c.Graph.APIURL = inst.Credentials.APIURL
			c.Graph.Username = inst.Credentials.Username
			c.Graph.Password = inst.Credentials.Password
		}
	}
	return nil
}

// peerURL builds the REST endpoint for a peer, preferring the TLS port when
// the binding advertises one.
func peerURL(p vcapPeer) (string, error) {
	if p.APIHost == "" {
		return "", apperrors.NewConfigurationError("blockchain binding has a peer without api_host")
	}
	if p.APIPortTLS != "" {
		if _, err := strconv.Atoi(string(p.APIPortTLS)); err == nil {
			return fmt.Sprintf("https://%s:%s", p.APIHost, p.APIPortTLS), nil
		}
	}
	if p.APIPort == "" {
		return "", apperrors.NewConfigurationError("blockchain binding has a peer without api_port")
	}
	return fmt.Sprintf("http://%s:%s", p.APIHost, p.APIPort), nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
