// Package verify checks that the MCP servers registered in a project's
// .cursor/mcp.json actually respond. It is only run on request; the
// configurator itself never touches the network.
package verify

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tv0e04k0/sk0ppbot/internal/mcpcfg"
)

const clientName = "botsetup"

// DefaultTimeout bounds the whole retry loop per server.
const DefaultTimeout = 30 * time.Second

type State int

const (
	StateConnected State = iota
	StateFailed
	// StateSkipped marks command-launched servers, which verification does
	// not spawn.
	StateSkipped
)

func (s State) String() string {
	switch s {
	case StateConnected:
		return "connected"
	case StateFailed:
		return "failed"
	case StateSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// Result is the verification outcome for one registered server.
type Result struct {
	Server string
	URL    string
	State  State
	Tools  int
	Err    error
}

type Verifier struct {
	configPath string
	timeout    time.Duration
}

func NewVerifier(configPath string) *Verifier {
	return &Verifier{
		configPath: configPath,
		timeout:    DefaultTimeout,
	}
}

// Verify connects to every URL-typed server in the config file and lists its
// tools. Connection failures go into the per-server result, not the returned
// error; only an unreadable or unparseable config fails the whole run.
func (v *Verifier) Verify(ctx context.Context) ([]Result, error) {
	servers, err := mcpcfg.Load(v.configPath)
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(servers))
	for _, server := range servers {
		results = append(results, v.verifyServer(ctx, server))
	}
	return results, nil
}

func (v *Verifier) verifyServer(ctx context.Context, server mcpcfg.Server) Result {
	result := Result{Server: server.Name, URL: server.URL}
	if !server.IsRemote() {
		result.State = StateSkipped
		return result
	}

	ctx, cancel := context.WithTimeout(ctx, v.timeout)
	defer cancel()

	var tools int
	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = v.timeout

	err := backoff.Retry(func() error {
		n, err := listTools(ctx, server)
		if err != nil {
			if ctx.Err() != nil {
				return backoff.Permanent(err)
			}
			return err
		}
		tools = n
		return nil
	}, backoff.WithContext(bo, ctx))
	if err != nil {
		result.State = StateFailed
		result.Err = err
		return result
	}

	result.State = StateConnected
	result.Tools = tools
	return result
}

func listTools(ctx context.Context, server mcpcfg.Server) (int, error) {
	client := mcp.NewClient(&mcp.Implementation{
		Name:    clientName,
		Version: "1.0.0",
	}, nil)

	transport := &mcp.StreamableClientTransport{
		Endpoint:   server.URL,
		HTTPClient: newHTTPClient(server.Headers),
	}

	session, err := client.Connect(ctx, transport, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to connect: %w", err)
	}
	defer session.Close()

	listed, err := session.ListTools(ctx, &mcp.ListToolsParams{})
	if err != nil {
		return 0, fmt.Errorf("failed to list tools: %w", err)
	}
	return len(listed.Tools), nil
}

func newHTTPClient(headers map[string]string) *http.Client {
	client := &http.Client{Timeout: 20 * time.Second}
	if len(headers) > 0 {
		client.Transport = &headerTransport{base: http.DefaultTransport, headers: headers}
	}
	return client
}

// headerTransport adds the configured headers to every request.
type headerTransport struct {
	base    http.RoundTripper
	headers map[string]string
}

func (t *headerTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	for k, v := range t.headers {
		req.Header.Set(k, v)
	}
	return t.base.RoundTrip(req)
}
