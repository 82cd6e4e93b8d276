// Package mcpcfg reads mcpServers-style config files (.cursor/mcp.json and
// compatible) into a flat server list for the secrets and verify commands.
package mcpcfg

import (
	"encoding/json"
	"fmt"
	"os"
)

type rawConfig struct {
	MCPServers map[string]rawServer `json:"mcpServers"`
}

type rawServer struct {
	Command string            `json:"command,omitempty"`
	Args    []string          `json:"args,omitempty"`
	URL     string            `json:"url,omitempty"`
	Env     map[string]string `json:"env,omitempty"`
	Headers map[string]string `json:"headers,omitempty"`
}

// Server is one entry of the mcpServers mapping. RawJSON holds the entry as
// it appears in the file, for scanners that work on raw text.
type Server struct {
	Name    string
	Command string
	Args    []string
	URL     string
	Env     map[string]string
	Headers map[string]string
	RawJSON string
}

// IsRemote reports whether the server is reached over HTTP rather than a
// spawned command.
func (s Server) IsRemote() bool {
	return s.URL != ""
}

// Load reads and parses the config file at path.
func Load(path string) ([]Server, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	return Parse(data)
}

// Parse parses an mcpServers config from raw bytes.
func Parse(data []byte) ([]Server, error) {
	var cfg rawConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse MCP config: %w", err)
	}

	var rawDoc struct {
		MCPServers map[string]json.RawMessage `json:"mcpServers"`
	}
	// Same bytes parsed a second time to keep each entry's raw form.
	_ = json.Unmarshal(data, &rawDoc)

	servers := make([]Server, 0, len(cfg.MCPServers))
	for name, sc := range cfg.MCPServers {
		servers = append(servers, Server{
			Name:    name,
			Command: sc.Command,
			Args:    sc.Args,
			URL:     sc.URL,
			Env:     sc.Env,
			Headers: sc.Headers,
			RawJSON: string(rawDoc.MCPServers[name]),
		})
	}
	return servers, nil
}
