package federation

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/goccy/go-yaml"
)

// SupergraphConfig is the startup manifest enumerating subgraphs:
//
//	subgraphs:
//	  users:
//	    routing_url: http://localhost:4001/graphql
//	    schema:
//	      file: users.graphql
//
// Relative schema paths resolve against the manifest's directory.
type SupergraphConfig struct {
	Subgraphs map[string]SubgraphConfig `yaml:"subgraphs"`

	baseDir string
}

type SubgraphConfig struct {
	RoutingURL string       `yaml:"routing_url"`
	Schema     SchemaConfig `yaml:"schema"`
}

type SchemaConfig struct {
	File string `yaml:"file"`
}

// Subgraph is one resolved manifest entry.
type Subgraph struct {
	Name       string
	RoutingURL string

	schemaPath string
}

// ReadSchema loads the subgraph's schema file.
func (s *Subgraph) ReadSchema() (string, error) {
	contents, err := os.ReadFile(s.schemaPath)
	if err != nil {
		return "", ConfigInvalidError{Msg: fmt.Sprintf("reading schema file for %s: %v", s.Name, err)}
	}
	return string(contents), nil
}

// LoadSupergraphConfig reads and parses the manifest at path.
func LoadSupergraphConfig(path string) (*SupergraphConfig, error) {
	contents, err := os.ReadFile(path)
	if err != nil {
		return nil, ConfigInvalidError{Msg: fmt.Sprintf("reading config file: %v", err)}
	}

	var config SupergraphConfig
	if err := yaml.Unmarshal(contents, &config); err != nil {
		return nil, ConfigInvalidError{Msg: fmt.Sprintf("parsing config file: %v", err)}
	}
	config.baseDir = filepath.Dir(path)

	for _, name := range sortedNames(config.Subgraphs) {
		entry := config.Subgraphs[name]
		if entry.RoutingURL == "" {
			return nil, ConfigInvalidError{Msg: fmt.Sprintf("subgraph %s has no routing_url", name)}
		}
		if entry.Schema.File == "" {
			return nil, ConfigInvalidError{Msg: fmt.Sprintf("subgraph %s has no schema file", name)}
		}
	}

	return &config, nil
}

// SortedSubgraphs returns the manifest entries in name order with schema
// paths resolved.
func (c *SupergraphConfig) SortedSubgraphs() []*Subgraph {
	subgraphs := make([]*Subgraph, 0, len(c.Subgraphs))
	for _, name := range sortedNames(c.Subgraphs) {
		entry := c.Subgraphs[name]
		path := entry.Schema.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(c.baseDir, path)
		}
		subgraphs = append(subgraphs, &Subgraph{
			Name:       name,
			RoutingURL: entry.RoutingURL,
			schemaPath: path,
		})
	}
	return subgraphs
}

func sortedNames(subgraphs map[string]SubgraphConfig) []string {
	names := make([]string, 0, len(subgraphs))
	for name := range subgraphs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
