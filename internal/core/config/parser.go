// Package config parses and validates per-repository deployment configs.
// This is part of the Functional Core - all functions are pure with no I/O.
package config

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/artpar/deploybot/internal/core/domain"
	"github.com/getkin/kin-openapi/openapi3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is where the deployment config lives in a repository.
const DefaultPath = ".github/deploy.yml"

// =============================================================================
// Parser Functions
// =============================================================================

// Parse parses a YAML deployment config into Targets.
// Input: raw YAML document
// Output: Targets in document order, or a *domain.ConfigError
//
// An empty document resolves to an empty Targets value. Each target's Name
// is set from its key and missing deployments default to an empty list;
// whether that list may be empty is decided at dispatch time.
func Parse(content string) (domain.Targets, error) {
	if strings.TrimSpace(content) == "" {
		return domain.NewTargets(), nil
	}

	var root yaml.Node
	if err := yaml.Unmarshal([]byte(content), &root); err != nil {
		return domain.Targets{}, domain.NewConfigError("", err.Error())
	}
	if len(root.Content) == 0 || root.Content[0].Tag == "!!null" {
		return domain.NewTargets(), nil
	}

	doc, err := normalize(&root)
	if err != nil {
		return domain.Targets{}, err
	}

	if err := validate(doc); err != nil {
		return domain.Targets{}, err
	}

	// Schema validation guarantees an object at this point
	entries := doc.(map[string]any)
	targets := make([]domain.Target, 0, len(entries))
	for _, name := range keyOrder(root.Content[0]) {
		entry, ok := entries[name]
		if !ok {
			continue
		}
		target, err := decodeTarget(name, entry)
		if err != nil {
			return domain.Targets{}, err
		}
		targets = append(targets, target)
	}

	return domain.NewTargets(targets...), nil
}

// normalize converts a YAML document into JSON values (map[string]any,
// []any, float64, string, bool, nil) so that schema validation and payload
// rendering see one representation.
func normalize(root *yaml.Node) (any, error) {
	var raw any
	if err := root.Decode(&raw); err != nil {
		return nil, domain.NewConfigError("", err.Error())
	}

	b, err := json.Marshal(raw)
	if err != nil {
		return nil, domain.NewConfigError("", "mapping keys must be strings")
	}

	var doc any
	if err := json.Unmarshal(b, &doc); err != nil {
		return nil, domain.NewConfigError("", err.Error())
	}
	return doc, nil
}

// validate checks doc against the document schema and reports the first
// violation with the dotted path of the offending property.
func validate(doc any) error {
	err := documentSchema.VisitJSON(doc)
	if err == nil {
		return nil
	}

	var schemaErr *openapi3.SchemaError
	if errors.As(err, &schemaErr) {
		message := schemaErr.Reason
		if message == "" {
			message = schemaErr.Error()
		}
		return domain.NewConfigError(strings.Join(schemaErr.JSONPointer(), "."), message)
	}
	return domain.NewConfigError("", err.Error())
}

// keyOrder returns the keys of a YAML mapping node in document order.
func keyOrder(node *yaml.Node) []string {
	if node.Kind != yaml.MappingNode {
		return nil
	}
	keys := make([]string, 0, len(node.Content)/2)
	for i := 0; i+1 < len(node.Content); i += 2 {
		keys = append(keys, node.Content[i].Value)
	}
	return keys
}

// decodeTarget converts a validated target entry and applies defaults.
func decodeTarget(name string, entry any) (domain.Target, error) {
	b, err := json.Marshal(entry)
	if err != nil {
		return domain.Target{}, domain.NewConfigError(name, err.Error())
	}

	var target domain.Target
	if err := json.Unmarshal(b, &target); err != nil {
		return domain.Target{}, domain.NewConfigError(name, err.Error())
	}

	target.Name = name
	if target.Deployments == nil {
		target.Deployments = []domain.DeploymentSpec{}
	}
	for i := range target.Deployments {
		target.Deployments[i] = withDefaults(target.Deployments[i])
	}
	return target, nil
}

// withDefaults fills in the task and environment of a deployment spec.
func withDefaults(spec domain.DeploymentSpec) domain.DeploymentSpec {
	if spec.Task == "" {
		spec.Task = domain.DefaultTask
	}
	if spec.Environment == "" {
		spec.Environment = domain.DefaultEnvironment
	}
	return spec
}
