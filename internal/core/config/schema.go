package config

import "github.com/getkin/kin-openapi/openapi3"

// =============================================================================
// Deployment Config Schema
// =============================================================================

// deploymentSchema describes one entry of a target's deployments list.
func deploymentSchema() *openapi3.Schema {
	return openapi3.NewObjectSchema().
		WithProperty("task", openapi3.NewStringSchema()).
		WithProperty("environment", openapi3.NewStringSchema()).
		WithProperty("description", openapi3.NewStringSchema()).
		WithProperty("payload", openapi3.NewSchema()).
		WithProperty("auto_merge", openapi3.NewBoolSchema())
}

// targetSchema describes a single named target. required_contexts must be
// spelled out: when it is absent the provider gates the deployment on every
// status check of the commit.
func targetSchema() *openapi3.Schema {
	s := openapi3.NewObjectSchema().
		WithProperty("auto_deploy_on", openapi3.NewStringSchema()).
		WithProperty("required_contexts", openapi3.NewArraySchema().WithItems(openapi3.NewStringSchema())).
		WithProperty("transient_environment", openapi3.NewBoolSchema()).
		WithProperty("production_environment", openapi3.NewBoolSchema()).
		WithProperty("deployments", openapi3.NewArraySchema().WithItems(deploymentSchema()))
	s.Required = []string{"required_contexts"}
	return s
}

// documentSchema is the schema of a whole config document: a mapping from
// target name to target.
var documentSchema = openapi3.NewObjectSchema().WithAdditionalProperties(targetSchema())
