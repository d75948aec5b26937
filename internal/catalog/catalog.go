// Package catalog declares every exposed tool as data: a descriptor, an
// input schema, and a handler binding. The inbound adapter registers the
// entries; the dispatch pipeline interprets the descriptors. Adding an
// operation means adding an entry here, not a new code path.
package catalog

import (
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orggate/orggate/internal/adapter/outbound/rest"
	"github.com/orggate/orggate/internal/domain/org"
	"github.com/orggate/orggate/internal/domain/policy"
	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/port/outbound"
	"github.com/orggate/orggate/internal/service"
)

// Deps are the shared collaborators handed to every handler binding.
type Deps struct {
	Runner   outbound.OrgRunner
	Rest     *rest.Client
	Resolver *org.Resolver
	Gate     *policy.Gate
	Logger   *slog.Logger
}

// Entry is one catalog row.
type Entry struct {
	Desc  *tool.Descriptor
	Input *jsonschema.Schema
	Bind  func(deps *Deps, args map[string]any) service.RunFunc
}

// All returns the full catalog in registration order.
func All() []Entry {
	return []Entry{
		orgList(),
		orgDisplay(),
		orgSetDefault(),
		orgUnsetDefault(),
		orgDelete(),
		dataQuery(),
		apexRun(),
		metadataDeploy(),
		metadataRetrieve(),
	}
}

// stringArg reads an optional string argument.
func stringArg(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

// boolArg reads an optional boolean argument.
func boolArg(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}

// requireString reads a mandatory string argument. Schema validation
// should have caught the absence already; this is the backstop.
func requireString(args map[string]any, key string) (string, error) {
	v, ok := args[key].(string)
	if !ok || v == "" {
		return "", fmt.Errorf("missing required argument %q", key)
	}
	return v, nil
}

// targetOrgProperty is the shared target_org schema fragment.
func targetOrgProperty() *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "string",
		Description: "Username or alias of the target org. Omitted: the configured default org is used.",
	}
}

// objectSchema builds an object schema with the given properties.
func objectSchema(properties map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:                 "object",
		Properties:           properties,
		Required:             required,
		AdditionalProperties: &jsonschema.Schema{Not: &jsonschema.Schema{}},
	}
}
