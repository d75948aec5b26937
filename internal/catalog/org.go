package catalog

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orggate/orggate/internal/domain/policy"
	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/port/outbound"
	"github.com/orggate/orggate/internal/service"
	"github.com/orggate/orggate/pkg/envelope"
)

func orgList() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "org_list",
			Title:       "List Orgs",
			Description: "List all authenticated orgs, marking the default. Orgs outside the allowed orgs list are omitted.",
			Idempotent:  true,
		},
		Input: objectSchema(nil),
		Bind: func(deps *Deps, _ map[string]any) service.RunFunc {
			return func(ctx context.Context, _ *service.Invocation) (*envelope.Envelope, error) {
				orgs, err := deps.Runner.ListOrgs(ctx)
				if err != nil {
					return nil, err
				}
				visible := make([]outbound.OrgInfo, 0, len(orgs))
				for _, o := range orgs {
					if orgVisible(deps.Gate, o) {
						visible = append(visible, o)
					}
				}
				// Best-effort default: "" (JSON null) when none is
				// configured or the lookup fails.
				defaultOrg, _ := deps.Resolver.Default(ctx)
				data, err := json.Marshal(map[string]any{
					"orgs":       visible,
					"defaultOrg": orNull(defaultOrg),
				})
				if err != nil {
					return nil, err
				}
				return envelope.Success("", fmt.Sprintf("%d org(s)", len(visible)), data), nil
			}
		},
	}
}

// orNull maps the resolver's "no default" empty string to JSON null.
func orNull(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// orgVisible hides orgs the gate would deny anyway. Both the username
// and every alias are checked: an org reachable under any allowed name
// is listed.
func orgVisible(gate *policy.Gate, o outbound.OrgInfo) bool {
	if gate.Allowed(o.Username) {
		return true
	}
	for _, alias := range o.Aliases {
		if gate.Allowed(alias) {
			return true
		}
	}
	return false
}

func orgDisplay() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "org_display",
			Title:       "Display Org",
			Description: "Show connection details for an org: username, instance URL, API version, and connection status.",
			RequiresOrg: true,
			Idempotent:  true,
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"target_org": targetOrgProperty(),
		}),
		Bind: func(deps *Deps, _ map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				conn, err := deps.Runner.OrgDisplay(ctx, inv.Org)
				if err != nil {
					return nil, err
				}
				// OrgConnection excludes the access token from JSON; the
				// credential never reaches the caller.
				data, err := json.Marshal(conn)
				if err != nil {
					return nil, err
				}
				return envelope.Success(inv.Org, "org details", data), nil
			}
		},
	}
}

func orgSetDefault() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "org_set_default",
			Title:       "Set Default Org",
			Description: "Set the default target org for subsequent operations.",
			Mutating:    true,
			RequiresOrg: true,
			Idempotent:  true,
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"target_org": {
				Type:        "string",
				Description: "Username or alias to make the default.",
			},
		}, "target_org"),
		Bind: func(deps *Deps, _ map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				if _, err := deps.Runner.Run(ctx, "config", "set", "target-org", inv.Org); err != nil {
					return nil, err
				}
				deps.Resolver.Invalidate()
				return envelope.Success(inv.Org, fmt.Sprintf("default org set to %s", inv.Org), nil), nil
			}
		},
	}
}

func orgUnsetDefault() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "org_unset_default",
			Title:       "Unset Default Org",
			Description: "Clear the default target org. Subsequent operations must name an org explicitly.",
			Mutating:    true,
			Idempotent:  true,
		},
		Input: objectSchema(nil),
		Bind: func(deps *Deps, _ map[string]any) service.RunFunc {
			return func(ctx context.Context, _ *service.Invocation) (*envelope.Envelope, error) {
				if _, err := deps.Runner.Run(ctx, "config", "unset", "target-org"); err != nil {
					return nil, err
				}
				deps.Resolver.Invalidate()
				return envelope.Success("", "default org cleared", nil), nil
			}
		},
	}
}

func orgDelete() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "org_delete",
			Title:       "Delete Scratch Org",
			Description: "Permanently delete a scratch org and its local authentication.",
			Mutating:    true,
			Destructive: true,
			RequiresOrg: true,
			Confirm: func(org string, _ map[string]any) string {
				return fmt.Sprintf("Permanently delete scratch org %q? This cannot be undone.", org)
			},
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"target_org": targetOrgProperty(),
		}),
		Bind: func(deps *Deps, _ map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				result, err := deps.Runner.Run(ctx, "org", "delete", "scratch",
					"--target-org", inv.Org, "--no-prompt")
				if err != nil {
					return nil, err
				}
				deps.Resolver.Invalidate()
				return envelope.Success(inv.Org, fmt.Sprintf("org %s deleted", inv.Org), result), nil
			}
		},
	}
}
