package catalog

import (
	"context"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/service"
	"github.com/orggate/orggate/pkg/envelope"
)

func metadataDeploy() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "metadata_deploy",
			Title:       "Deploy Metadata",
			Description: "Deploy local source to the target org. Set dry_run to validate without saving.",
			Mutating:    true,
			Destructive: true,
			RequiresOrg: true,
			OpenWorld:   true,
			Phases:      []string{"resolving", "validating", "executing"},
			Confirm: func(org string, args map[string]any) string {
				source, _ := args["source_dir"].(string)
				if source == "" {
					source = "the default package directory"
				}
				return fmt.Sprintf("Deploy %s to org %q? Existing components will be overwritten.", source, org)
			},
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"source_dir": {
				Type:        "string",
				Description: "Local source directory to deploy. Omitted: the project default.",
			},
			"target_org": targetOrgProperty(),
			"dry_run": {
				Type:        "boolean",
				Description: "Validate the deploy without saving anything to the org.",
			},
			"tests": {
				Type:        "string",
				Description: "Test level: NoTestRun, RunLocalTests, or RunAllTestsInOrg.",
				Enum:        []any{"NoTestRun", "RunLocalTests", "RunAllTestsInOrg"},
			},
		}),
		Bind: func(deps *Deps, args map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				inv.Report(ctx, "resolving")

				cliArgs := []string{"project", "deploy", "start", "--target-org", inv.Org}
				if source := stringArg(args, "source_dir"); source != "" {
					cliArgs = append(cliArgs, "--source-dir", source)
				}
				if tests := stringArg(args, "tests"); tests != "" {
					cliArgs = append(cliArgs, "--test-level", tests)
				}
				if inv.DryRun {
					cliArgs = append(cliArgs, "--dry-run")
				}

				inv.Report(ctx, "validating")

				result, err := deps.Runner.Run(ctx, cliArgs...)
				if err != nil {
					return nil, err
				}

				inv.Report(ctx, "executing")

				message := "deploy succeeded"
				if inv.DryRun {
					message = "deploy validated, nothing saved"
				}
				return envelope.Success(inv.Org, message, result), nil
			}
		},
	}
}

func metadataRetrieve() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "metadata_retrieve",
			Title:       "Retrieve Metadata",
			Description: "Retrieve metadata from the target org into the local project.",
			RequiresOrg: true,
			OpenWorld:   true,
			Phases:      []string{"resolving", "executing"},
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"metadata": {
				Type:        "string",
				Description: "Metadata component to retrieve, e.g. \"ApexClass:MyClass\". Omitted: the project default package.",
			},
			"target_org": targetOrgProperty(),
		}),
		Bind: func(deps *Deps, args map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				inv.Report(ctx, "resolving")

				cliArgs := []string{"project", "retrieve", "start", "--target-org", inv.Org}
				if metadata := stringArg(args, "metadata"); metadata != "" {
					cliArgs = append(cliArgs, "--metadata", metadata)
				}

				inv.Report(ctx, "executing")

				result, err := deps.Runner.Run(ctx, cliArgs...)
				if err != nil {
					return nil, err
				}
				return envelope.Success(inv.Org, "retrieve complete", result), nil
			}
		},
	}
}
