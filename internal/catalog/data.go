package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/service"
	"github.com/orggate/orggate/pkg/envelope"
)

func dataQuery() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "data_query",
			Title:       "Run SOQL Query",
			Description: "Execute a SOQL query against the target org's REST API and return the matching records.",
			RequiresOrg: true,
			Idempotent:  true,
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"query": {
				Type:        "string",
				Description: "The SOQL query to execute.",
			},
			"target_org": targetOrgProperty(),
			"all_pages": {
				Type:        "boolean",
				Description: "Follow pagination and return every page of results.",
			},
		}, "query"),
		Bind: func(deps *Deps, args map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				soql, err := requireString(args, "query")
				if err != nil {
					return nil, err
				}

				conn, err := deps.Runner.OrgDisplay(ctx, inv.Org)
				if err != nil {
					return nil, err
				}

				result, err := deps.Rest.Query(ctx, conn, soql)
				if err != nil {
					return nil, err
				}

				records := result.Records
				if boolArg(args, "all_pages") {
					for !result.Done && result.NextRecordsURL != "" {
						result, err = deps.Rest.QueryMore(ctx, conn, result.NextRecordsURL)
						if err != nil {
							return nil, err
						}
						records = append(records, result.Records...)
						inv.Log(ctx, slog.LevelDebug, "data",
							fmt.Sprintf("fetched %d more record(s), %d total", len(result.Records), len(records)))
					}
				}

				data, err := json.Marshal(map[string]any{
					"totalSize": result.TotalSize,
					"done":      result.Done || boolArg(args, "all_pages"),
					"records":   records,
				})
				if err != nil {
					return nil, err
				}
				return envelope.Success(inv.Org, fmt.Sprintf("%d record(s)", len(records)), data), nil
			}
		},
	}
}
