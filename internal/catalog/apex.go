package catalog

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/orggate/orggate/internal/domain/tool"
	"github.com/orggate/orggate/internal/service"
	"github.com/orggate/orggate/pkg/envelope"
)

func apexRun() Entry {
	return Entry{
		Desc: &tool.Descriptor{
			Name:        "apex_run",
			Title:       "Run Anonymous Apex",
			Description: "Execute anonymous Apex code in the target org and return the execution result and debug log.",
			Mutating:    true,
			RequiresOrg: true,
		},
		Input: objectSchema(map[string]*jsonschema.Schema{
			"code": {
				Type:        "string",
				Description: "The Apex code to execute.",
			},
			"target_org": targetOrgProperty(),
		}, "code"),
		Bind: func(deps *Deps, args map[string]any) service.RunFunc {
			return func(ctx context.Context, inv *service.Invocation) (*envelope.Envelope, error) {
				code, err := requireString(args, "code")
				if err != nil {
					return nil, err
				}

				// The CLI reads Apex from a file, so stage the snippet in
				// a private temp file for the duration of the call.
				dir, err := os.MkdirTemp("", "orggate-apex-*")
				if err != nil {
					return nil, err
				}
				defer os.RemoveAll(dir)

				file := filepath.Join(dir, "anonymous.apex")
				if err := os.WriteFile(file, []byte(code), 0o600); err != nil {
					return nil, err
				}

				// Raw mode: a failed execution exits non-zero but still
				// prints the compile problem or exception with its debug
				// log, and that text is the answer the caller needs.
				out, err := deps.Runner.RunRaw(ctx, "apex", "run",
					"--file", file, "--target-org", inv.Org)
				if err != nil {
					return nil, err
				}
				data, err := json.Marshal(map[string]any{"output": out})
				if err != nil {
					return nil, err
				}
				return envelope.Success(inv.Org, "apex executed", data), nil
			}
		},
	}
}
