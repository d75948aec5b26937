package mcpserver

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/orggate/orggate/internal/catalog"
	"github.com/orggate/orggate/internal/domain/org"
	"github.com/orggate/orggate/internal/domain/policy"
	"github.com/orggate/orggate/internal/port/outbound"
	"github.com/orggate/orggate/internal/service"
	"github.com/orggate/orggate/pkg/envelope"
)

// fakeRunner serves canned platform responses for end-to-end tests.
type fakeRunner struct {
	defaultOrg string
	orgs       []outbound.OrgInfo
	runResult  json.RawMessage
}

func (f *fakeRunner) Run(context.Context, ...string) (json.RawMessage, error) {
	return f.runResult, nil
}

func (f *fakeRunner) RunRaw(context.Context, ...string) (string, error) {
	return string(f.runResult), nil
}

func (f *fakeRunner) DefaultOrg(context.Context) (string, error) {
	return f.defaultOrg, nil
}

func (f *fakeRunner) ListOrgs(context.Context) ([]outbound.OrgInfo, error) {
	return f.orgs, nil
}

func (f *fakeRunner) OrgDisplay(_ context.Context, orgName string) (*outbound.OrgConnection, error) {
	return &outbound.OrgConnection{Username: orgName}, nil
}

// connect builds the full stack over in-memory transports and returns a
// connected client session.
func connect(t *testing.T, runner *fakeRunner, readOnly bool, allowed []string) *mcp.ClientSession {
	t.Helper()
	logger := slog.New(slog.DiscardHandler)
	gate := policy.NewGate(readOnly, allowed)
	deps := &catalog.Deps{
		Runner:   runner,
		Resolver: org.NewResolver(org.NewCache(0), runner, logger),
		Gate:     gate,
		Logger:   logger,
	}
	dispatcher := service.NewDispatcher(
		deps.Resolver, gate, nil,
		service.NewConfirmer(logger), service.NewEmitter(logger), nil, logger,
	)
	srv := New("test", dispatcher, deps, NewMetrics(prometheus.NewRegistry(), nil), logger)

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	ctx := context.Background()
	serverSession, err := srv.Connect(ctx, serverTransport)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client"}, nil)
	clientSession, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	t.Cleanup(func() {
		clientSession.Close()
		serverSession.Wait()
	})
	return clientSession
}

func decodeEnvelope(t *testing.T, result *mcp.CallToolResult) *envelope.Envelope {
	t.Helper()
	raw, err := json.Marshal(result.StructuredContent)
	if err != nil {
		t.Fatalf("marshal structured content: %v", err)
	}
	var env envelope.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		t.Fatalf("unmarshal envelope: %v", err)
	}
	return &env
}

func TestListToolsExposesCatalog(t *testing.T) {
	cs := connect(t, &fakeRunner{}, false, []string{policy.AllowAllSentinel})

	result, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	if err != nil {
		t.Fatalf("ListTools() error: %v", err)
	}
	if len(result.Tools) != len(catalog.All()) {
		t.Fatalf("tools = %d, want %d", len(result.Tools), len(catalog.All()))
	}

	byName := make(map[string]*mcp.Tool, len(result.Tools))
	for _, tl := range result.Tools {
		byName[tl.Name] = tl
	}
	del, ok := byName["org_delete"]
	if !ok {
		t.Fatal("org_delete not listed")
	}
	if del.Annotations == nil || del.Annotations.DestructiveHint == nil || !*del.Annotations.DestructiveHint {
		t.Error("org_delete should be annotated destructive")
	}
	if q := byName["data_query"]; q.Annotations == nil || !q.Annotations.ReadOnlyHint {
		t.Error("data_query should be annotated read-only")
	}
}

func TestCallToolReturnsEnvelope(t *testing.T) {
	runner := &fakeRunner{orgs: []outbound.OrgInfo{
		{Username: "admin@prod.example.com", Aliases: []string{"prod"}, IsDefault: true},
	}}
	cs := connect(t, runner, false, []string{policy.AllowAllSentinel})

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "org_list"})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if result.IsError {
		t.Fatal("org_list should not be a protocol error")
	}
	env := decodeEnvelope(t, result)
	if !env.Success {
		t.Fatalf("envelope = %+v", env)
	}
}

func TestCallToolPolicyDenialIsStructured(t *testing.T) {
	cs := connect(t, &fakeRunner{}, false, []string{"prod"})

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "data_query",
		Arguments: map[string]any{"query": "SELECT Id FROM Account", "target_org": "dev"},
	})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	if result.IsError {
		t.Fatal("policy denial must be a result, not a protocol error")
	}
	env := decodeEnvelope(t, result)
	if env.Success || env.ErrorName() != envelope.ErrAccessDenied {
		t.Errorf("envelope = %+v, want AccessDenied", env)
	}
	if env.TargetOrg != "dev" {
		t.Errorf("TargetOrg = %q, want dev", env.TargetOrg)
	}
}

func TestCallToolReadOnlyMode(t *testing.T) {
	runner := &fakeRunner{defaultOrg: "sandbox1", runResult: json.RawMessage(`{}`)}
	cs := connect(t, runner, true, []string{policy.AllowAllSentinel})

	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{Name: "org_set_default",
		Arguments: map[string]any{"target_org": "sandbox1"}})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	env := decodeEnvelope(t, result)
	if env.ErrorName() != envelope.ErrReadOnlyBlocked {
		t.Errorf("envelope = %+v, want ReadOnlyBlocked", env)
	}
}

func TestCallToolDestructiveWithoutElicitationProceeds(t *testing.T) {
	runner := &fakeRunner{runResult: json.RawMessage(`{}`)}
	cs := connect(t, runner, false, []string{policy.AllowAllSentinel})

	// The test client declared no elicitation capability, so the delete
	// proceeds without a confirmation round trip.
	result, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      "org_delete",
		Arguments: map[string]any{"target_org": "scratch1"},
	})
	if err != nil {
		t.Fatalf("CallTool() error: %v", err)
	}
	env := decodeEnvelope(t, result)
	if !env.Success {
		t.Errorf("envelope = %+v, want success", env)
	}
}
