// Package mcpserver is the inbound protocol adapter: it registers the
// catalog's tools with an MCP server over stdio and routes every call
// through the dispatch pipeline.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orggate/orggate/internal/catalog"
	"github.com/orggate/orggate/internal/service"
)

const serverInstructions = `This server exposes a Salesforce-style org platform through gated tools.
Every call resolves a target org (explicit target_org argument or the
configured default), is checked against the operator's allowed orgs list
and read-only mode, and may require interactive confirmation before
destructive operations run. Results are returned as a structured
envelope; failures carry the platform's own error name and remediation
actions.`

// Server wires the catalog into a protocol server.
type Server struct {
	dispatcher *service.Dispatcher
	deps       *catalog.Deps
	metrics    *Metrics
	logger     *slog.Logger
	mcp        *mcp.Server
}

// New builds the server and registers every catalog entry.
func New(version string, dispatcher *service.Dispatcher, deps *catalog.Deps, metrics *Metrics, logger *slog.Logger) *Server {
	impl := &mcp.Implementation{
		Name:    "orggate",
		Title:   "Org platform gateway",
		Version: version,
	}
	s := &Server{
		dispatcher: dispatcher,
		deps:       deps,
		metrics:    metrics,
		logger:     logger,
		mcp:        mcp.NewServer(impl, &mcp.ServerOptions{Instructions: serverInstructions}),
	}
	for _, entry := range catalog.All() {
		s.register(entry)
	}
	return s
}

func (s *Server) register(entry catalog.Entry) {
	s.mcp.AddTool(&mcp.Tool{
		Name:        entry.Desc.Name,
		Title:       entry.Desc.Title,
		Description: entry.Desc.Description,
		InputSchema: entry.Input,
		Annotations: entry.Desc.Annotations(),
	}, s.handler(entry))
}

// handler adapts one catalog entry to the protocol. All policy lives in
// the dispatcher; this layer only translates arguments and results.
func (s *Server) handler(entry catalog.Entry) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		args := map[string]any{}
		if len(req.Params.Arguments) > 0 {
			if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
				return nil, fmt.Errorf("invalid arguments: %w", err)
			}
		}

		start := time.Now()
		env := s.dispatcher.Dispatch(ctx, &service.Request{
			Desc:          entry.Desc,
			ExplicitOrg:   argString(args, "target_org"),
			DryRun:        argBool(args, "dry_run"),
			Args:          args,
			Session:       newClientSession(req.Session),
			ProgressToken: req.Params.GetProgressToken(),
			Run:           entry.Bind(s.deps, args),
		})

		if s.metrics != nil {
			s.metrics.CallsTotal.WithLabelValues(entry.Desc.Name, env.Outcome()).Inc()
			s.metrics.CallDuration.WithLabelValues(entry.Desc.Name).Observe(time.Since(start).Seconds())
		}
		if !env.Success {
			s.logger.Info("tool call failed",
				"tool", entry.Desc.Name,
				"org", env.TargetOrg,
				"error", env.ErrorName(),
			)
		}

		text, err := json.MarshalIndent(env, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encoding result envelope: %w", err)
		}
		// Policy denials and platform failures are results, not protocol
		// errors: the envelope says what went wrong and how to fix it.
		return &mcp.CallToolResult{
			Content:           []mcp.Content{&mcp.TextContent{Text: string(text)}},
			StructuredContent: env,
		}, nil
	}
}

// Run serves the protocol over stdio until the context is cancelled or
// the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	if s.metrics != nil {
		s.metrics.ActiveSessions.Inc()
		defer s.metrics.ActiveSessions.Dec()
	}
	s.logger.Info("serving MCP over stdio")
	return s.mcp.Run(ctx, &mcp.StdioTransport{})
}

// Connect attaches the server to an arbitrary transport. Used by tests
// with in-memory transports.
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.mcp.Connect(ctx, transport, nil)
}

func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}

func argBool(args map[string]any, key string) bool {
	v, _ := args[key].(bool)
	return v
}
