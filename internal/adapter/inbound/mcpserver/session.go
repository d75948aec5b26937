package mcpserver

import (
	"context"
	"log/slog"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/orggate/orggate/internal/service"
)

// clientSession adapts the protocol session to the pipeline's view of
// the caller.
type clientSession struct {
	session *mcp.ServerSession
}

func newClientSession(session *mcp.ServerSession) *clientSession {
	return &clientSession{session: session}
}

func (c *clientSession) SupportsElicitation() bool {
	params := c.session.InitializeParams()
	return params != nil && params.Capabilities != nil && params.Capabilities.Elicitation != nil
}

// Elicit runs one confirmation round trip. The requested schema is a
// single boolean so every client renders it as a plain yes/no.
func (c *clientSession) Elicit(ctx context.Context, prompt string) (service.ElicitAction, error) {
	result, err := c.session.Elicit(ctx, &mcp.ElicitParams{
		Message: prompt,
		RequestedSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"confirm": {
					Type:        "boolean",
					Description: "True to proceed with the operation.",
				},
			},
			Required: []string{"confirm"},
		},
	})
	if err != nil {
		return "", err
	}

	switch result.Action {
	case "accept":
		if confirmed, _ := result.Content["confirm"].(bool); !confirmed {
			return service.ElicitDecline, nil
		}
		return service.ElicitAccept, nil
	case "decline":
		return service.ElicitDecline, nil
	default:
		return service.ElicitCancel, nil
	}
}

func (c *clientSession) NotifyProgress(ctx context.Context, token any, progress, total float64, message string) error {
	return c.session.NotifyProgress(ctx, &mcp.ProgressNotificationParams{
		ProgressToken: token,
		Progress:      progress,
		Total:         total,
		Message:       message,
	})
}

func (c *clientSession) Log(ctx context.Context, level slog.Level, channel, message string, data map[string]any) error {
	if channel == "" {
		channel = "orggate"
	}
	payload := map[string]any{"message": message}
	for k, v := range data {
		payload[k] = v
	}
	return c.session.Log(ctx, &mcp.LoggingMessageParams{
		Level:  protocolLevel(level),
		Logger: channel,
		Data:   payload,
	})
}

func protocolLevel(level slog.Level) mcp.LoggingLevel {
	switch {
	case level >= slog.LevelError:
		return "error"
	case level >= slog.LevelWarn:
		return "warning"
	case level >= slog.LevelInfo:
		return "info"
	default:
		return "debug"
	}
}

var _ service.ClientSession = (*clientSession)(nil)
