package mcp

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/custodia-labs/conduit-cli/internal/core/domain"
	"github.com/custodia-labs/conduit-cli/internal/core/ports/driven"
	"github.com/custodia-labs/conduit-cli/internal/logger"
)

// listTools concatenates every connector's tools under the
// <connector>/<tool> namespace and appends the synthetic auth tools. A sick
// connector is logged and skipped; enumeration never fails wholesale.
func (s *Server) listTools(ctx context.Context) (*domain.ListToolsResult, error) {
	out := &domain.ListToolsResult{Tools: []domain.Tool{}}

	for _, name := range s.registry.Names() {
		handle, err := s.registry.Get(name)
		if err != nil {
			continue
		}

		var tools []domain.Tool
		var schema domain.ConfigSchema
		var authType domain.AuthType
		err = handle.Do(func(c driven.Connector) error {
			var listErr error
			tools, listErr = c.ListTools(ctx)
			schema = c.ConfigSchema()
			authType = c.AuthType()
			return listErr
		})
		if err != nil {
			logger.Warn("tools/list: skipping %s: %v", name, err)
			continue
		}

		for _, t := range tools {
			// Internal auth tools are reachable only through the synthetic
			// auth/<connector>/* names.
			if t.Name == domain.AuthStartTool || t.Name == domain.AuthPollTool {
				continue
			}
			t.Name = name + "/" + t.Name
			out.Tools = append(out.Tools, t)
		}
		out.Tools = append(out.Tools, syntheticAuthTools(name, schema, authType)...)
	}
	return out, nil
}

// syntheticAuthTools derives the auth/<connector>/* tool set from a
// connector's config schema. The device-flow pair appears only for OAuth
// connectors.
func syntheticAuthTools(name string, schema domain.ConfigSchema, authType domain.AuthType) []domain.Tool {
	emptySchema := &jsonschema.Schema{Type: "object", Properties: map[string]*jsonschema.Schema{}}
	tools := []domain.Tool{
		{
			Name:        "auth/" + name + "/set",
			Description: "Set credentials for " + name,
			InputSchema: configToJSONSchema(schema),
		},
		{
			Name:        "auth/" + name + "/test",
			Description: "Verify the stored credentials for " + name,
			InputSchema: emptySchema,
		},
		{
			Name:        "auth/" + name + "/get_schema",
			Description: "Describe the credential fields " + name + " expects",
			InputSchema: emptySchema,
		},
	}
	if authType == domain.AuthOAuth {
		tools = append(tools,
			domain.Tool{
				Name:        "auth/" + name + "/start_device",
				Description: "Start the OAuth device flow for " + name,
				InputSchema: emptySchema,
			},
			domain.Tool{
				Name:        "auth/" + name + "/poll_device",
				Description: "Poll the OAuth device flow for " + name + " once",
				InputSchema: emptySchema,
			},
		)
	}
	return tools
}

// configToJSONSchema renders a config schema as JSON-Schema: text maps to
// string, secret to string with format=password, number to number, boolean
// to boolean, select to string with enum. Required fields are collected.
func configToJSONSchema(schema domain.ConfigSchema) *jsonschema.Schema {
	props := make(map[string]*jsonschema.Schema, len(schema.Fields))
	var required []string
	for _, f := range schema.Fields {
		prop := &jsonschema.Schema{Description: f.Description}
		switch f.Type {
		case domain.FieldSecret:
			prop.Type = "string"
			prop.Format = "password"
		case domain.FieldNumber:
			prop.Type = "number"
		case domain.FieldBoolean:
			prop.Type = "boolean"
		case domain.FieldSelect:
			prop.Type = "string"
			options := make([]any, 0, len(f.Options))
			for _, o := range f.Options {
				options = append(options, o)
			}
			prop.Enum = options
		default:
			prop.Type = "string"
		}
		props[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	return &jsonschema.Schema{Type: "object", Properties: props, Required: required}
}

// callTool routes one tools/call request. Two segments route to a
// connector; three segments starting with "auth" go to the auth subsystem;
// anything else is malformed.
func (s *Server) callTool(ctx context.Context, params json.RawMessage) (*domain.CallToolResult, error) {
	var req domain.CallToolRequest
	if err := unmarshalParams(params, &req); err != nil {
		return nil, err
	}
	if req.Arguments == nil {
		req.Arguments = map[string]any{}
	}

	segments := strings.Split(req.Name, "/")
	switch {
	case len(segments) == 2 && segments[0] != "" && segments[1] != "":
		return s.callConnectorTool(ctx, segments[0], segments[1], req.Arguments)
	case len(segments) == 3 && segments[0] == "auth" && segments[1] != "" && segments[2] != "":
		return s.callAuthTool(ctx, segments[1], segments[2], req.Arguments)
	default:
		return nil, domain.InvalidInputf("malformed tool name: %q", req.Name)
	}
}

func (s *Server) callConnectorTool(ctx context.Context, connector, tool string, args map[string]any) (*domain.CallToolResult, error) {
	handle, err := s.registry.Get(connector)
	if err != nil {
		return nil, err
	}

	started := time.Now()
	var result *domain.CallToolResult
	err = handle.Do(func(c driven.Connector) error {
		var callErr error
		result, callErr = c.CallTool(ctx, tool, args)
		return callErr
	})
	s.recordUsage(connector, tool, err == nil, time.Since(started))
	if err != nil {
		return nil, err
	}
	return result, nil
}

// recordUsage meters one call. Metering failures are logged, never
// surfaced; a broken usage database must not fail tool calls.
func (s *Server) recordUsage(connector, tool string, ok bool, elapsed time.Duration) {
	if s.usage == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	err := s.usage.Record(ctx, driven.UsageRecord{
		Connector: connector,
		Tool:      tool,
		OK:        ok,
		Duration:  elapsed,
	})
	if err != nil {
		logger.Warn("usage: recording %s/%s failed: %v", connector, tool, err)
	}
}

// usageReport aggregates metered calls. Params: {"since_hours": N}, default
// 24.
func (s *Server) usageReport(ctx context.Context, params json.RawMessage) (any, error) {
	if s.usage == nil {
		return nil, domain.Otherf("usage metering is disabled")
	}
	req := struct {
		SinceHours float64 `json:"since_hours"`
	}{SinceHours: 24}
	if len(params) > 0 {
		if err := json.Unmarshal(params, &req); err != nil {
			return nil, domain.InvalidParamsf("malformed params: %v", err)
		}
	}
	if req.SinceHours <= 0 {
		return nil, domain.InvalidParamsf("since_hours must be positive")
	}

	since := time.Now().Add(-time.Duration(req.SinceHours * float64(time.Hour)))
	summaries, err := s.usage.Report(ctx, since)
	if err != nil {
		return nil, domain.IOErr(err)
	}
	if summaries == nil {
		summaries = []driven.UsageSummary{}
	}
	return map[string]any{"since_hours": req.SinceHours, "tools": summaries}, nil
}
