// Package mcptool exposes warden's run/report operations as MCP tools,
// grounded on the hazyhaar-chrc kit package's RegisterMCPTool pattern: each
// tool decodes its JSON arguments, calls into the sandbox, and returns a
// single text content block carrying the JSON result. This lets an
// MCP-speaking research agent drive a sandbox session the same way it would
// call any other tool, without a bespoke wire protocol of its own.
package mcptool

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wardenjs/warden/event"
	"github.com/wardenjs/warden/report"
	"github.com/wardenjs/warden/sandbox"
)

// Server wraps one long-lived Orchestrator behind MCP tool calls.
type Server struct {
	orch *sandbox.Orchestrator
}

func New(orch *sandbox.Orchestrator) *Server {
	return &Server{orch: orch}
}

// Register installs warden's three tools on srv (domain stack component O:
// run_script, set_hook, query_report).
func (s *Server) Register(srv *mcp.Server) {
	srv.AddTool(&mcp.Tool{
		Name:        "run_script",
		Description: "Execute JavaScript in the instrumented sandbox and return its result.",
	}, s.handleRunScript)

	srv.AddTool(&mcp.Tool{
		Name:        "set_hook",
		Description: "Install a structured-value hook at a dotted property path on the current sandbox session.",
	}, s.handleSetHook)

	srv.AddTool(&mcp.Tool{
		Name:        "query_report",
		Description: "Query recorded get/set/call events from the current sandbox session; omitted fields are unconstrained.",
	}, s.handleQueryReport)
}

type runArgs struct {
	Specifier string `json:"specifier"`
	Source    string `json:"source"`
}

func (s *Server) handleRunScript(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args runArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("invalid arguments: %w", err))
		return &res, nil
	}
	if args.Specifier == "" {
		args.Specifier = "mcp.js"
	}

	result, err := s.orch.Run(ctx, args.Specifier, args.Source)
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(err)
		return &res, nil
	}

	data, err := json.Marshal(map[string]any{
		"value":    result.Value,
		"duration": result.Duration.String(),
	})
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("marshal: %w", err))
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}

type hookArgs struct {
	Path       string `json:"path"`
	Value      any    `json:"value"`
	IsWritable bool   `json:"isWritable"`
}

// handleSetHook covers the structured-value (hook.Copy) case only: a Host
// Callable or Reference hook requires an in-process Go closure and so isn't
// expressible over MCP's JSON arguments, the same restriction as the HTTP
// API's POST /instances/:id/hooks.
func (s *Server) handleSetHook(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args hookArgs
	if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("invalid arguments: %w", err))
		return &res, nil
	}
	if args.Path == "" {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("path is required"))
		return &res, nil
	}

	if err := s.orch.Hook(args.Path, args.Value, args.IsWritable); err != nil {
		var res mcp.CallToolResult
		res.SetError(err)
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: `{"ok":true}`}},
	}, nil
}

// queryArgs mirrors report.Query's queryable fields as wire-friendly JSON; a
// zero-value/absent field leaves that dimension unconstrained, per §4.2.
type queryArgs struct {
	Type          event.Type    `json:"type,omitempty"`
	Path          string        `json:"path,omitempty"`
	Filename      *string       `json:"filename,omitempty"`
	Line          *int          `json:"line,omitempty"`
	Column        *int          `json:"column,omitempty"`
	Value         *event.Value  `json:"value,omitempty"`
	Arguments     []event.Value `json:"arguments,omitempty"`
	Returns       *event.Value  `json:"returns,omitempty"`
	IsConstructor *bool         `json:"isConstructor,omitempty"`
}

func (s *Server) handleQueryReport(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var args queryArgs
	if len(req.Params.Arguments) > 0 {
		if err := json.Unmarshal(req.Params.Arguments, &args); err != nil {
			var res mcp.CallToolResult
			res.SetError(fmt.Errorf("invalid arguments: %w", err))
			return &res, nil
		}
	}

	q := report.Query{
		Value:         args.Value,
		Arguments:     args.Arguments,
		Returns:       args.Returns,
		IsConstructor: args.IsConstructor,
		Location: report.LocationQuery{
			Filename: args.Filename,
			Line:     args.Line,
			Column:   args.Column,
		},
	}
	if args.Type != "" {
		q = q.WithType(args.Type)
	}
	if args.Path != "" {
		q = q.WithPath(args.Path)
	}

	var matches []event.Event
	for e := range s.orch.Report().FindAll(q) {
		matches = append(matches, e)
	}

	data, err := json.Marshal(matches)
	if err != nil {
		var res mcp.CallToolResult
		res.SetError(fmt.Errorf("marshal: %w", err))
		return &res, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil
}
