// Package mcpserver provides an MCP (Model Context Protocol) server that
// exposes the type registry tools for LLM integration via stdio transport.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/starford/gts/internal/gtsops"
)

// Server wraps the MCP server with the registry tools.
type Server struct {
	mcp *server.MCPServer
	ops *gtsops.Ops
}

// New creates a new MCP server with all registry tools registered.
func New(ops *gtsops.Ops) *Server {
	s := &Server{ops: ops}

	s.mcp = server.NewMCPServer(
		"GTS",
		"1.0.0",
		server.WithToolCapabilities(false),
		server.WithResourceCapabilities(false, false),
	)

	s.mcp.AddTool(mcp.NewTool("validate_id",
		mcp.WithDescription("Check a GTS identifier against the grammar. "+
			"Returns validity and the parse error, if any."),
		mcp.WithString("id", mcp.Required(), mcp.Description("GTS identifier string")),
	), s.validateID)

	s.mcp.AddTool(mcp.NewTool("parse_id",
		mcp.WithDescription("Decompose a GTS identifier into vendor, package, namespace, "+
			"type, version, qualifier chain, and its deterministic UUID. See the "+
			"gts://identifier-format resource for the grammar."),
		mcp.WithString("id", mcp.Required(), mcp.Description("GTS identifier string")),
	), s.parseID)

	s.mcp.AddTool(mcp.NewTool("uuid",
		mcp.WithDescription("Derive the deterministic UUIDv5 of a GTS identifier."),
		mcp.WithString("id", mcp.Required(), mcp.Description("GTS identifier string")),
	), s.uuid)

	s.mcp.AddTool(mcp.NewTool("wildcard_match",
		mcp.WithDescription("Match a GTS identifier against a wildcard pattern. "+
			"'*' matches one segment, a trailing '*' matches any suffix, and "+
			"'...vN~*' matches every minor version under major N."),
		mcp.WithString("id", mcp.Required(), mcp.Description("GTS identifier string")),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Wildcard pattern")),
	), s.wildcardMatch)

	s.mcp.AddTool(mcp.NewTool("find_entities",
		mcp.WithDescription("List all loaded entities whose identifier matches the pattern, "+
			"in load order."),
		mcp.WithString("pattern", mcp.Required(), mcp.Description("Wildcard pattern or exact identifier")),
	), s.findEntities)

	s.mcp.AddTool(mcp.NewTool("get_entity",
		mcp.WithDescription("Fetch one loaded entity by its exact identifier, "+
			"including its content and extracted references."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Exact GTS identifier")),
	), s.getEntity)

	s.mcp.AddTool(mcp.NewTool("validate_instance",
		mcp.WithDescription("Validate a loaded instance against its declared schema. "+
			"Structural violations are returned in the report."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
	), s.validateInstance)

	s.mcp.AddTool(mcp.NewTool("schema_graph",
		mcp.WithDescription("Build the reference-reachability graph rooted at an identifier. "+
			"Reports missing targets and reference cycles as data."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Root identifier")),
	), s.schemaGraph)

	s.mcp.AddTool(mcp.NewTool("check_compatibility",
		mcp.WithDescription("Structurally compare two minor versions of a schema. "+
			"Returns backward/forward/full verdicts plus the property diffs behind them."),
		mcp.WithString("old", mcp.Required(), mcp.Description("Older schema identifier")),
		mcp.WithString("new", mcp.Required(), mcp.Description("Newer schema identifier")),
	), s.checkCompatibility)

	s.mcp.AddTool(mcp.NewTool("cast_instance",
		mcp.WithDescription("Convert a loaded instance to another minor version of its schema. "+
			"Fails closed unless the versions are compatible in the casting direction."),
		mcp.WithString("id", mcp.Required(), mcp.Description("Instance identifier")),
		mcp.WithString("target", mcp.Required(), mcp.Description("Target schema identifier")),
	), s.castInstance)

	s.mcp.AddTool(mcp.NewTool("query",
		mcp.WithDescription("Filter entities with a pattern plus attribute predicates, "+
			"e.g. gts.acme.billing.invoices.*[status=active, total>100]."),
		mcp.WithString("query", mcp.Required(), mcp.Description("Query expression")),
	), s.query)

	s.mcp.AddTool(mcp.NewTool("resolve_attribute",
		mcp.WithDescription("Resolve an '<id>@<path>' reference to the value inside "+
			"an entity's content. Unresolvable paths report the fields that do exist."),
		mcp.WithString("ref", mcp.Required(), mcp.Description("Attribute reference, e.g. gts.x.core.events.event.v1~login.v1@spec.timeout")),
	), s.resolveAttribute)

	// Resource: identifier format contract.
	s.mcp.AddResource(
		mcp.NewResource("gts://identifier-format", "GTS Identifier Format",
			mcp.WithResourceDescription("Canonical GTS identifier grammar and wildcard pattern rules."),
			mcp.WithMIMEType("text/markdown"),
		),
		s.readIdentifierFormatResource,
	)

	return s
}

// ServeStdio starts the MCP server on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// Listen starts the MCP server on stdin/stdout and stops when ctx is
// cancelled.
func (s *Server) Listen(ctx context.Context) error {
	return server.NewStdioServer(s.mcp).Listen(ctx, os.Stdin, os.Stdout)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}

func jsonResult(v any) *mcp.CallToolResult {
	out, _ := json.MarshalIndent(v, "", "  ")
	return mcp.NewToolResultText(string(out))
}

func (s *Server) validateID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(gtsops.ValidateID(id)), nil
}

func (s *Server) parseID(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := gtsops.ParseID(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) uuid(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	u, err := gtsops.UUID(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(u), nil
}

func (s *Server) wildcardMatch(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := gtsops.WildcardMatch(id, pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) findEntities(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pattern, err := req.RequireString("pattern")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	matches, err := s.ops.Find(pattern)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	ids := make([]string, 0, len(matches))
	for _, e := range matches {
		ids = append(ids, e.ID.String())
	}
	return jsonResult(ids), nil
}

func (s *Server) getEntity(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	e, err := s.ops.Get(id)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("not found: %s", id)), nil
	}
	return jsonResult(e), nil
}

func (s *Server) validateInstance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	rep, err := s.ops.ValidateInstance(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(rep), nil
}

func (s *Server) schemaGraph(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	g, err := s.ops.SchemaGraph(id)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(g), nil
}

func (s *Server) checkCompatibility(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	oldID, err := req.RequireString("old")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	newID, err := req.RequireString("new")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.ops.Compatibility(oldID, newID)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) castInstance(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireString("id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	target, err := req.RequireString("target")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.ops.Cast(id, target)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) query(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	raw, err := req.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	res, err := s.ops.Query(raw)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(res), nil
}

func (s *Server) resolveAttribute(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref, err := req.RequireString("ref")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return jsonResult(s.ops.Attr(ref)), nil
}

func (s *Server) readIdentifierFormatResource(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      "gts://identifier-format",
			MIMEType: "text/markdown",
			Text:     IdentifierFormatContract,
		},
	}, nil
}
