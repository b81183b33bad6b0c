package mcpserver

import (
	"context"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/gts/internal/compat"
	"github.com/starford/gts/internal/entity"
	"github.com/starford/gts/internal/gtsops"
	"github.com/starford/gts/internal/testutil"
)

func testServer(t *testing.T) *Server {
	t.Helper()

	_, src := testutil.TestSource(t, map[string]string{
		"schema.json": `{
			"$id": "gts.x.core.events.event.v1.0~",
			"type": "object",
			"properties": {"name": {"type": "string"}},
			"required": ["name"]
		}`,
		"schema11.json": `{
			"$id": "gts.x.core.events.event.v1.1~",
			"type": "object",
			"properties": {
				"name": {"type": "string"},
				"note": {"type": "string"}
			},
			"required": ["name"]
		}`,
		"instance.json": `{
			"$id": "gts.x.core.events.event.v1.0~acme.login.v1",
			"$schema": "gts.x.core.events.event.v1.0~",
			"name": "login"
		}`,
	})

	ops, err := gtsops.New(src, entity.DefaultConfig(), compat.DefaultPolicy(), testutil.Logger())
	if err != nil {
		t.Fatal(err)
	}
	return New(ops)
}

func callTool(t *testing.T, srv *Server, name string, args map[string]interface{}) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go doesn't expose a direct "call tool" test helper, so we test
	// through the tool handler functions directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "validate_id":
		result, err = srv.validateID(ctx, req)
	case "parse_id":
		result, err = srv.parseID(ctx, req)
	case "uuid":
		result, err = srv.uuid(ctx, req)
	case "wildcard_match":
		result, err = srv.wildcardMatch(ctx, req)
	case "find_entities":
		result, err = srv.findEntities(ctx, req)
	case "get_entity":
		result, err = srv.getEntity(ctx, req)
	case "validate_instance":
		result, err = srv.validateInstance(ctx, req)
	case "schema_graph":
		result, err = srv.schemaGraph(ctx, req)
	case "check_compatibility":
		result, err = srv.checkCompatibility(ctx, req)
	case "cast_instance":
		result, err = srv.castInstance(ctx, req)
	case "query":
		result, err = srv.query(ctx, req)
	case "resolve_attribute":
		result, err = srv.resolveAttribute(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestParseIDTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "parse_id", map[string]interface{}{
		"id": "gts.x.core.events.event.v1.0~",
	})
	text := resultText(r)
	if !strings.Contains(text, `"vendor": "x"`) || !strings.Contains(text, `"isSchema": true`) {
		t.Errorf("parse_id result = %q", text)
	}

	r = callTool(t, srv, "parse_id", map[string]interface{}{
		"id": "definitely-not-gts",
	})
	if !r.IsError {
		t.Error("expected error result for malformed identifier")
	}
}

func TestUUIDTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "uuid", map[string]interface{}{
		"id": "gts.x.core.events.event.v1.0~",
	})
	if got := resultText(r); got != "32d041ca-fef8-511c-8820-6af272c08eb4" {
		t.Errorf("uuid result = %q", got)
	}
}

func TestWildcardMatchTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "wildcard_match", map[string]interface{}{
		"id":      "gts.x.core.events.event.v1.0~",
		"pattern": "gts.x.core.events.event.v1~*",
	})
	if !strings.Contains(resultText(r), `"match": true`) {
		t.Errorf("wildcard_match result = %q", resultText(r))
	}
}

func TestFindAndGetEntityTools(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "find_entities", map[string]interface{}{
		"pattern": "gts.x.core.events.*",
	})
	text := resultText(r)
	if !strings.Contains(text, "gts.x.core.events.event.v1.0~acme.login.v1") {
		t.Errorf("find_entities result = %q", text)
	}

	r = callTool(t, srv, "get_entity", map[string]interface{}{
		"id": "gts.x.core.events.event.v1.0~acme.login.v1",
	})
	if !strings.Contains(resultText(r), `"name": "login"`) {
		t.Errorf("get_entity result = %q", resultText(r))
	}

	r = callTool(t, srv, "get_entity", map[string]interface{}{
		"id": "gts.x.core.events.event.v1.0~absent.v1",
	})
	if !r.IsError {
		t.Error("expected error result for unknown entity")
	}
}

func TestValidateInstanceTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "validate_instance", map[string]interface{}{
		"id": "gts.x.core.events.event.v1.0~acme.login.v1",
	})
	if !strings.Contains(resultText(r), `"valid": true`) {
		t.Errorf("validate_instance result = %q", resultText(r))
	}
}

func TestCheckCompatibilityTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "check_compatibility", map[string]interface{}{
		"old": "gts.x.core.events.event.v1.0~",
		"new": "gts.x.core.events.event.v1.1~",
	})
	if !strings.Contains(resultText(r), `"fullyCompatible": true`) {
		t.Errorf("check_compatibility result = %q", resultText(r))
	}
}

func TestCastInstanceTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "cast_instance", map[string]interface{}{
		"id":     "gts.x.core.events.event.v1.0~acme.login.v1",
		"target": "gts.x.core.events.event.v1.1~",
	})
	if !strings.Contains(resultText(r), `"direction": "up"`) {
		t.Errorf("cast_instance result = %q", resultText(r))
	}
}

func TestQueryTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "query", map[string]interface{}{
		"query": "gts.x.core.events.*[name=login]",
	})
	if !strings.Contains(resultText(r), `"count": 1`) {
		t.Errorf("query result = %q", resultText(r))
	}
}

func TestResolveAttributeTool(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "resolve_attribute", map[string]interface{}{
		"ref": "gts.x.core.events.event.v1.0~acme.login.v1@name",
	})
	text := resultText(r)
	if !strings.Contains(text, `"resolved": true`) || !strings.Contains(text, `"value": "login"`) {
		t.Errorf("resolve_attribute result = %q", text)
	}
}
