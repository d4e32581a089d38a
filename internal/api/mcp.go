package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/csgenius/csgenius/internal/draft"
	"github.com/csgenius/csgenius/internal/knowledge"
)

// MCPDeps holds dependencies for the MCP tool surface.
type MCPDeps struct {
	Store   *knowledge.Store
	Drafter ReplyDrafter // optional; if nil, draft_reply reports unavailable
}

// NewMCPServer creates an MCP server exposing the knowledge base as
// tools and resources for agent clients.
func NewMCPServer(deps MCPDeps) *server.MCPServer {
	s := server.NewMCPServer(
		"csgenius",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithResourceCapabilities(false, true),
		server.WithInstructions("csgenius customer-support knowledge base: search Q&A entries, add new ones, and draft replies."),
		server.WithRecovery(),
	)

	s.AddTool(
		mcp.NewTool("search_knowledge",
			mcp.WithDescription("Search the support knowledge base. Matches questions, answers, and alternative phrasings."),
			mcp.WithString("query", mcp.Description("Free-text search term"), mcp.Required()),
			mcp.WithString("app", mcp.Description("Restrict to one product tag")),
			mcp.WithString("category", mcp.Description("Restrict to one category")),
			mcp.WithNumber("limit", mcp.Description("Maximum number of results (default 5)")),
		),
		mcpSearchKnowledge(deps),
	)

	s.AddTool(
		mcp.NewTool("add_knowledge",
			mcp.WithDescription("Add one Q&A entry to the support knowledge base."),
			mcp.WithString("question", mcp.Description("Canonical question text"), mcp.Required()),
			mcp.WithString("answer", mcp.Description("Support reply text"), mcp.Required()),
			mcp.WithString("app", mcp.Description("Product tag; unrecognized values fall back to the catch-all")),
			mcp.WithString("category", mcp.Description("Classification label")),
			mcp.WithString("optimized_answer", mcp.Description("Improved reply text")),
		),
		mcpAddKnowledge(deps),
	)

	s.AddTool(
		mcp.NewTool("draft_reply",
			mcp.WithDescription("Generate one suggested customer-service reply from keywords, a tone, and business rules."),
			mcp.WithString("keywords", mcp.Description("Keywords or the customer's issue"), mcp.Required()),
			mcp.WithString("tone", mcp.Description("Tone selector; unknown values use the default tone")),
			mcp.WithArray("rules", mcp.Description("Business rules the reply must follow")),
		),
		mcpDraftReply(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"knowledge://stats",
			"Knowledge Base Statistics",
			mcp.WithResourceDescription("Aggregate counters and distributions as JSON"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceStats(deps),
	)

	s.AddResource(
		mcp.NewResource(
			"knowledge://recent",
			"Recently Updated Entries",
			mcp.WithResourceDescription("The 5 most recently updated knowledge items"),
			mcp.WithMIMEType("application/json"),
		),
		mcpResourceRecent(deps),
	)

	return s
}

func mcpSearchKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := req.RequireString("query")
		if err != nil {
			return mcpError("query is required"), nil
		}

		limit := req.GetInt("limit", 5)
		if limit <= 0 {
			limit = 5
		}
		if limit > 50 {
			limit = 50
		}

		items := deps.Store.Filter(query, req.GetString("app", ""), req.GetString("category", ""))
		if len(items) > limit {
			items = items[:limit]
		}
		if len(items) == 0 {
			return mcpText("[]"), nil
		}

		b, err := json.Marshal(items)
		if err != nil {
			return mcpError(fmt.Sprintf("failed to marshal results: %v", err)), nil
		}
		return mcpText(string(b)), nil
	}
}

func mcpAddKnowledge(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := req.RequireString("question")
		if err != nil {
			return mcpError("question is required"), nil
		}
		answer, err := req.RequireString("answer")
		if err != nil {
			return mcpError("answer is required"), nil
		}

		category := req.GetString("category", "")
		if category == "" {
			category = knowledge.AppGeneral
		}

		created := deps.Store.Add([]knowledge.Item{{
			App:             knowledge.NormalizeApp(req.GetString("app", "")),
			Category:        category,
			Question:        question,
			Answer:          answer,
			OptimizedAnswer: req.GetString("optimized_answer", ""),
			Frequency:       knowledge.FrequencyMedium,
		}})

		return mcpText(fmt.Sprintf("Stored knowledge item %s", created[0].ID)), nil
	}
}

func mcpDraftReply(deps MCPDeps) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if deps.Drafter == nil {
			return mcpError("draft generation not available: no completion service configured"), nil
		}

		keywords, err := req.RequireString("keywords")
		if err != nil {
			return mcpError("keywords is required"), nil
		}

		tone := draft.NormalizeTone(req.GetString("tone", ""))
		rules := req.GetStringSlice("rules", nil)

		reply, err := deps.Drafter.Draft(ctx, keywords, tone, rules)
		if err != nil {
			return mcpError(fmt.Sprintf("draft generation failed: %v", err)), nil
		}
		return mcpText(reply), nil
	}
}

func mcpResourceStats(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		payload := map[string]any{
			"stats":      deps.Store.Stats(),
			"apps":       deps.Store.AppDistribution(),
			"categories": deps.Store.CategoryDistribution(8),
		}
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal stats: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpResourceRecent(deps MCPDeps) server.ResourceHandlerFunc {
	return func(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		b, err := json.Marshal(deps.Store.Recent(5))
		if err != nil {
			return nil, fmt.Errorf("failed to marshal recent items: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     string(b),
			},
		}, nil
	}
}

func mcpText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: text},
		},
	}
}

func mcpError(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
