// gleaner-mcp is a stdio MCP bridge in front of a running Gleaner API.
// It exposes the execute endpoint as a tool so agent runtimes can call
// extractions without speaking HTTP themselves.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// executeRequest mirrors the Gleaner API request model.
type executeRequest struct {
	URL    string `json:"url"`
	Script string `json:"script,omitempty"`
	Config *struct {
		Selectors []string `json:"selectors,omitempty"`
		Mode      string   `json:"mode,omitempty"`
	} `json:"config,omitempty"`
	MaxItems      int    `json:"max_items,omitempty"`
	Timeout       int    `json:"timeout,omitempty"`
	ExecutionKind string `json:"execution_kind,omitempty"`
	AgentName     string `json:"agent_name,omitempty"`
}

// executeResponse mirrors the Gleaner API response model.
type executeResponse struct {
	Success      bool             `json:"success"`
	Items        []map[string]any `json:"items"`
	Logs         []string         `json:"logs"`
	FallbackUsed string           `json:"fallback_used"`
	Diagnostic   *struct {
		Issues []struct {
			Kind        string `json:"kind"`
			Title       string `json:"title"`
			Description string `json:"description"`
		} `json:"issues"`
	} `json:"diagnostic"`
	Error *struct {
		Category    string   `json:"category"`
		Message     string   `json:"message"`
		Suggestions []string `json:"suggestions"`
	} `json:"error"`
}

func main() {
	apiURL := os.Getenv("GLEANER_API_URL")
	if apiURL == "" {
		apiURL = "http://127.0.0.1:8080"
	}
	apiKey := os.Getenv("GLEANER_API_KEY")
	if apiKey == "" {
		fmt.Fprintln(os.Stderr, "GLEANER_API_KEY is required")
		os.Exit(1)
	}

	s := server.NewMCPServer(
		"gleaner",
		"1.0.0",
		server.WithToolCapabilities(false),
	)

	executeTool := mcp.NewTool("execute_extraction",
		mcp.WithDescription("Run an extraction against a web page. Provide either a JavaScript routine (script) or a list of CSS selectors; the routine sees document, console, utils and items. Returns extracted items plus diagnostics when nothing matched."),
		mcp.WithString("url",
			mcp.Required(),
			mcp.Description("The URL of the page to extract from"),
		),
		mcp.WithString("script",
			mcp.Description("JavaScript extraction routine. Push objects into the items array or return an array."),
		),
		mcp.WithArray("selectors",
			mcp.Description("CSS selectors tried in order when no script is given"),
		),
		mcp.WithString("mode",
			mcp.Description("Execution mode for selector-based extraction: 'sandbox' (default, plain fetch) or 'browser' (browser-driven backend)"),
			mcp.Enum("sandbox", "browser"),
		),
		mcp.WithNumber("max_items",
			mcp.Description("Maximum number of items to return (default: 50, max: 500)"),
		),
		mcp.WithNumber("timeout",
			mcp.Description("Execution timeout in seconds (default: 30; clamped by the server)"),
		),
	)

	s.AddTool(executeTool, handleExecute(apiURL, apiKey))

	if err := server.ServeStdio(s); err != nil {
		fmt.Fprintf(os.Stderr, "server error: %v\n", err)
		os.Exit(1)
	}
}

func handleExecute(apiURL, apiKey string) server.ToolHandlerFunc {
	client := &http.Client{Timeout: 180 * time.Second}

	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		url, err := request.RequireString("url")
		if err != nil {
			return mcp.NewToolResultError("url is required"), nil
		}

		reqBody := executeRequest{
			URL:           url,
			Script:        request.GetString("script", ""),
			MaxItems:      request.GetInt("max_items", 0),
			Timeout:       request.GetInt("timeout", 0),
			ExecutionKind: "agent",
			AgentName:     "gleaner-mcp",
		}

		selectors := request.GetStringSlice("selectors", nil)
		if len(selectors) > 0 {
			if reqBody.Script != "" {
				return mcp.NewToolResultError("script and selectors are mutually exclusive"), nil
			}
			reqBody.Config = &struct {
				Selectors []string `json:"selectors,omitempty"`
				Mode      string   `json:"mode,omitempty"`
			}{
				Selectors: selectors,
				Mode:      request.GetString("mode", ""),
			}
		}
		if reqBody.Script == "" && reqBody.Config == nil {
			return mcp.NewToolResultError("one of script or selectors is required"), nil
		}

		body, err := json.Marshal(reqBody)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to marshal request: %v", err)), nil
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL+"/api/v1/execute", bytes.NewReader(body))
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to create request: %v", err)), nil
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("X-API-Key", apiKey)

		resp, err := client.Do(httpReq)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("API request failed: %v", err)), nil
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to read response: %v", err)), nil
		}

		var execResp executeResponse
		if err := json.Unmarshal(respBody, &execResp); err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("failed to parse response: %v", err)), nil
		}

		if !execResp.Success {
			return mcp.NewToolResultError(formatFailure(&execResp)), nil
		}

		return mcp.NewToolResultText(formatItems(&execResp)), nil
	}
}

// formatItems renders a successful response as readable text with a
// pretty-printed item list.
func formatItems(resp *executeResponse) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Extracted %d item(s)", len(resp.Items)))
	if resp.FallbackUsed != "" {
		sb.WriteString(" via " + resp.FallbackUsed)
	}
	sb.WriteString("\n\n")

	pretty, err := json.MarshalIndent(resp.Items, "", "  ")
	if err != nil {
		sb.WriteString(fmt.Sprintf("%v", resp.Items))
	} else {
		sb.Write(pretty)
	}
	return sb.String()
}

// formatFailure renders error detail plus the diagnostic issues so the
// calling agent can decide its next step.
func formatFailure(resp *executeResponse) string {
	var sb strings.Builder
	if resp.Error != nil {
		sb.WriteString(fmt.Sprintf("[%s] %s\n", resp.Error.Category, resp.Error.Message))
		for _, s := range resp.Error.Suggestions {
			sb.WriteString("  - " + s + "\n")
		}
	} else {
		sb.WriteString("extraction failed\n")
	}
	if resp.Diagnostic != nil {
		for _, issue := range resp.Diagnostic.Issues {
			sb.WriteString(fmt.Sprintf("issue [%s] %s: %s\n", issue.Kind, issue.Title, issue.Description))
		}
	}
	return sb.String()
}
