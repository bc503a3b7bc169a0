package agent

import (
	"encoding/json"

	"github.com/mark3labs/mcp-go/mcp"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAITools converts MCP tool definitions into chat-completion function
// tools sharing the same JSON schema.
func OpenAITools(tools []mcp.Tool) []openai.Tool {
	out := make([]openai.Tool, 0, len(tools))
	for _, t := range tools {
		out = append(out, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  parameters(t.InputSchema),
			},
		})
	}
	return out
}

func parameters(schema mcp.ToolInputSchema) json.RawMessage {
	props := schema.Properties
	if props == nil {
		props = map[string]any{}
	}
	params := map[string]any{
		"type":       "object",
		"properties": props,
	}
	if len(schema.Required) > 0 {
		params["required"] = schema.Required
	}
	data, err := json.Marshal(params)
	if err != nil {
		return json.RawMessage(`{"type":"object","properties":{}}`)
	}
	return data
}
