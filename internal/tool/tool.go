// ABOUTME: Tool capability contract and shared types for strand tools.
// ABOUTME: Defines the Tool interface, parameter schema, and execution result types.

package tool

import "context"

// Tool categories
const (
	CategorySearch        = "search"
	CategoryCommunication = "communication"
	CategoryMedia         = "media"
	CategoryProductivity  = "productivity"
	CategorySystem        = "system"
	CategoryCustom        = "custom"
)

// Parameter describes a single entry in a tool's parameter schema.
type Parameter struct {
	Name        string
	Type        string // "string", "integer", "number", "boolean", "array", "object"
	Description string
	Required    bool
	Default     any
	Enum        []string
}

// Result is the outcome of a tool execution. Runtime failures are reported
// here, never as Go errors from Registry.Execute.
type Result struct {
	Success bool
	Data    map[string]any
	Error   string
}

// Tool is the capability every registered tool must expose.
// Registration rejects tools that fail the structural check up front.
type Tool interface {
	Name() string
	Description() string
	Category() string
	Parameters() []Parameter
	Execute(ctx context.Context, params map[string]any) Result
	IsAvailable() bool
}

// Info is displayable metadata about a tool, local or externally sourced.
type Info struct {
	Name        string
	Description string
	Category    string
	Enabled     bool
	Parameters  []Parameter
}

// Schema renders an Info as a JSON-schema-shaped map, suitable for
// advertising the tool to a generation backend or API client.
func (i Info) Schema() map[string]any {
	properties := make(map[string]any, len(i.Parameters))
	var required []string
	for _, p := range i.Parameters {
		prop := map[string]any{
			"type":        p.Type,
			"description": p.Description,
		}
		if p.Default != nil {
			prop["default"] = p.Default
		}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		properties[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"name":        i.Name,
		"description": i.Description,
		"category":    i.Category,
		"parameters": map[string]any{
			"type":       "object",
			"properties": properties,
			"required":   required,
		},
	}
}

// InfoProvider supplies externally-sourced tool metadata merged into
// Registry.ListAvailable. Locally registered tools win on name collisions.
type InfoProvider interface {
	Tools(ctx context.Context) ([]Info, error)
}
