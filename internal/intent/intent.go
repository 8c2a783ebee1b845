// ABOUTME: Routes raw user text to tool invocations via an ordered rule table.
// ABOUTME: Inline [TOOL: name] directives bypass pattern matching entirely.

package intent

import (
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"
)

// Invocation is one tool the router decided to invoke, with seeded parameters.
type Invocation struct {
	Tool       string
	Parameters map[string]any
}

// ToolSet reports which tools routing may target. The registry satisfies this.
type ToolSet interface {
	IsEnabled(name string) bool
}

// directivePattern matches the explicit inline tool request syntax.
var directivePattern = regexp.MustCompile(`(?i)\[TOOL:\s*(\w+)\]\s*(.*)`)

// Router matches user input against an ordered rule table and produces tool
// invocations. At most one invocation per tool: the first matching rule for a
// tool wins and later rules for that tool are skipped.
type Router struct {
	rules    []*Rule
	tools    ToolSet
	refiners map[string]Refiner
	logger   *slog.Logger
}

// RouterConfig contains configuration options for the Router.
type RouterConfig struct {
	Rules  []*Rule // nil means DefaultRules()
	Tools  ToolSet
	Logger *slog.Logger
}

// NewRouter creates a Router over the given rule table.
func NewRouter(cfg RouterConfig) *Router {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	rules := cfg.Rules
	if rules == nil {
		rules = DefaultRules()
	}

	return &Router{
		rules:    rules,
		tools:    cfg.Tools,
		refiners: defaultRefiners(),
		logger:   logger.With("component", "intent_router"),
	}
}

// Decide returns the tool invocations for the given user input.
//
// A valid inline directive takes precedence: the router returns exactly that
// invocation and skips pattern matching. Directives naming unknown or
// disabled tools are ignored and the input falls through to the rule table.
// No match returns an empty slice, the common case.
func (r *Router) Decide(input string) []Invocation {
	if inv, ok := r.decideDirective(input); ok {
		return []Invocation{inv}
	}

	var invocations []Invocation
	matched := make(map[string]bool)

	for _, rule := range r.rules {
		if matched[rule.Tool] || !r.enabled(rule.Tool) {
			continue
		}
		groups := rule.re.FindStringSubmatch(input)
		if groups == nil {
			continue
		}
		matched[rule.Tool] = true

		params := rule.seed(groups)
		if refine, ok := r.refiners[rule.Tool]; ok && !refine(input, params) {
			continue
		}

		r.logger.Debug("intent matched",
			"tool_name", rule.Tool,
			"pattern", rule.Pattern,
		)
		invocations = append(invocations, Invocation{Tool: rule.Tool, Parameters: params})
	}
	return invocations
}

// decideDirective parses the explicit [TOOL: name] args syntax.
func (r *Router) decideDirective(input string) (Invocation, bool) {
	groups := directivePattern.FindStringSubmatch(input)
	if groups == nil {
		return Invocation{}, false
	}

	name := groups[1]
	if !r.enabled(name) {
		r.logger.Debug("directive for unknown or disabled tool ignored", "tool_name", name)
		return Invocation{}, false
	}
	return Invocation{Tool: name, Parameters: parseDirectiveParams(groups[2])}, true
}

func (r *Router) enabled(name string) bool {
	return r.tools != nil && r.tools.IsEnabled(name)
}

// parseDirectiveParams accepts either a JSON object or k=v,k=v pairs.
// Malformed input yields empty parameters rather than failing the turn.
func parseDirectiveParams(args string) map[string]any {
	args = strings.TrimSpace(args)
	params := make(map[string]any)
	if args == "" {
		return params
	}

	if strings.HasPrefix(args, "{") {
		if err := json.Unmarshal([]byte(args), &params); err == nil {
			return params
		}
		return make(map[string]any)
	}

	for _, pair := range strings.Split(args, ",") {
		key, value, found := strings.Cut(pair, "=")
		if !found {
			continue
		}
		params[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	return params
}
