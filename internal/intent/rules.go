// ABOUTME: Declarative rule table mapping regex patterns to tool invocations.
// ABOUTME: Ships a built-in default set; additional rules load from TOML files.

package intent

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
)

// Rule binds one pattern to a tool. Params are static values seeded on every
// match; Captures maps parameter names to regex capture-group indexes. Empty
// captured groups are omitted from the parameters.
type Rule struct {
	Tool     string         `toml:"tool"`
	Pattern  string         `toml:"pattern"`
	Params   map[string]any `toml:"params"`
	Captures map[string]int `toml:"captures"`

	re *regexp.Regexp
}

// Refiner post-processes seeded parameters with the whole input in view.
// Returning false drops the invocation.
type Refiner func(input string, params map[string]any) bool

// compile prepares the rule's pattern for case-insensitive matching so
// capture groups keep the user's original casing.
func (r *Rule) compile() error {
	re, err := regexp.Compile("(?i)" + r.Pattern)
	if err != nil {
		return fmt.Errorf("rule for %s: bad pattern %q: %w", r.Tool, r.Pattern, err)
	}
	r.re = re
	return nil
}

// seed builds the invocation parameters from static params and capture groups.
func (r *Rule) seed(groups []string) map[string]any {
	params := make(map[string]any, len(r.Params)+len(r.Captures))
	for key, value := range r.Params {
		params[key] = value
	}
	for name, idx := range r.Captures {
		if idx <= 0 || idx >= len(groups) {
			continue
		}
		captured := strings.TrimSpace(groups[idx])
		if captured == "" {
			continue
		}
		if n, err := strconv.Atoi(captured); err == nil {
			params[name] = n
		} else {
			params[name] = captured
		}
	}
	return params
}

// DefaultRules returns the built-in rule table. Order matters twice over:
// rules for the same tool are tried top to bottom, and the output invocation
// order follows the table.
func DefaultRules() []*Rule {
	rules := []*Rule{
		{
			Tool:     "web_search",
			Pattern:  `search\s+(?:for\s+)?(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `look\s+up\s+(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `find\s+(?:information\s+about\s+)?(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `what\s+is\s+(.+)\s+(?:today|currently|now)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `latest\s+(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `current\s+(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "web_search",
			Pattern:  `news\s+about\s+(.+)`,
			Params:   map[string]any{"num_results": 5, "search_type": "web"},
			Captures: map[string]int{"query": 1},
		},

		{
			Tool:    "gmail_connector",
			Pattern: `unread\s+emails?`,
			Params:  map[string]any{"action": "get_unread", "count": 5, "include_body": false},
		},
		{
			Tool:    "gmail_connector",
			Pattern: `(?:check|read)\s+(?:my\s+)?email`,
			Params:  map[string]any{"action": "read_recent", "count": 5, "include_body": false},
		},
		{
			Tool:    "gmail_connector",
			Pattern: `recent\s+emails?`,
			Params:  map[string]any{"action": "read_recent", "count": 5, "include_body": false},
		},

		{
			Tool:     "music_control",
			Pattern:  `^play\b\s*(.*)$`,
			Params:   map[string]any{"action": "play"},
			Captures: map[string]int{"query": 1},
		},
		{
			Tool:     "music_control",
			Pattern:  `\b(pause|resume|next|previous)\b`,
			Captures: map[string]int{"action": 1},
		},
		{
			Tool:     "music_control",
			Pattern:  `volume\s+set\s+(\d+)%?`,
			Params:   map[string]any{"action": "set_volume"},
			Captures: map[string]int{"level": 1},
		},
		{
			Tool:    "music_control",
			Pattern: `volume\s+up`,
			Params:  map[string]any{"action": "volume_up"},
		},
		{
			Tool:    "music_control",
			Pattern: `volume\s+down`,
			Params:  map[string]any{"action": "volume_down"},
		},
	}

	for _, rule := range rules {
		if err := rule.compile(); err != nil {
			// Built-in patterns are fixed; a failure here is a programming error.
			panic(err)
		}
	}
	return rules
}

// defaultRefiners returns the per-tool parameter refinement hooks.
func defaultRefiners() map[string]Refiner {
	return map[string]Refiner{
		// Searches phrased around recency become news searches.
		"web_search": func(input string, params map[string]any) bool {
			lower := strings.ToLower(input)
			for _, word := range []string{"news", "latest", "current", "today"} {
				if strings.Contains(lower, word) {
					params["search_type"] = "news"
					params["freshness"] = "week"
					break
				}
			}
			return true
		},
		// Composing mail needs structured recipients; reading intents only.
		"gmail_connector": func(input string, params map[string]any) bool {
			return !strings.Contains(strings.ToLower(input), "send")
		},
	}
}

type ruleFile struct {
	Rules []*Rule `toml:"rule"`
}

// LoadRules reads a TOML rule file and returns the compiled rules in file
// order. TOML integers arrive as int64; they are narrowed to int so seeded
// parameters compare cleanly with the built-in table's values.
func LoadRules(path string) ([]*Rule, error) {
	var file ruleFile
	if _, err := toml.DecodeFile(path, &file); err != nil {
		return nil, fmt.Errorf("failed to load rules from %s: %w", path, err)
	}

	for _, rule := range file.Rules {
		if strings.TrimSpace(rule.Tool) == "" || strings.TrimSpace(rule.Pattern) == "" {
			return nil, fmt.Errorf("rule file %s: every rule needs a tool and a pattern", path)
		}
		if err := rule.compile(); err != nil {
			return nil, err
		}
		for key, value := range rule.Params {
			if n, ok := value.(int64); ok {
				rule.Params[key] = int(n)
			}
		}
	}
	return file.Rules, nil
}
