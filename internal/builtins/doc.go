// ABOUTME: Package builtins provides the in-process tools shipped with strand.
// ABOUTME: Each tool wraps an injectable backend and returns structured results.

// Package builtins contains the tools registered by default: web search,
// music playback control, and note storage. External integrations are
// injected as narrow interfaces so the tools stay testable offline.
package builtins
