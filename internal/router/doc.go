// Package router maps free-text prompts to tool calls.
//
// Routing composes three pieces:
//
//   - a Scorer rates every tool in the registry against the prompt. The
//     default KeywordScorer uses weighted, stemmed token overlap; other
//     strategies plug in behind the same interface.
//   - a selection policy picks the strictly highest score above the
//     configured confidence threshold. Equal top scores resolve by
//     declaration order (first registered wins) so repeated asks are
//     reproducible, or fail as ambiguous when configured strictly.
//   - slot extraction pulls concrete argument values out of the prompt per
//     the chosen tool's parameter schema. A missing required parameter is an
//     error, never a silent partial call.
//
// All of it is synchronous, allocation-light, and deterministic: the same
// prompt against the same registry always yields the same decision.
package router
