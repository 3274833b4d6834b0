// Package mock provides test double implementations of the ai
// interfaces.
//
// The mocks run fully in-process with deterministic defaults, so
// retrieval tests need no external model services:
//
//   - MockEmbedder returns hash-derived vectors; identical text always
//     embeds identically
//   - MockCrossEncoder scores pairs by token overlap between query and
//     document
//   - MockProvider aggregates the two
//
// Constructors return concrete types so tests can inject custom
// behavior via the function fields and assert on call counts.
package mock
