// Copyright 2025 The Poiesic Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package ai defines the model-service abstractions used by the
// retrieval engine: text embedding and cross-encoder relevance scoring.
//
// The retrieval and reranking layers depend only on the interfaces in
// this package. Two implementations ship with the module:
//
//   - ai/openai: production clients for OpenAI-compatible embedding
//     services and Jina-style rerank endpoints
//   - ai/mock: deterministic in-process doubles for tests
//
// Production constructors return interface types so callers cannot
// couple to a concrete client; mock constructors return concrete types
// so tests can inject behavior and inspect call counts.
package ai
