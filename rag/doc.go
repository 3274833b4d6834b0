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

// Package rag orchestrates hybrid retrieval over the vector and graph
// stores.
//
// A query flows through embed, then vector search and graph lookup in
// parallel, then fusion, optional cross-encoder reranking, and finally
// context packing. Ranking always follows vector-similarity order;
// graph context rides along as attached metadata and never re-sorts
// results.
//
// Ingestion is a two-phase write: the document node lands in the graph
// store first (transactional), the embedding lands in the vector store
// second. If the vector write fails the caller can retry the same
// doc_id; the graph side upserts and the stale vector id, if any, is
// tombstoned on the next successful ingest.
package rag
