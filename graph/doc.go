// Copyright 2025 Poiesic Systems
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


// Package graph implements the typed knowledge graph store on BadgerDB.
//
// Nodes are Documents and Entities; edges are MENTIONS (document →
// entity) and RELATED_TO (entity → entity, carrying a relation type).
// Edges live in composite-key indexes with forward and reverse
// orientations so traversal and cascading deletion are both prefix
// scans. The store also keeps the document↔vector-id mapping that joins
// vector search hits back to documents.
//
// Every operation runs in a single Badger transaction, so individual
// reads and writes are atomic and concurrent readers never observe a
// half-applied write.
package graph
