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


// Package vector implements a dense-vector similarity index with an
// id→text side table.
//
// The store is append-biased: deletion tombstones an id rather than
// rewriting the index, and Compact reclaims tombstoned slots as an
// explicit maintenance operation. Search filters tombstones, orders by
// similarity descending, and breaks ties by ascending id so results are
// deterministic.
//
// Persistence writes the index and the side table as a pair of files
// stamped with a shared save generation. Both files are written to a
// temporary location and atomically renamed, and a load rejects a pair
// whose generations disagree, so a crash mid-save can never yield a
// readable-but-inconsistent store.
package vector
