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

// Package scrape ingests web content into the knowledge base.
//
// Every URL passes an SSRF gate before any fetch: scheme check, DNS
// resolution with private-address rejection, and an optional domain
// allow-list. Redirect targets are re-validated hop by hop.
//
// Batches run through a fixed worker pool with a politeness rate
// limiter; failures are isolated per URL so one bad host never aborts
// the batch.
package scrape
