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

package graph

import (
	"testing"
)

// NewMemoryStore creates a Store on an in-memory backend for tests.
// Both are closed automatically when the test ends.
func NewMemoryStore(t *testing.T) *Store {
	t.Helper()

	backend, err := OpenBackend("", true)
	if err != nil {
		t.Fatalf("failed to open in-memory backend: %v", err)
	}
	t.Cleanup(func() {
		if err := backend.Close(); err != nil {
			t.Errorf("failed to close backend: %v", err)
		}
	})

	store, err := NewStore(backend)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	return store
}
