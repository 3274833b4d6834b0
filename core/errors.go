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


package core

import "errors"

// Domain errors shared by the vector and graph stores.
var (
	// ErrInvalidInput indicates a malformed or missing required field.
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound indicates a referenced document or entity is absent.
	ErrNotFound = errors.New("not found")

	// ErrNodeNotFound indicates an edge endpoint does not exist.
	ErrNodeNotFound = errors.New("node not found")

	// ErrInvalidEntityType indicates an unrecognized entity type value.
	ErrInvalidEntityType = errors.New("invalid entity type")

	// ErrDimensionMismatch indicates a vector whose length differs from
	// the store's configured dimension.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrDuplicateID indicates a caller-supplied vector id already exists.
	ErrDuplicateID = errors.New("duplicate vector id")

	// ErrStorageIO indicates a persistence operation did not durably complete.
	ErrStorageIO = errors.New("storage I/O failure")

	// ErrEmptyDocumentID indicates the document ID field is empty.
	ErrEmptyDocumentID = errors.New("document id cannot be empty")

	// ErrEmptyEntityID indicates the entity ID field is empty.
	ErrEmptyEntityID = errors.New("entity id cannot be empty")

	// ErrSelfLink indicates an entity relation whose source and target are the same.
	ErrSelfLink = errors.New("entity cannot relate to itself")
)
