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

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//
// NOT validated:
//   - Title and Content may be empty (scraped pages occasionally are)
//   - URL is optional
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidInput)
	}
	if doc.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyDocumentID)
	}
	return nil
}

// ValidateEntity validates an Entity according to domain rules.
//
// Validation rules:
//   - ID must not be empty
//   - Type must be a recognized EntityType
func ValidateEntity(entity *Entity) error {
	if entity == nil {
		return fmt.Errorf("%w: entity is nil", ErrInvalidInput)
	}
	if entity.ID == "" {
		return fmt.Errorf("%w: %w", ErrInvalidInput, ErrEmptyEntityID)
	}
	if !entity.Type.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidEntityType, entity.Type)
	}
	return nil
}
