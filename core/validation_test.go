package core

import (
	"errors"
	"testing"
)

func TestValidateDocument(t *testing.T) {
	doc := &Document{ID: "doc1", Title: "Title", Content: "Content"}
	if err := ValidateDocument(doc); err != nil {
		t.Fatalf("Expected valid document, got error: %v", err)
	}

	if err := ValidateDocument(nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("Expected ErrInvalidInput for nil document, got: %v", err)
	}

	if err := ValidateDocument(&Document{Title: "no id"}); !errors.Is(err, ErrEmptyDocumentID) {
		t.Fatalf("Expected ErrEmptyDocumentID, got: %v", err)
	}
}

func TestValidateEntity(t *testing.T) {
	entity := &Entity{ID: "e1", Name: "Alice", Type: EntityTypePerson}
	if err := ValidateEntity(entity); err != nil {
		t.Fatalf("Expected valid entity, got error: %v", err)
	}

	if err := ValidateEntity(&Entity{Name: "no id", Type: EntityTypePerson}); !errors.Is(err, ErrEmptyEntityID) {
		t.Fatalf("Expected ErrEmptyEntityID, got: %v", err)
	}

	if err := ValidateEntity(&Entity{ID: "e2", Name: "x", Type: "robot"}); !errors.Is(err, ErrInvalidEntityType) {
		t.Fatalf("Expected ErrInvalidEntityType, got: %v", err)
	}
}
