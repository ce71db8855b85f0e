package config

import (
	"testing"

	"github.com/tordrt/relstore/internal/shape"
)

const sampleConfig = `
entities:
  - name: author
    fields:
      - name: name
        type: text
    unique_keys:
      - [name]
  - name: article
    fields:
      - name: title
        type: varchar
        length: 255
      - name: status
        type: enum
        values: [draft, published]
      - name: tags
        type: seq
        elem:
          type: text
      - name: author
        type: ref
        entity: author
      - name: attrs
        type: map
        key:
          type: text
        elem:
          type: int
    indexes:
      - [status]
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(sampleConfig))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if len(cfg.Entities) != 2 {
		t.Fatalf("Expected 2 entities, got %d", len(cfg.Entities))
	}

	defs, err := cfg.EntityDefs()
	if err != nil {
		t.Fatalf("EntityDefs failed: %v", err)
	}

	article := defs[1]
	if article.Name != "article" {
		t.Errorf("Expected entity article, got %s", article.Name)
	}
	if len(article.Fields) != 5 {
		t.Fatalf("Expected 5 fields, got %d", len(article.Fields))
	}

	title := article.Fields[0]
	if title.Shape.Kind != shape.Varchar || title.Shape.Length != 255 {
		t.Errorf("Unexpected title shape: %+v", title.Shape)
	}

	status := article.Fields[1]
	if status.Shape.Kind != shape.Enum || len(status.Shape.Values) != 2 {
		t.Errorf("Unexpected status shape: %+v", status.Shape)
	}

	tags := article.Fields[2]
	if tags.Shape.Kind != shape.Seq || tags.Shape.Elem == nil || tags.Shape.Elem.Kind != shape.Text {
		t.Errorf("Unexpected tags shape: %+v", tags.Shape)
	}

	author := article.Fields[3]
	if author.Shape.Kind != shape.Ref || author.Shape.Entity != "author" {
		t.Errorf("Unexpected author shape: %+v", author.Shape)
	}

	attrs := article.Fields[4]
	if attrs.Shape.Kind != shape.Map || attrs.Shape.Key.Kind != shape.Text || attrs.Shape.Elem.Kind != shape.Int {
		t.Errorf("Unexpected attrs shape: %+v", attrs.Shape)
	}

	if len(article.Settings.Indexes) != 1 {
		t.Errorf("Expected 1 index declaration, got %d", len(article.Settings.Indexes))
	}

	for _, def := range defs {
		if err := def.Validate(); err != nil {
			t.Errorf("Definition %s failed validation: %v", def.Name, err)
		}
	}
}

func TestParseErrors(t *testing.T) {
	if _, err := Parse([]byte("entities: []")); err == nil {
		t.Error("Expected error for empty entity list")
	}
	if _, err := Parse([]byte("not: [valid")); err == nil {
		t.Error("Expected error for malformed YAML")
	}

	cfg, err := Parse([]byte("entities:\n  - name: a\n    fields:\n      - name: f\n        type: blob\n"))
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if _, err := cfg.EntityDefs(); err == nil {
		t.Error("Expected error for unknown field type")
	}
}
