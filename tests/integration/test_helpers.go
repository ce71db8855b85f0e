//go:build integration
// +build integration

package integration

import (
	"context"
	"testing"
	"time"

	"github.com/tordrt/relstore"
)

func declarations() []relstore.EntityDef {
	return []relstore.EntityDef{
		{
			Name: "author",
			Fields: []relstore.Field{
				{Name: "name", Shape: relstore.Shape{Kind: relstore.Varchar, Length: 120}},
			},
			Settings: relstore.Settings{UniqueKeys: [][]string{{"name"}}},
		},
		{
			Name: "article",
			Fields: []relstore.Field{
				{Name: "title", Shape: relstore.Shape{Kind: relstore.Varchar, Length: 255}},
				{Name: "status", Shape: relstore.Shape{
					Kind:   relstore.Enum,
					Values: []string{"draft", "published"},
				}},
				{Name: "featured", Shape: relstore.Shape{Kind: relstore.Bool}},
				{Name: "rank", Shape: relstore.Shape{Kind: relstore.SmallInt}},
				{Name: "published_on", Shape: relstore.Shape{Kind: relstore.Date}},
				{Name: "digest_at", Shape: relstore.Shape{Kind: relstore.Time}},
				{Name: "tags", Shape: relstore.Shape{
					Kind: relstore.Seq,
					Elem: &relstore.Shape{Kind: relstore.Varchar, Length: 60},
				}},
				{Name: "author", Shape: relstore.Shape{Kind: relstore.Ref, Entity: "author"}},
			},
		},
	}
}

// verifyRoundTrip drives one full aggregate lifecycle through the store:
// insert with a generated key, dependent rows, update under the same id, and
// cascade delete.
func verifyRoundTrip(t *testing.T, store *relstore.Store) {
	t.Helper()
	ctx := context.Background()

	author, err := store.Save(ctx, "author", relstore.Transient(relstore.Record{"name": "ada"}))
	if err != nil {
		t.Fatalf("Failed to save author: %v", err)
	}
	if !author.IsPersisted() {
		t.Fatal("Expected saved author to be persisted")
	}

	publishedOn := time.Date(2024, time.March, 5, 0, 0, 0, 0, time.UTC)
	digestAt := time.Date(0, time.January, 1, 9, 30, 0, 0, time.UTC)

	article, err := store.Save(ctx, "article", relstore.Transient(relstore.Record{
		"title":        "Concurrency patterns",
		"status":       "draft",
		"featured":     true,
		"rank":         3,
		"published_on": publishedOn,
		"digest_at":    digestAt,
		"tags":         []string{"go", "channels"},
		"author":       author,
	}))
	if err != nil {
		t.Fatalf("Failed to save article: %v", err)
	}

	fetched, err := store.FetchByID(ctx, "article", article.ID())
	if err != nil {
		t.Fatalf("Failed to fetch article: %v", err)
	}
	if fetched == nil {
		t.Fatal("Article not found after save")
	}
	if fetched.Get("title") != "Concurrency patterns" || fetched.Get("status") != "draft" {
		t.Errorf("Unexpected inline values: %v", fetched.Values())
	}
	if fetched.Get("featured") != true {
		t.Errorf("Unexpected featured value: %v", fetched.Get("featured"))
	}
	if fetched.Get("rank") != int64(3) {
		t.Errorf("Unexpected rank value: %v", fetched.Get("rank"))
	}
	if on, ok := fetched.Get("published_on").(time.Time); !ok || !on.Equal(publishedOn) {
		t.Errorf("Unexpected published_on value: %v", fetched.Get("published_on"))
	}
	if at, ok := fetched.Get("digest_at").(time.Time); !ok || at.Hour() != 9 || at.Minute() != 30 {
		t.Errorf("Unexpected digest_at value: %v", fetched.Get("digest_at"))
	}
	tags, ok := fetched.Get("tags").([]any)
	if !ok || len(tags) != 2 || tags[0] != "go" || tags[1] != "channels" {
		t.Errorf("Unexpected tags: %v", fetched.Get("tags"))
	}

	updated, err := store.Save(ctx, "article", relstore.Persisted(article.ID(), relstore.Record{
		"title":        "Concurrency patterns",
		"status":       "published",
		"featured":     false,
		"rank":         4,
		"published_on": publishedOn,
		"digest_at":    digestAt,
		"tags":         []string{"go"},
		"author":       author,
	}))
	if err != nil {
		t.Fatalf("Failed to update article: %v", err)
	}
	if updated.ID() != article.ID() {
		t.Errorf("Update changed id from %d to %d", article.ID(), updated.ID())
	}

	fetched, err = store.FetchByID(ctx, "article", article.ID())
	if err != nil {
		t.Fatalf("Failed to fetch article after update: %v", err)
	}
	if fetched.Get("status") != "published" {
		t.Errorf("Unexpected status after update: %v", fetched.Get("status"))
	}
	if tags, _ := fetched.Get("tags").([]any); len(tags) != 1 {
		t.Errorf("Expected tags to be replaced, got %v", fetched.Get("tags"))
	}

	if err := store.Delete(ctx, "article", updated); err != nil {
		t.Fatalf("Failed to delete article: %v", err)
	}
	fetched, err = store.FetchByID(ctx, "article", article.ID())
	if err != nil {
		t.Fatalf("Failed to fetch after delete: %v", err)
	}
	if fetched != nil {
		t.Error("Expected deleted article to be gone")
	}

	if err := store.Delete(ctx, "author", author); err != nil {
		t.Fatalf("Failed to delete author: %v", err)
	}
}
