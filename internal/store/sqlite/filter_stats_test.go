package sqlite

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/shelfmark/shelfmark-server/internal/domain"
)

func seedRun(t *testing.T, s *Store, id string) {
	t.Helper()
	run := makeTestRun(id)
	if err := s.CreateRun(context.Background(), run); err != nil {
		t.Fatalf("CreateRun(%s): %v", id, err)
	}
}

func TestInsertAndListFilterStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRun(t, s, "run-1")

	base := time.Date(2025, 7, 1, 10, 0, 0, 0, time.UTC)
	stats := []domain.FilterStat{
		{
			RunID:       "run-1",
			Identifier:  "walden00thor",
			Outcome:     domain.FilterPassed,
			Genres:      []string{"Philosophy", "Essays"},
			Author:      "Henry David Thoreau",
			EvaluatedAt: base,
		},
		{
			RunID:       "run-1",
			Identifier:  "originofspecies00darw",
			Outcome:     domain.FilterByGenre,
			Genres:      []string{"Science"},
			Author:      "Charles Darwin",
			EvaluatedAt: base.Add(time.Second),
		},
		{
			RunID:       "run-1",
			Identifier:  "unclassified00anon",
			Outcome:     domain.FilterByGenre,
			EvaluatedAt: base.Add(2 * time.Second),
		},
	}

	if err := s.InsertFilterStats(ctx, stats); err != nil {
		t.Fatalf("InsertFilterStats: %v", err)
	}

	// IDs were assigned in place.
	for i, stat := range stats {
		if stat.ID == "" {
			t.Errorf("stat %d: ID not assigned", i)
		}
		if !strings.HasPrefix(stat.ID, "fs-") {
			t.Errorf("stat %d: ID %q missing fs- prefix", i, stat.ID)
		}
	}

	got, err := s.ListFilterStats(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListFilterStats: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("expected 3 stats, got %d", len(got))
	}
	if got[0].Identifier != "walden00thor" {
		t.Errorf("expected insertion order, got %s first", got[0].Identifier)
	}
	if got[1].Outcome != domain.FilterByGenre {
		t.Errorf("Outcome: got %q, want filtered_genre", got[1].Outcome)
	}
	if len(got[1].Genres) != 1 || got[1].Genres[0] != "Science" {
		t.Errorf("Genres: got %v, want [Science]", got[1].Genres)
	}
	// Unclassified candidate: no genres, no author.
	if len(got[2].Genres) != 0 || got[2].Author != "" {
		t.Errorf("unclassified stat: got genres=%v author=%q", got[2].Genres, got[2].Author)
	}
}

func TestInsertFilterStatsEmpty(t *testing.T) {
	s := newTestStore(t)

	if err := s.InsertFilterStats(context.Background(), nil); err != nil {
		t.Errorf("InsertFilterStats(nil): %v", err)
	}
}

func TestFilterStatsCascadeOnRunDelete(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRun(t, s, "run-1")

	stats := []domain.FilterStat{
		{RunID: "run-1", Identifier: "a", Outcome: domain.FilterPassed, EvaluatedAt: time.Now()},
	}
	if err := s.InsertFilterStats(ctx, stats); err != nil {
		t.Fatalf("InsertFilterStats: %v", err)
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM ingestion_runs WHERE id = ?`, "run-1"); err != nil {
		t.Fatalf("delete run: %v", err)
	}

	got, err := s.ListFilterStats(ctx, "run-1")
	if err != nil {
		t.Fatalf("ListFilterStats: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected stats removed with run, got %d", len(got))
	}
}

func TestCountFilterOutcomes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRun(t, s, "run-1")
	seedRun(t, s, "run-2")

	now := time.Now()
	stats := []domain.FilterStat{
		{RunID: "run-1", Identifier: "a", Outcome: domain.FilterPassed, EvaluatedAt: now},
		{RunID: "run-1", Identifier: "b", Outcome: domain.FilterPassed, EvaluatedAt: now},
		{RunID: "run-1", Identifier: "c", Outcome: domain.FilterByGenre, EvaluatedAt: now},
		{RunID: "run-2", Identifier: "d", Outcome: domain.FilterByAuthor, EvaluatedAt: now},
	}
	if err := s.InsertFilterStats(ctx, stats); err != nil {
		t.Fatalf("InsertFilterStats: %v", err)
	}

	// Scoped to one run.
	counts, err := s.CountFilterOutcomes(ctx, "run-1")
	if err != nil {
		t.Fatalf("CountFilterOutcomes: %v", err)
	}
	if counts[domain.FilterPassed] != 2 || counts[domain.FilterByGenre] != 1 {
		t.Errorf("run-1 counts: got %v", counts)
	}
	if counts[domain.FilterByAuthor] != 0 {
		t.Errorf("run-1 should have no author rejections, got %d", counts[domain.FilterByAuthor])
	}

	// Across all runs.
	counts, err = s.CountFilterOutcomes(ctx, "")
	if err != nil {
		t.Fatalf("CountFilterOutcomes all: %v", err)
	}
	if counts[domain.FilterPassed] != 2 || counts[domain.FilterByGenre] != 1 || counts[domain.FilterByAuthor] != 1 {
		t.Errorf("global counts: got %v", counts)
	}
}

func TestTopFilteredGenres(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRun(t, s, "run-1")
	seedRun(t, s, "run-2")

	now := time.Now()
	stats := []domain.FilterStat{
		// Multi-genre rejections contribute every genre they carried.
		{RunID: "run-1", Identifier: "a", Outcome: domain.FilterByGenre, Genres: []string{"Science", "Reference"}, EvaluatedAt: now},
		{RunID: "run-1", Identifier: "b", Outcome: domain.FilterByGenre, Genres: []string{"Science"}, EvaluatedAt: now},
		{RunID: "run-2", Identifier: "c", Outcome: domain.FilterByGenre, Genres: []string{"Romance"}, EvaluatedAt: now},
		// Passed evaluations never count.
		{RunID: "run-1", Identifier: "d", Outcome: domain.FilterPassed, Genres: []string{"Science"}, EvaluatedAt: now},
	}
	if err := s.InsertFilterStats(ctx, stats); err != nil {
		t.Fatalf("InsertFilterStats: %v", err)
	}

	top, err := s.TopFilteredGenres(ctx, "", 10)
	if err != nil {
		t.Fatalf("TopFilteredGenres: %v", err)
	}
	if len(top) != 3 {
		t.Fatalf("expected 3 genres, got %d: %v", len(top), top)
	}
	if top[0].Label != "Science" || top[0].Count != 2 {
		t.Errorf("top genre: got %s/%d, want Science/2", top[0].Label, top[0].Count)
	}

	// Scoped to run-1.
	top, err = s.TopFilteredGenres(ctx, "run-1", 10)
	if err != nil {
		t.Fatalf("TopFilteredGenres(run-1): %v", err)
	}
	for _, oc := range top {
		if oc.Label == "Romance" {
			t.Error("run-2 genre leaked into run-1 aggregate")
		}
	}

	// Limit.
	top, err = s.TopFilteredGenres(ctx, "", 1)
	if err != nil {
		t.Fatalf("TopFilteredGenres limit: %v", err)
	}
	if len(top) != 1 {
		t.Errorf("expected 1 genre with limit, got %d", len(top))
	}
}

func TestTopFilteredAuthors(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	seedRun(t, s, "run-1")

	now := time.Now()
	stats := []domain.FilterStat{
		{RunID: "run-1", Identifier: "a", Outcome: domain.FilterByAuthor, Author: "Anonymous", EvaluatedAt: now},
		{RunID: "run-1", Identifier: "b", Outcome: domain.FilterByAuthor, Author: "Anonymous", EvaluatedAt: now},
		{RunID: "run-1", Identifier: "c", Outcome: domain.FilterByAuthor, Author: "Various", EvaluatedAt: now},
		// Rejections without an author carry no label to aggregate.
		{RunID: "run-1", Identifier: "d", Outcome: domain.FilterByAuthor, EvaluatedAt: now},
		// Genre rejections never count here.
		{RunID: "run-1", Identifier: "e", Outcome: domain.FilterByGenre, Author: "Anonymous", EvaluatedAt: now},
	}
	if err := s.InsertFilterStats(ctx, stats); err != nil {
		t.Fatalf("InsertFilterStats: %v", err)
	}

	top, err := s.TopFilteredAuthors(ctx, "run-1", 10)
	if err != nil {
		t.Fatalf("TopFilteredAuthors: %v", err)
	}
	if len(top) != 2 {
		t.Fatalf("expected 2 authors, got %d: %v", len(top), top)
	}
	if top[0].Label != "Anonymous" || top[0].Count != 2 {
		t.Errorf("top author: got %s/%d, want Anonymous/2", top[0].Label, top[0].Count)
	}
	if top[1].Label != "Various" || top[1].Count != 1 {
		t.Errorf("second author: got %s/%d, want Various/1", top[1].Label, top[1].Count)
	}
}
