package history

import (
	"context"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nori0724/techdigest/dbopen"
	"github.com/nori0724/techdigest/digest/internal/model"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(dbopen.OpenMemory(t, dbopen.WithSchema(Schema)))
}

func ts(day int) time.Time {
	return time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC)
}

func TestUpsert_RoundTrip(t *testing.T) {
	// WHAT: an inserted entry is read back field-for-field.
	s := testStore(t)
	ctx := context.Background()

	published := ts(9)
	in := &Entry{
		URL:            "https://example.com/a?utm_source=x",
		NormalizedURL:  "https://example.com/a",
		Title:          "A title",
		Source:         "hackernews",
		FirstSeenAt:    ts(10),
		LastSeenAt:     ts(10),
		PublishedAt:    &published,
		DateConfidence: model.ConfidenceHigh,
		TitleHash:      "ab12",
	}
	if err := s.Upsert(ctx, in); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, err := s.FindByNormalizedURL(ctx, "https://example.com/a")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if got == nil {
		t.Fatal("entry not found")
	}
	if got.ID == "" {
		t.Error("id must be generated")
	}
	if got.Title != in.Title || got.Source != in.Source || got.TitleHash != in.TitleHash {
		t.Errorf("fields lost: %+v", got)
	}
	if !got.FirstSeenAt.Equal(ts(10)) || !got.LastSeenAt.Equal(ts(10)) {
		t.Errorf("timestamps: %v / %v", got.FirstSeenAt, got.LastSeenAt)
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("published_at: %v", got.PublishedAt)
	}
	if got.DateConfidence != model.ConfidenceHigh {
		t.Errorf("date_confidence: %v", got.DateConfidence)
	}
}

func TestUpsert_ResightingMergesFields(t *testing.T) {
	// WHAT: a re-sighting advances last_seen_at, never moves first_seen_at,
	// and fills published_at/confidence/hashes only where empty.
	// WHY: first_seen_at drives retention; merge semantics must not
	// overwrite good data with nulls.
	s := testStore(t)
	ctx := context.Background()

	first := &Entry{
		NormalizedURL: "https://example.com/a",
		URL:           "https://example.com/a",
		Title:         "A",
		Source:        "s1",
		FirstSeenAt:   ts(10),
		LastSeenAt:    ts(10),
	}
	if err := s.Upsert(ctx, first); err != nil {
		t.Fatalf("first upsert: %v", err)
	}

	published := ts(8)
	again := &Entry{
		NormalizedURL:  "https://example.com/a",
		URL:            "https://example.com/a",
		Title:          "A",
		Source:         "s1",
		FirstSeenAt:    ts(15), // must NOT replace the stored first_seen_at
		LastSeenAt:     ts(15),
		PublishedAt:    &published,
		DateConfidence: model.ConfidenceMedium,
		TitleHash:      "h1",
	}
	if err := s.Upsert(ctx, again); err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	got, err := s.FindByNormalizedURL(ctx, "https://example.com/a")
	if err != nil || got == nil {
		t.Fatalf("find: %v %v", got, err)
	}
	if !got.FirstSeenAt.Equal(ts(10)) {
		t.Errorf("first_seen_at moved to %v", got.FirstSeenAt)
	}
	if !got.LastSeenAt.Equal(ts(15)) {
		t.Errorf("last_seen_at = %v, want %v", got.LastSeenAt, ts(15))
	}
	if got.PublishedAt == nil || !got.PublishedAt.Equal(published) {
		t.Errorf("published_at not filled: %v", got.PublishedAt)
	}
	if got.DateConfidence != model.ConfidenceMedium {
		t.Errorf("date_confidence not filled: %v", got.DateConfidence)
	}
	if got.TitleHash != "h1" {
		t.Errorf("title_hash not filled: %v", got.TitleHash)
	}

	// A third sighting with different values must not overwrite.
	otherPublished := ts(1)
	third := &Entry{
		NormalizedURL:  "https://example.com/a",
		URL:            "https://example.com/a",
		Title:          "A",
		Source:         "s1",
		LastSeenAt:     ts(20),
		PublishedAt:    &otherPublished,
		DateConfidence: model.ConfidenceLow,
		TitleHash:      "h2",
	}
	if err := s.Upsert(ctx, third); err != nil {
		t.Fatalf("third upsert: %v", err)
	}
	got, _ = s.FindByNormalizedURL(ctx, "https://example.com/a")
	if !got.PublishedAt.Equal(published) || got.DateConfidence != model.ConfidenceMedium || got.TitleHash != "h1" {
		t.Errorf("filled fields were overwritten: %+v", got)
	}
	if !got.LastSeenAt.Equal(ts(20)) {
		t.Errorf("last_seen_at = %v, want %v", got.LastSeenAt, ts(20))
	}
}

func TestBulkUpsert_AddsDistinctEntries(t *testing.T) {
	// WHAT: bulk-upserting N distinct URLs grows the store by exactly N.
	s := testStore(t)
	ctx := context.Background()

	entries := []*Entry{
		{NormalizedURL: "https://a.com/1", URL: "https://a.com/1", Title: "1", FirstSeenAt: ts(10), LastSeenAt: ts(10)},
		{NormalizedURL: "https://a.com/2", URL: "https://a.com/2", Title: "2", FirstSeenAt: ts(10), LastSeenAt: ts(10)},
		{NormalizedURL: "https://a.com/3", URL: "https://a.com/3", Title: "3", FirstSeenAt: ts(10), LastSeenAt: ts(10)},
	}
	if err := s.BulkUpsert(ctx, entries); err != nil {
		t.Fatalf("bulk upsert: %v", err)
	}

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d, want 3", stats.Total)
	}

	// Second pass over the same batch adds nothing.
	if err := s.BulkUpsert(ctx, entries); err != nil {
		t.Fatalf("second bulk upsert: %v", err)
	}
	stats, _ = s.GetStats(ctx)
	if stats.Total != 3 {
		t.Errorf("total after re-sighting = %d, want 3", stats.Total)
	}
}

func TestBulkUpsert_EmptyInvalid(t *testing.T) {
	// WHAT: an empty batch is a no-op; a missing key rejects the batch.
	s := testStore(t)
	ctx := context.Background()

	if err := s.BulkUpsert(ctx, nil); err != nil {
		t.Errorf("empty batch: %v", err)
	}
	err := s.BulkUpsert(ctx, []*Entry{{URL: "https://a.com/1", Title: "1"}})
	if err == nil {
		t.Error("expected error for entry without normalized URL")
	}
}

func TestFindExistingURLs(t *testing.T) {
	// WHAT: the bulk existence test returns exactly the known URLs.
	s := testStore(t)
	ctx := context.Background()

	for _, u := range []string{"https://a.com/1", "https://a.com/2"} {
		if err := s.Upsert(ctx, &Entry{NormalizedURL: u, URL: u, Title: "t"}); err != nil {
			t.Fatalf("upsert: %v", err)
		}
	}

	got, err := s.FindExistingURLs(ctx, []string{"https://a.com/1", "https://a.com/2", "https://a.com/3"})
	if err != nil {
		t.Fatalf("find existing: %v", err)
	}
	if len(got) != 2 || !got["https://a.com/1"] || !got["https://a.com/2"] || got["https://a.com/3"] {
		t.Errorf("got %v", got)
	}

	empty, err := s.FindExistingURLs(ctx, nil)
	if err != nil || len(empty) != 0 {
		t.Errorf("empty lookup: %v %v", empty, err)
	}
}

func TestFindByTitleHash(t *testing.T) {
	// WHAT: candidate narrowing by hash; empty hash matches nothing.
	s := testStore(t)
	ctx := context.Background()

	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/1", URL: "https://a.com/1", Title: "x", TitleHash: "h1"})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/2", URL: "https://a.com/2", Title: "x", TitleHash: "h1"})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/3", URL: "https://a.com/3", Title: "y", TitleHash: "h2"})

	got, err := s.FindByTitleHash(ctx, "h1")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("got %d entries, want 2", len(got))
	}

	none, err := s.FindByTitleHash(ctx, "")
	if err != nil || none != nil {
		t.Errorf("empty hash: %v %v", none, err)
	}
}

func TestFindByDateRange_DescendingFirstSeen(t *testing.T) {
	// WHAT: range query filters on first_seen_at and sorts newest first.
	s := testStore(t)
	ctx := context.Background()

	for day := 10; day <= 14; day++ {
		u := "https://a.com/" + string(rune('0'+day-10))
		s.Upsert(ctx, &Entry{NormalizedURL: u, URL: u, Title: "t", FirstSeenAt: ts(day), LastSeenAt: ts(day)})
	}

	until := ts(13)
	got, err := s.FindByDateRange(ctx, ts(11), &until)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("got %d entries, want 3", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].FirstSeenAt.After(got[i-1].FirstSeenAt) {
			t.Error("not sorted descending by first_seen_at")
		}
	}
}

func TestFindPotentialReposts(t *testing.T) {
	// WHAT: only entries whose sighting span reaches the gap qualify.
	s := testStore(t)
	ctx := context.Background()

	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/old", URL: "https://a.com/old", Title: "t",
		FirstSeenAt: ts(1), LastSeenAt: ts(20)})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/new", URL: "https://a.com/new", Title: "t",
		FirstSeenAt: ts(19), LastSeenAt: ts(20)})

	got, err := s.FindPotentialReposts(ctx, 7)
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(got) != 1 || got[0].NormalizedURL != "https://a.com/old" {
		t.Errorf("got %v", got)
	}
}

func TestCleanup_ByFirstSeenOnly(t *testing.T) {
	// WHAT: cleanup removes by first_seen_at; a recent last_seen_at does
	// not save an old entry.
	s := testStore(t)
	ctx := context.Background()

	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/old", URL: "https://a.com/old", Title: "t",
		FirstSeenAt: ts(1), LastSeenAt: ts(20)})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/new", URL: "https://a.com/new", Title: "t",
		FirstSeenAt: ts(15), LastSeenAt: ts(15)})

	n, err := s.Cleanup(ctx, ts(10))
	if err != nil {
		t.Fatalf("cleanup: %v", err)
	}
	if n != 1 {
		t.Errorf("removed %d, want 1", n)
	}
	if e, _ := s.FindByNormalizedURL(ctx, "https://a.com/old"); e != nil {
		t.Error("old entry should be gone despite recent last_seen_at")
	}
	if e, _ := s.FindByNormalizedURL(ctx, "https://a.com/new"); e == nil {
		t.Error("recent entry should survive")
	}
}

func TestGetStats(t *testing.T) {
	// WHAT: totals, first-seen range and per-source counts.
	s := testStore(t)
	ctx := context.Background()

	empty, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if empty.Total != 0 || empty.OldestSeen != nil || empty.NewestSeen != nil {
		t.Errorf("empty stats: %+v", empty)
	}

	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/1", URL: "https://a.com/1", Title: "t", Source: "s1", FirstSeenAt: ts(10), LastSeenAt: ts(10)})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://a.com/2", URL: "https://a.com/2", Title: "t", Source: "s1", FirstSeenAt: ts(12), LastSeenAt: ts(12)})
	s.Upsert(ctx, &Entry{NormalizedURL: "https://b.com/1", URL: "https://b.com/1", Title: "t", Source: "s2", FirstSeenAt: ts(14), LastSeenAt: ts(14)})

	stats, err := s.GetStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 {
		t.Errorf("total = %d", stats.Total)
	}
	if stats.OldestSeen == nil || !stats.OldestSeen.Equal(ts(10)) {
		t.Errorf("oldest = %v", stats.OldestSeen)
	}
	if stats.NewestSeen == nil || !stats.NewestSeen.Equal(ts(14)) {
		t.Errorf("newest = %v", stats.NewestSeen)
	}
	if stats.BySource["s1"] != 2 || stats.BySource["s2"] != 1 {
		t.Errorf("by source: %v", stats.BySource)
	}
}
