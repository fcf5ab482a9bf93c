package cache

import (
	"context"
	"testing"
	"time"

	"ytbrief/models"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) error: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleTranscript() *models.Transcript {
	return &models.Transcript{
		Segments: []models.TranscriptSegment{
			{Text: "hello", Start: 0, Duration: 1.5},
			{Text: "world", Start: 1.5, Duration: 2},
		},
		Source:   models.SourceOfficialCaptions,
		Language: "en",
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "vid001xxxxx", "en", sampleTranscript(), time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, ok, err := store.Get(ctx, "vid001xxxxx", "en")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if !ok {
		t.Fatal("Get() reported a miss for a fresh entry")
	}
	if got.Source != models.SourceOfficialCaptions {
		t.Errorf("Source = %v, want %v", got.Source, models.SourceOfficialCaptions)
	}
	if got.Language != "en" {
		t.Errorf("Language = %q, want en", got.Language)
	}
	if len(got.Segments) != 2 || got.Segments[0].Text != "hello" {
		t.Errorf("Segments = %+v, want the stored segments", got.Segments)
	}
}

func TestGetMissForUnknownKey(t *testing.T) {
	store := openTestStore(t)

	_, ok, err := store.Get(context.Background(), "nope", "en")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() reported a hit for an absent key")
	}
}

func TestLanguageIsPartOfTheKey(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "vid001xxxxx", "en", sampleTranscript(), time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	_, ok, err := store.Get(ctx, "vid001xxxxx", "de")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() with a different language should miss")
	}
}

func TestExpiredEntryIsAMiss(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "vid001xxxxx", "en", sampleTranscript(), -time.Minute); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	_, ok, err := store.Get(ctx, "vid001xxxxx", "en")
	if err != nil {
		t.Fatalf("Get() error: %v", err)
	}
	if ok {
		t.Error("Get() returned an expired entry")
	}

	// The expired row is also deleted, so the next read misses cheaply.
	_, ok, err = store.Get(ctx, "vid001xxxxx", "en")
	if err != nil {
		t.Fatalf("Get() after expiry error: %v", err)
	}
	if ok {
		t.Error("expired entry resurfaced")
	}
}

func TestGetAnyFindsOtherLanguage(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	tr := sampleTranscript()
	tr.Language = "de"
	if err := store.Put(ctx, "vid001xxxxx", "de", tr, time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	got, ok, err := store.GetAny(ctx, "vid001xxxxx")
	if err != nil {
		t.Fatalf("GetAny() error: %v", err)
	}
	if !ok {
		t.Fatal("GetAny() missed a live entry in another language")
	}
	if got.Language != "de" {
		t.Errorf("Language = %q, want the stored language", got.Language)
	}
	if len(got.Segments) != 2 {
		t.Errorf("Segments = %+v, want the stored segments", got.Segments)
	}
}

func TestGetAnySkipsExpiredAndOtherVideos(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "vid001xxxxx", "en", sampleTranscript(), -time.Minute); err != nil {
		t.Fatalf("Put() error: %v", err)
	}
	if err := store.Put(ctx, "vid002xxxxx", "en", sampleTranscript(), time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	_, ok, err := store.GetAny(ctx, "vid001xxxxx")
	if err != nil {
		t.Fatalf("GetAny() error: %v", err)
	}
	if ok {
		t.Error("GetAny() returned an expired entry")
	}
}

func TestPutOverwritesExisting(t *testing.T) {
	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Put(ctx, "vid001xxxxx", "en", sampleTranscript(), time.Hour); err != nil {
		t.Fatalf("Put() error: %v", err)
	}

	updated := sampleTranscript()
	updated.Source = models.SourceAudioTranscribe
	updated.Segments = []models.TranscriptSegment{{Text: "replaced"}}
	if err := store.Put(ctx, "vid001xxxxx", "en", updated, time.Hour); err != nil {
		t.Fatalf("second Put() error: %v", err)
	}

	got, ok, err := store.Get(ctx, "vid001xxxxx", "en")
	if err != nil || !ok {
		t.Fatalf("Get() = ok=%v err=%v", ok, err)
	}
	if got.Source != models.SourceAudioTranscribe {
		t.Errorf("Source = %v, want the overwritten value", got.Source)
	}
	if len(got.Segments) != 1 || got.Segments[0].Text != "replaced" {
		t.Errorf("Segments = %+v, want the overwritten segments", got.Segments)
	}
}

func TestDeleteMissingIsNoError(t *testing.T) {
	store := openTestStore(t)
	if err := store.Delete(context.Background(), "absent", "en"); err != nil {
		t.Errorf("Delete() on a missing key: %v", err)
	}
}
