package search

import (
	"context"
	"errors"
	"testing"
	"time"

	maildomain "mailboard-backend/internal/mail/domain"
)

type fakeMessages struct {
	recent []*maildomain.Message
}

func (f *fakeMessages) BulkUpsert(messages []*maildomain.Message) error { return nil }
func (f *fakeMessages) LatestMessageDate(userID string) (time.Time, bool, error) {
	return time.Time{}, false, nil
}
func (f *fakeMessages) GetByMessageID(userID, messageID string) (*maildomain.Message, error) {
	return nil, nil
}
func (f *fakeMessages) GetByMessageIDs(userID string, messageIDs []string) ([]*maildomain.Message, error) {
	var out []*maildomain.Message
	for _, id := range messageIDs {
		for _, msg := range f.recent {
			if msg.MessageID == id {
				out = append(out, msg)
			}
		}
	}
	return out, nil
}
func (f *fakeMessages) Recent(userID string, limit int) ([]*maildomain.Message, error) {
	if len(f.recent) > limit {
		return f.recent[:limit], nil
	}
	return f.recent, nil
}
func (f *fakeMessages) ListByLabel(userID, labelID string, limit, offset int) ([]*maildomain.Message, int, error) {
	return nil, 0, nil
}
func (f *fakeMessages) PatchLabels(userID, messageID string, add, remove []string) error {
	return nil
}

type fakeEmbedder struct {
	vector []float32
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) []float32 { return f.vector }

type fakeIndex struct {
	ids          []string
	similarities []float64
	err          error
}

func (f *fakeIndex) Upsert(ctx context.Context, userID, messageID, text string, embedding []float32) error {
	return nil
}
func (f *fakeIndex) Query(ctx context.Context, userID string, embedding []float32, limit int) ([]string, []float64, error) {
	if f.err != nil {
		return nil, nil, f.err
	}
	return f.ids, f.similarities, nil
}

func corpus() []*maildomain.Message {
	return []*maildomain.Message{
		{MessageID: "m1", Subject: "Invoice March", From: "billing@acme.com", FromName: "Acme Billing", Snippet: "amount due"},
		{MessageID: "m2", Subject: "Invoice April", From: "billing@acme.com", FromName: "Acme Billing", Snippet: "amount due"},
		{MessageID: "m3", Subject: "Meeting notes", From: "pm@acme.com", FromName: "Project Manager", Snippet: "invoice discussion"},
		{MessageID: "m4", Subject: "Lunch?", From: "bob@example.com", FromName: "Bob", Snippet: "pizza place"},
	}
}

func TestFuzzyRanksSubjectMatchesFirst(t *testing.T) {
	e := NewEngine(&fakeMessages{recent: corpus()}, nil, nil)

	results, err := e.Fuzzy(context.Background(), "user-1", "invoice", 10)
	if err != nil {
		t.Fatalf("Fuzzy: %v", err)
	}
	if len(results) < 3 {
		t.Fatalf("expected at least 3 matches, got %d", len(results))
	}

	// The two subject hits must rank above the snippet-only hit.
	top := map[string]bool{results[0].MessageID: true, results[1].MessageID: true}
	if !top["m1"] || !top["m2"] {
		t.Errorf("invoice subjects should rank first, got order %v, %v", results[0].MessageID, results[1].MessageID)
	}
	for _, r := range results {
		if r.MessageID == "m4" {
			t.Error("unrelated message should not match")
		}
	}
}

func TestFuzzyRespectsLimit(t *testing.T) {
	e := NewEngine(&fakeMessages{recent: corpus()}, nil, nil)

	results, err := e.Fuzzy(context.Background(), "user-1", "invoice", 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("expected 1 result, got %d", len(results))
	}
}

func TestSemanticFiltersBelowFloor(t *testing.T) {
	idx := &fakeIndex{
		ids:          []string{"m1", "m3", "m4"},
		similarities: []float64{0.91, 0.72, 0.40},
	}
	e := NewEngine(&fakeMessages{recent: corpus()}, &fakeEmbedder{vector: []float32{1, 0}}, idx)

	results, err := e.Semantic(context.Background(), "user-1", "unpaid bills", 10)
	if err != nil {
		t.Fatalf("Semantic: %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results above the floor, got %d", len(results))
	}
	if results[0].MessageID != "m1" || results[1].MessageID != "m3" {
		t.Errorf("results not ordered by similarity: %v, %v", results[0].MessageID, results[1].MessageID)
	}
}

func TestSemanticFallsBackOnIndexError(t *testing.T) {
	idx := &fakeIndex{err: errors.New("index unreachable")}
	e := NewEngine(&fakeMessages{recent: corpus()}, &fakeEmbedder{vector: []float32{1, 0}}, idx)

	results, err := e.Semantic(context.Background(), "user-1", "invoice", 10)
	if err != nil {
		t.Fatalf("fallback should not surface the index error: %v", err)
	}
	if len(results) == 0 {
		t.Error("fuzzy fallback should produce matches")
	}
}

func TestSemanticFallsBackOnEmptyEmbedding(t *testing.T) {
	e := NewEngine(&fakeMessages{recent: corpus()}, &fakeEmbedder{}, &fakeIndex{})

	results, err := e.Semantic(context.Background(), "user-1", "invoice", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Error("fuzzy fallback should produce matches")
	}
}
