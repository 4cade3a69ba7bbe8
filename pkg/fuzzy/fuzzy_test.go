package fuzzy

import "testing"

func TestLevenshteinDistance(t *testing.T) {
	cases := []struct {
		s1, s2 string
		want   int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"invoice", "invoice", 0},
		{"invoice", "invocie", 2},
		{"Invoice", "invoice", 0},
	}

	for _, c := range cases {
		if got := LevenshteinDistance(c.s1, c.s2); got != c.want {
			t.Errorf("LevenshteinDistance(%q, %q) = %d, want %d", c.s1, c.s2, got, c.want)
		}
	}
}

func TestMatch(t *testing.T) {
	if !Match("invoice", "Your invoice for March", 2) {
		t.Error("expected substring match")
	}
	if !Match("invocie", "Your invoice for March", 2) {
		t.Error("expected typo match within threshold")
	}
	if Match("meeting", "Your invoice for March", 2) {
		t.Error("unexpected match for unrelated query")
	}
	if !Match("inv", "invoice attached", 1) {
		t.Error("expected prefix match")
	}
}

func TestScoreOrdering(t *testing.T) {
	query := "invoice"

	subjectHit := Score(query, "Invoice #42 overdue", "billing@acme.com", "Acme Billing", "please pay")
	senderHit := Score(query, "March statement", "invoice@acme.com", "Invoice Robot", "please pay")
	snippetHit := Score(query, "March statement", "billing@acme.com", "Acme Billing", "your invoice is attached")
	noHit := Score(query, "Lunch on Friday?", "bob@example.com", "Bob", "see you there")

	if subjectHit <= senderHit {
		t.Errorf("subject match (%v) should outscore sender match (%v)", subjectHit, senderHit)
	}
	if senderHit <= snippetHit {
		t.Errorf("sender match (%v) should outscore snippet match (%v)", senderHit, snippetHit)
	}
	if snippetHit <= 0 {
		t.Errorf("snippet match should have positive score, got %v", snippetHit)
	}
	if noHit != 0 {
		t.Errorf("unrelated message should score zero, got %v", noHit)
	}
}

func TestMatchMessageTypoTolerance(t *testing.T) {
	if !MatchMessage("recipt", "Your receipt from the store", "shop@example.com", "The Store", "") {
		t.Error("expected typo-tolerant match on subject")
	}
	if MatchMessage("xyzzy", "Your receipt from the store", "shop@example.com", "The Store", "thanks for shopping") {
		t.Error("unexpected match for nonsense query")
	}
}
