package faq

import "testing"

func testEntries() []Entry {
	return []Entry{
		{Question: "how to reset password", Answer: "reset link"},
		{Question: "where is my order", Answer: "order tracker"},
		{Question: "how to fund", Answer: "funding steps"},
	}
}

func TestMatchExactQuestion(t *testing.T) {
	m := NewMatcher(testEntries(), 0.5)

	e, score, ok := m.Match("how to reset password")
	if !ok {
		t.Fatalf("expected match, got none (score=%.2f)", score)
	}
	if e.Answer != "reset link" {
		t.Fatalf("unexpected answer: %q", e.Answer)
	}
	if score < 0.99 {
		t.Fatalf("expected near-perfect score for exact question, got %.2f", score)
	}
}

func TestMatchIsCaseInsensitive(t *testing.T) {
	m := NewMatcher(testEntries(), 0.5)

	e, _, ok := m.Match("WHERE IS MY ORDER?")
	if !ok {
		t.Fatal("expected match for upper-cased question")
	}
	if e.Answer != "order tracker" {
		t.Fatalf("unexpected answer: %q", e.Answer)
	}
}

func TestMatchApproximateQuestion(t *testing.T) {
	m := NewMatcher(testEntries(), 0.5)

	e, score, ok := m.Match("reset password")
	if !ok {
		t.Fatalf("expected approximate match, got none (score=%.2f)", score)
	}
	if e.Question != "how to reset password" {
		t.Fatalf("matched wrong entry: %q", e.Question)
	}
}

func TestMatchBelowThreshold(t *testing.T) {
	m := NewMatcher(testEntries(), 0.5)

	if _, score, ok := m.Match("my parcel has not arrived and I am upset"); ok {
		t.Fatalf("expected no match, got one (score=%.2f)", score)
	}
}

func TestMatchBlankInput(t *testing.T) {
	m := NewMatcher(testEntries(), 0.5)

	if _, _, ok := m.Match("   "); ok {
		t.Fatal("expected no match for blank input")
	}
}

func TestMatchEmptyKnowledgeBase(t *testing.T) {
	m := NewMatcher(nil, 0.5)

	if _, _, ok := m.Match("how to fund"); ok {
		t.Fatal("expected no match with empty knowledge base")
	}
}

func TestMatchTieBreaksOnFirstEntry(t *testing.T) {
	entries := []Entry{
		{Question: "how to fund", Answer: "first"},
		{Question: "how to fund", Answer: "second"},
	}
	m := NewMatcher(entries, 0.5)

	e, _, ok := m.Match("how to fund")
	if !ok {
		t.Fatal("expected match")
	}
	if e.Answer != "first" {
		t.Fatalf("tie should resolve to the first entry, got %q", e.Answer)
	}
}
