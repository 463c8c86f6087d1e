package dom

import "testing"

func TestQuerySelectors(t *testing.T) {
	doc, _, _ := buildDoc()
	root := doc.Root()

	tests := []struct {
		selector string
		wantID   string
	}{
		{".stat-value", "stat-1"},
		{"#stats", "stats"},
		{"section", "stats"},
		{".stats-section", "stats"},
	}
	for _, tt := range tests {
		n := Query(root, tt.selector)
		if n == nil {
			t.Errorf("Query(%q) = nil", tt.selector)
			continue
		}
		if n.ID != tt.wantID {
			t.Errorf("Query(%q) = %q, want %q", tt.selector, n.ID, tt.wantID)
		}
	}
}

func TestQueryMissingIsNil(t *testing.T) {
	doc, _, _ := buildDoc()

	if n := Query(doc.Root(), ".does-not-exist"); n != nil {
		t.Errorf("expected nil for missing selector, got %q", n.ID)
	}
	if n := Query(nil, ".anything"); n != nil {
		t.Error("expected nil for nil root")
	}
}

func TestQueryAllOrderAndEmpty(t *testing.T) {
	root := NewNode("body", "root")
	for _, id := range []string{"a", "b", "c"} {
		card := NewNode("div", id)
		card.AddClass("feature-card")
		root.Append(card)
	}
	NewDocument(root)

	got := QueryAll(root, ".feature-card")
	if len(got) != 3 {
		t.Fatalf("expected 3 matches, got %d", len(got))
	}
	for i, id := range []string{"a", "b", "c"} {
		if got[i].ID != id {
			t.Errorf("match %d = %q, want %q (document order)", i, got[i].ID, id)
		}
	}

	if empty := QueryAll(root, ".missing"); len(empty) != 0 {
		t.Errorf("expected empty slice, got %d", len(empty))
	}
}
