package syb

import (
	"context"
	"testing"
	"time"
)

// fakePager serves accounts in pages of two and counts refreshes.
type fakePager struct {
	accounts []Account
	calls    int
}

func (f *fakePager) AccountsPage(_ context.Context, cursor string) ([]Account, bool, string, error) {
	f.calls++
	start := 0
	if cursor != "" {
		for i, a := range f.accounts {
			if a.ID == cursor {
				start = i + 1
			}
		}
	}
	end := start + 2
	if end >= len(f.accounts) {
		return f.accounts[start:], false, "", nil
	}
	return f.accounts[start:end], true, f.accounts[end-1].ID, nil
}

func testAccounts() []Account {
	return []Account{
		{ID: "a1", BusinessName: "Hilton Pattaya"},
		{ID: "a2", BusinessName: "Hilton Bangkok"},
		{ID: "a3", BusinessName: "The Hilton"},
		{ID: "a4", BusinessName: "Sunset Beach Club"},
		{ID: "a5", BusinessName: "hilton pattaya"},
	}
}

func TestSearch_RankingExactPrefixSubstring(t *testing.T) {
	cache := NewAccountCache(&fakePager{accounts: testAccounts()})

	got, err := cache.Search(context.Background(), "Hilton Pattaya")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("expected both exact (case-insensitive) matches, got %d", len(got))
	}
	// Both are exact; platform order breaks the tie.
	if got[0].ID != "a1" || got[1].ID != "a5" {
		t.Fatalf("unexpected order: %s %s", got[0].ID, got[1].ID)
	}
}

func TestSearch_PrefixBeforeSubstring(t *testing.T) {
	cache := NewAccountCache(&fakePager{accounts: testAccounts()})

	got, err := cache.Search(context.Background(), "hilton")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 hilton matches, got %d", len(got))
	}
	// Prefix matches (a1, a2, a5) come before the substring match (a3).
	if got[len(got)-1].ID != "a3" {
		t.Fatalf("substring match must rank last, got %s", got[len(got)-1].ID)
	}
}

func TestSearch_EmptyQuery(t *testing.T) {
	cache := NewAccountCache(&fakePager{accounts: testAccounts()})
	got, err := cache.Search(context.Background(), "   ")
	if err != nil {
		t.Fatal(err)
	}
	if got != nil {
		t.Fatalf("blank query must match nothing, got %v", got)
	}
}

func TestRefresh_CachedWithinTTL(t *testing.T) {
	pager := &fakePager{accounts: testAccounts()}
	cache := NewAccountCache(pager)
	base := time.Now()
	cache.now = func() time.Time { return base }

	if _, err := cache.Search(context.Background(), "hilton"); err != nil {
		t.Fatal(err)
	}
	firstCalls := pager.calls
	if firstCalls == 0 {
		t.Fatal("expected an initial refresh")
	}

	// Second search inside the TTL reuses the cache.
	if _, err := cache.Search(context.Background(), "sunset"); err != nil {
		t.Fatal(err)
	}
	if pager.calls != firstCalls {
		t.Fatalf("expected no refetch within TTL, calls went %d -> %d", firstCalls, pager.calls)
	}

	// Past the TTL the next search refetches.
	cache.now = func() time.Time { return base.Add(cacheTTL + time.Minute) }
	if _, err := cache.Search(context.Background(), "sunset"); err != nil {
		t.Fatal(err)
	}
	if pager.calls == firstCalls {
		t.Fatal("expected a refetch after TTL expiry")
	}

	if cache.Size() != len(testAccounts()) {
		t.Fatalf("cache size %d, want %d", cache.Size(), len(testAccounts()))
	}
}
