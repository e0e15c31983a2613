package syb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"
)

const cacheTTL = 30 * time.Minute

// accountsLister is what the cache needs from the client; tests substitute
// a fake pager.
type accountsLister interface {
	AccountsPage(ctx context.Context, cursor string) ([]Account, bool, string, error)
}

// AccountCache is the process-wide lazy cache of all platform accounts.
// Reads are safe concurrently; refresh replaces the slice atomically under
// the lock.
type AccountCache struct {
	client accountsLister
	now    func() time.Time

	mu          sync.RWMutex
	accounts    []Account
	lastRefresh time.Time
}

func NewAccountCache(client accountsLister) *AccountCache {
	return &AccountCache{client: client, now: time.Now}
}

// Search returns accounts whose businessName contains the query
// case-insensitively, ranked exact first, then prefix, then other
// substrings; ties keep platform order.
func (c *AccountCache) Search(ctx context.Context, query string) ([]Account, error) {
	if err := c.refreshIfStale(ctx); err != nil {
		return nil, err
	}

	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil, nil
	}

	type ranked struct {
		acct Account
		rank int
		pos  int
	}
	var hits []ranked

	c.mu.RLock()
	for i, a := range c.accounts {
		name := strings.ToLower(a.BusinessName)
		switch {
		case name == q:
			hits = append(hits, ranked{a, 0, i})
		case strings.HasPrefix(name, q):
			hits = append(hits, ranked{a, 1, i})
		case strings.Contains(name, q):
			hits = append(hits, ranked{a, 2, i})
		}
	}
	c.mu.RUnlock()

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].rank != hits[j].rank {
			return hits[i].rank < hits[j].rank
		}
		return hits[i].pos < hits[j].pos
	})

	out := make([]Account, 0, len(hits))
	for _, h := range hits {
		out = append(out, h.acct)
	}
	return out, nil
}

func (c *AccountCache) refreshIfStale(ctx context.Context) error {
	c.mu.RLock()
	fresh := len(c.accounts) > 0 && c.now().Sub(c.lastRefresh) <= cacheTTL
	c.mu.RUnlock()
	if fresh {
		return nil
	}

	var all []Account
	cursor := ""
	for {
		page, hasNext, endCursor, err := c.client.AccountsPage(ctx, cursor)
		if err != nil {
			return err
		}
		all = append(all, page...)
		if !hasNext {
			break
		}
		cursor = endCursor
	}

	c.mu.Lock()
	c.accounts = all
	c.lastRefresh = c.now()
	c.mu.Unlock()
	return nil
}

// Size returns the number of cached accounts.
func (c *AccountCache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.accounts)
}
