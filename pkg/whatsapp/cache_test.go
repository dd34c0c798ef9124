package whatsapp

import (
	"context"
	"errors"
	"testing"
	"time"

	"go.mau.fi/whatsmeow/types"
)

type fakeGroupFetcher struct {
	calls int
	info  *types.GroupInfo
	err   error
}

func (f *fakeGroupFetcher) GroupInfo(_ context.Context, _ types.JID) (*types.GroupInfo, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.info, nil
}

func testGroupJID() types.JID {
	return types.NewJID("120363000000000001", types.GroupServer)
}

func testGroupInfo() *types.GroupInfo {
	info := &types.GroupInfo{}
	info.JID = testGroupJID()
	info.Name = "test group"
	return info
}

func TestCachedServesFreshEntryWithoutRefetch(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Minute)
	ctx := context.Background()
	group := testGroupJID()

	first := cache.Cached(ctx, group)
	second := cache.Cached(ctx, group)

	if first == nil || second == nil {
		t.Fatal("expected metadata, got nil")
	}
	if fetcher.calls != 1 {
		t.Errorf("expected 1 fetch, got %d", fetcher.calls)
	}
}

// A forbidden fetch writes a negative entry: further reads within the TTL
// return nil with zero additional transport calls.
func TestCachedNegativeEntrySuppressesRefetch(t *testing.T) {
	fetcher := &fakeGroupFetcher{err: errors.New("info query returned status 403 (forbidden)")}
	cache := NewGroupCache(fetcher, time.Minute)
	ctx := context.Background()
	group := testGroupJID()

	if info := cache.Cached(ctx, group); info != nil {
		t.Fatalf("expected nil for forbidden group, got %+v", info)
	}
	callsAfterFirst := fetcher.calls

	if info := cache.Cached(ctx, group); info != nil {
		t.Fatalf("expected nil from negative entry, got %+v", info)
	}
	if fetcher.calls != callsAfterFirst {
		t.Errorf("negative entry did not suppress refetch: %d then %d calls", callsAfterFirst, fetcher.calls)
	}
}

// Live always fetches, no matter how fresh the cache entry is.
func TestLiveAlwaysFetches(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Hour)
	ctx := context.Background()
	group := testGroupJID()

	cache.Cached(ctx, group)
	base := fetcher.calls

	cache.Live(ctx, group)
	cache.Live(ctx, group)

	if fetcher.calls != base+2 {
		t.Errorf("expected %d fetches after two Live calls, got %d", base+2, fetcher.calls)
	}
}

func TestCachedServesStaleOnRateLimit(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Nanosecond)
	ctx := context.Background()
	group := testGroupJID()

	if info := cache.Cached(ctx, group); info == nil {
		t.Fatal("seed fetch failed")
	}
	time.Sleep(time.Millisecond)

	fetcher.err = errors.New("info query returned status 429 (rate-overlimit)")
	info := cache.Cached(ctx, group)
	if info == nil || info.Name != "test group" {
		t.Errorf("expected stale entry on rate limit, got %+v", info)
	}
}

func TestLiveFallsBackToCachedOnError(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Minute)
	ctx := context.Background()
	group := testGroupJID()

	cache.Cached(ctx, group)

	fetcher.err = errors.New("websocket disconnected")
	info := cache.Live(ctx, group)
	if info == nil || info.Name != "test group" {
		t.Errorf("expected cached fallback, got %+v", info)
	}
}

func TestNonGroupJIDNeverFetches(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Minute)
	ctx := context.Background()
	dm := types.NewJID("263770000000", types.DefaultUserServer)

	if info := cache.Cached(ctx, dm); info != nil {
		t.Errorf("Cached(dm) = %+v, want nil", info)
	}
	if info := cache.Live(ctx, dm); info != nil {
		t.Errorf("Live(dm) = %+v, want nil", info)
	}
	if fetcher.calls != 0 {
		t.Errorf("non-group lookup hit the transport %d times", fetcher.calls)
	}
}

func TestSweepDropsExpiredEntries(t *testing.T) {
	fetcher := &fakeGroupFetcher{info: testGroupInfo()}
	cache := NewGroupCache(fetcher, time.Nanosecond)
	ctx := context.Background()

	cache.Cached(ctx, testGroupJID())
	time.Sleep(time.Millisecond)
	cache.Sweep()

	if cache.Len() != 0 {
		t.Errorf("expected empty cache after sweep, got %d entries", cache.Len())
	}
}
