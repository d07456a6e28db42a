package winnersfeed

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/spinwin-labs/spin-reward-service/pkg/providers"
)

type fakeWinners struct {
	winners []providers.Winner
	err     error
	calls   int
}

func (f *fakeWinners) Recent(_ context.Context, _ int) ([]providers.Winner, error) {
	f.calls++
	return f.winners, f.err
}

func winner(address, amount string) providers.Winner {
	return providers.Winner{
		Address:   address,
		Amount:    decimal.RequireFromString(amount),
		TxHash:    "0x" + address,
		Timestamp: time.Now().UTC(),
	}
}

func TestRecentSeedsFromProviderOnce(t *testing.T) {
	provider := &fakeWinners{winners: []providers.Winner{winner("aaa", "0.5"), winner("bbb", "0.05")}}
	feed := NewService(provider, Config{})

	got, err := feed.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 2 || got[0].Address != "aaa" {
		t.Errorf("Recent() = %+v", got)
	}

	// Second call serves the cache.
	if _, err := feed.Recent(context.Background(), 10); err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if provider.calls != 1 {
		t.Errorf("provider called %d times, want 1", provider.calls)
	}
}

func TestRecentPropagatesProviderError(t *testing.T) {
	provider := &fakeWinners{err: fmt.Errorf("connection refused")}
	feed := NewService(provider, Config{})

	if _, err := feed.Recent(context.Background(), 10); err == nil {
		t.Fatal("expected error from cold cache with unreachable provider")
	}
}

func TestRecordPrependsAndBounds(t *testing.T) {
	feed := NewService(nil, Config{CacheSize: 3})

	for i := 0; i < 5; i++ {
		feed.Record(winner(fmt.Sprintf("addr%d", i), "0.05"))
	}

	got, err := feed.Recent(context.Background(), 10)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 3 {
		t.Fatalf("cache holds %d winners, want 3", len(got))
	}
	if got[0].Address != "addr4" || got[2].Address != "addr2" {
		t.Errorf("cache order = %v", got)
	}
}

func TestRecentLimit(t *testing.T) {
	feed := NewService(nil, Config{})
	feed.Record(winner("aaa", "0.5"))
	feed.Record(winner("bbb", "0.05"))

	got, err := feed.Recent(context.Background(), 1)
	if err != nil {
		t.Fatalf("Recent() error = %v", err)
	}
	if len(got) != 1 || got[0].Address != "bbb" {
		t.Errorf("Recent(1) = %+v", got)
	}
}

func TestListenFansOutToAllSubscribers(t *testing.T) {
	feed := NewService(nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	first, stopFirst := feed.Listen(ctx)
	defer stopFirst()
	second, stopSecond := feed.Listen(ctx)
	defer stopSecond()

	feed.Record(winner("aaa", "0.5"))

	for name, updates := range map[string]<-chan providers.Winner{"first": first, "second": second} {
		select {
		case w := <-updates:
			if w.Address != "aaa" {
				t.Errorf("%s subscriber received %+v", name, w)
			}
		case <-time.After(time.Second):
			t.Fatalf("%s subscriber missed the announcement", name)
		}
	}
}

func TestListenCancelUnsubscribes(t *testing.T) {
	broadcast := NewBroadcaster(1)

	updates, stop := broadcast.Listen(context.Background())
	stop()

	// The unsubscribe runs in a goroutine; wait for the channel to close.
	select {
	case _, ok := <-updates:
		if ok {
			t.Fatal("received an event on a cancelled subscription")
		}
	case <-time.After(time.Second):
		t.Fatal("cancelled subscription never closed")
	}

	if n := broadcast.Subscribers(); n != 0 {
		t.Errorf("Subscribers() = %d after cancel, want 0", n)
	}
}

func TestListenReceivesRecordedWinners(t *testing.T) {
	feed := NewService(nil, Config{})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	updates, stop := feed.Listen(ctx)
	defer stop()

	feed.Record(winner("aaa", "0.5"))

	select {
	case w := <-updates:
		if w.Address != "aaa" {
			t.Errorf("received %+v", w)
		}
	case <-time.After(time.Second):
		t.Fatal("no winner announcement received")
	}
}
