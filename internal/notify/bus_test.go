package notify

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/dataprovider/internal/route"
)

func change(addr string) Change {
	return Change{Address: route.MustParse(addr)}
}

func TestBus_SubscribeErrors(t *testing.T) {
	b := NewBus()

	assert.ErrorIs(t, b.Subscribe("a", nil), ErrNilChannel)
	require.NoError(t, b.Subscribe("a", make(chan Change, 1)))
	assert.ErrorIs(t, b.Subscribe("a", make(chan Change, 1)), ErrSubscriberExists)
	assert.ErrorIs(t, b.Unsubscribe("missing"), ErrSubscriberNotFound)
	assert.ErrorIs(t, b.Watch("missing", route.Root("x"), false), ErrSubscriberNotFound)

	require.NoError(t, b.Close())
	assert.ErrorIs(t, b.Close(), ErrBusClosed)
	assert.ErrorIs(t, b.Subscribe("b", make(chan Change, 1)), ErrBusClosed)
	assert.ErrorIs(t, b.Unsubscribe("a"), ErrBusClosed)
	assert.ErrorIs(t, b.Watch("a", route.Root("x"), false), ErrBusClosed)

	b.Notify(change("content://x/images"))
}

func TestBus_Matching(t *testing.T) {
	tests := []struct {
		name        string
		watch       string
		descendants bool
		changed     string
		want        bool
	}{
		{"same address", "content://a/images/k", false, "content://a/images/k", true},
		{"options ignored", "content://a/images/k?distinct=1", false, "content://a/images/k", true},
		{"collection change reaches item", "content://a/images/k", false, "content://a/images", true},
		{"root change reaches item", "content://a/images/k", false, "content://a", true},
		{"item change skips collection", "content://a/images", false, "content://a/images/k", false},
		{"item change reaches collection with descendants", "content://a/images", true, "content://a/images/k", true},
		{"sibling item", "content://a/images/k", true, "content://a/images/j", false},
		{"other collection", "content://a/history", true, "content://a/images", false},
		{"other authority", "content://a/images", true, "content://b/images", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := NewBus()
			ch := make(chan Change, 1)
			require.NoError(t, b.Subscribe("obs", ch))
			require.NoError(t, b.Watch("obs", route.MustParse(tt.watch), tt.descendants))

			b.Notify(change(tt.changed))

			assert.Equal(t, tt.want, len(ch) == 1)
		})
	}
}

func TestBus_AtMostOncePerSubscriber(t *testing.T) {
	b := NewBus()
	ch := make(chan Change, 4)
	require.NoError(t, b.Subscribe("obs", ch))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a/images"), true))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a/images/k"), false))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a"), true))

	b.Notify(change("content://a/images/k"))

	assert.Len(t, ch, 1)
	assert.Equal(t, 3, b.Stats().Subscribers["obs"].Watches)
}

func TestBus_WatchDeduplicates(t *testing.T) {
	b := NewBus()
	ch := make(chan Change, 1)
	require.NoError(t, b.Subscribe("obs", ch))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a/images"), false))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a/images?distinct=1"), true))
	require.NoError(t, b.Watch("obs", route.MustParse("content://a/images"), false))

	assert.Equal(t, 1, b.Stats().Subscribers["obs"].Watches)

	b.Notify(change("content://a/images/k"))
	assert.Len(t, ch, 1, "descendants stays set once requested")
}

func TestBus_RegisterInterest(t *testing.T) {
	b := NewBus()
	ch := make(chan Change, 1)
	require.NoError(t, b.Subscribe("ui", ch))

	b.RegisterInterest(route.MustParse("content://a/images"), "ui")
	b.RegisterInterest(route.MustParse("content://a/images"), "stranger")

	b.Notify(change("content://a/images/k"))
	assert.Len(t, ch, 1)
	assert.NotContains(t, b.Stats().Subscribers, "stranger")
}

func TestBus_DropsWhenFull(t *testing.T) {
	b := NewBus()
	fast := make(chan Change, 10)
	slow := make(chan Change, 1)
	require.NoError(t, b.Subscribe("fast", fast))
	require.NoError(t, b.Subscribe("slow", slow))
	for _, id := range []string{"fast", "slow"} {
		require.NoError(t, b.Watch(id, route.Root("a"), true))
	}

	for i := 0; i < 3; i++ {
		b.Notify(change("content://a/history"))
	}

	stats := b.Stats()
	assert.Equal(t, uint64(3), stats.TotalPublished)
	assert.Equal(t, uint64(4), stats.TotalSent)
	assert.Equal(t, uint64(2), stats.TotalDropped)
	assert.Equal(t, SubscriberStats{Sent: 3, Watches: 1}, stats.Subscribers["fast"])
	assert.Equal(t, SubscriberStats{Sent: 1, Dropped: 2, Watches: 1}, stats.Subscribers["slow"])
}

func TestBus_Unsubscribe(t *testing.T) {
	b := NewBus()
	ch := make(chan Change, 1)
	require.NoError(t, b.Subscribe("obs", ch))
	require.NoError(t, b.Watch("obs", route.Root("a"), true))
	require.NoError(t, b.Unsubscribe("obs"))

	b.Notify(change("content://a/images"))
	assert.Empty(t, ch)
}

func TestBus_ConcurrentNotify(t *testing.T) {
	b := NewBus()
	ch := make(chan Change, 1000)
	require.NoError(t, b.Subscribe("obs", ch))
	require.NoError(t, b.Watch("obs", route.Root("a"), true))

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				b.Notify(change("content://a/images"))
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(500), b.Stats().TotalPublished)
	assert.Len(t, ch, 500)
}

func TestClock(t *testing.T) {
	c := NewClock()
	assert.Equal(t, int64(0), c.Current())
	assert.Equal(t, int64(1), c.Next())
	assert.Equal(t, int64(2), c.Next())
	assert.Equal(t, int64(2), c.Current())
}
