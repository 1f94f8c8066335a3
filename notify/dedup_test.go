package notify

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/cppla/careping/models"
	"github.com/cppla/careping/testutil"
)

func TestDedup_TryAcquireOnce(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewTestRedis(t)
	d := NewDedup(rdb, &memLog{}, 0, time.Second, zaptest.NewLogger(t))
	k := Key{TaskID: 3, Date: "2024-05-20", Kind: models.NotifyRemind}

	ok, err := d.TryAcquire(ctx, k)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = d.TryAcquire(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)

	other, err := d.TryAcquire(ctx, Key{TaskID: 3, Date: "2024-05-20", Kind: models.NotifyMissed})
	require.NoError(t, err)
	assert.True(t, other)

	assert.Equal(t, DefaultMarkerTTL, mr.TTL("notify:3:2024-05-20:REMIND"))
}

func TestDedup_MarkerExpiresAfterTTL(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewTestRedis(t)
	d := NewDedup(rdb, &memLog{}, time.Hour, time.Second, zaptest.NewLogger(t))
	k := Key{TaskID: 1, Date: "2024-05-20", Kind: models.NotifyRemind}

	ok, err := d.TryAcquire(ctx, k)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(time.Hour + time.Second)
	marked, err := d.Marked(ctx, k)
	require.NoError(t, err)
	assert.False(t, marked)
}

func TestDedup_BackfillsMarkerFromDurableLog(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewTestRedis(t)
	logs := &memLog{}
	require.NoError(t, logs.Insert(ctx, &models.NotificationLog{TaskID: 8, NotifyDate: "2024-05-20", Kind: models.NotifyMissed}))
	d := NewDedup(rdb, logs, 0, time.Second, zaptest.NewLogger(t))
	k := Key{TaskID: 8, Date: "2024-05-20", Kind: models.NotifyMissed}

	ok, err := d.TryAcquire(ctx, k)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.True(t, mr.Exists("notify:8:2024-05-20:MISSED"))
}

func TestDedup_BackfillFailureIsLogged(t *testing.T) {
	ctx := context.Background()
	rdb, mr := testutil.NewTestRedis(t)
	rdb.AddHook(failHook{cmd: "set"})
	logs := &memLog{}
	require.NoError(t, logs.Insert(ctx, &models.NotificationLog{TaskID: 8, NotifyDate: "2024-05-20", Kind: models.NotifyMissed}))
	core, recorded := observer.New(zap.WarnLevel)
	d := NewDedup(rdb, logs, 0, time.Second, zap.New(core))

	ok, err := d.TryAcquire(ctx, Key{TaskID: 8, Date: "2024-05-20", Kind: models.NotifyMissed})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.False(t, mr.Exists("notify:8:2024-05-20:MISSED"))

	entries := recorded.FilterMessage("marker backfill failed").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "notify:8:2024-05-20:MISSED", entries[0].ContextMap()["key"])
}

func TestDedup_FailsClosed(t *testing.T) {
	ctx := context.Background()
	k := Key{TaskID: 1, Date: "2024-05-20", Kind: models.NotifyRemind}

	t.Run("redis down", func(t *testing.T) {
		rdb, mr := testutil.NewTestRedis(t)
		d := NewDedup(rdb, &memLog{}, 0, 200*time.Millisecond, zaptest.NewLogger(t))
		mr.Close()
		ok, err := d.TryAcquire(ctx, k)
		assert.Error(t, err)
		assert.False(t, ok)
	})

	t.Run("durable log down", func(t *testing.T) {
		rdb, _ := testutil.NewTestRedis(t)
		d := NewDedup(rdb, &memLog{failErr: errBoom}, 0, time.Second, zaptest.NewLogger(t))
		ok, err := d.TryAcquire(ctx, k)
		assert.ErrorIs(t, err, errBoom)
		assert.False(t, ok)
	})
}

func TestDedup_ConcurrentCallersOnlyOneWins(t *testing.T) {
	ctx := context.Background()
	rdb, _ := testutil.NewTestRedis(t)
	rdb.AddHook(latencyHook{d: 3 * time.Millisecond})
	d := NewDedup(rdb, &memLog{latency: 2 * time.Millisecond}, 0, 5*time.Second, zaptest.NewLogger(t))
	k := Key{TaskID: 42, Date: "2024-05-20", Kind: models.NotifyMissed}

	const callers = 50
	var wins, losses atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			<-start
			ok, err := d.TryAcquire(ctx, k)
			if err != nil {
				t.Error(err)
				return
			}
			if ok {
				wins.Add(1)
			} else {
				losses.Add(1)
			}
		}()
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), wins.Load())
	assert.Equal(t, int32(callers-1), losses.Load())
}
