package notify

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/careping/models"
	"github.com/cppla/careping/testutil"
)

func newDispatcher(t *testing.T, transport Transport) (*Dispatcher, *memLog) {
	t.Helper()
	rdb, _ := testutil.NewTestRedis(t)
	logs := &memLog{}
	users := memUsers{
		1: {ID: 1, Username: "sup", Nickname: "Supervisor", PushChannel: ChannelTelegram, PushHandle: "1001"},
		2: {ID: 2, Username: "kid"},
	}
	d := NewDispatcher(NewDedup(rdb, logs, 0, time.Second, zaptest.NewLogger(t)), logs, users, transport, zaptest.NewLogger(t))
	return d, logs
}

func missedNotice() Notice {
	return Notice{
		Kind:        models.NotifyMissed,
		TaskID:      7,
		Date:        "2024-05-20",
		RecipientID: 1,
		Subject:     "Blood pressure pills",
		Actor:       "kid",
		At:          time.Date(2024, 5, 20, 10, 0, 0, 0, time.UTC),
	}
}

func TestDispatcher_SendsOncePerTriple(t *testing.T) {
	ctx := context.Background()
	tr := &recordingTransport{}
	d, logs := newDispatcher(t, tr)

	for i := 0; i < 5; i++ {
		sent, err := d.Dispatch(ctx, missedNotice())
		require.NoError(t, err)
		assert.Equal(t, i == 0, sent)
	}

	require.Equal(t, 1, tr.count())
	assert.Equal(t, "1001", tr.to[0].Handle)
	assert.Equal(t, "Supervisor", tr.to[0].Name)
	rows := logs.all()
	require.Len(t, rows, 1)
	assert.True(t, rows[0].Success)
	assert.NotEmpty(t, rows[0].DispatchID)
	assert.Equal(t, uint(1), rows[0].RecipientID)
}

func TestDispatcher_FailedSendIsRecordedNotRetried(t *testing.T) {
	ctx := context.Background()
	tr := &recordingTransport{err: errBoom}
	d, logs := newDispatcher(t, tr)

	sent, err := d.Dispatch(ctx, missedNotice())
	require.NoError(t, err)
	assert.True(t, sent)

	tr.err = nil
	sent, err = d.Dispatch(ctx, missedNotice())
	require.NoError(t, err)
	assert.False(t, sent)
	assert.Zero(t, tr.count())

	rows := logs.all()
	require.Len(t, rows, 1)
	assert.False(t, rows[0].Success)
	assert.Equal(t, "boom", rows[0].ErrorMsg)
}

func TestDispatcher_UnknownRecipientIsRecorded(t *testing.T) {
	ctx := context.Background()
	d, logs := newDispatcher(t, &recordingTransport{})
	n := missedNotice()
	n.RecipientID = 99

	sent, err := d.Dispatch(ctx, n)
	require.NoError(t, err)
	assert.True(t, sent)
	rows := logs.all()
	require.Len(t, rows, 1)
	assert.Contains(t, rows[0].ErrorMsg, "resolve recipient 99")
}

func TestDispatcher_DirectSkipsGate(t *testing.T) {
	ctx := context.Background()
	tr := &recordingTransport{}
	d, logs := newDispatcher(t, tr)
	n := Notice{Kind: models.NotifyUnbindRequested, RecipientID: 2, Subject: "Mom", Actor: "Supervisor", At: time.Now()}

	require.NoError(t, d.Direct(ctx, n))
	require.NoError(t, d.Direct(ctx, n))
	assert.Equal(t, 2, tr.count())
	assert.Empty(t, logs.all())

	_, err := d.Dispatch(ctx, n)
	assert.Error(t, err)
}
