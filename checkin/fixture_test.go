package checkin

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/cppla/careping/attendance"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/notify"
	"github.com/cppla/careping/occurrence"
	"github.com/cppla/careping/repository"
	"github.com/cppla/careping/testutil"
)

var loc = time.FixedZone("CST", 8*3600)

type sentMessage struct {
	to  uint
	msg notify.Message
}

type outbox struct {
	mu   sync.Mutex
	sent []sentMessage
}

func (o *outbox) Send(_ context.Context, to notify.Recipient, msg notify.Message) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.sent = append(o.sent, sentMessage{to: to.UserID, msg: msg})
	return nil
}

func (o *outbox) kinds(userID uint) []models.NotifyKind {
	o.mu.Lock()
	defer o.mu.Unlock()
	var out []models.NotifyKind
	for _, s := range o.sent {
		if s.to == userID {
			out = append(out, s.msg.Kind)
		}
	}
	return out
}

// pairs is a static relation table keyed both ways.
type pairs map[[2]uint]bool

func (p pairs) Bound(_ context.Context, a, b uint) (bool, error) {
	return p[[2]uint{a, b}] || p[[2]uint{b, a}], nil
}

func (p pairs) Partners(_ context.Context, userID uint) ([]uint, error) {
	var out []uint
	for k := range p {
		if k[0] == userID {
			out = append(out, k[1])
		}
	}
	return out, nil
}

type fixture struct {
	svc    *Service
	tasks  *repository.TaskRepository
	ledger *attendance.Ledger
	clock  *clock.Fake
	out    *outbox
	mom    uint
	kid    uint
	other  uint
}

// newFixture seeds three users where mom supervises kid. The clock starts on Monday 2024-05-20 09:00.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	db := testutil.NewTestDB(t)
	rdb, _ := testutil.NewTestRedis(t)
	users := repository.NewUserRepository(db)
	var ids []uint
	for _, name := range []string{"mom", "kid", "other"} {
		u := &models.User{Username: name, Nickname: name}
		require.NoError(t, users.Create(ctx, u))
		ids = append(ids, u.ID)
	}

	logs := repository.NewNotificationLogRepository(db)
	f := &fixture{
		tasks: repository.NewTaskRepository(db),
		clock: clock.NewFake(time.Date(2024, 5, 20, 9, 0, 0, 0, loc)),
		out:   &outbox{},
		mom:   ids[0], kid: ids[1], other: ids[2],
	}
	f.ledger = attendance.NewLedger(rdb, f.clock, time.Second)
	dispatcher := notify.NewDispatcher(notify.NewDedup(rdb, logs, 24*time.Hour, time.Second, zaptest.NewLogger(t)), logs, users, f.out, zaptest.NewLogger(t))
	rel := pairs{{f.mom, f.kid}: true}
	f.svc = NewService(f.tasks, repository.NewCheckInRepository(db), f.ledger, dispatcher, rel, users,
		occurrence.NewPolicy(30*time.Minute), f.clock, zaptest.NewLogger(t))
	return f
}

// task creates a task from creator to user due at hh:mm.
func (f *fixture) task(t *testing.T, creator, user uint, hh, mm int, rt models.RepeatType) *models.Task {
	t.Helper()
	task, err := f.svc.CreateTask(context.Background(), creator, TaskInput{
		UserID:     user,
		Title:      "take medicine",
		RemindAt:   time.Date(2024, 5, 20, hh, mm, 0, 0, loc),
		RepeatType: rt,
	})
	require.NoError(t, err)
	return task
}

func at(day, hh, mm int) time.Time {
	return time.Date(2024, 5, day, hh, mm, 0, 0, loc)
}
