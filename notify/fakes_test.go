package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
)

type memLog struct {
	mu      sync.Mutex
	rows    []models.NotificationLog
	latency time.Duration
	failErr error
}

func (m *memLog) Exists(_ context.Context, taskID uint, date string, kind models.NotifyKind) (bool, error) {
	time.Sleep(m.latency)
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failErr != nil {
		return false, m.failErr
	}
	for _, r := range m.rows {
		if r.TaskID == taskID && r.NotifyDate == date && r.Kind == kind {
			return true, nil
		}
	}
	return false, nil
}

func (m *memLog) Insert(_ context.Context, e *models.NotificationLog) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.TaskID == e.TaskID && r.NotifyDate == e.NotifyDate && r.Kind == e.Kind {
			return errcode.ErrDuplicate
		}
	}
	m.rows = append(m.rows, *e)
	return nil
}

func (m *memLog) all() []models.NotificationLog {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.NotificationLog(nil), m.rows...)
}

type memUsers map[uint]*models.User

func (m memUsers) GetByID(_ context.Context, id uint) (*models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return nil, errcode.ErrNotFound
}

type recordingTransport struct {
	mu   sync.Mutex
	sent []Message
	to   []Recipient
	err  error
}

func (r *recordingTransport) Send(_ context.Context, to Recipient, msg Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.sent = append(r.sent, msg)
	r.to = append(r.to, to)
	return nil
}

func (r *recordingTransport) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

// latencyHook delays every Redis command to widen race windows.
type latencyHook struct {
	d time.Duration
}

func (h latencyHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h latencyHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		time.Sleep(h.d)
		return next(ctx, cmd)
	}
}

func (h latencyHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

// failHook fails every command named cmd with errBoom.
type failHook struct {
	cmd string
}

func (h failHook) DialHook(next redis.DialHook) redis.DialHook { return next }

func (h failHook) ProcessHook(next redis.ProcessHook) redis.ProcessHook {
	return func(ctx context.Context, cmd redis.Cmder) error {
		if cmd.Name() == h.cmd {
			cmd.SetErr(errBoom)
			return errBoom
		}
		return next(ctx, cmd)
	}
}

func (h failHook) ProcessPipelineHook(next redis.ProcessPipelineHook) redis.ProcessPipelineHook {
	return next
}

var errBoom = errors.New("boom")
