package checkin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
)

func TestDoCheckIn_Window(t *testing.T) {
	cases := []struct {
		name    string
		hh, mm  int
		outcome models.CheckInOutcome
		err     error
	}{
		{"35 minutes early", 9, 25, "", errcode.ErrTooEarly},
		{"10 minutes early", 9, 50, models.OutcomeOnTime, nil},
		{"on the minute", 10, 0, models.OutcomeOnTime, nil},
		{"10 minutes late", 10, 10, models.OutcomeLate, nil},
		{"35 minutes late", 10, 35, "", errcode.ErrExpired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)

			rec, err := f.svc.DoCheckIn(context.Background(), f.kid, task.ID, at(20, tc.hh, tc.mm))
			if tc.err != nil {
				assert.ErrorIs(t, err, tc.err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tc.outcome, rec.Outcome)
			assert.Equal(t, "2024-05-20", rec.OccurrenceDate)
		})
	}
}

func TestDoCheckIn_DuplicateRejected(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)

	_, err := f.svc.DoCheckIn(ctx, f.kid, task.ID, at(20, 9, 50))
	require.NoError(t, err)
	_, err = f.svc.DoCheckIn(ctx, f.kid, task.ID, at(20, 9, 55))
	assert.ErrorIs(t, err, errcode.ErrDuplicate)

	// the next day is a new occurrence
	_, err = f.svc.DoCheckIn(ctx, f.kid, task.ID, at(21, 9, 55))
	assert.NoError(t, err)
}

func TestDoCheckIn_TaskNotFound(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)

	_, err := f.svc.DoCheckIn(ctx, f.other, task.ID, at(20, 10, 0))
	assert.ErrorIs(t, err, errcode.ErrTaskNotFound)

	_, err = f.svc.DoCheckIn(ctx, f.kid, 9999, at(20, 10, 0))
	assert.ErrorIs(t, err, errcode.ErrTaskNotFound)

	require.NoError(t, f.svc.DisableTask(ctx, f.mom, task.ID))
	_, err = f.svc.DoCheckIn(ctx, f.kid, task.ID, at(20, 10, 0))
	assert.ErrorIs(t, err, errcode.ErrTaskNotFound)
}

func TestDoCheckIn_InactiveDay(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatWeekends)

	// 2024-05-20 is a Monday
	_, err := f.svc.DoCheckIn(context.Background(), f.kid, task.ID, at(20, 10, 0))
	assert.ErrorIs(t, err, errcode.ErrTaskNotFound)

	_, err = f.svc.DoCheckIn(context.Background(), f.kid, task.ID, at(25, 10, 0))
	assert.NoError(t, err)
}

func TestDoCheckIn_WindowCrossingMidnight(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.mom, f.kid, 23, 50, models.RepeatDaily)

	rec, err := f.svc.DoCheckIn(context.Background(), f.kid, task.ID, at(21, 0, 10))
	require.NoError(t, err)
	assert.Equal(t, "2024-05-20", rec.OccurrenceDate)
	assert.Equal(t, models.OutcomeLate, rec.Outcome)
}

func TestDoCheckIn_NotifiesCreator(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	onTime := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)
	late := f.task(t, f.mom, f.kid, 9, 45, models.RepeatDaily)

	_, err := f.svc.DoCheckIn(ctx, f.kid, onTime.ID, at(20, 9, 55))
	require.NoError(t, err)
	_, err = f.svc.DoCheckIn(ctx, f.kid, late.ID, at(20, 9, 55))
	require.NoError(t, err)

	assert.Equal(t, []models.NotifyKind{models.NotifyCheckInComplete, models.NotifyMakeUp}, f.out.kinds(f.mom))
	assert.Equal(t, []models.NotifyKind{models.NotifyTaskAssigned, models.NotifyTaskAssigned}, f.out.kinds(f.kid))

	set, err := f.ledger.IsTaskSet(ctx, f.kid, onTime.ID, at(20, 0, 0))
	require.NoError(t, err)
	assert.True(t, set)
}

func TestDoCheckIn_SelfAssignedSendsNothing(t *testing.T) {
	f := newFixture(t)
	task := f.task(t, f.kid, f.kid, 10, 0, models.RepeatOnce)

	_, err := f.svc.DoCheckIn(context.Background(), f.kid, task.ID, at(20, 10, 0))
	require.NoError(t, err)
	assert.Empty(t, f.out.kinds(f.kid))
}

func TestCreateTask(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	in := TaskInput{UserID: f.kid, Title: "walk", RemindAt: at(20, 8, 0), RepeatType: models.RepeatDaily}

	_, err := f.svc.CreateTask(ctx, f.other, in)
	assert.ErrorIs(t, err, errcode.ErrForbidden)

	bad := in
	bad.Title = "  "
	_, err = f.svc.CreateTask(ctx, f.mom, bad)
	code, _ := errcode.CodeOf(err)
	assert.Equal(t, errcode.Invalid, code)

	bad = in
	bad.RepeatType = "HOURLY"
	_, err = f.svc.CreateTask(ctx, f.mom, bad)
	code, _ = errcode.CodeOf(err)
	assert.Equal(t, errcode.Invalid, code)

	task, err := f.svc.CreateTask(ctx, f.mom, in)
	require.NoError(t, err)
	assert.True(t, task.Enabled)

	_, err = f.svc.UpdateTask(ctx, f.kid, task.ID, in)
	assert.ErrorIs(t, err, errcode.ErrForbidden)

	in.Title = "long walk"
	updated, err := f.svc.UpdateTask(ctx, f.mom, task.ID, in)
	require.NoError(t, err)
	assert.Equal(t, "long walk", updated.Title)

	assigned, created, err := f.svc.Tasks(ctx, f.kid)
	require.NoError(t, err)
	assert.Len(t, assigned, 1)
	assert.Empty(t, created)
}
