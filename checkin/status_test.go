package checkin

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/careping/models"
	"github.com/cppla/careping/occurrence"
)

func TestDailyStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	morning := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)
	evening := f.task(t, f.mom, f.kid, 20, 0, models.RepeatDaily)
	f.task(t, f.mom, f.kid, 12, 0, models.RepeatWeekends)

	f.clock.Set(at(20, 10, 31))
	got, err := f.svc.DailyStatus(ctx, f.kid, at(20, 0, 0), 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	states := map[uint]occurrence.State{}
	for _, s := range got {
		states[s.TaskID] = s.State
	}
	assert.Equal(t, occurrence.StateMissed, states[morning.ID])
	assert.Equal(t, occurrence.StatePending, states[evening.ID])

	_, err = f.svc.DoCheckIn(ctx, f.kid, evening.ID, at(20, 19, 45))
	require.NoError(t, err)
	f.clock.Set(at(20, 19, 50))
	got, err = f.svc.DailyStatus(ctx, f.kid, at(20, 0, 0), 0)
	require.NoError(t, err)
	for _, s := range got {
		if s.TaskID == evening.ID {
			assert.Equal(t, occurrence.StateNormal, s.State)
			assert.NotNil(t, s.CheckTime)
		}
	}

	// yesterday never had a record
	f.clock.Set(at(21, 9, 0))
	got, err = f.svc.DailyStatus(ctx, f.kid, at(21, 0, 0).AddDate(0, 0, -1), 0)
	require.NoError(t, err)
	for _, s := range got {
		if s.TaskID == morning.ID {
			assert.Equal(t, occurrence.StateMissed, s.State)
		}
	}
}

func TestSupervisedStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)
	// tasks set by someone else are not the supervisor's concern
	f.task(t, f.kid, f.kid, 9, 0, models.RepeatDaily)

	f.clock.Set(at(20, 9, 55))
	got, err := f.svc.SupervisedStatus(ctx, f.mom)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, f.kid, got[0].UserID)
	assert.Equal(t, "kid", got[0].Name)
	assert.Equal(t, occurrence.StatePending, got[0].State)
	assert.Len(t, got[0].Occurrences, 1)

	_, err = f.svc.DoCheckIn(ctx, f.kid, task.ID, at(20, 10, 5))
	require.NoError(t, err)
	got, err = f.svc.SupervisedStatus(ctx, f.mom)
	require.NoError(t, err)
	assert.Equal(t, occurrence.StateNormal, got[0].State)
	assert.Equal(t, occurrence.StateLate, got[0].Occurrences[0].State)
}

func TestStats(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	task := f.task(t, f.mom, f.kid, 10, 0, models.RepeatDaily)

	for day := 18; day <= 20; day++ {
		_, err := f.svc.DoCheckIn(ctx, f.kid, task.ID, at(day, 10, 0))
		require.NoError(t, err)
	}

	st, err := f.svc.Stats(ctx, f.kid)
	require.NoError(t, err)
	assert.Equal(t, 3, st.CurrentStreak)
	assert.Equal(t, 3, st.LongestStreak)
	assert.Equal(t, 1, st.Week) // week starts Monday 05-20
	assert.Equal(t, 3, st.Month)
	assert.Equal(t, 3, st.Year)
	require.Len(t, st.Recent, 7)
	assert.True(t, st.Recent[len(st.Recent)-1].CheckedIn)
}
