package occurrence

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/careping/errcode"
	"github.com/cppla/careping/models"
)

func TestPolicy_Validate(t *testing.T) {
	p := NewPolicy(0)
	target := time.Date(2024, 5, 20, 10, 0, 0, 0, shanghai)

	tests := []struct {
		name    string
		offset  time.Duration
		want    models.CheckInOutcome
		wantErr error
	}{
		{name: "35 minutes early", offset: -35 * time.Minute, wantErr: errcode.ErrTooEarly},
		{name: "window opens", offset: -30 * time.Minute, want: models.OutcomeOnTime},
		{name: "10 minutes early", offset: -10 * time.Minute, want: models.OutcomeOnTime},
		{name: "exactly on target", offset: 0, want: models.OutcomeOnTime},
		{name: "10 minutes late", offset: 10 * time.Minute, want: models.OutcomeLate},
		{name: "window closes", offset: 30 * time.Minute, want: models.OutcomeLate},
		{name: "35 minutes late", offset: 35 * time.Minute, wantErr: errcode.ErrExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Validate(target, target.Add(tt.offset))
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestPolicy_Classify(t *testing.T) {
	p := NewPolicy(30 * time.Minute)
	task := recurring(models.RepeatDaily)
	day := time.Date(2024, 5, 20, 0, 0, 0, 0, shanghai)
	occ := Occurrence{Task: task, Date: day, Target: Target(task, day)}

	assert.Equal(t, StatePending, p.Classify(occ, nil, time.Date(2024, 5, 20, 9, 0, 0, 0, shanghai)))
	assert.Equal(t, StatePending, p.Classify(occ, nil, time.Date(2024, 5, 20, 10, 30, 0, 0, shanghai)))
	assert.Equal(t, StateMissed, p.Classify(occ, nil, time.Date(2024, 5, 20, 10, 31, 0, 0, shanghai)))
	assert.Equal(t, StateMissed, p.Classify(occ, nil, time.Date(2024, 5, 21, 0, 1, 0, 0, shanghai)))

	onTime := &models.CheckInLog{Outcome: models.OutcomeOnTime}
	late := &models.CheckInLog{Outcome: models.OutcomeLate}
	assert.Equal(t, StateNormal, p.Classify(occ, onTime, time.Date(2024, 5, 22, 0, 0, 0, 0, shanghai)))
	assert.Equal(t, StateLate, p.Classify(occ, late, time.Date(2024, 5, 20, 10, 5, 0, 0, shanghai)))
}

func TestAggregate(t *testing.T) {
	assert.Equal(t, StatePending, Aggregate(nil))
	assert.Equal(t, StateNormal, Aggregate([]State{StateNormal, StateLate}))
	assert.Equal(t, StatePending, Aggregate([]State{StateNormal, StatePending}))
	assert.Equal(t, StateMissed, Aggregate([]State{StatePending, StateMissed, StateNormal}))
}

func TestState_Terminal(t *testing.T) {
	assert.False(t, StatePending.Terminal())
	assert.True(t, StateMissed.Terminal())
	assert.True(t, StateOf(models.OutcomeLate).Terminal())
}
