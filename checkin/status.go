package checkin

import (
	"context"
	"time"

	"github.com/cppla/careping/attendance"
	"github.com/cppla/careping/clock"
	"github.com/cppla/careping/models"
	"github.com/cppla/careping/occurrence"
)

// OccurrenceStatus is one task occurrence as shown on a dashboard.
type OccurrenceStatus struct {
	TaskID    uint                  `json:"task_id"`
	Title     string                `json:"title"`
	CreatorID uint                  `json:"creator_id"`
	Date      string                `json:"date"`
	Target    time.Time             `json:"target"`
	State     occurrence.State      `json:"state"`
	CheckTime *time.Time            `json:"check_time,omitempty"`
	Outcome   models.CheckInOutcome `json:"outcome,omitempty"`
}

// PartnerStatus summarizes one supervised partner for today.
type PartnerStatus struct {
	UserID      uint               `json:"user_id"`
	Name        string             `json:"name"`
	State       occurrence.State   `json:"state"`
	Occurrences []OccurrenceStatus `json:"occurrences"`
}

// Stats is the personal attendance dashboard.
type Stats struct {
	CurrentStreak int                    `json:"current_streak"`
	LongestStreak int                    `json:"longest_streak"`
	Week          int                    `json:"week"`
	Month         int                    `json:"month"`
	Year          int                    `json:"year"`
	Recent        []attendance.DailyStat `json:"recent"`
}

// DailyStatus classifies every occurrence userID has on date. A non-zero creatorID
// limits it to tasks set by that creator.
func (s *Service) DailyStatus(ctx context.Context, userID uint, date time.Time, creatorID uint) ([]OccurrenceStatus, error) {
	tasks, err := s.tasks.ListEnabled(ctx, userID, creatorID)
	if err != nil {
		return nil, err
	}
	day := clock.DayStart(date.In(s.clock.Now().Location()))
	occs := occurrence.Materialize(tasks, day)
	if len(occs) == 0 {
		return []OccurrenceStatus{}, nil
	}

	ids := make([]uint, 0, len(occs))
	for _, o := range occs {
		ids = append(ids, o.Task.ID)
	}
	key := day.Format(models.DateLayout)
	recs, err := s.records.ListForDateRange(ctx, ids, key, key)
	if err != nil {
		return nil, err
	}
	byTask := make(map[uint]*models.CheckInLog, len(recs))
	for i := range recs {
		if recs[i].UserID == userID {
			byTask[recs[i].TaskID] = &recs[i]
		}
	}

	now := s.clock.Now()
	out := make([]OccurrenceStatus, 0, len(occs))
	for _, o := range occs {
		rec := byTask[o.Task.ID]
		st := OccurrenceStatus{
			TaskID:    o.Task.ID,
			Title:     o.Task.Title,
			CreatorID: o.Task.CreatorID,
			Date:      key,
			Target:    o.Target,
			State:     s.policy.Classify(o, rec, now),
		}
		if rec != nil {
			t := rec.CheckTime
			st.CheckTime = &t
			st.Outcome = rec.Outcome
		}
		out = append(out, st)
	}
	return out, nil
}

// SupervisedStatus aggregates today's state of every partner of supervisorID, over
// the tasks the supervisor set for them.
func (s *Service) SupervisedStatus(ctx context.Context, supervisorID uint) ([]PartnerStatus, error) {
	partners, err := s.relations.Partners(ctx, supervisorID)
	if err != nil {
		return nil, err
	}
	today := clock.Today(s.clock)
	out := make([]PartnerStatus, 0, len(partners))
	for _, pid := range partners {
		occs, err := s.DailyStatus(ctx, pid, today, supervisorID)
		if err != nil {
			return nil, err
		}
		states := make([]occurrence.State, 0, len(occs))
		for _, o := range occs {
			states = append(states, o.State)
		}
		out = append(out, PartnerStatus{
			UserID:      pid,
			Name:        s.displayName(ctx, pid),
			State:       occurrence.Aggregate(states),
			Occurrences: occs,
		})
	}
	return out, nil
}

// Stats builds userID's attendance dashboard from the ledger.
func (s *Service) Stats(ctx context.Context, userID uint) (*Stats, error) {
	today := clock.Today(s.clock)
	var st Stats
	var err error
	if st.CurrentStreak, err = s.ledger.CurrentStreak(ctx, userID); err != nil {
		return nil, err
	}
	if st.LongestStreak, err = s.ledger.LongestStreak(ctx, userID, today.Year()); err != nil {
		return nil, err
	}
	if st.Week, err = s.ledger.CountWeek(ctx, userID, today); err != nil {
		return nil, err
	}
	if st.Month, err = s.ledger.CountMonth(ctx, userID, today); err != nil {
		return nil, err
	}
	if st.Year, err = s.ledger.CountYear(ctx, userID, today.Year()); err != nil {
		return nil, err
	}
	if st.Recent, err = s.ledger.RecentDailyStats(ctx, userID, 7); err != nil {
		return nil, err
	}
	return &st, nil
}
