package domain

import "time"

// DeriveFollowUpStatus computes a follow-up's status from its schedule.
// The same function backs the persisted status column and the read-time predicates.
func DeriveFollowUpStatus(scheduledAt time.Time, completedAt *time.Time, now time.Time) FollowUpStatus {
	if completedAt != nil {
		return FollowUpCompleted
	}
	if scheduledAt.Before(now) {
		return FollowUpOverdue
	}
	return FollowUpPending
}

// StartOfDay truncates t to midnight in t's location
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// SameDay reports whether a and b fall on the same calendar date in b's location
func SameDay(a, b time.Time) bool {
	a = a.In(b.Location())
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// DeriveStatus recomputes the follow-up status at now
func (f *FollowUp) DeriveStatus(now time.Time) FollowUpStatus {
	return DeriveFollowUpStatus(f.ScheduledAt, f.CompletedAt, now)
}

// ApplyDerivedStatus writes the derived status into the Status column
func (f *FollowUp) ApplyDerivedStatus(now time.Time) {
	f.Status = f.DeriveStatus(now)
}

// IsOverdue reports whether the follow-up is past due and not completed
func (f *FollowUp) IsOverdue(now time.Time) bool {
	return f.DeriveStatus(now) == FollowUpOverdue
}

// IsDueToday reports whether the follow-up is open and scheduled for now's date
func (f *FollowUp) IsDueToday(now time.Time) bool {
	return f.CompletedAt == nil && SameDay(f.ScheduledAt, now)
}

// IsDueTomorrow reports whether the follow-up is open and scheduled for the day after now
func (f *FollowUp) IsDueTomorrow(now time.Time) bool {
	return f.CompletedAt == nil && SameDay(f.ScheduledAt, StartOfDay(now).AddDate(0, 0, 1))
}

// IsUpcoming reports whether the follow-up is open and scheduled after today
func (f *FollowUp) IsUpcoming(now time.Time) bool {
	return f.CompletedAt == nil && !f.ScheduledAt.Before(StartOfDay(now).AddDate(0, 0, 1))
}

// DaysOverdue returns whole days elapsed since the scheduled date
func (f *FollowUp) DaysOverdue(now time.Time) int {
	if !f.IsOverdue(now) {
		return 0
	}
	days := int(StartOfDay(now).Sub(StartOfDay(f.ScheduledAt.In(now.Location()))).Hours() / 24)
	if days < 0 {
		return 0
	}
	return days
}
