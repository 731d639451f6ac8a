package jobs

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/straye-as/enquiry-api/internal/config"
	"github.com/straye-as/enquiry-api/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeLocker struct {
	held     map[string]bool
	err      error
	released []string
}

func (f *fakeLocker) TryLock(ctx context.Context, name string, ttl time.Duration) (func(), bool, error) {
	if f.err != nil {
		return nil, false, f.err
	}
	if f.held[name] {
		return nil, false, nil
	}
	f.held[name] = true
	return func() {
		delete(f.held, name)
		f.released = append(f.released, name)
	}, true, nil
}

type fakeSweeper struct {
	calls  int
	dryRun bool
	limit  int
}

func (f *fakeSweeper) SendDueReminders(ctx context.Context, now time.Time, limit int, dryRun bool) (*service.ReminderCounts, error) {
	f.calls++
	f.dryRun = dryRun
	f.limit = limit
	return &service.ReminderCounts{Reminders: 2, Overdue: 1}, nil
}

type fakeDispatcher struct {
	sent, counted, digests int
	digestErr              error
}

func (f *fakeDispatcher) SendPending(ctx context.Context, now time.Time, limit int) (int, error) {
	f.sent++
	return 3, nil
}

func (f *fakeDispatcher) CountPending(ctx context.Context, now time.Time, limit int) (int, error) {
	f.counted++
	return 7, nil
}

func (f *fakeDispatcher) SendDailyDigest(ctx context.Context, now time.Time, dryRun bool) (*service.DigestCounts, error) {
	f.digests++
	if f.digestErr != nil {
		return nil, f.digestErr
	}
	return &service.DigestCounts{Users: 4, Sent: 3, Empty: 1}, nil
}

func newJobs(sweeper *fakeSweeper, dispatcher *fakeDispatcher) *NotificationJobs {
	clock := service.ClockFunc(func() time.Time { return time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC) })
	cfg := &config.JobsConfig{SweepBatchLimit: 50, PendingBatchLimit: 20}
	return NewNotificationJobs(sweeper, dispatcher, clock, cfg, zap.NewNop())
}

func TestNotificationJobs_RunAll(t *testing.T) {
	sweeper := &fakeSweeper{}
	dispatcher := &fakeDispatcher{}

	results, err := newJobs(sweeper, dispatcher).Run(context.Background(), "all", false)

	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, ReminderJobName, results[0].Job)
	assert.Equal(t, 2, results[0].Reminders.Reminders)
	assert.Equal(t, 50, sweeper.limit)
	assert.Equal(t, 3, *results[1].Pending)
	assert.Equal(t, 3, results[2].Digest.Sent)
	assert.Equal(t, 1, dispatcher.sent)
	assert.Zero(t, dispatcher.counted)
}

func TestNotificationJobs_DryRunCountsPendingWithoutSending(t *testing.T) {
	sweeper := &fakeSweeper{}
	dispatcher := &fakeDispatcher{}

	results, err := newJobs(sweeper, dispatcher).Run(context.Background(), "pending", true)

	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.True(t, results[0].DryRun)
	assert.Equal(t, 7, *results[0].Pending)
	assert.Zero(t, dispatcher.sent)
}

func TestNotificationJobs_UnknownTypeAndFailure(t *testing.T) {
	_, err := newJobs(&fakeSweeper{}, &fakeDispatcher{}).Run(context.Background(), "weekly", false)
	assert.Error(t, err)

	dispatcher := &fakeDispatcher{digestErr: errors.New("db gone")}
	results, err := newJobs(&fakeSweeper{}, dispatcher).Run(context.Background(), "all", false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "digest")
	assert.Len(t, results, 2, "earlier jobs still report")
}

func TestScheduler_RunNowRespectsLock(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	locker := &fakeLocker{held: map[string]bool{}}
	s.SetLocker(locker, time.Minute)

	runs := 0
	job := func(ctx context.Context) error {
		runs++
		return nil
	}

	assert.True(t, s.RunNow(context.Background(), DigestJobName, job))
	assert.Equal(t, []string{DigestJobName}, locker.released)

	locker.held[DigestJobName] = true
	assert.False(t, s.RunNow(context.Background(), DigestJobName, job))

	locker.err = errors.New("redis down")
	assert.False(t, s.RunNow(context.Background(), ReminderJobName, job))

	assert.Equal(t, 1, runs)
}

func TestRegister_AddsEachJobOnce(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	cfg := &config.JobsConfig{
		ReminderCron: "0 0 8 * * *",
		PendingCron:  "0 */5 * * * *",
		DigestCron:   "0 30 7 * * *",
	}
	j := newJobs(&fakeSweeper{}, &fakeDispatcher{})

	require.NoError(t, j.Register(s, cfg))
	assert.ElementsMatch(t, []string{ReminderJobName, PendingJobName, DigestJobName}, s.GetJobNames())
	assert.Error(t, j.Register(s, cfg), "duplicate names are rejected")

	require.NoError(t, s.RemoveJob(PendingJobName))
	assert.Len(t, s.GetJobNames(), 2)
}

func TestAddJob_InvalidExpression(t *testing.T) {
	s := NewScheduler(zap.NewNop())
	err := s.AddJob("broken", "not a cron", func(ctx context.Context) error { return nil })
	assert.Error(t, err)
}
