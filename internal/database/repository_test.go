package database

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"gorm.io/gorm"

	"github.com/focusd/focusd/internal/models"
)

var base = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

type RepositorySuite struct {
	suite.Suite
	db   *DB
	repo *Repository
	ctx  context.Context
}

func (s *RepositorySuite) SetupTest() {
	db, err := Connect(Config{Path: filepath.Join(s.T().TempDir(), "test.db"), MaxOpenConns: 4})
	s.Require().NoError(err)
	s.Require().NoError(db.Initialize())

	s.db = db
	s.repo = NewRepository(db, WithRetryInterval(time.Millisecond))
	s.ctx = context.Background()
}

func (s *RepositorySuite) TearDownTest() {
	s.Require().NoError(s.db.Close())
}

func TestRepositorySuite(t *testing.T) {
	suite.Run(t, new(RepositorySuite))
}

func usage(key, app string, start time.Time, seconds int64) *models.WindowUsage {
	return &models.WindowUsage{
		SessionKey:      key,
		AppIdentifier:   app,
		WindowTitle:     app + " window",
		StartTime:       start,
		DurationSeconds: seconds,
	}
}

func (s *RepositorySuite) countUsage() int64 {
	var n int64
	s.Require().NoError(s.db.Model(&models.WindowUsage{}).Count(&n).Error)
	return n
}

func (s *RepositorySuite) TestWALEnabled() {
	var mode string
	s.Require().NoError(s.db.Raw("PRAGMA journal_mode").Scan(&mode).Error)
	s.Equal("wal", mode)

	for _, table := range []string{"window_usage", "afk_intervals", "daily_goals", "app_aliases", "error_logs", "categories", "app_categories"} {
		s.True(s.db.Migrator().HasTable(table), table)
	}
}

func (s *RepositorySuite) TestInitializeTwice() {
	s.NoError(s.db.Initialize())
}

func (s *RepositorySuite) TestInsertRejectsInvalidRecords() {
	_, err := s.repo.InsertWindowUsage(s.ctx, usage("a", "", base, 10))
	s.ErrorIs(err, ErrInvalidRecord)

	_, err = s.repo.InsertWindowUsage(s.ctx, usage("b", "code", base, -1))
	s.ErrorIs(err, ErrInvalidRecord)

	s.Zero(s.countUsage())
}

func (s *RepositorySuite) TestInsertAssignsKey() {
	rec := usage("", "code", base, 10)
	id, err := s.repo.InsertWindowUsage(s.ctx, rec)
	s.Require().NoError(err)
	s.NotZero(id)
	s.NotEmpty(rec.SessionKey)
}

func (s *RepositorySuite) TestUpsertIsIdempotent() {
	id1, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("k1", "code", base, 30))
	s.Require().NoError(err)
	id2, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("k1", "code", base, 30))
	s.Require().NoError(err)

	s.Equal(id1, id2)
	s.EqualValues(1, s.countUsage())

	rec, err := s.repo.GetWindowUsage(s.ctx, "k1")
	s.Require().NoError(err)
	s.EqualValues(30, rec.DurationSeconds)
	s.False(rec.Finalized)
}

func (s *RepositorySuite) TestUpsertByRowID() {
	id, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("k1", "code", base, 10))
	s.Require().NoError(err)

	got, err := s.repo.UpsertWindowUsage(s.ctx, &id, usage("k1", "code", base, 20))
	s.Require().NoError(err)
	s.Equal(id, got)

	rec, err := s.repo.GetWindowUsage(s.ctx, "k1")
	s.Require().NoError(err)
	s.EqualValues(20, rec.DurationSeconds)
}

func (s *RepositorySuite) TestFinalizedRowIsNeverModified() {
	id, err := s.repo.FinalizeWindowUsage(s.ctx, usage("k1", "code", base, 100))
	s.Require().NoError(err)

	got, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("k1", "code", base, 250))
	s.Require().NoError(err)
	s.Equal(id, got)

	got, err = s.repo.UpsertWindowUsage(s.ctx, &id, usage("k1", "code", base, 300))
	s.Require().NoError(err)
	s.Equal(id, got)

	got, err = s.repo.FinalizeWindowUsage(s.ctx, usage("k1", "code", base, 999))
	s.Require().NoError(err)
	s.Equal(id, got)

	rec, err := s.repo.GetWindowUsage(s.ctx, "k1")
	s.Require().NoError(err)
	s.EqualValues(100, rec.DurationSeconds)
	s.True(rec.Finalized)
	s.EqualValues(1, s.countUsage())
}

func (s *RepositorySuite) TestFinalizeAfterCheckpoint() {
	id, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("k1", "code", base, 10))
	s.Require().NoError(err)

	got, err := s.repo.FinalizeWindowUsage(s.ctx, usage("k1", "code", base, 42))
	s.Require().NoError(err)
	s.Equal(id, got)

	rec, err := s.repo.GetWindowUsage(s.ctx, "k1")
	s.Require().NoError(err)
	s.EqualValues(42, rec.DurationSeconds)
	s.True(rec.Finalized)
	s.True(rec.StartTime.Equal(base))
}

func (s *RepositorySuite) TestDiscardLeavesTombstone() {
	_, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("open", "code", base, 5))
	s.Require().NoError(err)
	_, err = s.repo.FinalizeWindowUsage(s.ctx, usage("done", "code", base, 5))
	s.Require().NoError(err)

	s.Require().NoError(s.repo.DiscardWindowUsage(s.ctx, usage("open", "code", base, 0)))
	s.Require().NoError(s.repo.DiscardWindowUsage(s.ctx, usage("done", "code", base, 0)))
	s.Require().NoError(s.repo.DiscardWindowUsage(s.ctx, usage("missing", "code", base, 0)))

	open, err := s.repo.GetWindowUsage(s.ctx, "open")
	s.Require().NoError(err)
	s.True(open.Finalized)
	s.Zero(open.DurationSeconds)

	done, err := s.repo.GetWindowUsage(s.ctx, "done")
	s.Require().NoError(err)
	s.EqualValues(5, done.DurationSeconds)

	totals, err := s.repo.AppTotals(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(totals, 1)
	s.EqualValues(5, totals[0].TotalSeconds)
	s.Equal(1, totals[0].EventCount)

	records, err := s.repo.ListWindowUsage(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(records, 1)
}

func (s *RepositorySuite) TestCheckpointAfterDiscardIsIgnored() {
	s.Require().NoError(s.repo.DiscardWindowUsage(s.ctx, usage("flicker", "code", base, 0)))

	// A checkpoint built from a snapshot taken before the discard.
	_, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("flicker", "code", base, 3))
	s.Require().NoError(err)

	rec, err := s.repo.GetWindowUsage(s.ctx, "flicker")
	s.Require().NoError(err)
	s.True(rec.Finalized)
	s.Zero(rec.DurationSeconds)

	sealed, _, err := s.repo.RecoverOpen(s.ctx)
	s.Require().NoError(err)
	s.Zero(sealed)

	totals, err := s.repo.AppTotals(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(totals)
}

func (s *RepositorySuite) TestAfkIntervalNeverReopens() {
	id, err := s.repo.InsertAfkInterval(s.ctx, base)
	s.Require().NoError(err)

	open, err := s.repo.OpenAfkInterval(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(open)
	s.Equal(id, open.ID)

	s.Require().NoError(s.repo.CloseAfkInterval(s.ctx, id, base.Add(600*time.Second)))
	s.Require().NoError(s.repo.CloseAfkInterval(s.ctx, id, base.Add(900*time.Second)))

	intervals, err := s.repo.ListAfkIntervals(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(intervals, 1)
	s.EqualValues(600, intervals[0].DurationSeconds)
	s.Require().NotNil(intervals[0].EndTime)
	s.True(intervals[0].EndTime.Equal(base.Add(600 * time.Second)))

	open, err = s.repo.OpenAfkInterval(s.ctx)
	s.Require().NoError(err)
	s.Nil(open)

	total, err := s.repo.AfkTotal(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.EqualValues(600, total)
}

func (s *RepositorySuite) TestCloseAfkIntervalErrors() {
	s.ErrorIs(s.repo.CloseAfkInterval(s.ctx, 4242, base), ErrNotFound)

	id, err := s.repo.InsertAfkInterval(s.ctx, base)
	s.Require().NoError(err)
	s.ErrorIs(s.repo.CloseAfkInterval(s.ctx, id, base.Add(-time.Second)), ErrInvalidRecord)

	_, err = s.repo.InsertAfkInterval(s.ctx, time.Time{})
	s.ErrorIs(err, ErrInvalidRecord)
}

func (s *RepositorySuite) TestAppTotals() {
	for i, rec := range []*models.WindowUsage{
		usage("1", "code", base, 3600),
		usage("2", "browser", base.Add(time.Hour), 60),
		usage("3", "code", base.Add(2*time.Hour), 400),
		usage("4", "code", base.AddDate(0, 0, -1), 999),
	} {
		_, err := s.repo.FinalizeWindowUsage(s.ctx, rec)
		s.Require().NoError(err, i)
	}

	totals, err := s.repo.AppTotals(s.ctx, base, base.Add(24*time.Hour))
	s.Require().NoError(err)
	s.Require().Len(totals, 2)
	s.Equal("code", totals[0].AppName)
	s.EqualValues(4000, totals[0].TotalSeconds)
	s.Equal(2, totals[0].EventCount)
	s.Equal("browser", totals[1].AppName)
	s.EqualValues(60, totals[1].TotalSeconds)

	today, err := s.repo.TodayAppTotals(s.ctx, base.Add(3*time.Hour))
	s.Require().NoError(err)
	s.Len(today, 2)

	latest, err := s.repo.Latest(s.ctx)
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal("3", latest.SessionKey)
}

func (s *RepositorySuite) TestAppTotalsExcludesAfkRows() {
	rec := usage("afk", "code", base, 500)
	rec.IsAfk = true
	_, err := s.repo.InsertWindowUsage(s.ctx, rec)
	s.Require().NoError(err)

	totals, err := s.repo.AppTotals(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Empty(totals)

	all := NewRepository(s.db, WithExcludeAfk(false))
	totals, err = all.AppTotals(s.ctx, base, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Len(totals, 1)
}

func (s *RepositorySuite) TestHourlyTotals() {
	_, err := s.repo.FinalizeWindowUsage(s.ctx, usage("1", "code", base, 120))
	s.Require().NoError(err)
	_, err = s.repo.FinalizeWindowUsage(s.ctx, usage("2", "code", base.Add(30*time.Minute), 60))
	s.Require().NoError(err)
	_, err = s.repo.FinalizeWindowUsage(s.ctx, usage("3", "code", base.Add(5*time.Hour), 30))
	s.Require().NoError(err)

	hours, err := s.repo.HourlyTotals(s.ctx, base)
	s.Require().NoError(err)
	s.Require().Len(hours, 24)
	s.EqualValues(180, hours[9].TotalSeconds)
	s.EqualValues(30, hours[14].TotalSeconds)
	s.Zero(hours[0].TotalSeconds)
}

func (s *RepositorySuite) TestGoals() {
	s.ErrorIs(s.repo.UpsertGoal(s.ctx, &models.DailyGoal{AppIdentifier: "code"}), ErrInvalidRecord)

	s.Require().NoError(s.repo.UpsertGoal(s.ctx, &models.DailyGoal{AppIdentifier: "code", MaxMinutes: 30, NotifyEnabled: true}))
	s.Require().NoError(s.repo.UpsertGoal(s.ctx, &models.DailyGoal{AppIdentifier: "code", MaxMinutes: 60, NotifyEnabled: false}))
	s.Require().NoError(s.repo.UpsertGoal(s.ctx, &models.DailyGoal{AppIdentifier: "chat", MaxMinutes: 10, NotifyEnabled: true}))

	goal, err := s.repo.GetGoal(s.ctx, "code")
	s.Require().NoError(err)
	s.Equal(60, goal.MaxMinutes)
	s.False(goal.NotifyEnabled)

	_, err = s.repo.FinalizeWindowUsage(s.ctx, usage("1", "chat", base, 900))
	s.Require().NoError(err)

	progress, err := s.repo.GoalProgress(s.ctx, base.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().Len(progress, 2)
	s.Equal("chat", progress[0].Goal.AppIdentifier)
	s.True(progress[0].Exceeded)
	s.InDelta(150.0, progress[0].UsedPercent, 0.001)
	s.False(progress[1].Exceeded)

	s.Require().NoError(s.repo.DeleteGoal(s.ctx, "code"))
	s.ErrorIs(s.repo.DeleteGoal(s.ctx, "code"), ErrNotFound)
	_, err = s.repo.GetGoal(s.ctx, "code")
	s.ErrorIs(err, ErrNotFound)
}

func (s *RepositorySuite) TestAliases() {
	s.Require().NoError(s.repo.SetAlias(s.ctx, "org.mozilla.firefox", "Firefox"))
	s.Require().NoError(s.repo.SetAlias(s.ctx, "org.mozilla.firefox", "Browser"))

	aliases, err := s.repo.AliasMap(s.ctx)
	s.Require().NoError(err)
	s.Equal(map[string]string{"org.mozilla.firefox": "Browser"}, aliases)

	s.Require().NoError(s.repo.DeleteAlias(s.ctx, "org.mozilla.firefox"))
	s.ErrorIs(s.repo.DeleteAlias(s.ctx, "org.mozilla.firefox"), ErrNotFound)
}

func (s *RepositorySuite) TestClearAndRetention() {
	_, err := s.repo.FinalizeWindowUsage(s.ctx, usage("old", "code", base.AddDate(0, 0, -40), 10))
	s.Require().NoError(err)
	_, err = s.repo.UpsertWindowUsage(s.ctx, nil, usage("old-open", "code", base.AddDate(0, 0, -40), 10))
	s.Require().NoError(err)
	_, err = s.repo.FinalizeWindowUsage(s.ctx, usage("new", "code", base, 10))
	s.Require().NoError(err)

	deleted, err := s.repo.DeleteBefore(s.ctx, base.AddDate(0, 0, -30))
	s.Require().NoError(err)
	s.EqualValues(1, deleted)
	s.EqualValues(2, s.countUsage())

	s.Require().NoError(s.repo.CreateErrorLog(s.ctx, &models.ErrorLog{Kind: "persistence", ErrorMsg: "boom"}))
	logs, err := s.repo.ListErrorLogs(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(logs, 1)

	s.Require().NoError(s.repo.Clear(s.ctx))
	s.Zero(s.countUsage())
	logs, err = s.repo.ListErrorLogs(s.ctx, 10)
	s.Require().NoError(err)
	s.Empty(logs)
}

func (s *RepositorySuite) TestWriteRetriesTransientFailures() {
	calls := 0
	err := s.repo.write(s.ctx, "test", func(tx *gorm.DB) error {
		calls++
		if calls < 3 {
			return errors.Wrap(ErrTransient, "busy")
		}
		return nil
	})
	s.NoError(err)
	s.Equal(3, calls)
}

func (s *RepositorySuite) TestWriteGivesUpAfterAttempts() {
	calls := 0
	err := s.repo.write(s.ctx, "test", func(tx *gorm.DB) error {
		calls++
		return sqlite3.Error{Code: sqlite3.ErrBusy}
	})
	s.Require().Error(err)
	s.Equal(defaultWriteAttempts, calls)
	s.ErrorIs(err, ErrPersistenceFatal)

	var fatal *PersistenceFatalError
	s.Require().ErrorAs(err, &fatal)
	s.Equal("test", fatal.Op)
	s.Equal(defaultWriteAttempts, fatal.Attempts)
}

func (s *RepositorySuite) TestWriteDoesNotRetryPermanentFailures() {
	calls := 0
	boom := errors.New("constraint failed")
	err := s.repo.write(s.ctx, "test", func(tx *gorm.DB) error {
		calls++
		return boom
	})
	s.Equal(boom, err)
	s.Equal(1, calls)
}

func TestIsTransient(t *testing.T) {
	assert.True(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrBusy}))
	assert.True(t, IsTransient(errors.Wrap(sqlite3.Error{Code: sqlite3.ErrLocked}, "write")))
	assert.True(t, IsTransient(errors.New("database is locked")))
	assert.True(t, IsTransient(errors.Wrap(ErrTransient, "x")))
	assert.False(t, IsTransient(sqlite3.Error{Code: sqlite3.ErrConstraint}))
	assert.False(t, IsTransient(errors.New("no such table")))
	assert.False(t, IsTransient(nil))
}

func TestStartOfDay(t *testing.T) {
	loc := time.FixedZone("X", 3*3600)
	got := StartOfDay(time.Date(2026, 3, 2, 1, 30, 0, 0, loc))
	require.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, loc), got)
}

func (s *RepositorySuite) TestRecoverOpen() {
	_, err := s.repo.UpsertWindowUsage(s.ctx, nil, usage("crashed", "code", base, 70))
	s.Require().NoError(err)
	_, err = s.repo.InsertAfkInterval(s.ctx, base.Add(time.Minute))
	s.Require().NoError(err)

	sealed, closed, err := s.repo.RecoverOpen(s.ctx)
	s.Require().NoError(err)
	s.EqualValues(1, sealed)
	s.EqualValues(1, closed)

	rec, err := s.repo.GetWindowUsage(s.ctx, "crashed")
	s.Require().NoError(err)
	s.True(rec.Finalized)
	s.EqualValues(70, rec.DurationSeconds)

	open, err := s.repo.OpenAfkInterval(s.ctx)
	s.Require().NoError(err)
	s.Nil(open)
}
