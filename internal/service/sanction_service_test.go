package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/biblioteca-api/internal/dto"
	"github.com/noah-isme/biblioteca-api/internal/models"
	"github.com/noah-isme/biblioteca-api/internal/repository"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
	"github.com/noah-isme/biblioteca-api/pkg/jobs"
)

func newSanctionFixture(t *testing.T, today string) (*memStore, *SanctionService, *MetricsService) {
	t.Helper()
	store := newMemStore()
	enforcer := NewConsistencyEnforcer(store, memBooks{store}, NewHistoryRecorder(memHistory{store}, nil, nil), nil)
	metrics := NewMetricsService()
	svc := NewSanctionService(memLoans{store}, memStudents{store}, memSanctions{store}, enforcer,
		fixedClock{now: day(today)}, metrics, nil,
		SanctionServiceConfig{LoanPeriodDays: 14, GraceDays: 2, Reason: "overdue loan"}).
		WithIDs(&seqIDs{prefix: "sanction"})
	return store, svc, metrics
}

func addLoan(store *memStore, id, student, book, date string, status models.LoanStatus) {
	loan := models.Loan{ID: id, StudentID: student, BookID: book, OperatorID: "op-1", LoanDate: day(date), Status: status}
	if status == models.LoanStatusReturned {
		returned := day(date).AddDate(0, 0, 30)
		loan.ReturnDate = &returned
	}
	store.state.loans[id] = loan
}

func TestOverdueCutoffIncludesGrace(t *testing.T) {
	_, svc, _ := newSanctionFixture(t, "2024-03-01")
	assert.Equal(t, day("2024-02-14"), svc.OverdueCutoff(time.Date(2024, 3, 1, 18, 30, 0, 0, time.UTC)))
}

func TestApplyAutomaticSanctionsIsIdempotent(t *testing.T) {
	store, svc, metrics := newSanctionFixture(t, "2024-03-01")
	for _, id := range []string{"S1", "S2", "S3"} {
		store.addStudent(id)
	}
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)
	addLoan(store, "L2", "S1", "B2", "2024-01-05", models.LoanStatusActive)
	addLoan(store, "L3", "S2", "B3", "2024-02-14", models.LoanStatusActive)
	addLoan(store, "L4", "S3", "B4", "2023-12-01", models.LoanStatusReturned)

	created, err := svc.ApplyAutomaticSanctions(context.Background(), day("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, created, 1)
	assert.Equal(t, "S1", created[0].StudentID)
	assert.Equal(t, "overdue loan", created[0].Reason)
	assert.Equal(t, day("2024-03-01"), created[0].StartDate)
	assert.Nil(t, created[0].EndDate)

	again, err := svc.ApplyAutomaticSanctions(context.Background(), day("2024-03-01"))
	require.NoError(t, err)
	assert.Empty(t, again)
	assert.Len(t, store.snapshot().sanctions, 1)

	assert.Equal(t, float64(1), counterValue(t, metrics, "sanction_sweep_students_total", map[string]string{"outcome": "created"}))
	assert.Equal(t, float64(1), counterValue(t, metrics, "sanction_sweep_students_total", map[string]string{"outcome": "already_open"}))
}

func TestSweepContinuesAfterStudentFailure(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	store.addStudent("S2")
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)
	addLoan(store, "L2", "S2", "B2", "2024-01-02", models.LoanStatusActive)
	store.fail["sanctions.create"] = func(student string) error {
		if student == "S1" {
			return errors.New("connection reset")
		}
		return nil
	}

	summary, err := svc.Sweep(context.Background(), time.Time{})
	require.NoError(t, err)
	assert.Equal(t, day("2024-03-01"), summary.AsOf)
	assert.Equal(t, 2, summary.OverdueLoans)
	assert.Equal(t, 2, summary.StudentsChecked)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Created, 1)
	assert.Equal(t, "S2", summary.Created[0].StudentID)
}

func TestSweepTreatsUniqueViolationAsAlreadyOpen(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)
	store.fail["sanctions.create"] = func(string) error {
		return &pq.Error{Code: "23505", Constraint: repository.ConstraintOneOpenSanction}
	}

	summary, err := svc.Sweep(context.Background(), day("2024-03-01"))
	require.NoError(t, err)
	assert.Empty(t, summary.Created)
	assert.Equal(t, 1, summary.AlreadyOpen)
	assert.Zero(t, summary.Failed)
}

func TestSweepStopsWhenCancelled(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	summary, err := svc.Sweep(ctx, day("2024-03-01"))
	assert.ErrorIs(t, err, appErrors.ErrStorageFailure)
	require.NotNil(t, summary)
	assert.Empty(t, summary.Created)
	assert.Empty(t, store.snapshot().sanctions)
}

func TestSweepReportsListFailure(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.fail["loans.overdue"] = func(string) error { return errors.New("timeout") }

	_, err := svc.Sweep(context.Background(), day("2024-03-01"))
	assert.ErrorIs(t, err, appErrors.ErrStorageFailure)
}

func TestLiftSanctionAndResanction(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)

	created, err := svc.ApplyAutomaticSanctions(context.Background(), day("2024-03-01"))
	require.NoError(t, err)
	require.Len(t, created, 1)

	_, err = svc.LiftSanction(context.Background(), created[0].ID, dto.LiftSanctionRequest{EndDate: "2024-02-01"})
	assert.ErrorIs(t, err, appErrors.ErrInvalidParameter)

	lifted, err := svc.LiftSanction(context.Background(), created[0].ID, dto.LiftSanctionRequest{EndDate: "2024-03-05"})
	require.NoError(t, err)
	require.NotNil(t, lifted.EndDate)
	assert.Equal(t, day("2024-03-05"), *lifted.EndDate)

	_, err = svc.LiftSanction(context.Background(), created[0].ID, dto.LiftSanctionRequest{})
	assert.ErrorIs(t, err, appErrors.ErrSanctionClosed)
	_, err = svc.LiftSanction(context.Background(), "missing", dto.LiftSanctionRequest{})
	assert.ErrorIs(t, err, appErrors.ErrNotFound)

	// Still in force through its end date.
	again, err := svc.ApplyAutomaticSanctions(context.Background(), day("2024-03-05"))
	require.NoError(t, err)
	assert.Empty(t, again)

	again, err = svc.ApplyAutomaticSanctions(context.Background(), day("2024-03-06"))
	require.NoError(t, err)
	require.Len(t, again, 1)
	assert.NotEqual(t, created[0].ID, again[0].ID)
}

func TestListOpenByStudentUsesToday(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	ended := day("2024-02-01")
	store.state.sanctions["old"] = models.Sanction{ID: "old", StudentID: "S1", Reason: "overdue loan", StartDate: day("2024-01-01"), EndDate: &ended}
	store.state.sanctions["new"] = models.Sanction{ID: "new", StudentID: "S1", Reason: "overdue loan", StartDate: day("2024-02-20")}

	open, err := svc.ListOpenByStudent(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "new", open[0].ID)
}

func TestHandleJob(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	addLoan(store, "L1", "S1", "B1", "2024-02-20", models.LoanStatusActive)

	assert.Error(t, svc.HandleJob(context.Background(), jobs.Job{Type: "other"}))

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{Type: SweepJobType}))
	assert.Empty(t, store.snapshot().sanctions)

	require.NoError(t, svc.HandleJob(context.Background(), jobs.Job{Type: SweepJobType, Payload: day("2024-03-10")}))
	assert.Len(t, store.snapshot().sanctions, 1)
}

func TestSchedulerRunsSweepsThroughQueue(t *testing.T) {
	store, svc, _ := newSanctionFixture(t, "2024-03-01")
	store.addStudent("S1")
	addLoan(store, "L1", "S1", "B1", "2024-01-01", models.LoanStatusActive)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	queue := jobs.NewQueue("sanctions", svc.HandleJob, jobs.QueueConfig{Workers: 1, Coalesce: true})
	queue.Start(ctx)
	defer queue.Stop()

	svc.StartScheduler(ctx, queue, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		return len(store.snapshot().sanctions) == 1
	}, 2*time.Second, 10*time.Millisecond)

	time.Sleep(50 * time.Millisecond)
	assert.Len(t, store.snapshot().sanctions, 1)
}
