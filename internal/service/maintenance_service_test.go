package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/noah-isme/biblioteca-api/internal/models"
	appErrors "github.com/noah-isme/biblioteca-api/pkg/errors"
)

type stubMaintenance struct {
	clampLimit int
	clamped    int64
	triggers   []models.Trigger
	dropped    []string
	listErr    error
}

func (s *stubMaintenance) ClampSemesters(_ context.Context, limit int) (int64, error) {
	s.clampLimit = limit
	return s.clamped, nil
}

func (s *stubMaintenance) List(context.Context) ([]models.Trigger, error) {
	return s.triggers, s.listErr
}

func (s *stubMaintenance) FindTable(_ context.Context, name string) (string, error) {
	for _, t := range s.triggers {
		if t.Name == name {
			return t.Table, nil
		}
	}
	return "", nil
}

func (s *stubMaintenance) Drop(_ context.Context, name, table string) error {
	s.dropped = append(s.dropped, table+"."+name)
	return nil
}

func TestClampSemestersUsesCap(t *testing.T) {
	stub := &stubMaintenance{clamped: 4}
	svc := NewMaintenanceService(stub, stub, 0, nil)

	result, err := svc.ClampSemesters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, DefaultSemesterCap, stub.clampLimit)
	assert.Equal(t, DefaultSemesterCap, result.Cap)
	assert.EqualValues(t, 4, result.Updated)

	svc = NewMaintenanceService(stub, stub, 10, nil)
	_, err = svc.ClampSemesters(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 10, stub.clampLimit)
}

func TestRemoveTrigger(t *testing.T) {
	stub := &stubMaintenance{triggers: []models.Trigger{{Name: "trg_loan_status", Table: "loans", Event: "INSERT"}}}
	svc := NewMaintenanceService(stub, stub, 9, nil)

	for _, name := range []string{"", "1abc", "drop; --", `x"y`} {
		assert.ErrorIs(t, svc.RemoveTrigger(context.Background(), name), appErrors.ErrInvalidParameter, name)
	}
	assert.ErrorIs(t, svc.RemoveTrigger(context.Background(), "trg_missing"), appErrors.ErrNotFound)

	require.NoError(t, svc.RemoveTrigger(context.Background(), "trg_loan_status"))
	assert.Equal(t, []string{"loans.trg_loan_status"}, stub.dropped)
}

func TestListTriggersNeverNil(t *testing.T) {
	svc := NewMaintenanceService(&stubMaintenance{}, &stubMaintenance{}, 9, nil)
	triggers, err := svc.ListTriggers(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, triggers)

	svc = NewMaintenanceService(&stubMaintenance{}, &stubMaintenance{listErr: errors.New("denied")}, 9, nil)
	_, err = svc.ListTriggers(context.Background())
	assert.ErrorIs(t, err, appErrors.ErrStorageFailure)
}

func TestWarnLegacyTriggersFlagsLedgerTables(t *testing.T) {
	stub := &stubMaintenance{triggers: []models.Trigger{
		{Name: "trg_book_status", Table: "books", Event: "UPDATE"},
		{Name: "trg_audit_students", Table: "students", Event: "UPDATE"},
		{Name: "trg_history", Table: "historical_records", Event: "INSERT"},
	}}
	core, logs := observer.New(zapcore.WarnLevel)
	svc := NewMaintenanceService(stub, stub, 9, zap.New(core))

	legacy := svc.WarnLegacyTriggers(context.Background())
	require.Len(t, legacy, 2)
	assert.Equal(t, "trg_book_status", legacy[0].Name)
	assert.Equal(t, "trg_history", legacy[1].Name)
	assert.Equal(t, 2, logs.FilterMessage("legacy trigger on ledger table").Len())
}
