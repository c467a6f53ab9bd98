package attendance

import (
	"context"
	"testing"

	"github.com/DGISsoft/prodreport/models"
	"github.com/DGISsoft/prodreport/services/errs"
	"github.com/DGISsoft/prodreport/services/memory"
	"github.com/DGISsoft/prodreport/services/notify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rollCall(entries ...models.AttendanceEntry) *models.Attendance {
	return &models.Attendance{
		Date:          "2024-03-01",
		ReporterEmail: "A@x.com",
		ReporterName:  "Ann",
		Entries:       entries,
	}
}

func TestSubmit_NotifiesAdmins(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, notify.NewService(store, zap.NewNop()), zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, rollCall(
		models.AttendanceEntry{EmployeeName: "Joe", Status: models.AttendancePresent},
		models.AttendanceEntry{EmployeeName: "Sue", Status: models.AttendanceLate},
	))
	require.NoError(t, err)

	notes, err := store.ListNotifications(ctx, models.NotificationFilter{Role: models.UserRoleAdmin})
	require.NoError(t, err)
	require.Len(t, notes, 1)
	assert.Equal(t, models.NotificationAttendanceSubmitted, notes[0].Type)
	assert.Equal(t, "2024-03-01", notes[0].AttendanceDate)
	assert.Contains(t, notes[0].Message, "1 present")
	assert.Contains(t, notes[0].Message, "1 late")
}

func TestSubmit_ResubmissionReplacesEntries(t *testing.T) {
	store := memory.NewStore()
	svc := NewService(store, nil, zap.NewNop())
	ctx := context.Background()

	first, err := svc.Submit(ctx, rollCall(models.AttendanceEntry{EmployeeName: "Joe", Status: models.AttendancePresent}))
	require.NoError(t, err)
	second, err := svc.Submit(ctx, rollCall(models.AttendanceEntry{EmployeeName: "Joe", Status: models.AttendanceAbsent}))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	list, err := svc.List(ctx, models.AttendanceFilter{Date: "2024-03-01"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "a@x.com", list[0].ReporterEmail)
	assert.Equal(t, models.AttendanceAbsent, list[0].Entries[0].Status)
}

func TestSubmit_Validation(t *testing.T) {
	svc := NewService(memory.NewStore(), nil, zap.NewNop())
	ctx := context.Background()

	_, err := svc.Submit(ctx, rollCall())
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.Submit(ctx, rollCall(models.AttendanceEntry{EmployeeName: "Joe", Status: "sick"}))
	assert.ErrorIs(t, err, errs.ErrValidation)

	_, err = svc.List(ctx, models.AttendanceFilter{Date: "March 1"})
	assert.ErrorIs(t, err, errs.ErrValidation)
}
