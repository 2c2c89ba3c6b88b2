package services

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/campusconnect/event-service/internal/events"
	"github.com/campusconnect/event-service/internal/models"
)

func TestRegistrationService_Register_CheckOrder(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name  string
		setup func(env *testEnv) string
		check func(t *testing.T, err error)
	}{
		{
			name: "event must be approved",
			setup: func(env *testEnv) string {
				env.seedProfile(student, true)
				return env.seedEvent(models.EventStatusPendingApproval, nil).ID
			},
			check: func(t *testing.T, err error) {
				var e *NotEligibleError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, ReasonEventNotApproved, e.Reason)
			},
		},
		{
			name: "approval is checked before the deadline",
			setup: func(env *testEnv) string {
				event := env.seedEvent(models.EventStatusCompleted, nil)
				env.now = event.RegistrationDeadline.Add(time.Hour)
				return event.ID
			},
			check: func(t *testing.T, err error) {
				var e *NotEligibleError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name: "registering exactly at the deadline is rejected",
			setup: func(env *testEnv) string {
				env.seedProfile(student, true)
				event := env.seedEvent(models.EventStatusApproved, nil)
				env.now = event.RegistrationDeadline
				return event.ID
			},
			check: func(t *testing.T, err error) {
				var e *DeadlinePassedError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name: "full event",
			setup: func(env *testEnv) string {
				env.seedProfile(student, true)
				event := env.seedEvent(models.EventStatusApproved, intPtr(1))
				env.seedRegistration(event.ID, "s-other", models.RegistrationApproved)
				return event.ID
			},
			check: func(t *testing.T, err error) {
				var e *CapacityExceededError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, 1, e.Max)
			},
		},
		{
			name: "capacity is checked before the profile",
			setup: func(env *testEnv) string {
				event := env.seedEvent(models.EventStatusApproved, intPtr(1))
				env.seedRegistration(event.ID, "s-other", models.RegistrationApproved)
				return event.ID
			},
			check: func(t *testing.T, err error) {
				var e *CapacityExceededError
				assert.ErrorAs(t, err, &e)
			},
		},
		{
			name: "incomplete profile lists missing fields",
			setup: func(env *testEnv) string {
				env.seedProfile(student, false)
				return env.seedEvent(models.EventStatusApproved, nil).ID
			},
			check: func(t *testing.T, err error) {
				var e *ProfileIncompleteError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, []string{"phone", "roll_number"}, e.Missing)
			},
		},
		{
			name: "missing profile",
			setup: func(env *testEnv) string {
				return env.seedEvent(models.EventStatusApproved, nil).ID
			},
			check: func(t *testing.T, err error) {
				var e *ProfileIncompleteError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, []string{"full_name", "email", "phone", "roll_number"}, e.Missing)
			},
		},
		{
			name: "already registered",
			setup: func(env *testEnv) string {
				env.seedProfile(student, true)
				event := env.seedEvent(models.EventStatusApproved, nil)
				env.seedRegistration(event.ID, student.ID, models.RegistrationRejected)
				return event.ID
			},
			check: func(t *testing.T, err error) {
				var e *NotEligibleError
				require.ErrorAs(t, err, &e)
				assert.Equal(t, ReasonAlreadyRegistered, e.Reason)
			},
		},
		{
			name: "unknown event",
			setup: func(env *testEnv) string {
				return "missing"
			},
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrEventNotFound)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			eventID := tt.setup(env)
			before := len(env.store.registrations)

			_, err := env.registrationService().Register(ctx, student, eventID)

			require.Error(t, err)
			tt.check(t, err)
			assert.Len(t, env.store.registrations, before)
			assert.Empty(t, env.publisher.GetPublishedEvents())
		})
	}
}

func TestRegistrationService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("only students register", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)

		_, err := env.registrationService().Register(ctx, organizer, event.ID)

		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("copies the profile contact fields", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedProfile(student, true)
		event := env.seedEvent(models.EventStatusApproved, intPtr(5))

		reg, err := env.registrationService().Register(ctx, student, event.ID)
		require.NoError(t, err)

		assert.Equal(t, models.RegistrationPending, reg.Status)
		assert.Equal(t, "Asha Verma", reg.FullName)
		assert.Equal(t, student.Email, reg.Email)
		assert.Equal(t, "9876543210", reg.Phone)
		assert.Equal(t, "RA2111003010001", reg.RollNumber)
		assert.Equal(t, env.now, reg.RegistrationDate)
		assert.Nil(t, reg.ApprovedBy)

		// pending registrations do not count as participants
		assert.Equal(t, 0, env.event(event.ID).CurrentParticipants)
		assert.Len(t, env.publisher.EventsOfType(events.RegistrationCreated), 1)
	})

	t.Run("a duplicate insert race is reported as already registered", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedProfile(student, true)
		event := env.seedEvent(models.EventStatusApproved, nil)
		env.seedRegistration(event.ID, student.ID, models.RegistrationPending)
		// the existence check misses the row a concurrent request just inserted
		env.store.failNext("registration.GetByEventAndUser", notFound("registration"))

		_, err := env.registrationService().Register(ctx, student, event.ID)

		var notEligible *NotEligibleError
		require.ErrorAs(t, err, &notEligible)
		assert.Equal(t, ReasonAlreadyRegistered, notEligible.Reason)
	})

	t.Run("store failures are wrapped", func(t *testing.T) {
		env := newTestEnv(t)
		env.seedProfile(student, true)
		event := env.seedEvent(models.EventStatusApproved, nil)
		env.store.failNext("registration.Create", errors.New("connection reset"))

		_, err := env.registrationService().Register(ctx, student, event.ID)

		var storeErr *StoreError
		require.ErrorAs(t, err, &storeErr)
		assert.Equal(t, "create registration", storeErr.Op)
		assert.Empty(t, env.store.registrations)
	})
}

func TestRegistrationService_UpdateStatus(t *testing.T) {
	ctx := context.Background()

	t.Run("rejects unknown targets", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationPending)

		_, err := env.registrationService().UpdateStatus(ctx, organizer, reg.ID, models.RegistrationPending)

		var verrs ValidationErrors
		require.ErrorAs(t, err, &verrs)
		assert.Equal(t, "status", verrs.First().Field)
	})

	t.Run("students cannot decide", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationPending)

		_, err := env.registrationService().UpdateStatus(ctx, student, reg.ID, models.RegistrationApproved)

		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("only the organizer admin decides", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationPending)

		_, err := env.registrationService().UpdateStatus(ctx, otherAdm, reg.ID, models.RegistrationApproved)

		var authErr *AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.Equal(t, models.RegistrationPending, env.registration(reg.ID).Status)
	})

	t.Run("approve sets approver and participant count", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, intPtr(2))
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationPending)

		updated, err := env.registrationService().UpdateStatus(ctx, organizer, reg.ID, models.RegistrationApproved)
		require.NoError(t, err)

		assert.Equal(t, models.RegistrationApproved, updated.Status)
		require.NotNil(t, updated.ApprovedBy)
		assert.Equal(t, organizer.ID, *updated.ApprovedBy)
		assert.Equal(t, env.now, *updated.ApprovedAt)
		assert.Equal(t, 1, env.event(event.ID).CurrentParticipants)

		published := env.publisher.EventsOfType(events.RegistrationStatusChanged)
		require.Len(t, published, 1)
		data := published[0].Data.(events.RegistrationData)
		assert.Equal(t, "pending", data.FromStatus)
		assert.Equal(t, "approved", data.ToStatus)
	})

	t.Run("waitlisting leaves approver empty", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationPending)

		updated, err := env.registrationService().UpdateStatus(ctx, executive, reg.ID, models.RegistrationWaitlisted)
		require.NoError(t, err)
		assert.Equal(t, models.RegistrationWaitlisted, updated.Status)
		assert.Nil(t, updated.ApprovedBy)
		assert.Nil(t, updated.ApprovedAt)
	})

	t.Run("decided registrations cannot change again", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, nil)
		reg := env.seedRegistration(event.ID, "s1", models.RegistrationRejected)

		_, err := env.registrationService().UpdateStatus(ctx, organizer, reg.ID, models.RegistrationApproved)

		var invalid *InvalidTransitionError
		require.ErrorAs(t, err, &invalid)
		assert.Equal(t, "registration", invalid.Entity)
		assert.Equal(t, "rejected", invalid.From)
	})

	t.Run("approval re-checks capacity", func(t *testing.T) {
		env := newTestEnv(t)
		event := env.seedEvent(models.EventStatusApproved, intPtr(1))
		env.seedRegistration(event.ID, "s1", models.RegistrationApproved)
		reg := env.seedRegistration(event.ID, "s2", models.RegistrationPending)

		_, err := env.registrationService().UpdateStatus(ctx, organizer, reg.ID, models.RegistrationApproved)

		var full *CapacityExceededError
		require.ErrorAs(t, err, &full)
		assert.Equal(t, models.RegistrationPending, env.registration(reg.ID).Status)
	})

	t.Run("unknown registration", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registrationService().UpdateStatus(ctx, executive, "missing", models.RegistrationApproved)
		assert.ErrorIs(t, err, ErrRegistrationNotFound)
	})
}

func TestRegistrationService_ConcurrentApprovalsRespectCapacity(t *testing.T) {
	env := newTestEnv(t)
	svc := env.registrationService()
	ctx := context.Background()

	event := env.seedEvent(models.EventStatusApproved, intPtr(3))
	var ids []string
	for _, user := range []string{"s1", "s2", "s3", "s4", "s5", "s6"} {
		ids = append(ids, env.seedRegistration(event.ID, user, models.RegistrationPending).ID)
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		approved int
		full     int
	)
	for _, id := range ids {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.UpdateStatus(ctx, organizer, id, models.RegistrationApproved)
			mu.Lock()
			defer mu.Unlock()
			var capErr *CapacityExceededError
			switch {
			case err == nil:
				approved++
			case errors.As(err, &capErr):
				full++
			}
		}(id)
	}
	wg.Wait()

	assert.Equal(t, 3, approved)
	assert.Equal(t, 3, full)
	assert.Equal(t, 3, env.event(event.ID).CurrentParticipants)
}

func TestRegistrationService_Queries(t *testing.T) {
	env := newTestEnv(t)
	svc := env.registrationService()
	ctx := context.Background()

	event := env.seedEvent(models.EventStatusApproved, nil)
	env.seedRegistration(event.ID, "s1", models.RegistrationApproved)
	env.seedRegistration(event.ID, "s2", models.RegistrationPending)
	mine := env.seedRegistration(event.ID, student.ID, models.RegistrationWaitlisted)

	t.Run("organizer lists with stats", func(t *testing.T) {
		resp, err := svc.ListByEvent(ctx, organizer, event.ID, RegistrationListFilters{})
		require.NoError(t, err)
		assert.Equal(t, int64(3), resp.Total)
		assert.Len(t, resp.Registrations, 3)
		assert.Equal(t, int64(1), resp.Stats.Approved)
		assert.Equal(t, int64(1), resp.Stats.Pending)
		assert.Equal(t, int64(1), resp.Stats.Waitlisted)
		assert.Equal(t, int64(3), resp.Stats.Total)
	})

	t.Run("status filter", func(t *testing.T) {
		status := models.RegistrationPending
		resp, err := svc.ListByEvent(ctx, executive, event.ID, RegistrationListFilters{Status: &status})
		require.NoError(t, err)
		require.Len(t, resp.Registrations, 1)
		assert.Equal(t, "s2", resp.Registrations[0].UserID)
	})

	t.Run("students cannot list an event's registrations", func(t *testing.T) {
		_, err := svc.ListByEvent(ctx, student, event.ID, RegistrationListFilters{})
		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})

	t.Run("own registrations carry the event", func(t *testing.T) {
		regs, err := svc.ListMine(ctx, student)
		require.NoError(t, err)
		require.Len(t, regs, 1)
		assert.Equal(t, mine.ID, regs[0].ID)
		require.NotNil(t, regs[0].Event)
		assert.Equal(t, event.Title, regs[0].Event.Title)
	})

	t.Run("is registered", func(t *testing.T) {
		check, err := svc.IsRegistered(ctx, student, event.ID)
		require.NoError(t, err)
		assert.True(t, check.Registered)
		assert.Equal(t, models.RegistrationWaitlisted, *check.Status)

		other := models.NewPrincipal("student-9", "x@gmail.com", models.RoleStudent)
		check, err = svc.IsRegistered(ctx, other, event.ID)
		require.NoError(t, err)
		assert.False(t, check.Registered)
		assert.Nil(t, check.Status)

		_, err = svc.IsRegistered(ctx, models.Anonymous, event.ID)
		var authErr *AuthorizationError
		require.ErrorAs(t, err, &authErr)
		assert.True(t, authErr.Unauthenticated())
	})
}

func TestRegistrationService_ExportRoster(t *testing.T) {
	env := newTestEnv(t)
	svc := env.registrationService()
	ctx := context.Background()

	event := env.seedEvent(models.EventStatusApproved, nil)
	env.seedRegistration(event.ID, "s1", models.RegistrationApproved)
	env.seedRegistration(event.ID, "s2", models.RegistrationPending)

	var buf bytes.Buffer
	require.NoError(t, svc.ExportRoster(ctx, organizer, event.ID, nil, &buf))

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(rosterSheet)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, "Full Name", rows[0][0])
	assert.Contains(t, []string{rows[1][0], rows[2][0]}, "Student s1")

	t.Run("status filter", func(t *testing.T) {
		var buf bytes.Buffer
		status := models.RegistrationApproved
		require.NoError(t, svc.ExportRoster(ctx, executive, event.ID, &status, &buf))

		f, err := excelize.OpenReader(&buf)
		require.NoError(t, err)
		defer f.Close()
		rows, err := f.GetRows(rosterSheet)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "approved", rows[1][4])
	})

	t.Run("other admins cannot export", func(t *testing.T) {
		err := svc.ExportRoster(ctx, otherAdm, event.ID, nil, &bytes.Buffer{})
		var authErr *AuthorizationError
		assert.ErrorAs(t, err, &authErr)
	})
}
