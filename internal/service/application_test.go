package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildhall/guildhall/internal/mail"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/middleware"
	"github.com/guildhall/guildhall/internal/model"
)

func newApplicationService(store *fakeStore, queue *fakeQueue, recorder metrics.Recorder) *ApplicationService {
	return NewApplicationService(store, queue, ApplicationConfig{
		AppName:    "Guildhall",
		BaseURL:    "https://guildhall.example/",
		AdminEmail: "admin@guildhall.example",
	}, quietLogger(), recorder)
}

func validInput() SubmitApplicationInput {
	return SubmitApplicationInput{
		FullName:  "  Ada Lovelace ",
		Email:     "ada@example.com",
		Company:   "Analytical Engines",
		Interests: []string{" events ", "mentoring"},
	}
}

func TestSubmit_StoresPendingAndQueuesEmails(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	recorder := metrics.NewInMemory()
	svc := newApplicationService(store, queue, recorder)

	app, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)

	assert.Len(t, app.ID, 26, "ULID id")
	assert.Equal(t, model.ApplicationPending, app.Status)
	assert.Equal(t, "Ada Lovelace", app.FullName)
	assert.Equal(t, []string{"events", "mentoring"}, app.Interests)

	stored, err := store.GetApplication(context.Background(), app.ID)
	require.NoError(t, err)
	assert.Equal(t, app.Email, stored.Email)

	assert.Equal(t, []mail.Kind{mail.KindApplicationReceived, mail.KindApplicationSubmitted}, queue.kinds())
	assert.Equal(t, "ada@example.com", queue.jobs[0].ToEmail)
	assert.Equal(t, "admin@guildhall.example", queue.jobs[1].ToEmail)
	assert.Equal(t, "https://guildhall.example", queue.jobs[1].Data.BaseURL)
	assert.Equal(t, uint64(1), recorder.Snapshot().ApplicationsSubmitted)
}

func TestSubmit_NoAdminEmailSkipsNotice(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	svc := NewApplicationService(store, queue, ApplicationConfig{AppName: "Guildhall"}, quietLogger(), nil)

	_, err := svc.Submit(context.Background(), validInput())
	require.NoError(t, err)
	assert.Equal(t, []mail.Kind{mail.KindApplicationReceived}, queue.kinds())
}

func TestSubmit_Validation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*SubmitApplicationInput)
		want   error
	}{
		{"missing name", func(in *SubmitApplicationInput) { in.FullName = "   " }, middleware.ErrNameRequired},
		{"bad email", func(in *SubmitApplicationInput) { in.Email = "not-an-email" }, middleware.ErrEmailInvalid},
		{"display name email", func(in *SubmitApplicationInput) { in.Email = "Ada <ada@example.com>" }, middleware.ErrEmailInvalid},
		{"empty interest", func(in *SubmitApplicationInput) { in.Interests = []string{"ok", " "} }, middleware.ErrInterestInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			store, queue := newFakeStore(), &fakeQueue{}
			svc := newApplicationService(store, queue, nil)

			in := validInput()
			tt.mutate(&in)
			_, err := svc.Submit(context.Background(), in)

			assert.ErrorIs(t, err, ErrInvalidInput)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, store.apps)
			assert.Empty(t, queue.kinds())
		})
	}
}

func TestSubmit_StoreFailureQueuesNothing(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	store.createErr = errors.New("db down")
	svc := newApplicationService(store, queue, nil)

	_, err := svc.Submit(context.Background(), validInput())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrInvalidInput)
	assert.Empty(t, queue.kinds())
}

func TestReview_ApproveAndReject(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	svc := newApplicationService(store, queue, nil)
	ctx := context.Background()

	first, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	second, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)

	approved, err := svc.Approve(ctx, first.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationApproved, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, "reviewer-1", *approved.ReviewedBy)

	rejected, err := svc.Reject(ctx, second.ID, "reviewer-1")
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationRejected, rejected.Status)

	kinds := queue.kinds()
	assert.Equal(t, mail.KindApplicationApproved, kinds[len(kinds)-2])
	assert.Equal(t, mail.KindApplicationRejected, kinds[len(kinds)-1])

	counts, err := svc.Counts(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.ApplicationCounts{Approved: 1, Rejected: 1}, counts)
}

func TestReview_Errors(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	svc := newApplicationService(store, queue, nil)
	ctx := context.Background()

	_, err := svc.Approve(ctx, "missing", "reviewer")
	assert.ErrorIs(t, err, ErrApplicationNotFound)

	app, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, app.ID, "reviewer")
	require.NoError(t, err)

	before := len(queue.kinds())
	_, err = svc.Reject(ctx, app.ID, "reviewer")
	assert.ErrorIs(t, err, ErrAlreadyReviewed)
	assert.Len(t, queue.kinds(), before, "no email for a failed review")
}

func TestList_StatusFilter(t *testing.T) {
	t.Parallel()

	store, queue := newFakeStore(), &fakeQueue{}
	svc := newApplicationService(store, queue, nil)
	ctx := context.Background()

	app, err := svc.Submit(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Submit(ctx, validInput())
	require.NoError(t, err)
	_, err = svc.Approve(ctx, app.ID, "reviewer")
	require.NoError(t, err)

	pending, err := svc.List(ctx, "pending", 0)
	require.NoError(t, err)
	assert.Len(t, pending, 1)

	all, err := svc.List(ctx, "", 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, "archived", 0)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}
