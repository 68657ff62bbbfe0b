package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guildhall/guildhall/internal/handler/dto"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/service"
)

type stubReviewer struct {
	apps       []model.Application
	counts     model.ApplicationCounts
	listErr    error
	reviewErr  error
	reviewedID string
	reviewer   string
}

func (s *stubReviewer) List(context.Context, string, int) ([]model.Application, error) {
	return s.apps, s.listErr
}

func (s *stubReviewer) Counts(context.Context) (model.ApplicationCounts, error) {
	return s.counts, nil
}

func (s *stubReviewer) Approve(_ context.Context, id, reviewerID string) (*model.Application, error) {
	return s.review(id, reviewerID, model.ApplicationApproved)
}

func (s *stubReviewer) Reject(_ context.Context, id, reviewerID string) (*model.Application, error) {
	return s.review(id, reviewerID, model.ApplicationRejected)
}

func (s *stubReviewer) review(id, reviewerID string, status model.ApplicationStatus) (*model.Application, error) {
	s.reviewedID, s.reviewer = id, reviewerID
	if s.reviewErr != nil {
		return nil, s.reviewErr
	}
	return &model.Application{ID: id, Status: status}, nil
}

type stubMemberAdmin struct {
	members []model.Profile
	err     error
	status  string
}

func (s *stubMemberAdmin) List(context.Context, string, int) ([]model.Profile, error) {
	return s.members, nil
}

func (s *stubMemberAdmin) SetStatus(_ context.Context, id, status, _ string) (*model.Profile, error) {
	s.status = status
	if s.err != nil {
		return nil, s.err
	}
	return &model.Profile{ID: id, Status: model.Status(status)}, nil
}

func adminRouter(h *AdminHandler) http.Handler {
	r := chi.NewRouter()
	r.Get("/admin", h.Overview)
	r.Get("/admin/applications", h.ListApplications)
	r.Post("/admin/applications/{id}/approve", h.ApproveApplication)
	r.Post("/admin/applications/{id}/reject", h.RejectApplication)
	r.Get("/admin/members", h.ListMembers)
	r.Post("/admin/members/{id}/status", h.SetMemberStatus)
	return r
}

func TestAdminHandler_Overview(t *testing.T) {
	t.Parallel()

	apps := &stubReviewer{counts: model.ApplicationCounts{Pending: 2, Approved: 3, Rejected: 1}}
	router := adminRouter(NewAdminHandler(apps, &stubMemberAdmin{}, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.OverviewResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, int64(6), resp.Total)
	assert.Equal(t, int64(2), resp.Applications.Pending)
}

func TestAdminHandler_ListApplications(t *testing.T) {
	t.Parallel()

	apps := &stubReviewer{apps: []model.Application{{ID: "a"}, {ID: "b"}}}
	router := adminRouter(NewAdminHandler(apps, &stubMemberAdmin{}, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/applications?status=pending", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var resp dto.ApplicationListResponse
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Total)

	apps.listErr = service.ErrInvalidStatus
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/applications?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAdminHandler_Review(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"approve", "/admin/applications/app-1/approve", nil, http.StatusOK},
		{"reject", "/admin/applications/app-1/reject", nil, http.StatusOK},
		{"not found", "/admin/applications/app-1/approve", service.ErrApplicationNotFound, http.StatusNotFound},
		{"already reviewed", "/admin/applications/app-1/reject", service.ErrAlreadyReviewed, http.StatusConflict},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			apps := &stubReviewer{reviewErr: tt.err}
			router := adminRouter(NewAdminHandler(apps, &stubMemberAdmin{}, discardLogger()))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, withIdentity(httptest.NewRequest(http.MethodPost, tt.path, nil), "admin-1"))

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "app-1", apps.reviewedID)
			assert.Equal(t, "admin-1", apps.reviewer)
		})
	}
}

func TestAdminHandler_SetMemberStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		body       string
		err        error
		wantStatus int
	}{
		{"ok", `{"status":"active"}`, nil, http.StatusOK},
		{"invalid", `{"status":"banned"}`, service.ErrInvalidStatus, http.StatusBadRequest},
		{"missing member", `{"status":"active"}`, service.ErrProfileNotFound, http.StatusNotFound},
		{"bad json", `{"status":`, nil, http.StatusBadRequest},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			members := &stubMemberAdmin{err: tt.err}
			router := adminRouter(NewAdminHandler(&stubReviewer{}, members, discardLogger()))

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, withIdentity(postJSON("/admin/members/u-9/status", tt.body), "admin-1"))

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestAdminHandler_ListMembersEmpty(t *testing.T) {
	t.Parallel()

	router := adminRouter(NewAdminHandler(&stubReviewer{}, &stubMemberAdmin{}, discardLogger()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/admin/members", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[],"total":0}`, rec.Body.String())
}
