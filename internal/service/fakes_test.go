package service

import (
	"context"
	"io"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/guildhall/guildhall/internal/mail"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/repository"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeStore struct {
	mu        sync.Mutex
	apps      map[string]*model.Application
	profiles  map[string]*model.Profile
	messages  []model.Message
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		apps:     make(map[string]*model.Application),
		profiles: make(map[string]*model.Profile),
	}
}

func (f *fakeStore) CreateApplication(_ context.Context, app *model.Application) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return f.createErr
	}
	cp := *app
	f.apps[app.ID] = &cp
	return nil
}

func (f *fakeStore) GetApplication(_ context.Context, id string) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	cp := *app
	return &cp, nil
}

func (f *fakeStore) ListApplications(_ context.Context, status model.ApplicationStatus, limit int) ([]model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Application
	for _, app := range f.apps {
		if status == "" || app.Status == status {
			out = append(out, *app)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) ReviewApplication(_ context.Context, id string, status model.ApplicationStatus, reviewerID string, at time.Time) (*model.Application, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	app, ok := f.apps[id]
	if !ok {
		return nil, repository.ErrApplicationNotFound
	}
	if app.Status != model.ApplicationPending {
		return nil, repository.ErrApplicationReviewed
	}
	app.Status = status
	app.ReviewedBy = &reviewerID
	app.ReviewedAt = &at
	cp := *app
	return &cp, nil
}

func (f *fakeStore) CountApplications(_ context.Context) (model.ApplicationCounts, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var c model.ApplicationCounts
	for _, app := range f.apps {
		switch app.Status {
		case model.ApplicationPending:
			c.Pending++
		case model.ApplicationApproved:
			c.Approved++
		case model.ApplicationRejected:
			c.Rejected++
		}
	}
	return c, nil
}

func (f *fakeStore) addProfile(status model.Status) *model.Profile {
	p := &model.Profile{
		ID:     uuid.NewString(),
		Email:  "member@example.com",
		Role:   model.RoleMember,
		Status: status,
	}
	f.mu.Lock()
	f.profiles[p.ID] = p
	f.mu.Unlock()
	return p
}

func (f *fakeStore) GetProfile(_ context.Context, id string) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (f *fakeStore) ListProfiles(_ context.Context, status model.Status, limit int) ([]model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Profile
	for _, p := range f.profiles {
		if status == "" || p.Status == status {
			out = append(out, *p)
		}
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeStore) UpdateProfileStatus(_ context.Context, id string, status model.Status) (*model.Profile, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.profiles[id]
	if !ok {
		return nil, repository.ErrProfileNotFound
	}
	p.Status = status
	cp := *p
	return &cp, nil
}

func (f *fakeStore) CreateMessage(_ context.Context, msg *model.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.profiles[msg.RecipientID]; !ok {
		return repository.ErrProfileNotFound
	}
	msg.ID = uuid.NewString()
	msg.CreatedAt = time.Now().UTC()
	f.messages = append(f.messages, *msg)
	return nil
}

func (f *fakeStore) ListConversation(_ context.Context, memberID, otherID string, _ int) ([]model.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []model.Message
	for _, m := range f.messages {
		if (m.SenderID == memberID && m.RecipientID == otherID) || (m.SenderID == otherID && m.RecipientID == memberID) {
			out = append(out, m)
		}
	}
	return out, nil
}

type fakeQueue struct {
	mu   sync.Mutex
	jobs []mail.Job
}

func (q *fakeQueue) EnqueueAsync(job mail.Job) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.jobs = append(q.jobs, job)
}

func (q *fakeQueue) kinds() []mail.Kind {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]mail.Kind, 0, len(q.jobs))
	for _, j := range q.jobs {
		out = append(out, j.Kind)
	}
	return out
}
