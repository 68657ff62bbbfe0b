package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/guildhall/guildhall/internal/mail"
	"github.com/guildhall/guildhall/internal/metrics"
	"github.com/guildhall/guildhall/internal/middleware"
	"github.com/guildhall/guildhall/internal/model"
	"github.com/guildhall/guildhall/internal/repository"
)

const (
	defaultListLimit = 100
	maxListLimit     = 100
)

// ApplicationStore persists membership applications.
type ApplicationStore interface {
	CreateApplication(ctx context.Context, app *model.Application) error
	GetApplication(ctx context.Context, id string) (*model.Application, error)
	ListApplications(ctx context.Context, status model.ApplicationStatus, limit int) ([]model.Application, error)
	ReviewApplication(ctx context.Context, id string, status model.ApplicationStatus, reviewerID string, at time.Time) (*model.Application, error)
	CountApplications(ctx context.Context) (model.ApplicationCounts, error)
}

// EmailQueue queues transactional email without blocking.
type EmailQueue interface {
	EnqueueAsync(job mail.Job)
}

// ApplicationConfig carries the settings used in outgoing email.
type ApplicationConfig struct {
	AppName    string
	BaseURL    string
	AdminEmail string
}

// ApplicationService handles membership intake and review.
type ApplicationService struct {
	store   ApplicationStore
	emails  EmailQueue
	cfg     ApplicationConfig
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewApplicationService creates a new ApplicationService.
func NewApplicationService(store ApplicationStore, emails EmailQueue, cfg ApplicationConfig, logger *slog.Logger, recorder metrics.Recorder) *ApplicationService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &ApplicationService{
		store:   store,
		emails:  emails,
		cfg:     cfg,
		logger:  logger.With("component", "service.application"),
		metrics: recorder,
		now:     utcNow,
	}
}

// SubmitApplicationInput defines input for the public intake form.
type SubmitApplicationInput struct {
	FullName  string
	Email     string
	Phone     string
	Company   string
	Message   string
	Interests []string
}

func (in *SubmitApplicationInput) normalize() {
	in.FullName = strings.TrimSpace(in.FullName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = strings.TrimSpace(in.Phone)
	in.Company = strings.TrimSpace(in.Company)
	in.Message = strings.TrimSpace(in.Message)
	interests := make([]string, 0, len(in.Interests))
	for _, i := range in.Interests {
		interests = append(interests, strings.TrimSpace(i))
	}
	in.Interests = interests
}

func (in *SubmitApplicationInput) validate() error {
	if err := middleware.ValidateFullName(in.FullName); err != nil {
		return err
	}
	if err := middleware.ValidateEmail(in.Email); err != nil {
		return err
	}
	if err := middleware.ValidateOptional(in.Phone, in.Company, in.Message); err != nil {
		return err
	}
	return middleware.ValidateInterests(in.Interests)
}

// Submit stores a pending application and queues the confirmation and
// admin notice emails. Email queueing never fails the submission.
func (s *ApplicationService) Submit(ctx context.Context, input SubmitApplicationInput) (*model.Application, error) {
	input.normalize()
	if err := input.validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}

	now := s.now()
	app := &model.Application{
		ID:        newID(),
		FullName:  input.FullName,
		Email:     input.Email,
		Phone:     input.Phone,
		Company:   input.Company,
		Message:   input.Message,
		Interests: input.Interests,
		Status:    model.ApplicationPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.store.CreateApplication(ctx, app); err != nil {
		return nil, fmt.Errorf("failed to create application: %w", err)
	}

	s.metrics.IncApplicationSubmitted()
	s.logger.Info("application submitted", "application_id", app.ID)

	data := s.templateData(app)
	s.emails.EnqueueAsync(mail.Job{
		Kind:    mail.KindApplicationReceived,
		ToName:  app.FullName,
		ToEmail: app.Email,
		Data:    data,
	})
	if s.cfg.AdminEmail != "" {
		s.emails.EnqueueAsync(mail.Job{
			Kind:    mail.KindApplicationSubmitted,
			ToEmail: s.cfg.AdminEmail,
			Data:    data,
		})
	}

	return app, nil
}

// Get retrieves an application by ID.
func (s *ApplicationService) Get(ctx context.Context, id string) (*model.Application, error) {
	app, err := s.store.GetApplication(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrApplicationNotFound) {
			return nil, ErrApplicationNotFound
		}
		return nil, err
	}
	return app, nil
}

// List returns applications newest first, optionally filtered by status.
func (s *ApplicationService) List(ctx context.Context, status string, limit int) ([]model.Application, error) {
	st := model.ApplicationStatus(status)
	if st != "" && !st.IsValid() {
		return nil, ErrInvalidStatus
	}
	if limit <= 0 || limit > maxListLimit {
		limit = defaultListLimit
	}
	return s.store.ListApplications(ctx, st, limit)
}

// Counts returns the number of applications per status.
func (s *ApplicationService) Counts(ctx context.Context) (model.ApplicationCounts, error) {
	return s.store.CountApplications(ctx)
}

// Approve marks a pending application approved and notifies the applicant.
func (s *ApplicationService) Approve(ctx context.Context, id, reviewerID string) (*model.Application, error) {
	return s.review(ctx, id, reviewerID, model.ApplicationApproved, mail.KindApplicationApproved)
}

// Reject marks a pending application rejected and notifies the applicant.
func (s *ApplicationService) Reject(ctx context.Context, id, reviewerID string) (*model.Application, error) {
	return s.review(ctx, id, reviewerID, model.ApplicationRejected, mail.KindApplicationRejected)
}

func (s *ApplicationService) review(ctx context.Context, id, reviewerID string, status model.ApplicationStatus, kind mail.Kind) (*model.Application, error) {
	app, err := s.store.ReviewApplication(ctx, id, status, reviewerID, s.now())
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrApplicationNotFound):
			return nil, ErrApplicationNotFound
		case errors.Is(err, repository.ErrApplicationReviewed):
			return nil, ErrAlreadyReviewed
		}
		return nil, err
	}

	s.logger.Info("application reviewed",
		"application_id", app.ID,
		"status", app.Status,
		"reviewer_id", reviewerID,
	)

	s.emails.EnqueueAsync(mail.Job{
		Kind:    kind,
		ToName:  app.FullName,
		ToEmail: app.Email,
		Data:    s.templateData(app),
	})

	return app, nil
}

func (s *ApplicationService) templateData(app *model.Application) mail.TemplateData {
	return mail.TemplateData{
		AppName:       s.cfg.AppName,
		BaseURL:       s.cfg.BaseURL,
		ApplicationID: app.ID,
		FullName:      app.FullName,
		Email:         app.Email,
		Phone:         app.Phone,
		Company:       app.Company,
		Message:       app.Message,
		Interests:     app.Interests,
	}
}
