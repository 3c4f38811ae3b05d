package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"

	"github.com/sitegate/notify-api/internal/channel"
	"github.com/sitegate/notify-api/internal/directory"
	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/store"
	"github.com/sitegate/notify-api/internal/worker"
)

// Request-level validation errors. Per-recipient problems never surface
// here; they are recorded on the job instead.
var (
	ErrEmptyBatch        = errors.New("recipient list is empty")
	ErrBatchTooLarge     = errors.New("recipient list exceeds the batch limit")
	ErrNoValidRecipients = errors.New("no valid recipients in batch")
	ErrUnknownChannel    = errors.New("unknown notification channel")
)

// NotifyService is the dispatch engine's front door: it validates batch
// requests, pre-screens recipients, creates jobs and schedules the sends.
type NotifyService struct {
	maxBatchSize int
	store        *store.JobStore
	dir          directory.Directory
	channels     map[model.Channel]channel.Client
	pool         *worker.Pool
	validate     *validator.Validate
	log          zerolog.Logger
}

func NewNotifyService(
	maxBatchSize int,
	jobStore *store.JobStore,
	dir directory.Directory,
	channels map[model.Channel]channel.Client,
	pool *worker.Pool,
	validate *validator.Validate,
	log zerolog.Logger,
) *NotifyService {
	if maxBatchSize <= 0 {
		maxBatchSize = 50
	}
	return &NotifyService{
		maxBatchSize: maxBatchSize,
		store:        jobStore,
		dir:          dir,
		channels:     channels,
		pool:         pool,
		validate:     validate,
		log:          log,
	}
}

// CreateBatch validates the request, creates the job and returns its id
// without waiting for any send to complete.
func (s *NotifyService) CreateBatch(ctx context.Context, req *model.CreateBatchRequest) (string, error) {
	if len(req.Recipients) == 0 {
		return "", ErrEmptyBatch
	}
	if len(req.Recipients) > s.maxBatchSize {
		return "", fmt.Errorf("%w: %d recipients, limit %d", ErrBatchTooLarge, len(req.Recipients), s.maxBatchSize)
	}

	ch := model.Channel(req.Channel)
	client, ok := s.channels[ch]
	if !ok {
		return "", ErrUnknownChannel
	}

	lang := model.NormalizeLanguage(req.Language)

	// A missing channel credential is a systemic failure: the job exists so
	// the operator can see what happened, but nothing is attempted.
	if !client.IsConfigured() {
		id := s.store.Create(ch, len(req.Recipients))
		if err := s.store.Finalize(id, model.JobStatusFailed); err != nil {
			return "", err
		}
		s.log.Error().Str("job", id).Str("channel", string(ch)).Msg("channel not configured, job failed pre-flight")
		return id, nil
	}

	items, prescreened := s.prescreen(ctx, ch, req, lang)
	if len(items) == 0 {
		return "", ErrNoValidRecipients
	}

	id := s.store.Create(ch, len(req.Recipients))
	for _, f := range prescreened {
		if err := s.store.RecordFailure(id, f.Recipient, f.Message); err != nil {
			s.log.Error().Err(err).Str("job", id).Msg("could not record pre-screen failure")
		}
	}

	s.pool.Dispatch(id, client, items)
	s.log.Info().
		Str("job", id).
		Str("channel", string(ch)).
		Int("total", len(req.Recipients)).
		Int("prescreened", len(prescreened)).
		Msg("notification job accepted")
	return id, nil
}

// Progress returns a point-in-time snapshot of the job.
func (s *NotifyService) Progress(id string) (model.JobProgress, error) {
	job, err := s.store.Get(id)
	if err != nil {
		return model.JobProgress{}, err
	}
	return model.NewJobProgress(job, time.Now()), nil
}

// Cancel flips the job's cooperative cancel flag. Workers stop pulling new
// items; in-flight sends finish and are still recorded.
func (s *NotifyService) Cancel(id string) error {
	return s.store.RequestCancel(id)
}

// prescreen resolves each reference and checks it has a well-formed address
// for the channel. Invalid recipients are returned as immediate failures and
// never consume channel capacity.
func (s *NotifyService) prescreen(ctx context.Context, ch model.Channel, req *model.CreateBatchRequest, lang model.Language) ([]worker.Item, []model.JobError) {
	var items []worker.Item
	var failures []model.JobError

	for _, ref := range req.Recipients {
		entry, err := s.dir.Resolve(ctx, ref)
		if err != nil {
			msg := "directory lookup failed: " + err.Error()
			if errors.Is(err, directory.ErrNotFound) {
				msg = "recipient not found"
			}
			failures = append(failures, model.JobError{Recipient: ref, Message: msg})
			continue
		}

		address, err := s.addressFor(ch, entry)
		if err != nil {
			failures = append(failures, model.JobError{Recipient: ref, Message: err.Error()})
			continue
		}

		items = append(items, worker.Item{
			Ref: ref,
			Msg: channel.Message{
				Address:     address,
				DisplayName: entry.DisplayName,
				Account:     req.Template.Account,
				Password:    req.Template.Password,
				LoginURL:    req.Template.LoginURL,
				Language:    lang,
			},
		})
	}
	return items, failures
}

func (s *NotifyService) addressFor(ch model.Channel, entry directory.Entry) (string, error) {
	switch ch {
	case model.ChannelEmail:
		if entry.Email == "" {
			return "", errors.New("missing email address")
		}
		if err := s.validate.Var(entry.Email, "email"); err != nil {
			return "", errors.New("invalid email address")
		}
		return entry.Email, nil
	case model.ChannelWhatsApp:
		if entry.Phone == "" {
			return "", errors.New("missing phone number")
		}
		if err := s.validate.Var(entry.Phone, "e164"); err != nil {
			return "", errors.New("invalid phone number")
		}
		return entry.Phone, nil
	default:
		return "", ErrUnknownChannel
	}
}
