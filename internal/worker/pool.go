// Package worker drains batch jobs with a bounded pool of concurrent
// senders.
package worker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/sitegate/notify-api/internal/channel"
	"github.com/sitegate/notify-api/internal/model"
	"github.com/sitegate/notify-api/internal/store"
)

// Item is one recipient send within a job.
type Item struct {
	Ref string
	Msg channel.Message
}

// ProgressPublisher receives a snapshot push after every recorded outcome.
type ProgressPublisher interface {
	PublishProgress(jobID string)
}

type Config struct {
	// Concurrency is the hard ceiling on simultaneous outbound sends per
	// job; it protects downstream provider rate limits.
	Concurrency int
	// SendTimeout bounds each channel call.
	SendTimeout time.Duration
	// RatePerSec throttles aggregate outbound throughput across jobs.
	RatePerSec int
}

// Pool runs one dispatch goroutine per job, each fanning out to at most
// Concurrency senders. Outcomes are written back to the job store; the only
// shared mutable state is inside the store.
type Pool struct {
	cfg     Config
	store   *store.JobStore
	hub     ProgressPublisher
	limiter *rate.Limiter
	log     zerolog.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewPool(cfg Config, jobStore *store.JobStore, hub ProgressPublisher, log zerolog.Logger) *Pool {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 15 * time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &Pool{
		cfg:    cfg,
		store:  jobStore,
		hub:    hub,
		log:    log,
		ctx:    ctx,
		cancel: cancel,
	}
	if cfg.RatePerSec > 0 {
		p.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	return p
}

// Dispatch schedules the job's valid items and returns immediately.
func (p *Pool) Dispatch(jobID string, client channel.Client, items []Item) {
	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.run(jobID, client, items)
	}()
}

// Shutdown waits for in-flight jobs to drain, then releases the pool. Sends
// still running once ctx expires are aborted.
func (p *Pool) Shutdown(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.cancel()
		return nil
	case <-ctx.Done():
		p.cancel()
		return ctx.Err()
	}
}

func (p *Pool) run(jobID string, client channel.Client, items []Item) {
	start := time.Now()
	if err := p.store.MarkProcessing(jobID); err != nil {
		p.log.Error().Err(err).Str("job", jobID).Msg("could not start job")
		return
	}

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)

	// Cancellation is cooperative: the flag is checked once per item before
	// it is handed to a sender. Items already in flight run to completion.
	attempted := 0
	for _, it := range items {
		if p.store.CancelRequested(jobID) {
			break
		}
		it := it
		attempted++
		g.Go(func() error {
			p.sendOne(jobID, client, it)
			return nil
		})
	}
	_ = g.Wait()

	status := p.finalStatus(jobID, attempted, len(items))
	if err := p.store.Finalize(jobID, status); err != nil {
		p.log.Error().Err(err).Str("job", jobID).Msg("could not finalize job")
		return
	}
	p.publish(jobID)

	job, err := p.store.Get(jobID)
	if err != nil {
		return
	}
	logEvent := p.log.Info
	if job.FailedCount > 0 {
		logEvent = p.log.Warn
	}
	logEvent().Str("job", jobID).
		Str("status", string(status)).
		Int("total", job.Total).
		Int("success", job.SuccessCount).
		Int("failed", job.FailedCount).
		Dur("dur", time.Since(start)).
		Msg("notification job finished")
}

func (p *Pool) sendOne(jobID string, client channel.Client, it Item) {
	if p.limiter != nil {
		if err := p.limiter.Wait(p.ctx); err != nil {
			p.recordFailure(jobID, it.Ref, "send aborted: "+err.Error())
			return
		}
	}

	ctx, cancel := context.WithTimeout(p.ctx, p.cfg.SendTimeout)
	defer cancel()

	// One attempt only; the operator retries failed recipients explicitly.
	err := client.Send(ctx, it.Msg)
	if err == nil {
		if rerr := p.store.RecordSuccess(jobID); rerr != nil {
			p.log.Error().Err(rerr).Str("job", jobID).Msg("could not record success")
		}
		p.publish(jobID)
		return
	}

	msg := err.Error()
	var te *channel.TransportError
	if errors.As(err, &te) {
		msg = te.Message
	}
	p.recordFailure(jobID, it.Ref, msg)
}

func (p *Pool) recordFailure(jobID, ref, msg string) {
	if err := p.store.RecordFailure(jobID, ref, msg); err != nil {
		p.log.Error().Err(err).Str("job", jobID).Str("recipient", ref).Msg("could not record failure")
		return
	}
	p.publish(jobID)
}

// finalStatus applies the finalization rule: cancelled only when the cancel
// flag stopped the job from attempting every item, completed otherwise.
// Systemic failures are handled before dispatch and never reach the pool.
func (p *Pool) finalStatus(jobID string, attempted, total int) model.JobStatus {
	if attempted < total && p.store.CancelRequested(jobID) {
		return model.JobStatusCancelled
	}
	return model.JobStatusCompleted
}

func (p *Pool) publish(jobID string) {
	if p.hub != nil {
		p.hub.PublishProgress(jobID)
	}
}
