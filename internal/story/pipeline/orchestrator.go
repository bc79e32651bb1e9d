// Package pipeline coordinates story writing and narration for one session.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chayabot/internal/domain/story"
	"chayabot/internal/session"
	"chayabot/internal/story/tts"
	"chayabot/internal/story/writer"

	"github.com/panjf2000/ants/v2"
	"github.com/sirupsen/logrus"
)

var ErrClosed = errors.New("orchestrator is closed")

type Options struct {
	// Timeout bounds a whole cycle so it always reaches Ready or Failed.
	Timeout time.Duration
	Workers int
}

// Orchestrator runs generation cycles. Every cycle carries a sequence number;
// only the latest cycle may change the visible state, and results from older
// cycles are discarded with their audio released.
type Orchestrator struct {
	writer      writer.Writer
	synthesizer tts.Synthesizer
	credentials *session.Credentials
	pool        *ants.Pool
	timeout     time.Duration

	mu        sync.Mutex
	seq       uint64
	state     State
	cancel    context.CancelFunc
	closed    bool
	listeners []func(State)
	wg        sync.WaitGroup
}

func NewOrchestrator(w writer.Writer, synth tts.Synthesizer, creds *session.Credentials, opts Options) (*Orchestrator, error) {
	if opts.Workers < 1 {
		opts.Workers = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	pool, err := ants.NewPool(opts.Workers, ants.WithNonblocking(true))
	if err != nil {
		return nil, fmt.Errorf("failed to create worker pool: %w", err)
	}
	return &Orchestrator{
		writer:      w,
		synthesizer: synth,
		credentials: creds,
		pool:        pool,
		timeout:     opts.Timeout,
	}, nil
}

// Subscribe registers fn for every visible state change. Listeners run
// synchronously with the orchestrator locked and must not call back into it.
func (o *Orchestrator) Subscribe(fn func(State)) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.listeners = append(o.listeners, fn)
}

func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Generate starts a new cycle for topic and returns its sequence number.
// Validation failures are reported synchronously through the returned error
// and have no side effects: a blank topic or a missing credential leaves the
// state, the running cycle and the current story untouched, and nothing is
// sent over the network.
func (o *Orchestrator) Generate(ctx context.Context, rawTopic string) (uint64, error) {
	topic, err := story.NormalizeTopic(rawTopic)
	if err != nil {
		return 0, err
	}

	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return 0, ErrClosed
	}

	credential, ok := o.credentials.Get()
	if !ok {
		o.mu.Unlock()
		logrus.Warn("Generation rejected, no credential set")
		return 0, story.ErrMissingCredential
	}

	seq := o.supersedeLocked()
	cycleCtx, cancel := context.WithTimeout(ctx, o.timeout)
	o.cancel = cancel
	o.setLocked(State{Seq: seq, Phase: PhaseWritingText})
	o.wg.Add(1)
	o.mu.Unlock()

	// The pool never blocks; superseded cycles that ignore cancellation can
	// still hold every worker, in which case this cycle fails as busy.
	err = o.pool.Submit(func() {
		defer o.wg.Done()
		defer cancel()
		o.run(cycleCtx, seq, topic, credential)
	})
	if err != nil {
		o.wg.Done()
		cancel()
		if errors.Is(err, ants.ErrPoolClosed) {
			err = ErrClosed
		} else {
			err = fmt.Errorf("%w: %v", story.ErrBusy, err)
		}
		o.fail(seq, err)
		return seq, err
	}

	logrus.WithFields(logrus.Fields{"seq": seq, "topic": topic}).Info("Generation started")
	return seq, nil
}

// Wait blocks until every submitted cycle, stale or current, has returned.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}

// Close cancels the current cycle, waits for in-flight work and releases the
// current story's audio.
func (o *Orchestrator) Close() error {
	o.mu.Lock()
	if o.closed {
		o.mu.Unlock()
		return nil
	}
	o.closed = true
	o.supersedeLocked()
	o.mu.Unlock()

	o.wg.Wait()
	o.pool.Release()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.setLocked(State{Seq: o.seq, Phase: PhaseIdle})
	return nil
}

func (o *Orchestrator) run(ctx context.Context, seq uint64, topic, credential string) {
	log := logrus.WithField("seq", seq)

	text, err := o.writer.Write(ctx, topic)
	if err != nil {
		if !errors.Is(err, story.ErrWritingFailed) {
			err = fmt.Errorf("%w: %v", story.ErrWritingFailed, err)
		}
		o.fail(seq, err)
		return
	}

	if !o.advance(seq, State{Seq: seq, Phase: PhaseSynthesizingAudio}) {
		log.Debug("Dropping stale cycle after writing")
		return
	}

	handle, err := o.synthesizer.Synthesize(ctx, text, credential)
	if err != nil {
		o.fail(seq, err)
		return
	}

	result := &story.Story{
		Topic:     topic,
		Text:      text,
		Audio:     handle,
		CreatedAt: time.Now(),
	}
	if !o.advance(seq, State{Seq: seq, Phase: PhaseReady, Story: result}) {
		log.WithField("audio_id", handle.ID).Debug("Discarding stale narration")
		if err := handle.Release(); err != nil {
			log.WithError(err).Warn("Failed to release stale audio")
		}
		return
	}
	log.WithField("audio_id", handle.ID).Info("Story ready")
}

func (o *Orchestrator) fail(seq uint64, err error) {
	kind := story.KindOf(err)
	if !o.advance(seq, State{Seq: seq, Phase: PhaseFailed, Kind: kind, Err: err}) {
		logrus.WithField("seq", seq).WithError(err).Debug("Dropping stale failure")
		return
	}
	logrus.WithFields(logrus.Fields{"seq": seq, "kind": kind}).WithError(err).Warn("Generation failed")
}

// advance applies next only if seq is still the current cycle.
func (o *Orchestrator) advance(seq uint64, next State) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if seq != o.seq {
		return false
	}
	o.setLocked(next)
	return true
}

// supersedeLocked starts a new cycle number, cancels the running cycle and
// releases the previous story's audio.
func (o *Orchestrator) supersedeLocked() uint64 {
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
	if prev := o.state.Story; prev != nil {
		if err := prev.Release(); err != nil {
			logrus.WithError(err).Warn("Failed to release previous story audio")
		}
	}
	o.seq++
	return o.seq
}

func (o *Orchestrator) setLocked(next State) {
	o.state = next
	for _, fn := range o.listeners {
		fn(next)
	}
}
