package loopback

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/google/uuid"
	"github.com/m-lab/go/memoryless"

	"github.com/intelight/atc-loopback/logging"
)

const (
	// DefaultIdleTimeout is used when Config.IdleTimeout is zero.
	DefaultIdleTimeout = 2 * time.Second

	// DefaultYield is the pause after a cycle in which neither side made
	// progress.
	DefaultYield = time.Millisecond
)

// Config controls a loopback run.
type Config struct {
	// Count is the number of packets to send and expect back.
	Count uint64
	// SizeA and SizeB are the alternating packet sizes. SizeB defaults
	// to SizeA.
	SizeA int
	SizeB int
	// IdleTimeout ends the run once all packets are sent and nothing has
	// been received for this long.
	IdleTimeout time.Duration
	// Yield is the sleep after a cycle without progress.
	Yield time.Duration
	// FrameOverhead is added to the packet size when computing the
	// throughput, e.g. the Ethernet header.
	FrameOverhead int
	// ProgressInterval, when positive, is the average interval between
	// progress log lines.
	ProgressInterval time.Duration
}

func (c Config) withDefaults() Config {
	if c.SizeB == 0 {
		c.SizeB = c.SizeA
	}
	if c.IdleTimeout == 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.Yield == 0 {
		c.Yield = DefaultYield
	}
	return c
}

func (c Config) validate() error {
	if c.SizeA <= 0 || c.SizeB <= 0 {
		return fmt.Errorf("invalid packet sizes %d/%d", c.SizeA, c.SizeB)
	}
	if c.IdleTimeout < 0 || c.Yield < 0 || c.FrameOverhead < 0 {
		return errors.New("negative durations or overhead are not allowed")
	}
	return nil
}

// run holds the state owned by a single call to Run.
type run struct {
	cfg         Config
	tx          Sender
	rx          Receiver
	sched       *schedule
	payload     []byte
	buf         []byte
	start       time.Time
	lastReceive time.Time
	res         Result
	logger      *log.Entry
}

// Run exchanges cfg.Count packets between |tx| and |rx| and returns the
// outcome. It returns an *EndpointError when an endpoint fails and a
// *MismatchError when received data differs from the pattern; in both
// cases the returned Result holds the counters at the time of the failure.
// An idle timeout is not an error: it is reported through Result.TimedOut
// and Result.Lost.
//
// Run never opens or closes the endpoints.
func Run(tx Sender, rx Receiver, cfg Config) (Result, error) {
	cfg = cfg.withDefaults()
	if err := cfg.validate(); err != nil {
		return Result{}, err
	}
	sched := newSchedule(cfg.SizeA, cfg.SizeB)
	r := &run{
		cfg:     cfg,
		tx:      tx,
		rx:      rx,
		sched:   sched,
		payload: Payload(sched.Max()),
		buf:     make([]byte, sched.Max()),
		res:     Result{RunID: uuid.NewString()},
	}
	r.logger = logging.Logger.WithField("run", r.res.RunID)
	r.logger.WithFields(log.Fields{
		"count": cfg.Count,
		"sizeA": cfg.SizeA,
		"sizeB": cfg.SizeB,
	}).Debug("loopback: start")
	defer r.logger.Debug("loopback: stop")

	var ticks <-chan time.Time
	if cfg.ProgressInterval > 0 {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		ticker, err := memoryless.NewTicker(ctx, memoryless.Config{
			Min:      cfg.ProgressInterval / 2,
			Expected: cfg.ProgressInterval,
			Max:      cfg.ProgressInterval * 2,
		})
		if err != nil {
			return Result{}, err
		}
		defer ticker.Stop()
		ticks = ticker.C
	}

	r.start = time.Now()
	r.lastReceive = r.start
	err := r.loop(ticks)
	return r.finish(), err
}

func (r *run) loop(ticks <-chan time.Time) error {
	for {
		sent, err := r.send(r.sched.Current())
		if err != nil {
			return err
		}
		received, err := r.receive()
		if err != nil {
			return err
		}
		if sent {
			r.res.Sent++
			r.sched.Advance()
		}
		if received {
			r.res.Received++
		}
		if r.res.Sent >= r.cfg.Count && r.res.Received >= r.cfg.Count {
			return nil
		}
		if !sent && !received {
			if r.res.Sent >= r.cfg.Count && time.Since(r.lastReceive) > r.cfg.IdleTimeout {
				r.res.TimedOut = true
				r.logger.WithField("lost", r.res.Lost()).Warn("loopback: idle timeout")
				return nil
			}
			time.Sleep(r.cfg.Yield)
		}
		select {
		case <-ticks:
			r.logger.WithFields(log.Fields{
				"sent":     r.res.Sent,
				"received": r.res.Received,
				"elapsed":  time.Since(r.start).String(),
			}).Info("loopback: progress")
		default:
		}
	}
}

// send offers one packet of |size| bytes to the sender if packets remain.
func (r *run) send(size int) (bool, error) {
	if r.res.Sent >= r.cfg.Count {
		return false, nil
	}
	err := r.tx.Send(r.payload[:size])
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrWouldBlock):
		return false, nil
	}
	return false, &EndpointError{Op: "send", Err: err}
}

// receive reads one packet, skipping self-originated data, and verifies it
// against the payload. An empty read is no progress. A packet must have one
// of the sent sizes and match the payload byte for byte. The same buffer is
// reused by every cycle.
func (r *run) receive() (bool, error) {
	for {
		n, self, err := r.rx.Receive(r.buf)
		if errors.Is(err, ErrWouldBlock) {
			return false, nil
		}
		if err != nil {
			return false, &EndpointError{Op: "receive", Err: err}
		}
		if self {
			continue
		}
		if n == 0 {
			return false, nil
		}
		r.lastReceive = time.Now()
		if !r.sched.Fits(n) {
			return false, wrongLength(n, r.payload, r.res.Sent, r.res.Received)
		}
		if m := compare(r.buf[:n], r.payload, r.res.Sent, r.res.Received); m != nil {
			return false, m
		}
		return true, nil
	}
}

func (r *run) finish() Result {
	r.res.Elapsed = time.Since(r.start)
	r.res.Active = r.lastReceive.Sub(r.start)
	r.res.ThroughputKbps = throughputKbps(r.sched.Average(), r.cfg.FrameOverhead,
		r.res.Received, r.res.Active)
	return r.res
}
