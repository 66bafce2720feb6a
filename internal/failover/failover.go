// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package failover

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"
)

// Default candidate regions, in fallback order.
var DefaultRegions = []string{
	"us-central1",
	"us-west1",
	"us-east4",
	"asia-northeast1",
	"northamerica-northeast1",
}

// DefaultRegion is used when no preferred region is configured.
const DefaultRegion = "us-central1"

// Jitter bounds between attempts.
const (
	DefaultMinJitter = 100 * time.Millisecond
	DefaultMaxJitter = 400 * time.Millisecond
)

// ErrStreamInterrupted reports a failure after text was already delivered.
// Such a failure is never retried in another region.
var ErrStreamInterrupted = errors.New("stream interrupted after delivery")

// ErrNoRegions is returned when Run is given no candidates.
var ErrNoRegions = errors.New("no candidate regions")

// =============================================================================
// CANDIDATES
// =============================================================================

// Candidates returns preferred followed by fallback, deduplicated, with empty
// entries skipped. A nil fallback uses DefaultRegions and an empty preferred
// region uses DefaultRegion.
func Candidates(preferred string, fallback []string) []string {
	if fallback == nil {
		fallback = DefaultRegions
	}
	preferred = strings.TrimSpace(preferred)
	if preferred == "" {
		preferred = DefaultRegion
	}

	out := make([]string, 0, len(fallback)+1)
	seen := make(map[string]bool, len(fallback)+1)
	for _, r := range append([]string{preferred}, fallback...) {
		r = strings.TrimSpace(r)
		if r == "" || seen[r] {
			continue
		}
		seen[r] = true
		out = append(out, r)
	}
	return out
}

// =============================================================================
// ATTEMPTS AND ERRORS
// =============================================================================

// Outcome is what an attempt reports besides its error.
type Outcome struct {
	// Delivered is true once any text reached the user.
	Delivered bool
}

// AttemptFunc performs one request against region.
type AttemptFunc func(ctx context.Context, region string) (Outcome, error)

// Attempt records one failed region.
type Attempt struct {
	Region string
	Err    error
}

// code returns the HTTP status of the failure, or a short label.
func (a Attempt) code() string {
	var sc interface{ StatusCode() int }
	if errors.As(a.Err, &sc) && sc.StatusCode() != 0 {
		return strconv.Itoa(sc.StatusCode())
	}
	if a.Err == nil {
		return "error"
	}
	return a.Err.Error()
}

// ExhaustedError is returned when every candidate failed with a retryable
// error.
type ExhaustedError struct {
	Attempts []Attempt
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = a.Region + ": " + a.code()
	}
	return "all regions failed: " + strings.Join(parts, ", ")
}

// Unwrap exposes the last failure.
func (e *ExhaustedError) Unwrap() error {
	if len(e.Attempts) == 0 {
		return nil
	}
	return e.Attempts[len(e.Attempts)-1].Err
}

// Result describes a Run.
type Result struct {
	// Region is the region that succeeded, or the last one tried.
	Region string
	// Attempts lists every failed attempt in order.
	Attempts []Attempt
	// Retries is the number of times another region was tried.
	Retries int
}

// =============================================================================
// POLICY
// =============================================================================

// Policy tries regions in order, moving on only for retryable failures.
type Policy struct {
	MinJitter time.Duration
	MaxJitter time.Duration

	// Sleep waits d or until ctx is done.
	Sleep func(ctx context.Context, d time.Duration) error
	// Rand returns a value in [0, 1).
	Rand func() float64
	// Retryable decides whether a failure may move to the next region.
	Retryable func(err error) bool
}

// NewPolicy creates a policy with the default jitter and real sleeping.
func NewPolicy() *Policy {
	return &Policy{
		MinJitter: DefaultMinJitter,
		MaxJitter: DefaultMaxJitter,
		Sleep:     SleepContext,
		Rand:      rand.Float64,
		Retryable: Temporary,
	}
}

// SleepContext sleeps for d unless ctx is done first.
func SleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Temporary reports whether err carries a Temporary() true marker, which
// provider errors set for 429, 5xx, timeout and network failures.
func Temporary(err error) bool {
	var t interface{ Temporary() bool }
	return errors.As(err, &t) && t.Temporary()
}

// Run attempts each region in order.
//
// RELIABILITY: Success stops immediately. A retryable failure records the
// attempt, waits a random jitter and moves on. Any other failure stops and is
// returned as-is. A failure after delivery is wrapped in ErrStreamInterrupted
// and never retried, since the user has already seen part of a reply.
func (p *Policy) Run(ctx context.Context, regions []string, attempt AttemptFunc) (Result, error) {
	var res Result
	if len(regions) == 0 {
		return res, ErrNoRegions
	}

	for i, region := range regions {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		res.Region = region
		if i > 0 {
			res.Retries++
		}

		out, err := attempt(ctx, region)
		if err == nil {
			return res, nil
		}
		if out.Delivered {
			return res, fmt.Errorf("%w: %w", ErrStreamInterrupted, err)
		}
		if ctx.Err() != nil || !p.retryable(err) {
			return res, err
		}

		res.Attempts = append(res.Attempts, Attempt{Region: region, Err: err})
		log.Printf("[failover] region %s failed: %v", region, err)

		if i == len(regions)-1 {
			break
		}
		if err := p.sleep(ctx, p.jitter()); err != nil {
			return res, err
		}
	}

	return res, &ExhaustedError{Attempts: res.Attempts}
}

func (p *Policy) retryable(err error) bool {
	if p.Retryable == nil {
		return Temporary(err)
	}
	return p.Retryable(err)
}

func (p *Policy) jitter() time.Duration {
	lo, hi := p.MinJitter, p.MaxJitter
	if hi <= lo {
		return lo
	}
	r := 0.0
	if p.Rand != nil {
		r = p.Rand()
	}
	return lo + time.Duration(r*float64(hi-lo))
}

func (p *Policy) sleep(ctx context.Context, d time.Duration) error {
	if p.Sleep == nil {
		return SleepContext(ctx, d)
	}
	return p.Sleep(ctx, d)
}
