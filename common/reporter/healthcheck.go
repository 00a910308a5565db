// SPDX-FileCopyrightText: 2026 Free Mobile
// SPDX-License-Identifier: AGPL-3.0-only

package reporter

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthcheckStatus represents an healthcheck status.
type HealthcheckStatus int

const (
	// HealthcheckOK says "OK"
	HealthcheckOK HealthcheckStatus = iota
	// HealthcheckWarning says there is a non-fatal condition
	HealthcheckWarning
	// HealthcheckError says there is a big problem with the component
	HealthcheckError
)

// HealthcheckResult combines a status and a reason
type HealthcheckResult struct {
	Status HealthcheckStatus `json:"status"`
	Reason string            `json:"reason"`
}

// MultipleHealthcheckResults aggregates the result of several healthchecks
type MultipleHealthcheckResults struct {
	Status  HealthcheckStatus            `json:"status"`
	Details map[string]HealthcheckResult `json:"details,omitempty"`
}

func (hs HealthcheckStatus) String() string {
	switch hs {
	case HealthcheckOK:
		return "ok"
	case HealthcheckWarning:
		return "warning"
	case HealthcheckError:
		return "error"
	default:
		return "unknown"
	}
}

// MarshalText turns a status into text.
func (hs HealthcheckStatus) MarshalText() ([]byte, error) {
	return []byte(hs.String()), nil
}

// HealthcheckFunc defines a function returning an healthcheck result.
type HealthcheckFunc func(context.Context) HealthcheckResult

// RegisterHealthcheck registers a new named healthcheck.
func (r *Reporter) RegisterHealthcheck(name string, hf HealthcheckFunc) {
	r.healthchecksLock.Lock()
	r.healthchecks[name] = hf
	r.healthchecksLock.Unlock()
}

// RunHealthchecks executes all healthchecks in parallel. The global
// status is the worst status. An healthcheck not answering before the
// context is done is reported as an error.
func (r *Reporter) RunHealthchecks(ctx context.Context) MultipleHealthcheckResults {
	r.healthchecksLock.Lock()
	defer r.healthchecksLock.Unlock()

	var (
		wg      sync.WaitGroup
		lock    sync.Mutex
		results = MultipleHealthcheckResults{
			Status:  HealthcheckOK,
			Details: make(map[string]HealthcheckResult, len(r.healthchecks)),
		}
	)
	for name := range r.healthchecks {
		results.Details[name] = HealthcheckResult{HealthcheckError, "timeout during check"}
	}
	for name, hf := range r.healthchecks {
		answer := make(chan HealthcheckResult, 1)
		go func() { answer <- hf(ctx) }()
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case <-ctx.Done():
			case result := <-answer:
				lock.Lock()
				results.Details[name] = result
				lock.Unlock()
			}
		}()
	}
	wg.Wait()

	for _, result := range results.Details {
		if result.Status > results.Status {
			results.Status = result.Status
		}
	}
	return results
}

// HealthcheckHTTPHandler is an HTTP handler returning healthcheck results as JSON.
func (r *Reporter) HealthcheckHTTPHandler(gc *gin.Context) {
	ctx, cancel := context.WithTimeout(gc.Request.Context(), 5*time.Second)
	defer cancel()
	results := r.RunHealthchecks(ctx)
	status := http.StatusOK
	if results.Status == HealthcheckError {
		status = http.StatusServiceUnavailable
	}
	gc.JSON(status, results)
}
