package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/sony/gobreaker"
)

// PushDispatcher delivers alerts through an HTTP push provider. Provider
// calls go through a circuit breaker so a flapping provider degrades to
// fast local failures instead of stalling every delivery.
type PushDispatcher struct {
	endpoint string
	apiKey   string
	client   *http.Client
	cb       *gobreaker.CircuitBreaker
	logger   *slog.Logger

	mu      sync.Mutex
	granted bool
}

func NewPushDispatcher(endpoint, apiKey string, logger *slog.Logger) *PushDispatcher {
	return &PushDispatcher{
		endpoint: endpoint,
		apiKey:   apiKey,
		client:   &http.Client{Timeout: 10 * time.Second},
		cb:       newBreaker("pushDispatcher", logger),
		logger:   logger,
	}
}

// RequestPermission probes the provider. A reachable provider grants
// permission for subsequent Show calls.
func (p *PushDispatcher) RequestPermission(ctx context.Context) (bool, error) {
	if p.endpoint == "" {
		return false, fmt.Errorf("push endpoint not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, p.endpoint, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("push provider unreachable: %v", err)
	}
	defer resp.Body.Close()

	granted := resp.StatusCode < 500
	p.mu.Lock()
	p.granted = granted
	p.mu.Unlock()
	return granted, nil
}

type pushRequest struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data,omitempty"`
}

type pushResponse struct {
	ID string `json:"id"`
}

func (p *PushDispatcher) Show(ctx context.Context, title, body string, data map[string]string) (string, error) {
	p.mu.Lock()
	granted := p.granted
	p.mu.Unlock()
	if !granted {
		return "", ErrPermissionDenied
	}

	payload, err := json.Marshal(pushRequest{Title: title, Body: body, Data: data})
	if err != nil {
		return "", err
	}

	result, err := p.cb.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+p.apiKey)

		resp, err := p.client.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return nil, fmt.Errorf("push provider returned %d", resp.StatusCode)
		}

		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, err
		}
		var pr pushResponse
		if err := json.Unmarshal(raw, &pr); err != nil || pr.ID == "" {
			// Provider did not echo an ID; the delivery still succeeded.
			return "", nil
		}
		return pr.ID, nil
	})
	if err != nil {
		return "", fmt.Errorf("push dispatch failed: %w", err)
	}

	alertID, _ := result.(string)
	return alertID, nil
}

func newBreaker(name string, logger *slog.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 2
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state change", "name", name, "from", from.String(), "to", to.String())
		},
	})
}
