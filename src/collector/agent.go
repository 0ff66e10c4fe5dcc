package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"arcalog/src/broker"
	"arcalog/src/contracts"
	"arcalog/src/logger"
)

// Agent consumes collect requests and runs them against the collector
// registered for the requested source.
type Agent struct {
	broker     broker.Broker
	group      string
	collectors map[string]*Collector
	logger     logger.Logger
}

// NewAgent creates a collector agent consuming as group.
func NewAgent(brk broker.Broker, group string, log logger.Logger, collectors ...*Collector) *Agent {
	byName := make(map[string]*Collector, len(collectors))
	for _, c := range collectors {
		byName[c.source.Name()] = c
	}
	return &Agent{
		broker:     brk,
		group:      group,
		collectors: byName,
		logger:     log,
	}
}

// Run starts the agent's main loop. It returns when ctx is done or the
// request channel closes.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.Info("[CollectAgent] Starting...")

	msgChan, err := a.broker.Subscribe(ctx, contracts.TopicCollectRequests, a.group)
	if err != nil {
		return fmt.Errorf("failed to subscribe to %s: %w", contracts.TopicCollectRequests, err)
	}

	a.logger.Info("[CollectAgent] Listening for requests on '%s' topic...", contracts.TopicCollectRequests)

	for {
		select {
		case msg, ok := <-msgChan:
			if !ok {
				a.logger.Info("[CollectAgent] Message channel closed, shutting down")
				return nil
			}

			if err := a.processRequest(ctx, msg); err != nil {
				a.logger.Error("[CollectAgent] Error processing request: %v", err)
			}

		case <-ctx.Done():
			a.logger.Info("[CollectAgent] Context cancelled, shutting down")
			return ctx.Err()
		}
	}
}

// processRequest runs one collect request. A failed collection is announced
// on the snapshots topic with its error and also returned.
func (a *Agent) processRequest(ctx context.Context, msg broker.Message) error {
	var request contracts.CollectRequest
	if err := json.Unmarshal(msg.Value, &request); err != nil {
		return fmt.Errorf("failed to unmarshal request: %w", err)
	}

	a.logger.Info("[CollectAgent] Processing request %s for %s", request.RequestID, request.Location)

	c, ok := a.collectors[request.Source]
	if !ok {
		err := fmt.Errorf("no collector for source %q", request.Source)
		a.publishFailure(ctx, request, err)
		return err
	}

	if _, err := c.collect(ctx, request.RequestID, request.Location, request.CollectArtifacts); err != nil {
		a.publishFailure(ctx, request, err)
		return fmt.Errorf("request %s failed: %w", request.RequestID, err)
	}
	return nil
}

func (a *Agent) publishFailure(ctx context.Context, request contracts.CollectRequest, cause error) {
	notice := contracts.SnapshotNotice{
		RequestID: request.RequestID,
		Source:    request.Source,
		Location:  request.Location,
		Error:     cause.Error(),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	if err := broker.PublishJSON(ctx, a.broker, contracts.TopicSnapshots, request.RequestID, notice); err != nil {
		a.logger.Error("[CollectAgent] Failed to publish failure notice: %v", err)
	}
}

// NewRequest builds a collect request with a fresh request id.
func NewRequest(source, location string, collectArtifacts bool) contracts.CollectRequest {
	return contracts.CollectRequest{
		RequestID:        uuid.NewString(),
		Source:           source,
		Location:         location,
		CollectArtifacts: collectArtifacts,
		Timestamp:        time.Now().UTC().Format(time.RFC3339),
	}
}

// Submit publishes request for an agent to pick up.
func Submit(ctx context.Context, b broker.Broker, request contracts.CollectRequest) error {
	return broker.PublishJSON(ctx, b, contracts.TopicCollectRequests, request.RequestID, request)
}
