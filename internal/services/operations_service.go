package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"solarcli/internal/infrastructure"
	"solarcli/internal/operations"
)

const maxOperationHistory = 20

// OperationService runs the pipeline through the operation manager and keeps
// the outcome of recent runs
type OperationService struct {
	manager  *operations.Manager
	analysis *AnalysisService
	logger   *slog.Logger

	mu      sync.RWMutex
	running string
	history map[string]*operations.OperationResponse
	order   []string
}

// StepInfo describes a registered pipeline step
type StepInfo struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Dependencies []string `json:"dependencies"`
}

// NewOperationService creates the service. analysis may be nil; when set it
// is refreshed after every successful run.
func NewOperationService(manager *operations.Manager, analysis *AnalysisService, logger *slog.Logger) *OperationService {
	return &OperationService{
		manager:  manager,
		analysis: analysis,
		logger:   infrastructure.WithComponent(logger, "operation_service"),
		history:  make(map[string]*operations.OperationResponse),
	}
}

// Run executes the pipeline and waits for it to finish
func (s *OperationService) Run(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	id, err := s.reserve(req.ID)
	if err != nil {
		return nil, err
	}
	req.ID = id
	return s.execute(ctx, req)
}

// Start executes the pipeline in the background and returns its ID.
// Only one run may be active at a time.
func (s *OperationService) Start(ctx context.Context, req operations.OperationRequest) (string, error) {
	id, err := s.reserve(req.ID)
	if err != nil {
		return "", err
	}
	req.ID = id

	go func() {
		// The run outlives the request that started it.
		_, _ = s.execute(context.WithoutCancel(ctx), req)
	}()
	return id, nil
}

func (s *OperationService) reserve(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running != "" {
		return "", fmt.Errorf("%w: %s", ErrOperationRunning, s.running)
	}
	s.running = id
	s.record(&operations.OperationResponse{
		ID:     id,
		Status: operations.OperationStatusPending,
	})
	return id, nil
}

func (s *OperationService) execute(ctx context.Context, req operations.OperationRequest) (*operations.OperationResponse, error) {
	s.logger.InfoContext(ctx, "operation requested",
		slog.String("id", req.ID),
		slog.String("mode", req.Mode),
		slog.Any("parameters", req.Parameters))

	resp, err := s.manager.Execute(ctx, req)

	s.mu.Lock()
	s.running = ""
	s.record(resp)
	s.mu.Unlock()

	if err != nil {
		s.logger.ErrorContext(ctx, "operation failed",
			slog.String("id", req.ID),
			slog.String("error", err.Error()))
		return resp, fmt.Errorf("operation %s: %w", req.ID, err)
	}

	s.logger.InfoContext(ctx, "operation executed",
		slog.String("id", resp.ID),
		slog.String("status", string(resp.Status)),
		slog.Duration("duration", resp.Duration))

	if s.analysis != nil {
		if _, err := s.analysis.Refresh(ctx); err != nil {
			s.logger.WarnContext(ctx, "analysis refresh after operation failed",
				slog.String("id", resp.ID),
				slog.String("error", err.Error()))
		}
	}
	return resp, nil
}

// record stores resp, evicting the oldest entry beyond the history limit.
// Callers hold s.mu.
func (s *OperationService) record(resp *operations.OperationResponse) {
	if resp == nil {
		return
	}
	if _, exists := s.history[resp.ID]; !exists {
		s.order = append(s.order, resp.ID)
	}
	s.history[resp.ID] = resp

	for len(s.order) > maxOperationHistory {
		delete(s.history, s.order[0])
		s.order = s.order[1:]
	}
}

// Status returns the live state of a running operation or the outcome of a
// recent one
func (s *OperationService) Status(ctx context.Context, id string) (*operations.OperationResponse, error) {
	if state, err := s.manager.GetOperation(id); err == nil {
		return operations.NewOperationResponse(state), nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if resp, ok := s.history[id]; ok {
		return resp, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrOperationNotFound, id)
}

// List returns recent operations, oldest first
func (s *OperationService) List(ctx context.Context) []*operations.OperationResponse {
	s.mu.RLock()
	ids := append([]string(nil), s.order...)
	s.mu.RUnlock()

	out := make([]*operations.OperationResponse, 0, len(ids))
	for _, id := range ids {
		if resp, err := s.Status(ctx, id); err == nil {
			out = append(out, resp)
		}
	}
	return out
}

// Cancel stops a running operation
func (s *OperationService) Cancel(ctx context.Context, id string) error {
	if err := s.manager.CancelOperation(id); err != nil {
		if errors.Is(err, operations.ErrOperationNotFound) {
			return fmt.Errorf("%w: %s", ErrOperationNotFound, id)
		}
		return err
	}
	s.logger.InfoContext(ctx, "operation cancelled", slog.String("id", id))
	return nil
}

// Steps lists the registered pipeline steps in execution order
func (s *OperationService) Steps() ([]StepInfo, error) {
	ordered, err := s.manager.GetRegistry().GetDependencyOrder()
	if err != nil {
		return nil, err
	}
	out := make([]StepInfo, 0, len(ordered))
	for _, step := range ordered {
		out = append(out, StepInfo{
			ID:           step.ID(),
			Name:         step.Name(),
			Dependencies: step.GetDependencies(),
		})
	}
	return out, nil
}
