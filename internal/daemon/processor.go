package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/clearlift/internal/control"
)

// ProcessorConfig holds runtime configuration for job processing.
type ProcessorConfig struct {
	Dirs       DirConfig
	Controller *control.Controller
	// Limiter paces presses reaching the elevator. Nil means unlimited.
	Limiter *rate.Limiter
}

// Processor handles job lifecycle transitions.
type Processor struct {
	cfg ProcessorConfig
}

// NewProcessor creates a processor with the given configuration.
func NewProcessor(cfg ProcessorConfig) *Processor {
	return &Processor{cfg: cfg}
}

// Process handles a single job file through its full lifecycle:
// read → validate → move to processing → execute → write result to outbox.
func (p *Processor) Process(ctx context.Context, jobPath string) error {
	// Reject symlinks before reading so inbox entries cannot point elsewhere.
	fi, err := os.Lstat(jobPath)
	if err != nil {
		return fmt.Errorf("stat job file: %w", err)
	}
	if fi.Mode()&os.ModeSymlink != 0 {
		return fmt.Errorf("rejected symlink: %s", filepath.Base(jobPath))
	}

	data, err := os.ReadFile(jobPath)
	if err != nil {
		return fmt.Errorf("read job file: %w", err)
	}

	var job Job
	if err := json.Unmarshal(data, &job); err != nil {
		p.reject(jobPath)
		return p.writeFailedResult(idFromPath(jobPath), "", fmt.Sprintf("invalid JSON: %v", err))
	}

	if err := ValidateJob(&job); err != nil {
		p.reject(jobPath)
		id := job.ID
		if !validID.MatchString(id) {
			id = idFromPath(jobPath)
		}
		return p.writeFailedResult(id, job.Type, fmt.Sprintf("validation failed: %v", err))
	}

	// Move to processing state. Uses moveFile to handle systemd bind mounts (EXDEV).
	processingPath := filepath.Join(p.cfg.Dirs.ProcessingDir(), job.ID+".json")
	if err := moveFile(jobPath, processingPath); err != nil {
		return fmt.Errorf("move to processing: %w", err)
	}

	result, err := p.execute(ctx, &job)
	if err != nil {
		result = &Result{
			ID:          job.ID,
			Type:        job.Type,
			Status:      ResultFailed,
			Error:       err.Error(),
			CompletedAt: time.Now().UTC(),
		}
	}

	if err := p.writeResult(result); err != nil {
		return fmt.Errorf("write result: %w", err)
	}

	_ = os.Remove(processingPath)
	return nil
}

// execute dispatches the job to the controller.
func (p *Processor) execute(ctx context.Context, job *Job) (*Result, error) {
	if p.cfg.Controller == nil {
		return nil, fmt.Errorf("no controller configured")
	}

	result := &Result{ID: job.ID, Type: job.Type}
	switch job.Type {
	case JobTypeCheck:
		res, err := p.cfg.Controller.Check(control.CheckRequest{Clearance: job.Clearance, Floor: job.Floor})
		if err != nil {
			return nil, err
		}
		result.Check = &res
		result.Status = ResultDone

	case JobTypePress:
		if p.cfg.Limiter != nil {
			if err := p.cfg.Limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("rate limit: %w", err)
			}
		}
		out, err := p.cfg.Controller.Press(ctx, control.PressRequest{
			AgentID:    job.AgentID,
			Clearance:  job.Clearance,
			StartFloor: job.StartFloor,
			Floor:      job.Floor,
		})
		if err != nil {
			return nil, err
		}
		result.Outcome = &out
		result.Status = ResultDenied
		if out.Granted {
			result.Status = ResultGranted
		}

	default:
		return nil, fmt.Errorf("unsupported job type: %s", job.Type)
	}

	result.CompletedAt = time.Now().UTC()
	return result, nil
}

// reject moves an unusable request out of the inbox so it is not rescanned.
func (p *Processor) reject(jobPath string) {
	dst := filepath.Join(p.cfg.Dirs.RejectedDir(), filepath.Base(jobPath))
	if err := moveFile(jobPath, dst); err != nil {
		fmt.Fprintf(os.Stderr, "daemon: reject %s: %v\n", filepath.Base(jobPath), err)
	}
}

// writeResult writes a result to the outbox directory atomically.
func (p *Processor) writeResult(r *Result) error {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal result: %w", err)
	}

	filename := r.ID + ".json"
	tmpPath := filepath.Join(p.cfg.Dirs.Outbox, filename+".tmp")
	finalPath := filepath.Join(p.cfg.Dirs.Outbox, filename)

	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return fmt.Errorf("write temp: %w", err)
	}
	return os.Rename(tmpPath, finalPath)
}

// writeFailedResult writes a minimal failed result when the job can't be run.
func (p *Processor) writeFailedResult(id, jobType, errMsg string) error {
	if id == "" {
		id = fmt.Sprintf("unknown-%d", time.Now().UnixNano())
	}
	r := &Result{
		ID:          id,
		Type:        jobType,
		Status:      ResultFailed,
		Error:       errMsg,
		CompletedAt: time.Now().UTC(),
	}
	return p.writeResult(r)
}

// idFromPath derives a safe result ID from the request file name.
func idFromPath(path string) string {
	name := filepath.Base(path)
	id := name[:len(name)-len(filepath.Ext(name))]
	if !validID.MatchString(id) {
		return ""
	}
	return id
}
