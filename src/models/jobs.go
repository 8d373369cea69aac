package models

import (
	"context"
	"time"

	"nodegraph/src/domain"
	"nodegraph/src/domain/entities"
	"nodegraph/src/nodes"
)

type JobStatus string

const (
	JobPending JobStatus = "pending"
	JobRunning JobStatus = "running"
	JobDone    JobStatus = "done"
	JobFailed  JobStatus = "failed"
)

type JobProps struct {
	Kind      string         `json:"kind"`
	Status    JobStatus      `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Worker    string         `json:"worker,omitempty"`
	ClaimedAt string         `json:"claimedAt,omitempty"`
	Error     string         `json:"error,omitempty"`
}

var Job = nodes.DefineModel[JobProps]("Job", nil)

// Jobs is a small work queue on top of Job nodes. Several workers may claim concurrently;
// the adapter guarantees a pending job is handed to only one of them.
type Jobs struct {
	vc     domain.ViewerContext
	worker string
	now    func() time.Time
}

func NewJobs(vc domain.ViewerContext, worker string) *Jobs {
	return &Jobs{vc: vc, worker: worker, now: time.Now}
}

func (j *Jobs) Enqueue(ctx context.Context, kind string, payload map[string]any) (*nodes.Node, error) {
	return Job.Create(ctx, j.vc, JobProps{Kind: kind, Status: JobPending, Payload: payload}, nil)
}

// ClaimNext returns the oldest pending job of kind, now running, or nil when the queue is empty.
func (j *Jobs) ClaimNext(ctx context.Context, kind string) (*nodes.Node, error) {
	return Job.ClaimNext(ctx, j.vc,
		domain.PropsFilter{"kind": kind, "status": string(JobPending)},
		entities.Props{
			"status":    string(JobRunning),
			"worker":    j.worker,
			"claimedAt": j.now().UTC().Format(time.RFC3339Nano),
		}, nil)
}

func (j *Jobs) Complete(ctx context.Context, job *nodes.Node) error {
	if err := job.SetProps(entities.Props{"status": string(JobDone), "error": ""}); err != nil {
		return err
	}
	_, err := job.Save(ctx)
	return err
}

func (j *Jobs) Fail(ctx context.Context, job *nodes.Node, cause error) error {
	if err := job.SetProps(entities.Props{"status": string(JobFailed), "error": cause.Error()}); err != nil {
		return err
	}
	_, err := job.Save(ctx)
	return err
}
