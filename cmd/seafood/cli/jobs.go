package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/hibiken/asynq"

	"github.com/seafood-erp/seafood-erp/jobs"
)

// Triggerer enqueues a job by name. *jobs.Client satisfies it.
type Triggerer interface {
	Trigger(ctx context.Context, name string, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Inspector reads queue state. *asynq.Inspector satisfies it.
type Inspector interface {
	GetQueueInfo(queue string) (*asynq.QueueInfo, error)
	ListScheduledTasks(queue string, opts ...asynq.ListOption) ([]*asynq.TaskInfo, error)
}

// JobsCLI wraps manual management helpers for Asynq jobs.
type JobsCLI struct {
	client    Triggerer
	inspector Inspector
	closers   []io.Closer
}

// NewJobsCLI initialises the CLI helpers using the provided Redis address.
func NewJobsCLI(redisAddr string) *JobsCLI {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client := jobs.NewClient(opts)
	inspector := asynq.NewInspector(opts)
	return &JobsCLI{client: client, inspector: inspector, closers: []io.Closer{client, inspector}}
}

// NewJobsCLIWith builds the helpers on explicit collaborators.
func NewJobsCLIWith(client Triggerer, inspector Inspector) *JobsCLI {
	return &JobsCLI{client: client, inspector: inspector}
}

// Close releases underlying resources.
func (c *JobsCLI) Close() error {
	var err error
	for _, closer := range c.closers {
		if closeErr := closer.Close(); closeErr != nil {
			err = closeErr
		}
	}
	return err
}

// JobsOptions carries the flags shared by the jobs subcommands.
type JobsOptions struct {
	Name       string
	Scheduled  int
	JSONOutput bool
	Stdout     io.Writer
	Stderr     io.Writer
}

func (o *JobsOptions) defaults() {
	if o.Stdout == nil {
		o.Stdout = os.Stdout
	}
	if o.Stderr == nil {
		o.Stderr = os.Stderr
	}
}

// TriggerCommand enqueues one job and prints its id. Exit code 2 means a usage error.
func (c *JobsCLI) TriggerCommand(ctx context.Context, opts JobsOptions) int {
	opts.defaults()
	if opts.Name == "" {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: job name required (low-stock, warmup, cleanup)")
		return 2
	}
	if c == nil || c.client == nil {
		_, _ = fmt.Fprintln(opts.Stderr, "jobs trigger: client not configured")
		return 1
	}
	info, err := c.client.Trigger(ctx, opts.Name)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs trigger: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return encode(opts, map[string]string{"id": info.ID, "type": info.Type, "queue": info.Queue})
	}
	_, _ = fmt.Fprintf(opts.Stdout, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
	return 0
}

// StatsReport is printed by StatsCommand.
type StatsReport struct {
	Queue     jobs.QueueStats `json:"queue"`
	Scheduled []ScheduledTask `json:"scheduled,omitempty"`
}

// ScheduledTask describes a task waiting for its process time.
type ScheduledTask struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	At   string `json:"next_process_at"`
}

// StatsCommand prints the default queue statistics and, when opts.Scheduled > 0, that many
// scheduled tasks.
func (c *JobsCLI) StatsCommand(ctx context.Context, opts JobsOptions) int {
	opts.defaults()
	report, err := c.Stats(ctx, opts.Scheduled)
	if err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "jobs stats: %v\n", err)
		return 1
	}
	if opts.JSONOutput {
		return encode(opts, report)
	}
	tw := tabwriter.NewWriter(opts.Stdout, 0, 4, 2, ' ', 0)
	q := report.Queue
	_, _ = fmt.Fprintf(tw, "queue\t%s\n", q.Queue)
	_, _ = fmt.Fprintf(tw, "pending\t%d\nactive\t%d\nscheduled\t%d\nretry\t%d\narchived\t%d\n", q.Pending, q.Active, q.Scheduled, q.Retry, q.Archived)
	_, _ = fmt.Fprintf(tw, "processed today\t%d\nfailed today\t%d\n", q.Processed, q.Failed)
	for _, task := range report.Scheduled {
		_, _ = fmt.Fprintf(tw, "next\t%s %s at %s\n", task.Type, task.ID, task.At)
	}
	_ = tw.Flush()
	return 0
}

// Stats reads queue statistics plus up to scheduled upcoming tasks.
func (c *JobsCLI) Stats(ctx context.Context, scheduled int) (StatsReport, error) {
	if c == nil || c.inspector == nil {
		return StatsReport{}, errors.New("jobs cli: inspector not configured")
	}
	if err := ctx.Err(); err != nil {
		return StatsReport{}, err
	}
	stats, err := jobs.Stats(c.inspector)
	if err != nil {
		return StatsReport{}, err
	}
	report := StatsReport{Queue: stats}
	if scheduled <= 0 {
		return report, nil
	}
	infos, err := c.inspector.ListScheduledTasks(jobs.QueueDefault, asynq.PageSize(scheduled), asynq.Page(1))
	if err != nil {
		return StatsReport{}, err
	}
	for _, info := range infos {
		report.Scheduled = append(report.Scheduled, ScheduledTask{
			ID:   info.ID,
			Type: info.Type,
			At:   info.NextProcessAt.UTC().Format("2006-01-02T15:04:05Z"),
		})
	}
	return report, nil
}

func encode(opts JobsOptions, v any) int {
	enc := json.NewEncoder(opts.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		_, _ = fmt.Fprintf(opts.Stderr, "encode json: %v\n", err)
		return 1
	}
	return 0
}
