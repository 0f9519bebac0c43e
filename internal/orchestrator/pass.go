package orchestrator

import (
	"context"
	"strings"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/treewriter/internal/errors"
	"github.com/ShayCichocki/treewriter/internal/llm"
	"github.com/ShayCichocki/treewriter/internal/prompts"
)

// job is one leaf's prompt, rendered on the orchestrating goroutine before
// the pass fans out.
type job struct {
	id        string
	prompt    string
	renderErr error
}

type outcome struct {
	reply string
	err   error
}

func (p *Pipeline) newJob(id, tmpl string, vars map[string]any) job {
	prompt, err := prompts.Render(tmpl, vars)
	return job{id: id, prompt: prompt, renderErr: err}
}

// runPass calls c once per job with at most p.workers calls in flight.
// Workers only write their own slot of the returned slice, so the caller
// sees outcomes in job order regardless of completion order. Failures are
// wrapped as *errors.GenerationError and logged; they never stop the pass.
func (p *Pipeline) runPass(ctx context.Context, phase Phase, stage string, c llm.Completer, jobs []job) []outcome {
	log := p.logger.With("phase", string(phase))
	log.Info("phase started", "leaves", len(jobs), "workers", p.workers)
	p.events.Emit(Event{Type: EventPhaseStarted, Phase: phase, Total: len(jobs)})

	out := make([]outcome, len(jobs))
	var done atomic.Int64
	ctx = llm.WithStage(ctx, stage)

	var g errgroup.Group
	g.SetLimit(p.workers)
	for i, j := range jobs {
		g.Go(func() error {
			reply, err := "", j.renderErr
			if err == nil {
				reply, err = c.Complete(ctx, j.prompt)
			}
			if err == nil && strings.TrimSpace(reply) == "" {
				err = llm.ErrEmptyCompletion
			}

			n := int(done.Add(1))
			if err != nil {
				err = errors.NewGenerationError(j.id, stage, err)
				log.Warn("leaf failed, skipping", "node", j.id, "error", err)
				p.events.Emit(Event{Type: EventLeafFailed, Phase: phase, NodeID: j.id, Done: n, Total: len(jobs), Error: err})
				out[i] = outcome{err: err}
				return nil
			}

			log.Debug("leaf done", "node", j.id, "chars", len(reply))
			p.events.Emit(Event{Type: EventLeafCompleted, Phase: phase, NodeID: j.id, Done: n, Total: len(jobs)})
			out[i] = outcome{reply: reply}
			return nil
		})
	}
	_ = g.Wait()

	p.events.Emit(Event{Type: EventPhaseCompleted, Phase: phase, Done: len(jobs), Total: len(jobs)})
	return out
}
