package deploy

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/stockagent/stockagent/internal/console"
)

// Step is one named unit of a deployment.
type Step struct {
	Name string
	Run  func(ctx context.Context) error
}

// Result describes what a Plan did.
type Result struct {
	Completed  []string
	FailedStep string
	Err        error
	StartedAt  time.Time
	FinishedAt time.Time
}

// Succeeded reports whether every step ran without error.
func (r Result) Succeeded() bool {
	return r.Err == nil
}

// Plan runs steps in order. The first failing step stops the plan; later
// steps never run.
type Plan struct {
	steps []Step
	out   *console.Printer
	now   func() time.Time
}

func NewPlan(out *console.Printer, steps ...Step) *Plan {
	if out == nil {
		out = console.Discard
	}
	return &Plan{steps: steps, out: out, now: time.Now}
}

// Names lists the steps in execution order.
func (p *Plan) Names() []string {
	names := make([]string, len(p.steps))
	for i, s := range p.steps {
		names[i] = s.Name
	}
	return names
}

func (p *Plan) Execute(ctx context.Context) Result {
	res := Result{StartedAt: p.now()}
	total := len(p.steps)

	for i, step := range p.steps {
		if err := ctx.Err(); err != nil {
			res.FailedStep = step.Name
			res.Err = err
			break
		}

		p.out.Step("[%d/%d] %s", i+1, total, step.Name)
		started := p.now()
		if err := step.Run(ctx); err != nil {
			p.out.Error("%s: %v", step.Name, err)
			slog.Error("deploy step failed", "step", step.Name, "error", err)
			res.FailedStep = step.Name
			res.Err = fmt.Errorf("%s: %w", step.Name, err)
			break
		}
		slog.Debug("deploy step finished", "step", step.Name, "duration", p.now().Sub(started))
		res.Completed = append(res.Completed, step.Name)
	}

	res.FinishedAt = p.now()
	return res
}
