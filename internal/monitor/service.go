package monitor

import (
	"context"
	"strconv"
	"strings"

	"github.com/stockagent/stockagent/internal/deploy"
)

// ServiceStatus is what systemd reports about one unit.
type ServiceStatus struct {
	Name    string
	State   string
	Active  bool
	Status  string
	Journal []string
}

// ServiceInspector asks systemctl and journalctl about a unit.
type ServiceInspector struct {
	runner deploy.Runner
	lines  int
}

func NewServiceInspector(runner deploy.Runner, journalLines int) *ServiceInspector {
	if journalLines <= 0 {
		journalLines = 20
	}
	return &ServiceInspector{runner: runner, lines: journalLines}
}

// Inspect never fails: commands that cannot run leave their fields empty.
func (i *ServiceInspector) Inspect(ctx context.Context, name string) ServiceStatus {
	st := ServiceStatus{Name: name, State: "unknown"}

	// is-active exits non-zero for inactive units but still prints the state.
	out, _ := i.runner.Run(ctx, "systemctl", "is-active", name)
	if state := strings.TrimSpace(string(out)); state != "" {
		st.State = firstLine(state)
	}
	st.Active = st.State == "active"

	out, _ = i.runner.Run(ctx, "systemctl", "status", name, "--no-pager", "--lines=0")
	st.Status = strings.TrimRight(string(out), "\n")

	out, err := i.runner.Run(ctx, "journalctl", "-u", name, "-n", strconv.Itoa(i.lines), "--no-pager", "-o", "short-iso")
	if err == nil {
		st.Journal = nonEmptyLines(string(out))
	}
	return st
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}

func nonEmptyLines(s string) []string {
	var out []string
	for _, line := range strings.Split(s, "\n") {
		if strings.TrimSpace(line) != "" {
			out = append(out, line)
		}
	}
	return out
}
