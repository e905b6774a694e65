package replay

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/vinayprograms/court/internal/session"
)

// AgentStats aggregates one agent's reasoning calls.
type AgentStats struct {
	Calls     int
	TotalMs   int64
	TokensIn  int
	TokensOut int
}

// AvgMs is the mean call latency.
func (a AgentStats) AvgMs() int64 {
	if a.Calls == 0 {
		return 0
	}
	return a.TotalMs / int64(a.Calls)
}

// Stats holds aggregate statistics for a transcript.
type Stats struct {
	TotalDurationMs int64
	Iterations      int
	Rejections      int
	Lookups         int
	DraftsRejected  int
	Agents          map[string]*AgentStats

	// Words contributed per side across all iterations.
	EvidenceWords map[string]int
}

// TokensIn sums input tokens across agents.
func (s *Stats) TokensIn() int {
	n := 0
	for _, a := range s.Agents {
		n += a.TokensIn
	}
	return n
}

// TokensOut sums output tokens across agents.
func (s *Stats) TokensOut() int {
	n := 0
	for _, a := range s.Agents {
		n += a.TokensOut
	}
	return n
}

// ComputeStats derives statistics from transcript events.
func ComputeStats(sess *session.Session) *Stats {
	stats := &Stats{
		Agents:        make(map[string]*AgentStats),
		EvidenceWords: make(map[string]int),
	}

	var first, last time.Time
	for _, e := range sess.Events {
		if first.IsZero() || e.Timestamp.Before(first) {
			first = e.Timestamp
		}
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}

		switch e.Type {
		case session.EventLLMCall:
			a := stats.Agents[e.Agent]
			if a == nil {
				a = &AgentStats{}
				stats.Agents[e.Agent] = a
			}
			a.Calls++
			if e.Meta != nil {
				a.TotalMs += e.Meta.LatencyMs
				a.TokensIn += e.Meta.TokensIn
				a.TokensOut += e.Meta.TokensOut
			}
		case session.EventLookup:
			stats.Lookups++
		case session.EventEvidence:
			if e.Meta != nil {
				stats.EvidenceWords[e.Agent] += e.Meta.Words
			}
		case session.EventVerdict:
			if e.Meta != nil && e.Meta.Verdict == "continue" {
				stats.Rejections++
			}
		case session.EventIterationEnd:
			if e.Iteration > stats.Iterations {
				stats.Iterations = e.Iteration
			}
		case session.EventDraftRejected:
			stats.DraftsRejected++
		}
	}
	if !first.IsZero() {
		stats.TotalDurationMs = last.Sub(first).Milliseconds()
	}
	return stats
}

// PrintStats writes a statistics block.
func PrintStats(w io.Writer, stats *Stats) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("STATISTICS"))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Duration:   "), valueStyle.Render(ms(stats.TotalDurationMs)))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Iterations: "),
		valueStyle.Render(fmt.Sprintf("%d (%d rejected)", stats.Iterations, stats.Rejections)))
	fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Lookups:    "), valueStyle.Render(fmt.Sprintf("%d", stats.Lookups)))
	for _, side := range []string{"advocate", "critic"} {
		if n, ok := stats.EvidenceWords[side]; ok {
			fmt.Fprintf(w, "%s %s\n", labelStyle.Render(fmt.Sprintf("%-11s ", side+":")),
				agentStyle(side).Render(fmt.Sprintf("%d words", n)))
		}
	}
	if stats.DraftsRejected > 0 {
		fmt.Fprintf(w, "%s %s\n", labelStyle.Render("Redrafts:   "), warnStyle.Render(fmt.Sprintf("%d", stats.DraftsRejected)))
	}

	if len(stats.Agents) == 0 {
		return
	}
	names := make([]string, 0, len(stats.Agents))
	for name := range stats.Agents {
		names = append(names, name)
	}
	sort.Strings(names)

	fmt.Fprintln(w)
	fmt.Fprintln(w, titleStyle.Render("REASONING CALLS"))
	for _, name := range names {
		a := stats.Agents[name]
		fmt.Fprintf(w, "  %s %s\n", agentStyle(name).Render(fmt.Sprintf("%-12s", name)),
			dimStyle.Render(fmt.Sprintf("%d calls, avg %s, %d→%d tokens", a.Calls, ms(a.AvgMs()), a.TokensIn, a.TokensOut)))
	}
	fmt.Fprintf(w, "  %s %s\n", labelStyle.Render(fmt.Sprintf("%-12s", "total")),
		valueStyle.Render(fmt.Sprintf("%d→%d tokens", stats.TokensIn(), stats.TokensOut())))
}
