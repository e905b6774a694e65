package replay

import (
	"fmt"
	"time"

	"github.com/vinayprograms/court/internal/session"
)

// formatEvent writes one timeline row, plus content blocks at higher verbosity.
func (r *Replayer) formatEvent(event *session.Event) {
	seq := seqStyle.Render(fmt.Sprintf("%d", event.SeqID))
	ts := timeStyle.Render(event.Timestamp.Format("15:04:05.000"))
	row := func(text string) {
		fmt.Fprintf(r.output, "%s │ %s │ %s\n", seq, ts, text)
	}
	agent := agentStyle(event.Agent).Render(event.Agent)

	switch event.Type {
	case session.EventRunStart:
		row(titleStyle.Render("HEARING OPENED ") + valueStyle.Render(event.Content))

	case session.EventIterationStart:
		row(iterationStyle.Render(fmt.Sprintf("── ITERATION %d ──", event.Iteration)))

	case session.EventWorkerStart:
		if event.Content != "" {
			row(agent + dimStyle.Render(" started (revising on feedback)"))
		} else {
			row(agent + dimStyle.Render(" started"))
		}

	case session.EventLookup:
		row(agent + " " + lookupStyle.Render(fmt.Sprintf("lookup %q", event.Content)) + r.words(event))

	case session.EventLLMCall:
		text := agent + dimStyle.Render(" reasoning call")
		if m := event.Meta; m != nil {
			if m.Model != "" {
				text += " " + valueStyle.Render(m.Model)
			}
			text += dimStyle.Render(fmt.Sprintf(" (%d→%d tokens, %s)", m.TokensIn, m.TokensOut, ms(m.LatencyMs)))
		}
		row(text)
		if event.Error != "" {
			r.printError(event.Error)
		}
		if r.verbosity >= 2 && event.Meta != nil {
			fmt.Fprintf(r.output, "%s%s\n", contentPrefix, labelStyle.Render("prompt:"))
			r.printContent(event.Meta.Prompt)
			fmt.Fprintf(r.output, "%s%s\n", contentPrefix, labelStyle.Render("response:"))
			r.printContent(event.Meta.Response)
		}

	case session.EventEvidence:
		row(agent + valueStyle.Render(" appended evidence") + r.words(event))
		if r.verbosity >= 1 {
			r.printContent(event.Content)
		}

	case session.EventWorkerEnd:
		if event.Error != "" {
			row(agent + errorStyle.Render(" failed"))
			r.printError(event.Error)
		} else {
			row(agent + dimStyle.Render(" finished in "+ms(event.DurationMs)))
		}

	case session.EventVerdict:
		verdict := ""
		if event.Meta != nil {
			verdict = event.Meta.Verdict
		}
		row(agent + " " + statusStyle(verdict).Render(verdictLabel(verdict)))
		if event.Content != "" {
			r.printContent(event.Content)
		}

	case session.EventIterationEnd:
		text := dimStyle.Render(fmt.Sprintf("iteration %d ended: %s in %s", event.Iteration, event.Content, ms(event.DurationMs)))
		row(text)
		if event.Error != "" {
			r.printError(event.Error)
		}

	case session.EventLoopEnd:
		row(iterationStyle.Render("── LOOP ENDED ── ") + statusStyle(event.Content).Render(
			fmt.Sprintf("%s after %d iteration(s)", event.Content, event.Iteration)))

	case session.EventSynthesisStart:
		row(agent + dimStyle.Render(" drafting verdict"))

	case session.EventDraftRejected:
		row(agent + warnStyle.Render(" draft does not conform") + r.words(event))
		r.printContent(event.Content)

	case session.EventPersisted:
		row(agent + successStyle.Render(" verdict written ") + valueStyle.Render(event.Content) + r.words(event))

	case session.EventRunEnd:
		status := ""
		if event.Meta != nil {
			status = event.Meta.Verdict
		}
		row(titleStyle.Render("HEARING CLOSED ") + statusStyle(status).Render(status) +
			dimStyle.Render(" in "+ms(event.DurationMs)))
		if event.Error != "" {
			r.printError(event.Error)
		}

	default:
		row(dimStyle.Render(event.Type) + " " + event.Content)
	}
}

func (r *Replayer) words(event *session.Event) string {
	if event.Meta == nil || event.Meta.Words == 0 {
		return ""
	}
	return dimStyle.Render(fmt.Sprintf(" (%d words)", event.Meta.Words))
}

func verdictLabel(v string) string {
	switch v {
	case "accept":
		return "ACCEPT"
	case "continue":
		return "REJECT"
	default:
		return v
	}
}

func ms(n int64) string {
	return (time.Duration(n) * time.Millisecond).String()
}
