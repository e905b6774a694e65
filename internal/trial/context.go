package trial

import (
	"fmt"
	"strings"
)

// Reference is one lookup result handed to a worker.
type Reference struct {
	Query string
	Text  string
}

// contextBuilder renders typed agent inputs as XML-tagged sections so the
// model can tell instructions apart from gathered material.
type contextBuilder struct {
	topic      string
	sections   []section
	references []Reference
	task       string
}

type section struct {
	tag  string
	body string
}

func newContextBuilder(topic string) *contextBuilder {
	return &contextBuilder{topic: topic}
}

// add appends a tagged section; empty bodies are skipped.
func (b *contextBuilder) add(tag, body string) *contextBuilder {
	if strings.TrimSpace(body) != "" {
		b.sections = append(b.sections, section{tag: tag, body: body})
	}
	return b
}

func (b *contextBuilder) addReference(query, text string) *contextBuilder {
	b.references = append(b.references, Reference{Query: query, Text: text})
	return b
}

func (b *contextBuilder) setTask(task string) *contextBuilder {
	b.task = task
	return b
}

func (b *contextBuilder) build() string {
	var buf strings.Builder

	buf.WriteString(fmt.Sprintf("<trial topic=%q>\n", b.topic))

	if len(b.references) > 0 {
		buf.WriteString("\n<references>\n")
		for _, ref := range b.references {
			buf.WriteString(fmt.Sprintf("  <lookup query=%q>\n", ref.Query))
			text := ref.Text
			if strings.TrimSpace(text) == "" {
				text = "(no results)"
			}
			writeBlock(&buf, text)
			buf.WriteString("  </lookup>\n")
		}
		buf.WriteString("</references>\n")
	}

	for _, s := range b.sections {
		buf.WriteString(fmt.Sprintf("\n<%s>\n", s.tag))
		writeBlock(&buf, s.body)
		buf.WriteString(fmt.Sprintf("</%s>\n", s.tag))
	}

	if b.task != "" {
		buf.WriteString("\n<task>\n")
		writeBlock(&buf, b.task)
		buf.WriteString("</task>\n")
	}

	buf.WriteString("</trial>")
	return buf.String()
}

func writeBlock(buf *strings.Builder, text string) {
	buf.WriteString(text)
	if !strings.HasSuffix(text, "\n") {
		buf.WriteString("\n")
	}
}
