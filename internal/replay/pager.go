package replay

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/wordwrap"
)

var (
	pagerTitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15")).
			Background(lipgloss.Color("62")).
			Padding(0, 1)

	pagerRuleStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	pagerHitStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	pagerMissStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	pagerLiveStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10"))
)

// settleDelay lets a transcript rewrite finish before it is re-read.
const settleDelay = 100 * time.Millisecond

type pager struct {
	title string
}

func newPager(title string) *pager {
	return &pager{title: title}
}

func (p *pager) run(content string) error {
	_, err := tea.NewProgram(&pagerModel{title: p.title, content: content},
		tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

// runLive watches the transcript's directory, since the recorder replaces the
// file by rename and a watch on the file itself would go stale.
func (p *pager) runLive(path string, render func() (string, error)) error {
	content, err := render()
	if err != nil {
		return err
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	m := &pagerModel{
		title:   p.title,
		content: content,
		render:  render,
		watcher: watcher,
		target:  path,
	}
	_, err = tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion()).Run()
	return err
}

type transcriptChangedMsg struct{}

type pagerModel struct {
	viewport viewport.Model
	title    string
	content  string
	wrapped  string
	ready    bool

	// live mode
	render  func() (string, error)
	watcher *fsnotify.Watcher
	target  string
	follow  bool

	prompting bool
	input     textinput.Model
	query     string
	hits      []int
	hit       int
}

func (m *pagerModel) live() bool { return m.watcher != nil }

func (m *pagerModel) Init() tea.Cmd {
	if m.live() {
		return m.wait()
	}
	return nil
}

// wait blocks until the watched transcript is written again.
func (m *pagerModel) wait() tea.Cmd {
	return func() tea.Msg {
		for {
			select {
			case ev, ok := <-m.watcher.Events:
				if !ok {
					return nil
				}
				if filepath.Base(ev.Name) == filepath.Base(m.target) && ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
					time.Sleep(settleDelay)
					return transcriptChangedMsg{}
				}
			case _, ok := <-m.watcher.Errors:
				if !ok {
					return nil
				}
			}
		}
	}
}

func (m *pagerModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if m.prompting {
		return m.updatePrompt(msg)
	}

	var cmds []tea.Cmd
	switch msg := msg.(type) {
	case transcriptChangedMsg:
		if content, err := m.render(); err == nil {
			offset := m.viewport.YOffset
			m.setContent(content)
			if m.follow {
				m.viewport.GotoBottom()
			} else {
				m.viewport.SetYOffset(offset)
			}
		}
		cmds = append(cmds, m.wait())

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "esc":
			if m.query == "" {
				return m, tea.Quit
			}
			m.clearSearch()
		case "g":
			m.follow = false
			m.viewport.GotoTop()
		case "G":
			m.viewport.GotoBottom()
		case "f", "F":
			if m.live() {
				m.follow = !m.follow
				if m.follow {
					m.viewport.GotoBottom()
				}
			}
		case "/":
			m.prompting = true
			m.input = textinput.New()
			m.input.Placeholder = "Search..."
			m.input.CharLimit = 100
			m.input.Width = 40
			m.input.SetValue(m.query)
			m.input.Focus()
			return m, textinput.Blink
		case "n":
			m.step(1)
		case "N":
			m.step(-1)
		}

	case tea.WindowSizeMsg:
		height := msg.Height - 2 // header and footer
		if !m.ready {
			m.viewport = viewport.New(msg.Width, height)
			m.viewport.YPosition = 1
			m.ready = true
		} else {
			m.viewport.Width = msg.Width
			m.viewport.Height = height
		}
		m.setContent(m.content)
	}

	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m *pagerModel) updatePrompt(msg tea.Msg) (tea.Model, tea.Cmd) {
	if key, ok := msg.(tea.KeyMsg); ok {
		switch key.String() {
		case "enter":
			m.prompting = false
			m.query = m.input.Value()
			m.search()
			m.jump()
			return m, nil
		case "esc", "ctrl+c":
			m.prompting = false
			m.clearSearch()
			return m, nil
		}
	}
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m *pagerModel) setContent(content string) {
	m.content = content
	m.wrapped = wrapContent(content, m.viewport.Width)
	m.viewport.SetContent(m.wrapped)
	if m.query != "" {
		m.search()
	}
}

// search records the wrapped-line indexes containing the query.
func (m *pagerModel) search() {
	m.hits = m.hits[:0]
	m.hit = 0
	if m.query == "" {
		return
	}
	q := strings.ToLower(m.query)
	for i, line := range strings.Split(m.wrapped, "\n") {
		if strings.Contains(strings.ToLower(line), q) {
			m.hits = append(m.hits, i)
		}
	}
}

func (m *pagerModel) clearSearch() {
	m.query = ""
	m.hits = nil
	m.hit = 0
}

func (m *pagerModel) step(delta int) {
	if len(m.hits) == 0 {
		return
	}
	m.hit = (m.hit + delta + len(m.hits)) % len(m.hits)
	m.jump()
}

// jump centers the current hit in the viewport.
func (m *pagerModel) jump() {
	if len(m.hits) == 0 {
		return
	}
	m.follow = false
	m.viewport.SetYOffset(m.hits[m.hit] - m.viewport.Height/2)
}

func (m *pagerModel) View() string {
	if !m.ready {
		return "\n  Loading..."
	}
	width := m.viewport.Width

	title := pagerTitleStyle.Render(m.title)
	header := title + pagerRuleStyle.Render(strings.Repeat("─", max(0, width-lipgloss.Width(title))))

	if m.prompting {
		return header + "\n" + m.viewport.View() + "\n" + pagerHitStyle.Render("/") + m.input.View()
	}

	var help string
	switch {
	case m.query != "" && len(m.hits) == 0:
		help = fmt.Sprintf(" %s │ /: search ", pagerMissStyle.Render("Pattern not found"))
	case len(m.hits) > 0:
		help = fmt.Sprintf(" %s │ n/N: next/prev │ esc: clear ",
			pagerHitStyle.Render(fmt.Sprintf("[%d/%d]", m.hit+1, len(m.hits))))
	case m.live():
		mode := "f: follow"
		if m.follow {
			mode = "f: stop following"
		}
		help = fmt.Sprintf(" %s │ q: quit │ /: search │ %s │ g/G: top/bottom ", pagerLiveStyle.Render("● LIVE"), mode)
	default:
		help = " q: quit │ /: search │ n/N: next/prev │ g/G: top/bottom "
	}
	info := fmt.Sprintf(" %3.f%% ", m.viewport.ScrollPercent()*100)
	fill := max(0, width-lipgloss.Width(help)-lipgloss.Width(info))
	footer := pagerRuleStyle.Render(help + strings.Repeat("─", fill) + info)

	return header + "\n" + m.viewport.View() + "\n" + footer
}

// wrapContent wraps lines wider than width. Timeline rows wrap within their
// content column so continuation lines stay aligned after the last "│".
func wrapContent(content string, width int) string {
	if width <= 0 {
		return content
	}
	var out []string
	for _, line := range strings.Split(content, "\n") {
		if lipgloss.Width(line) <= width {
			out = append(out, line)
			continue
		}
		cut := strings.LastIndex(line, "│")
		if cut < 0 {
			out = append(out, strings.Split(wordwrap.String(line, width), "\n")...)
			continue
		}
		cut += len("│")
		for cut < len(line) && line[cut] == ' ' {
			cut++
		}
		head := line[:cut]
		indent := strings.Repeat(" ", lipgloss.Width(head))
		body := strings.Split(wordwrap.String(line[cut:], max(20, width-len(indent))), "\n")
		out = append(out, head+body[0])
		for _, cont := range body[1:] {
			out = append(out, indent+cont)
		}
	}
	return strings.Join(out, "\n")
}
