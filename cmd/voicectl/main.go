// Command voicectl is a terminal front end for maitre. Typed lines stand in
// for final speech fragments; the keyword gate runs locally and completed
// commands are sent to the server.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	flag "github.com/spf13/pflag"

	"maitre/internal/capture"
)

// Styling
var (
	docStyle = lipgloss.NewStyle().Margin(1, 2)

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Padding(0, 1)

	infoStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#0a84ff")).
			Padding(0, 1)

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#30d158")).
			Padding(0, 1)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(lipgloss.Color("#ff453a")).
			Padding(0, 1)

	dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
)

const historyLimit = 8

type historyEntry struct {
	command  string
	response string
	intent   string
	success  bool
}

// Model defines the application state
type Model struct {
	gate    capture.Gate
	input   textinput.Model
	spinner spinner.Model
	orders  table.Model
	client  *ApiClient
	preview string
	pending int
	history []historyEntry
	counts  string
	status  string
	error   string
}

type commandMsg struct {
	command string
	result  *CommandResult
	err     error
}

type ordersMsg struct {
	list *OrderList
	err  error
}

func initialModel(client *ApiClient, gate capture.Gate) Model {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("205"))

	ti := textinput.New()
	ti.Placeholder = `say "system ... over"`
	ti.Focus()
	ti.CharLimit = 256
	ti.Width = 60

	columns := []table.Column{
		{Title: "Order", Width: 8},
		{Title: "Status", Width: 12},
		{Title: "Total", Width: 10},
		{Title: "Note", Width: 24},
	}
	orders := table.New(
		table.WithColumns(columns),
		table.WithHeight(8),
	)

	return Model{
		gate:    gate,
		input:   ti,
		spinner: s,
		orders:  orders,
		client:  client,
		status:  "Waiting for the keyword...",
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, m.spinner.Tick, fetchOrders(m.client))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.Type {
		case tea.KeyCtrlC, tea.KeyEsc:
			return m, tea.Quit
		case tea.KeyCtrlR:
			m.gate.Reset()
			m.preview = ""
			m.status = "Stopped listening; partial command discarded."
			return m, nil
		case tea.KeyCtrlO:
			return m, fetchOrders(m.client)
		case tea.KeyEnter:
			text := m.input.Value()
			m.input.SetValue("")
			m.preview = ""
			update := m.gate.Feed(capture.Fragment{Text: text, Final: true})
			m.status = describe(update)
			for _, command := range update.Commands {
				m.pending++
				cmds = append(cmds, sendCommand(m.client, command))
			}
			return m, tea.Batch(cmds...)
		}

	case commandMsg:
		m.pending--
		if msg.err != nil {
			m.error = fmt.Sprintf("Error sending %q: %v", msg.command, msg.err)
			return m, nil
		}
		m.error = ""
		m.history = append(m.history, historyEntry{
			command:  msg.command,
			response: msg.result.Response,
			intent:   msg.result.Analysis.Intent,
			success:  msg.result.Success,
		})
		if len(m.history) > historyLimit {
			m.history = m.history[len(m.history)-historyLimit:]
		}
		return m, fetchOrders(m.client)

	case ordersMsg:
		if msg.err != nil {
			m.error = fmt.Sprintf("Error fetching orders: %v", msg.err)
			return m, nil
		}
		m.orders.SetRows(orderRows(msg.list))
		c := msg.list.Counts
		m.counts = fmt.Sprintf("%d pending · %d done · %d cancelled", c.Pending, c.Done, c.Cancelled)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if v := m.input.Value(); v != "" {
		m.preview = m.gate.Feed(capture.Fragment{Text: v}).Display
	} else {
		m.preview = ""
	}
	return m, cmd
}

func describe(u capture.Update) string {
	switch {
	case len(u.Commands) > 0:
		return "Processing command..."
	case u.Discarded:
		return "No keyword heard; ignored."
	case u.State == capture.StateListeningForCommand:
		return "Listening for your command..."
	default:
		return "Waiting for the keyword..."
	}
}

func (m Model) View() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("maitre voice console") + "\n\n")

	state := infoStyle.Render(string(m.gate.State()))
	b.WriteString(state + " " + m.status + "\n")
	if m.preview != "" {
		b.WriteString(dimStyle.Render("heard: "+m.preview) + "\n")
	}
	b.WriteString("\n" + m.input.View() + "\n")
	if m.pending > 0 {
		b.WriteString(m.spinner.View() + " waiting for the server\n")
	}
	if m.error != "" {
		b.WriteString(errorStyle.Render(m.error) + "\n")
	}

	b.WriteString("\n")
	for _, h := range m.history {
		label := successStyle.Render(h.intent)
		if !h.success {
			label = errorStyle.Render(h.intent)
		}
		b.WriteString(fmt.Sprintf("%s %s\n  %s\n", label, h.command, h.response))
	}

	b.WriteString("\n" + m.counts + "\n" + m.orders.View() + "\n")
	b.WriteString(dimStyle.Render("enter: final fragment · ctrl+r: stop · ctrl+o: refresh orders · esc: quit"))
	return docStyle.Render(b.String())
}

func sendCommand(client *ApiClient, command string) tea.Cmd {
	return func() tea.Msg {
		result, err := client.SendCommand(command)
		return commandMsg{command: command, result: result, err: err}
	}
}

func fetchOrders(client *ApiClient) tea.Cmd {
	return func() tea.Msg {
		list, err := client.GetOrders("")
		return ordersMsg{list: list, err: err}
	}
}

func orderRows(list *OrderList) []table.Row {
	rows := make([]table.Row, 0, len(list.Orders))
	for _, o := range list.Orders {
		rows = append(rows, table.Row{
			fmt.Sprintf("#%d", o.Number),
			string(o.Status),
			o.Total.StringFixed(2),
			o.Note,
		})
	}
	return rows
}

func main() {
	defaults := capture.DefaultGateConfig()
	server := flag.String("server", envOr("MAITRE_API_URL", "http://localhost:8080"), "maitre API base URL")
	token := flag.String("token", os.Getenv("MAITRE_TOKEN"), "Bearer token (see maitre --mint-token)")
	mode := flag.String("mode", defaults.Mode, "Gate mode: keyword or activation")
	keywords := flag.StringSlice("keyword", defaults.Keywords, "Keyword variants that open a command")
	terminator := flag.String("terminator", defaults.Terminator, "Word that ends a command")
	phrase := flag.String("phrase", defaults.ActivationPhrase, "Activation phrase for activation mode")
	flag.Parse()

	gate, err := capture.NewGate(capture.GateConfig{
		Mode:              *mode,
		Keywords:          *keywords,
		Terminator:        *terminator,
		ActivationPhrase:  *phrase,
		ActivationTimeout: defaults.ActivationTimeout,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid gate settings: %v\n", err)
		os.Exit(1)
	}

	client := NewApiClient(strings.TrimRight(*server, "/"), *token)
	if err := client.CheckHealth(); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: API server at %s is not available: %v\n", client.BaseURL, err)
	}

	p := tea.NewProgram(initialModel(client, gate), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("Error running program: %v", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
