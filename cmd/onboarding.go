package cmd

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// OnboardingSettings records the first-run answers.
type OnboardingSettings struct {
	Completed bool   `json:"completed"`
	APIURL    string `json:"api_url,omitempty"`
}

func onboardingPath(configDir string) string {
	return filepath.Join(configDir, "onboarding.json")
}

func loadOnboardingSettings(configDir string) (OnboardingSettings, error) {
	data, err := os.ReadFile(onboardingPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return OnboardingSettings{}, nil
		}
		return OnboardingSettings{}, err
	}

	var settings OnboardingSettings
	if err := json.Unmarshal(data, &settings); err != nil {
		return OnboardingSettings{}, err
	}
	return settings, nil
}

func saveOnboardingSettings(configDir string, settings OnboardingSettings) error {
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(onboardingPath(configDir), data, 0644)
}

func tokenPath(configDir string) string {
	return filepath.Join(configDir, "token")
}

func saveToken(configDir, token string) error {
	if strings.TrimSpace(token) == "" {
		return nil
	}
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return err
	}
	// Owner read/write only.
	return os.WriteFile(tokenPath(configDir), []byte(strings.TrimSpace(token)+"\n"), 0600)
}

func loadToken(configDir string) (string, error) {
	data, err := os.ReadFile(tokenPath(configDir))
	if err != nil {
		if os.IsNotExist(err) {
			return "", nil
		}
		return "", err
	}
	return strings.TrimSpace(string(data)), nil
}

func shouldRunOnboarding(settings OnboardingSettings) bool {
	if settings.Completed {
		return false
	}
	fi, err := os.Stdin.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// validateAPIURL accepts absolute http and https URLs.
func validateAPIURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("use an http:// or https:// address")
	}
	if u.Host == "" {
		return fmt.Errorf("address has no host")
	}
	return nil
}

type onboardingStep int

const (
	stepURL onboardingStep = iota
	stepToken
	stepDone
)

type onboardingModel struct {
	step       onboardingStep
	urlInput   textinput.Model
	tokenInput textinput.Model
	settings   OnboardingSettings
	token      string
	status     string
	err        string
	width      int
	height     int
}

var (
	obColorMuted  = lipgloss.Color("#7E8C80")
	obColorText   = lipgloss.Color("#D6E0D3")
	obColorAccent = lipgloss.Color("#8FA082")
	obColorDanger = lipgloss.Color("#f38ba8")

	obTitleStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obHeaderStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabsStyle = lipgloss.NewStyle().
			Padding(0, 2).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(obColorMuted)

	obTabInactive = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 2)

	obTabActive = lipgloss.NewStyle().
			Foreground(obColorText).
			Bold(true).
			Underline(true).
			Padding(0, 2)

	obPanelStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorMuted).
			Padding(1, 2)

	obInputStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.NormalBorder()).
			BorderForeground(obColorAccent).
			Padding(0, 1)

	obLabelStyle = lipgloss.NewStyle().
			Foreground(obColorAccent).
			Bold(true)

	obMutedStyle = lipgloss.NewStyle().
			Foreground(obColorMuted)

	obWarnStyle = lipgloss.NewStyle().
			Foreground(obColorDanger)

	obFooterStyle = lipgloss.NewStyle().
			Foreground(obColorMuted).
			Padding(0, 1).
			BorderStyle(lipgloss.NormalBorder()).
			BorderTop(true).
			BorderForeground(obColorMuted)
)

func newOnboardingInput(placeholder, prompt string) textinput.Model {
	in := textinput.New()
	in.Placeholder = placeholder
	in.CharLimit = 300
	in.Prompt = prompt
	in.TextStyle = lipgloss.NewStyle().Foreground(obColorText)
	in.PlaceholderStyle = lipgloss.NewStyle().Foreground(obColorMuted)
	in.Cursor.Style = lipgloss.NewStyle().Foreground(obColorText).Background(obColorAccent)
	return in
}

func newOnboardingModel(existingURL string) onboardingModel {
	urlInput := newOnboardingInput(defaultAPIURL, "url> ")
	urlInput.SetValue(strings.TrimSpace(existingURL))
	urlInput.Focus()

	tokenInput := newOnboardingInput("leave empty if the backend is open", "token> ")
	tokenInput.EchoMode = textinput.EchoPassword
	tokenInput.EchoCharacter = '•'

	return onboardingModel{
		step:       stepURL,
		urlInput:   urlInput,
		tokenInput: tokenInput,
		settings:   OnboardingSettings{Completed: true},
	}
}

func (m onboardingModel) Init() tea.Cmd { return textinput.Blink }

func (m onboardingModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil
	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			m.status = "Setup canceled. Using " + defaultAPIURL + "."
			m.settings.APIURL = ""
			m.token = ""
			m.step = stepDone
			return m, tea.Quit
		}
		switch m.step {
		case stepURL:
			switch msg.String() {
			case "enter":
				if err := validateAPIURL(m.apiURL()); err != nil {
					m.err = err.Error()
					return m, nil
				}
				m.err = ""
				m.settings.APIURL = m.apiURL()
				m.step = stepToken
				m.urlInput.Blur()
				return m, m.tokenInput.Focus()
			case "esc":
				m.status = "Skipped setup. Using " + defaultAPIURL + "."
				m.step = stepDone
				return m, tea.Quit
			}
			var cmd tea.Cmd
			m.urlInput, cmd = m.urlInput.Update(msg)
			return m, cmd
		case stepToken:
			switch msg.String() {
			case "enter", "esc":
				m.token = strings.TrimSpace(m.tokenInput.Value())
				if msg.String() == "esc" {
					m.token = ""
				}
				if m.token == "" {
					m.status = "Connected to " + m.settings.APIURL + " without a token."
				} else {
					m.status = "Saved the token for " + m.settings.APIURL + "."
				}
				m.step = stepDone
				return m, tea.Quit
			case "shift+tab":
				m.step = stepURL
				m.tokenInput.Blur()
				return m, m.urlInput.Focus()
			}
			var cmd tea.Cmd
			m.tokenInput, cmd = m.tokenInput.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m onboardingModel) apiURL() string {
	if v := strings.TrimSpace(m.urlInput.Value()); v != "" {
		return v
	}
	return defaultAPIURL
}

func (m onboardingModel) View() string {
	width := m.width
	height := m.height
	if width <= 0 {
		width = 100
	}
	if height <= 0 {
		height = 28
	}

	header := m.renderHeader(width)
	tabs := m.renderTabs(width)
	footer := m.renderFooter(width)

	contentHeight := max(8, height-6)
	content := m.renderContent(width, contentHeight)
	ui := lipgloss.JoinVertical(lipgloss.Left, header, tabs, content, footer)

	return lipgloss.NewStyle().
		Foreground(obColorText).
		Width(width).
		Height(height).
		Render(ui)
}

func (m onboardingModel) renderHeader(width int) string {
	left := "  " + obTitleStyle.Render("tripmate") + " " + obMutedStyle.Render("› Setup")
	right := obMutedStyle.Render(time.Now().Format("Mon 02 Jan")) + "  "
	padding := max(0, width-lipgloss.Width(left)-lipgloss.Width(right))
	return obHeaderStyle.Width(width).Render(left + strings.Repeat(" ", padding) + right)
}

func (m onboardingModel) renderTabs(width int) string {
	urlTab := obTabInactive.Render("Backend")
	tokenTab := obTabInactive.Render("Token")
	if m.step == stepURL {
		urlTab = obTabActive.Render("Backend")
	}
	if m.step == stepToken {
		tokenTab = obTabActive.Render("Token")
	}
	return obTabsStyle.Width(width).Render(lipgloss.JoinHorizontal(lipgloss.Left, "  ", urlTab, tokenTab))
}

func (m onboardingModel) renderFooter(width int) string {
	switch m.step {
	case stepURL:
		return obFooterStyle.Width(width).Render("enter next  esc skip  ctrl+c cancel")
	case stepToken:
		return obFooterStyle.Width(width).Render("enter save  shift+tab back  esc no token")
	default:
		return obFooterStyle.Width(width).Render("Setup complete")
	}
}

func (m onboardingModel) renderContent(width, height int) string {
	cardWidth := min(92, width-6)
	if cardWidth < 40 {
		cardWidth = width - 2
	}
	inputWidth := max(30, cardWidth-14)

	var body string
	switch m.step {
	case stepURL:
		lines := []string{
			obLabelStyle.Render("Where is your tripmate backend?"),
			"",
			obMutedStyle.Render("Run one locally with: tripmate serve"),
			"",
			obInputStyle.Width(inputWidth).Render(m.urlInput.View()),
		}
		if m.err != "" {
			lines = append(lines, "", obWarnStyle.Render(m.err))
		}
		lines = append(lines, "", obMutedStyle.Render("You can change this later in ~/.tripmate/config.yaml (api_url)"))
		body = lipgloss.JoinVertical(lipgloss.Left, lines...)
	case stepToken:
		body = lipgloss.JoinVertical(
			lipgloss.Left,
			obLabelStyle.Render("Access token"),
			"",
			obMutedStyle.Render("Sent as a bearer token on every request to "+m.settings.APIURL),
			obMutedStyle.Render("Stored in ~/.tripmate/token, readable only by you."),
			"",
			obInputStyle.Width(inputWidth).Render(m.tokenInput.View()),
		)
	default:
		body = lipgloss.JoinVertical(lipgloss.Left, obLabelStyle.Render("Onboarding Complete"), "", obMutedStyle.Render(m.status))
	}

	card := obPanelStyle.Width(cardWidth).Render(body)
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Top, card)
}

func runOnboarding(configDir, existingURL string) (OnboardingSettings, error) {
	model := newOnboardingModel(existingURL)
	prog := tea.NewProgram(model, tea.WithAltScreen())
	finalModel, err := prog.Run()
	if err != nil {
		return OnboardingSettings{}, fmt.Errorf("onboarding tui failed: %w", err)
	}
	m, ok := finalModel.(onboardingModel)
	if !ok {
		return OnboardingSettings{}, fmt.Errorf("unexpected onboarding model type")
	}
	if err := saveToken(configDir, m.token); err != nil {
		return OnboardingSettings{}, err
	}
	if err := saveOnboardingSettings(configDir, m.settings); err != nil {
		return OnboardingSettings{}, err
	}
	return m.settings, nil
}
