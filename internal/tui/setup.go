package tui

import (
	"errors"
	"net/url"
	"strings"

	"github.com/theirongolddev/memocal/internal/config"
	"github.com/theirongolddev/memocal/internal/memos"
	"github.com/theirongolddev/memocal/internal/tui/theme"

	"github.com/charmbracelet/huh"
)

// SetupValues holds the answers of the first-run form.
type SetupValues struct {
	ServerURL string
	Token     string
	User      string
	Theme     string
}

// SetupValuesFrom pre-fills the form from an existing configuration.
func SetupValuesFrom(cfg config.Config) SetupValues {
	return SetupValues{
		ServerURL: cfg.Server.URL,
		Token:     cfg.Server.Token,
		User:      cfg.Server.User,
		Theme:     cfg.Appearance.Theme,
	}
}

// NewSetupForm builds the form that asks for the server connection and theme.
func NewSetupForm(vals *SetupValues) *huh.Form {
	themes := make([]huh.Option[string], 0, len(theme.All))
	for _, t := range theme.All {
		themes = append(themes, huh.NewOption(t.Name, t.Name))
	}
	if vals.Theme == "" {
		vals.Theme = theme.FlexokiDark.Name
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewNote().
				Title("Welcome to memocal").
				Description("Connect to your Memos server to see your activity calendar."),
			huh.NewInput().
				Title("Server URL").
				Placeholder("https://memos.example.com").
				Value(&vals.ServerURL).
				Validate(ValidateServerURL),
			huh.NewInput().
				Title("Access token").
				Description("Create one under Settings > Access Tokens.").
				EchoMode(huh.EchoModePassword).
				Value(&vals.Token),
			huh.NewInput().
				Title("User").
				Description("users/<id>, or leave empty for the token's own account.").
				Value(&vals.User).
				Validate(validateUser),
		),
		huh.NewGroup(
			huh.NewSelect[string]().
				Title("Color theme").
				Options(themes...).
				Value(&vals.Theme),
		),
	)
}

// ApplySetup copies the form answers into cfg.
func ApplySetup(cfg *config.Config, vals SetupValues) {
	cfg.Server.URL = strings.TrimRight(strings.TrimSpace(vals.ServerURL), "/")
	cfg.Server.Token = strings.TrimSpace(vals.Token)
	cfg.Server.User = memos.NormalizeUserName(vals.User)
	if vals.Theme != "" {
		cfg.Appearance.Theme = vals.Theme
	}
}

// ValidateServerURL accepts absolute http(s) URLs.
func ValidateServerURL(s string) error {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return errors.New("enter an http(s) URL such as https://memos.example.com")
	}
	return nil
}

func validateUser(s string) error {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	if _, err := memos.ExtractUserID(memos.NormalizeUserName(s)); err != nil {
		return errors.New("expected users/<id> or a numeric id")
	}
	return nil
}

func (a *App) saveSetupConfig() error {
	ApplySetup(&a.cfg, a.setupVals)
	a.requested = a.cfg.Server.User
	theme.SetActive(a.cfg.Appearance.Theme)
	a.connect()
	return config.Save(a.cfg)
}
