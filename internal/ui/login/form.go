package login

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/rivo/tview"

	"github.com/m96-chan/zterm/internal/config"
	"github.com/m96-chan/zterm/internal/consts"
	"github.com/m96-chan/zterm/internal/keyring"
	"github.com/m96-chan/zterm/internal/zulip"
)

const validateTimeout = 15 * time.Second

// DoneFn is called after successful authentication with the validated client.
type DoneFn func(client *zulip.Client)

// ConnectFn validates credentials against the server.
type ConnectFn func(ctx context.Context, creds zulip.Credentials) (*zulip.Client, error)

// Form is a tview form that prompts for a Zulip server, email and API key.
type Form struct {
	*tview.Form
	app        *tview.Application
	cfg        *config.Config
	done       DoneFn
	connect    ConnectFn
	siteField  *tview.InputField
	emailField *tview.InputField
	keyField   *tview.InputField
}

// New creates a login form prefilled with the configured or most recently
// used account.
func New(app *tview.Application, cfg *config.Config, done DoneFn) *Form {
	f := &Form{
		Form: tview.NewForm(),
		app:  app,
		cfg:  cfg,
		done: done,
		connect: func(ctx context.Context, creds zulip.Credentials) (*zulip.Client, error) {
			return zulip.New(ctx, creds)
		},
	}

	site, email := cfg.Server.Site, cfg.Server.Email
	if site == "" {
		if last, ok := keyring.LastAccount(); ok {
			site, email = last.Site, last.Email
		}
	}

	f.siteField = tview.NewInputField().
		SetLabel("Server URL").
		SetText(site)
	f.emailField = tview.NewInputField().
		SetLabel("Email").
		SetText(email)
	f.keyField = tview.NewInputField().
		SetLabel("API key").
		SetMaskCharacter('*')

	f.AddFormItem(f.siteField).
		AddFormItem(f.emailField).
		AddFormItem(f.keyField).
		AddButton("Login", f.submit).
		AddButton("Quit", func() { f.app.Stop() }).
		SetBorder(true).
		SetTitle(" " + consts.Name + " login ").
		SetTitleAlign(tview.AlignCenter)

	return f
}

// credentials checks the form values and normalizes the server URL.
func credentials(site, email, key string) (zulip.Credentials, error) {
	site, email, key = strings.TrimSpace(site), strings.TrimSpace(email), strings.TrimSpace(key)
	if site == "" || email == "" || key == "" {
		return zulip.Credentials{}, errors.New("server URL, email and API key are required")
	}
	if !strings.Contains(email, "@") {
		return zulip.Credentials{}, errors.New("email address is not valid")
	}
	normalized, err := zulip.NormalizeSite(site)
	if err != nil {
		return zulip.Credentials{}, err
	}
	return zulip.Credentials{Site: normalized, Email: email, APIKey: key}, nil
}

// submit validates the credentials, creates a client, saves the key to the
// keyring, and calls the done callback.
func (f *Form) submit() {
	creds, err := credentials(f.siteField.GetText(), f.emailField.GetText(), f.keyField.GetText())
	if err != nil {
		f.showError(err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), validateTimeout)
	defer cancel()

	client, err := f.connect(ctx, creds)
	if err != nil {
		f.showError("Authentication failed: " + err.Error())
		return
	}

	if err := keyring.AddAccount(creds.Site, creds.Email, creds.APIKey); err != nil {
		slog.Warn("failed to store API key in keyring", "error", err)
	}

	f.done(client)
}

// showError displays a modal error message and returns to the form on dismiss.
func (f *Form) showError(msg string) {
	modal := tview.NewModal().
		SetText(msg).
		AddButtons([]string{"OK"}).
		SetDoneFunc(func(_ int, _ string) {
			f.app.SetRoot(f, true)
		})
	f.app.SetRoot(modal, true)
}
