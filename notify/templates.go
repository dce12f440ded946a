package notify

import (
	"embed"
	"strings"

	"github.com/flosch/pongo2/v6"
	goerrors "github.com/goliatone/go-errors"
)

//go:embed templates/*.html
var templateFS embed.FS

// Template names.
const (
	TemplateWelcome       = "welcome"
	TemplateActivation    = "activation"
	TemplatePasswordReset = "password_reset"
)

var subjects = map[string]string{
	TemplateWelcome:       "Welcome to {{ app_name }}",
	TemplateActivation:    "Activate your {{ app_name }} account",
	TemplatePasswordReset: "Reset your {{ app_name }} password",
}

type compiled struct {
	subject *pongo2.Template
	body    *pongo2.Template
}

// Templates renders the account emails. Templates are compiled once.
type Templates struct {
	byName map[string]compiled
}

// LoadTemplates compiles the embedded templates.
func LoadTemplates() (*Templates, error) {
	t := &Templates{byName: make(map[string]compiled, len(subjects))}

	for name, subject := range subjects {
		raw, err := templateFS.ReadFile("templates/" + name + ".html")
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "missing email template "+name)
		}

		body, err := pongo2.FromBytes(raw)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compile email template "+name)
		}

		subj, err := pongo2.FromString(subject)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to compile email subject "+name)
		}

		t.byName[name] = compiled{subject: subj, body: body}
	}

	return t, nil
}

// Render returns the subject and HTML body for name.
func (t *Templates) Render(name string, data map[string]any) (string, string, error) {
	tpl, ok := t.byName[name]
	if !ok {
		return "", "", goerrors.New("unknown email template "+name, goerrors.CategoryInternal)
	}

	ctx := pongo2.Context(data)

	subject, err := tpl.subject.Execute(ctx)
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render subject "+name)
	}

	body, err := tpl.body.Execute(ctx)
	if err != nil {
		return "", "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to render email "+name)
	}

	return strings.TrimSpace(subject), body, nil
}
