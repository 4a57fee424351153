package summary

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"
)

//go:embed prompts/*.tmpl
var promptFS embed.FS

const defaultPromptName = "resumo.tmpl"

var defaultPrompt = template.Must(newPromptTemplate(defaultPromptName).ParseFS(promptFS, "prompts/"+defaultPromptName))

type promptData struct {
	Text string
}

func newPromptTemplate(name string) *template.Template {
	return template.New(name).Option("missingkey=error").Funcs(sprig.TxtFuncMap())
}

// DefaultPrompt returns the instruction template used when none is configured.
func DefaultPrompt() *template.Template {
	return defaultPrompt
}

// ParsePrompt compiles a custom instruction. The chunk is available as
// {{ .Text }} and sprig functions such as trim or wrap are registered.
func ParsePrompt(name, body string) (*template.Template, error) {
	tmpl, err := newPromptTemplate(name).Parse(body)
	if err != nil {
		return nil, fmt.Errorf("parse prompt %q: %w", name, err)
	}
	if _, err := BuildPrompt(tmpl, ""); err != nil {
		return nil, err
	}
	return tmpl, nil
}

// LoadPrompt reads and compiles the instruction at path.
func LoadPrompt(path string) (*template.Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read prompt file: %w", err)
	}
	return ParsePrompt(filepath.Base(path), string(data))
}

// BuildPrompt embeds text into the summarization instruction.
func BuildPrompt(tmpl *template.Template, text string) (string, error) {
	if tmpl == nil {
		tmpl = defaultPrompt
	}
	var b strings.Builder
	if err := tmpl.Execute(&b, promptData{Text: text}); err != nil {
		return "", fmt.Errorf("render prompt %q: %w", tmpl.Name(), err)
	}
	return b.String(), nil
}
