package undercover

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed prompts/describe.tmpl
var describePromptText string

//go:embed prompts/vote.tmpl
var votePromptText string

var promptFuncs = template.FuncMap{"join": strings.Join}

var (
	describeTemplate = template.Must(template.New("describe").Funcs(promptFuncs).Parse(describePromptText))
	voteTemplate     = template.Must(template.New("vote").Funcs(promptFuncs).Parse(votePromptText))
)

type describePromptData struct {
	Word    string
	Round   int
	History []DescriptionEntry
}

type votePromptData struct {
	Name       string
	Word       string
	Candidates []string
	History    []DescriptionEntry
}

func renderPrompt(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return strings.TrimSpace(buf.String()), nil
}
