package gemini

import (
	"bytes"
	"fmt"
	"strings"
	"text/template"

	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
)

// generatePromptTemplate asks for a complete markdown article. The brief
// fields drive what the model is told about backlinks and internal links.
const generatePromptTemplate = `You are a professional content writer for the website {{.DomainName}}.

{{if .BaseContent -}}
Rework the following existing article. Preserve its topic, voice and
structure; change only what the instructions below require.

--- EXISTING ARTICLE ---
{{.BaseContent}}
--- END EXISTING ARTICLE ---
{{- else -}}
Write a complete, original blog article about: {{.Topic}}
{{- end}}

{{if .Keywords}}Work these keywords in naturally: {{join .Keywords ", "}}.{{end}}

{{if .Backlink.TargetURL -}}
The article must contain exactly this link, verbatim, placed naturally in
the body text: [{{.Backlink.AnchorText}}]({{.Backlink.TargetURL}})
Do not add any other external links.
{{- else -}}
Do not include any external links.
{{- end}}

{{if .InternalLinkCandidates -}}
You may link to at most one of these site pages where it fits:
{{range .InternalLinkCandidates}}- /{{.}}
{{end}}
{{- end}}

Respond with markdown only. Start with YAML frontmatter containing title
and description, then the article body with proper headings.`

// checkPromptTemplate asks for a strict JSON verdict over an article.
const checkPromptTemplate = `You are a strict content quality reviewer for {{.DomainName}}.

Review the article below for coherence, factual plausibility, spam
signals, and whether it reads as natural editorial content.
{{if .Backlink.TargetURL}}
The article is expected to contain the link [{{.Backlink.AnchorText}}]({{.Backlink.TargetURL}})
integrated naturally. Flag it if the placement reads as forced.
{{end}}
--- ARTICLE ---
{{.Markdown}}
--- END ARTICLE ---

Respond with JSON only, no prose and no code fences, in this shape:
{"status": "pass" | "fail", "issues": ["..."], "flags": {"spammy": bool, "incoherent": bool, "forced_link": bool}}`

var promptFuncs = template.FuncMap{
	"join": strings.Join,
}

var (
	generateTmpl = template.Must(template.New("generate").Funcs(promptFuncs).Parse(generatePromptTemplate))
	checkTmpl    = template.Must(template.New("check").Funcs(promptFuncs).Parse(checkPromptTemplate))
)

// checkPromptData extends the brief with the content under review.
type checkPromptData struct {
	generation.Brief
	Markdown string
}

func buildGeneratePrompt(brief generation.Brief) (string, error) {
	if brief.Topic == "" && brief.BaseContent == "" {
		return "", generation.ErrEmptyBrief
	}

	var buf bytes.Buffer
	if err := generateTmpl.Execute(&buf, brief); err != nil {
		return "", fmt.Errorf("failed to execute generation prompt template: %w", err)
	}
	return buf.String(), nil
}

func buildCheckPrompt(markdown string, brief generation.Brief) (string, error) {
	if markdown == "" {
		return "", fmt.Errorf("%w: nothing to review", generation.ErrEmptyBrief)
	}

	var buf bytes.Buffer
	if err := checkTmpl.Execute(&buf, checkPromptData{Brief: brief, Markdown: markdown}); err != nil {
		return "", fmt.Errorf("failed to execute check prompt template: %w", err)
	}
	return buf.String(), nil
}
