package qc

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/Inferno2211/blog-gen-sub002/internal/generation"
)

// Frontmatter is the normalized YAML header every persisted version ends
// up with, regardless of what the generator produced.
type Frontmatter struct {
	Title       string   `yaml:"title"`
	Slug        string   `yaml:"slug"`
	Date        string   `yaml:"date"`
	Description string   `yaml:"description,omitempty"`
	Tags        []string `yaml:"tags,omitempty"`
}

const frontmatterDelimiter = "---"

// NormalizeFrontmatter parses the leading YAML block of the content (if
// present), fills in missing title/slug/date from the brief and the body,
// and re-serializes it deterministically. Content without frontmatter gets
// a synthesized block.
func NormalizeFrontmatter(content string, brief generation.Brief) (string, error) {
	fm, body, err := splitFrontmatter(content)
	if err != nil {
		return "", err
	}

	if fm.Title == "" {
		fm.Title = firstHeading(body)
	}
	if fm.Title == "" {
		fm.Title = brief.Topic
	}

	if fm.Slug == "" {
		fm.Slug = Slugify(fm.Title)
	}

	if fm.Date == "" {
		fm.Date = time.Now().UTC().Format("2006-01-02")
	}

	if len(fm.Tags) == 0 && len(brief.Keywords) > 0 {
		fm.Tags = brief.Keywords
	}

	header, err := yaml.Marshal(fm)
	if err != nil {
		return "", fmt.Errorf("failed to serialize frontmatter: %w", err)
	}

	return fmt.Sprintf("%s\n%s%s\n\n%s", frontmatterDelimiter, header, frontmatterDelimiter, strings.TrimLeft(body, "\n")), nil
}

// splitFrontmatter separates a leading YAML block from the body. Content
// without a block returns an empty Frontmatter and the content unchanged.
func splitFrontmatter(content string) (Frontmatter, string, error) {
	var fm Frontmatter

	trimmed := strings.TrimLeft(content, "\n")
	if !strings.HasPrefix(trimmed, frontmatterDelimiter+"\n") {
		return fm, content, nil
	}

	rest := trimmed[len(frontmatterDelimiter)+1:]
	end := strings.Index(rest, "\n"+frontmatterDelimiter)
	if end < 0 {
		// An unterminated block is treated as body text rather than an
		// error; the generator occasionally emits stray dashes.
		return fm, content, nil
	}

	header := rest[:end+1]
	body := rest[end+len(frontmatterDelimiter)+1:]
	body = strings.TrimPrefix(body, "\n")

	if err := yaml.Unmarshal([]byte(header), &fm); err != nil {
		return Frontmatter{}, "", fmt.Errorf("failed to parse frontmatter: %w", err)
	}

	return fm, body, nil
}

// firstHeading returns the text of the first markdown H1 in the body.
func firstHeading(body string) string {
	for _, line := range strings.Split(body, "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(line, "# "))
		}
	}
	return ""
}

var slugRe = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify converts a title into a URL-safe slug.
func Slugify(title string) string {
	slug := slugRe.ReplaceAllString(strings.ToLower(title), "-")
	return strings.Trim(slug, "-")
}
