// Package format renders a final summary into the two fixed output
// representations: a Markdown document and a standalone HTML page. Both
// are pure functions over the summary and the supplied generation time.
package format

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/yuin/goldmark"

	"ytbrief/models"
)

var formatTitles = map[models.SummaryFormat]string{
	models.FormatBulletPoints:    "Bullet Points",
	models.FormatKeyInsights:     "Key Insights",
	models.FormatDetailed:        "Detailed Summary",
	models.FormatActionableGuide: "Actionable Guide",
}

func titleFor(format models.SummaryFormat) string {
	if title, ok := formatTitles[format]; ok {
		return title
	}
	return string(format)
}

// Markdown renders the summary as a Markdown document.
func Markdown(sum *models.FinalSummary, generatedAt time.Time) string {
	var sb strings.Builder

	sb.WriteString("# Video Summary\n\n")
	fmt.Fprintf(&sb, "**Generated:** %s  \n", generatedAt.Format("2006-01-02 15:04:05"))
	fmt.Fprintf(&sb, "**Format:** %s\n\n", titleFor(sum.Format))
	if sum.Degraded {
		sb.WriteString("> Note: parts of the transcript could not be summarized and were omitted.\n\n")
	}
	sb.WriteString("---\n\n")
	sb.WriteString(strings.TrimSpace(sum.Body))
	sb.WriteString("\n")

	return sb.String()
}

// HTML renders the summary as a minimal self-contained HTML document with
// no external resources.
func HTML(sum *models.FinalSummary, generatedAt time.Time) (string, error) {
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(Markdown(sum, generatedAt)), &buf); err != nil {
		return "", fmt.Errorf("rendering summary HTML: %w", err)
	}

	page := fmt.Sprintf(`<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1.0">
<title>Video Summary</title>
<style>
body { font-family: sans-serif; max-width: 800px; margin: 0 auto; padding: 20px; line-height: 1.6; color: #333; }
h1 { color: #2c3e50; border-bottom: 2px solid #3498db; padding-bottom: 10px; }
h2 { color: #34495e; margin-top: 30px; }
li { margin: 8px 0; }
blockquote { background-color: #f8f9fa; padding: 10px 15px; border-left: 4px solid #3498db; margin: 0 0 20px; }
</style>
</head>
<body>
%s
</body>
</html>
`, buf.String())

	return page, nil
}
