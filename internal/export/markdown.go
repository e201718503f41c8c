package export

import (
	"fmt"
	"strings"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

const notAnswered = "*Not answered*"

// Markdown renders c as a Markdown document. Layers appear in catalog order
// with every question followed by its answer or a placeholder.
func Markdown(cat *catalog.Catalog, c *domain.Canvas, opts Options) string {
	var b strings.Builder
	line := func(format string, args ...any) {
		fmt.Fprintf(&b, format, args...)
		b.WriteByte('\n')
	}

	line("# %s", c.UseCaseName)
	line("")
	line("**AI Use Case Canvas**")
	line("")

	if opts.IncludeMetadata {
		line("## Metadata")
		line("")
		line("- **Owner:** %s", c.UseCaseOwner)
		line("- **Phase:** %s", FormatPhase(c.Phase))
		line("- **Status:** %s", FormatStatus(c.Status))
		line("- **Created:** %s", FormatDate(c.CreatedAt))
		line("- **Last Updated:** %s", FormatDate(c.UpdatedAt))
		line("")
	}

	if opts.IncludeReadiness {
		line("## Readiness Assessment")
		line("")
		for _, layer := range domain.AllLayers {
			info, _ := cat.LayerInfo(layer)
			line("- **%s:** %s", info.Name, FormatReadiness(c.Readiness.Get(layer)))
		}
		line("")
	}

	if len(c.Tags) > 0 {
		tags := make([]string, len(c.Tags))
		for i, t := range c.Tags {
			tags[i] = "`" + t + "`"
		}
		line("## Tags")
		line("")
		line("%s", strings.Join(tags, ", "))
		line("")
	}

	for _, layer := range domain.AllLayers {
		info, _ := cat.LayerInfo(layer)
		line("---")
		line("")
		line("## %s: %s", info.Name, info.Subtitle)
		line("")
		line("*%s*", info.Description)
		line("")

		sections := c.Layer(layer)
		for _, def := range cat.SectionsByLayer(layer) {
			content := sections[def.ID]
			if content == nil {
				content = &domain.SectionContent{}
			}
			line("### %s", def.Title)
			line("")
			for i, q := range def.Questions {
				line("**%s**", q)
				line("")
				if i < len(content.Answers) && !blank(content.Answers[i]) {
					line("%s", content.Answers[i])
				} else {
					line(notAnswered)
				}
				line("")
			}
			if !blank(content.Notes) {
				line("**Notes:**")
				line("")
				line("%s", content.Notes)
				line("")
			}
			if opts.IncludeComments && len(content.Comments) > 0 {
				line("**Comments:**")
				line("")
				for _, cm := range content.Comments {
					line("- %s", commentLine(cm))
				}
				line("")
			}
		}
	}

	if !opts.GeneratedAt.IsZero() {
		line("---")
		line("")
		line("*Generated on %s*", FormatDate(opts.GeneratedAt))
	}
	return b.String()
}

func commentLine(cm domain.Comment) string {
	s := fmt.Sprintf("%s (%s): %s", cm.Author, FormatDate(cm.Timestamp), cm.Text)
	if cm.Resolved {
		s += " [resolved]"
	}
	return s
}
