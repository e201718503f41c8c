package export

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/mitchellh/go-wordwrap"

	"github.com/liliang-cn/aicanvas/internal/catalog"
	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Layout is the page geometry of paginated output, in lines and columns
type Layout struct {
	PageLines int
	Width     int
}

// DefaultLayout approximates an A4 page in monospace text
var DefaultLayout = Layout{PageLines: 50, Width: 90}

// footerLines is the space reserved at the bottom of every page
const footerLines = 2

const indent = "  "

// Page is one page of paginated output
type Page struct {
	Number int      `json:"number"`
	Lines  []string `json:"lines"`
	Footer string   `json:"footer"`
}

// Document is paginated output
type Document struct {
	Pages  []Page `json:"pages"`
	Layout Layout `json:"-"`
}

func (l Layout) normalized() Layout {
	if l.PageLines <= footerLines {
		l.PageLines = DefaultLayout.PageLines
	}
	if l.Width <= len(indent) {
		l.Width = DefaultLayout.Width
	}
	return l
}

type paginator struct {
	layout Layout
	body   int
	pages  [][]string
	cur    []string
}

func (p *paginator) remaining() int {
	return p.body - len(p.cur)
}

func (p *paginator) breakPage() {
	p.pages = append(p.pages, p.cur)
	p.cur = nil
}

// add places block on the current page, starting a new page when it does not
// fit. Blocks taller than a whole page are split at line boundaries.
func (p *paginator) add(block []string) {
	if len(block) > p.remaining() && len(p.cur) > 0 {
		p.breakPage()
	}
	for _, l := range block {
		if p.remaining() == 0 {
			p.breakPage()
		}
		p.cur = append(p.cur, l)
	}
}

func (p *paginator) wrap(s, prefix string) []string {
	width := p.layout.Width - len(prefix)
	if width < 1 {
		width = 1
	}
	var out []string
	for _, l := range strings.Split(wordwrap.WrapString(s, uint(width)), "\n") {
		out = append(out, prefix+l)
	}
	return out
}

// underline repeats ch once per character of s
func underline(s, ch string) string {
	return strings.Repeat(ch, utf8.RuneCountInString(s))
}

// Paginate lays c out on pages of the given geometry. Content order matches
// Markdown; each section title and each question with its answer is kept on
// one page when it fits.
func Paginate(cat *catalog.Catalog, c *domain.Canvas, opts Options, layout Layout) *Document {
	layout = layout.normalized()
	p := &paginator{layout: layout, body: layout.PageLines - footerLines}

	p.add(append(p.wrap(c.UseCaseName, ""), "AI Use Case Canvas", ""))

	if opts.IncludeMetadata {
		p.add([]string{
			"Metadata",
			indent + "Owner: " + c.UseCaseOwner,
			indent + "Phase: " + FormatPhase(c.Phase),
			indent + "Status: " + FormatStatus(c.Status),
			indent + "Created: " + FormatDate(c.CreatedAt),
			indent + "Last Updated: " + FormatDate(c.UpdatedAt),
			"",
		})
	}
	if opts.IncludeReadiness {
		block := []string{"Readiness Assessment"}
		for _, layer := range domain.AllLayers {
			info, _ := cat.LayerInfo(layer)
			block = append(block, indent+info.Name+": "+FormatReadiness(c.Readiness.Get(layer)))
		}
		p.add(append(block, ""))
	}
	if len(c.Tags) > 0 {
		p.add(append(p.wrap("Tags: "+strings.Join(c.Tags, ", "), ""), ""))
	}

	for _, layer := range domain.AllLayers {
		info, _ := cat.LayerInfo(layer)
		heading := strings.ToUpper(info.Name + ": " + info.Subtitle)
		p.add([]string{heading, underline(heading, "="), ""})

		sections := c.Layer(layer)
		for _, def := range cat.SectionsByLayer(layer) {
			content := sections[def.ID]
			if content == nil {
				content = &domain.SectionContent{}
			}
			p.add([]string{def.Title, underline(def.Title, "-")})
			for i, q := range def.Questions {
				answer := "Not answered"
				if i < len(content.Answers) && !blank(content.Answers[i]) {
					answer = content.Answers[i]
				}
				block := p.wrap(q, "")
				block = append(block, p.wrap(answer, indent)...)
				p.add(append(block, ""))
			}
			if !blank(content.Notes) {
				p.add(append(append([]string{"Notes:"}, p.wrap(content.Notes, indent)...), ""))
			}
			if opts.IncludeComments && len(content.Comments) > 0 {
				block := []string{"Comments:"}
				for _, cm := range content.Comments {
					block = append(block, p.wrap("- "+commentLine(cm), indent)...)
				}
				p.add(append(block, ""))
			}
		}
	}

	if !opts.GeneratedAt.IsZero() {
		p.add([]string{"Generated on " + FormatDate(opts.GeneratedAt)})
	}
	if len(p.cur) > 0 || len(p.pages) == 0 {
		p.breakPage()
	}

	doc := &Document{Pages: make([]Page, len(p.pages)), Layout: layout}
	for i, lines := range p.pages {
		doc.Pages[i] = Page{
			Number: i + 1,
			Lines:  lines,
			Footer: fmt.Sprintf("Page %d of %d", i+1, len(p.pages)),
		}
	}
	return doc
}

// Render prints the document as plain text. Every page is padded to the full
// page height and pages are separated by form feeds.
func (d *Document) Render() string {
	layout := d.Layout.normalized()
	body := layout.PageLines - footerLines

	var b strings.Builder
	for i, page := range d.Pages {
		if i > 0 {
			b.WriteString("\f")
		}
		for _, l := range page.Lines {
			b.WriteString(l)
			b.WriteByte('\n')
		}
		for range body - len(page.Lines) + 1 {
			b.WriteByte('\n')
		}
		pad := (layout.Width - len(page.Footer)) / 2
		if pad < 0 {
			pad = 0
		}
		b.WriteString(strings.Repeat(" ", pad) + page.Footer + "\n")
	}
	return b.String()
}

// Text paginates and renders c in one step
func Text(cat *catalog.Catalog, c *domain.Canvas, opts Options, layout Layout) string {
	return Paginate(cat, c, opts, layout).Render()
}
