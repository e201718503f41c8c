// Package export renders canvases as JSON, Markdown and paginated text.
package export

import (
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/liliang-cn/aicanvas/internal/domain"
)

// Format is an export file format
type Format string

const (
	FormatJSON     Format = "json"
	FormatMarkdown Format = "md"
	FormatText     Format = "txt"
)

// ContentType returns the MIME type served for the format
func (f Format) ContentType() string {
	switch f {
	case FormatJSON:
		return "application/json"
	case FormatMarkdown:
		return "text/markdown; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}

// ParseFormat maps a format name or file extension to a Format
func ParseFormat(s string) (Format, bool) {
	switch strings.ToLower(strings.TrimPrefix(s, ".")) {
	case "json":
		return FormatJSON, true
	case "md", "markdown":
		return FormatMarkdown, true
	case "txt", "text", "pdf":
		return FormatText, true
	}
	return "", false
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]`)

// Filename derives the export filename from the canvas' use-case name
func Filename(c *domain.Canvas, f Format) string {
	return nonAlnum.ReplaceAllString(c.UseCaseName, "_") + "_canvas." + string(f)
}

// FormatDate renders t as "Mar 1, 2026"
func FormatDate(t time.Time) string {
	return t.Format("Jan 2, 2006")
}

var phaseNames = map[domain.Phase]string{
	domain.PhaseIdeation:     "Ideation",
	domain.PhasePOC:          "Proof of Concept",
	domain.PhasePilot:        "Pilot",
	domain.PhaseProduction:   "Production",
	domain.PhaseOptimization: "Optimization",
}

var statusNames = map[domain.Status]string{
	domain.StatusDraft:      "Draft",
	domain.StatusInProgress: "In Progress",
	domain.StatusCompleted:  "Completed",
	domain.StatusArchived:   "Archived",
}

var readinessNames = map[domain.ReadinessLevel]string{
	domain.ReadinessRed:    "Not Ready",
	domain.ReadinessYellow: "In Progress",
	domain.ReadinessGreen:  "Ready",
}

func titleCase(s string) string {
	return cases.Title(language.English).String(strings.ReplaceAll(s, "-", " "))
}

// FormatPhase returns the display name of a phase
func FormatPhase(p domain.Phase) string {
	if name, ok := phaseNames[p]; ok {
		return name
	}
	return titleCase(string(p))
}

// FormatStatus returns the display name of a status
func FormatStatus(s domain.Status) string {
	if name, ok := statusNames[s]; ok {
		return name
	}
	return titleCase(string(s))
}

// FormatReadiness returns the display name of a readiness level
func FormatReadiness(r domain.ReadinessLevel) string {
	if name, ok := readinessNames[r]; ok {
		return name
	}
	return titleCase(string(r))
}

// Options controls the optional blocks of Markdown and text exports
type Options struct {
	IncludeMetadata  bool
	IncludeReadiness bool
	IncludeComments  bool
	// GeneratedAt is printed in the footer; zero omits the footer line.
	GeneratedAt time.Time
}

// DefaultOptions includes metadata and readiness but not comments
func DefaultOptions(now time.Time) Options {
	return Options{IncludeMetadata: true, IncludeReadiness: true, GeneratedAt: now}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
