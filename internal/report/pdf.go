// Package report renders monitoring reports as PDF documents.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/signintech/gopdf"

	"github.com/mindoraRwanda/mindorabeta/internal/domain"
)

const (
	fontFamily = "DejaVu"
	textWidth  = 500
)

// ErrNoFont is returned when none of the candidate fonts can be loaded.
var ErrNoFont = errors.New("no usable TTF font for PDF rendering")

// DefaultFontPaths are tried in order after the configured font.
var DefaultFontPaths = []string{
	"/usr/share/fonts/ttf-dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/dejavu/DejaVuSans.ttf",
	"/usr/share/fonts/truetype/dejavu/DejaVuSans.ttf",
}

// Renderer turns reports into PDF documents.
type Renderer struct {
	fontPaths []string
}

// NewRenderer creates a renderer. fontPath, when set, is tried first.
func NewRenderer(fontPath string) *Renderer {
	paths := make([]string, 0, len(DefaultFontPaths)+1)
	if fontPath != "" {
		paths = append(paths, fontPath)
	}
	return &Renderer{fontPaths: append(paths, DefaultFontPaths...)}
}

// Render writes r as an A4 PDF to w.
func (rd *Renderer) Render(w io.Writer, r *domain.Report) error {
	pdf := &gopdf.GoPdf{}
	pdf.Start(gopdf.Config{PageSize: *gopdf.PageSizeA4})
	pdf.AddPage()

	if err := rd.loadFont(pdf); err != nil {
		return err
	}

	p := &page{pdf: pdf}
	p.heading(20, "Patient Monitoring Report")
	p.br(30)

	p.text(12, fmt.Sprintf("Patient: %s", r.PatientID))
	p.text(12, fmt.Sprintf("Period: %s to %s (%d days)",
		r.Period.Start.Format(time.DateOnly), r.Period.End.Format(time.DateOnly), r.Days))
	p.text(12, fmt.Sprintf("Risk level: %d (%s)",
		int(r.RiskAssessment.CurrentRiskLevel), r.RiskAssessment.CurrentRiskLevel.Label()))
	p.br(10)

	p.heading(14, "Mood trends")
	p.text(11, fmt.Sprintf("Entries: %d", r.MoodTrends.MoodEntries))
	p.text(11, fmt.Sprintf("Average mood: %.2f / 5", r.MoodTrends.AverageMood))
	p.text(11, fmt.Sprintf("Average anxiety: %.2f / 4", r.MoodTrends.AnxietyLevel))
	p.br(10)

	p.heading(14, "Engagement")
	p.text(11, fmt.Sprintf("Therapy sessions attended: %d", r.ActivityMetrics.AppointmentsAttended))
	p.text(11, fmt.Sprintf("Exercises completed: %d", r.ActivityMetrics.ExercisesCompleted))
	p.br(10)

	p.list("Risk factors", r.RiskAssessment.RiskFactors, "No risk factors identified.")
	p.list("Recommendations", r.RiskAssessment.Recommendations, "No recommendations.")

	p.heading(14, "Summary")
	p.text(11, r.Summary)

	if p.err != nil {
		return fmt.Errorf("render report: %w", p.err)
	}
	if _, err := pdf.WriteTo(w); err != nil {
		return fmt.Errorf("write PDF: %w", err)
	}
	return nil
}

func (rd *Renderer) loadFont(pdf *gopdf.GoPdf) error {
	var lastErr error
	for _, path := range rd.fontPaths {
		if err := pdf.AddTTFFont(fontFamily, path); err != nil {
			lastErr = err
			continue
		}
		return nil
	}
	return fmt.Errorf("%w: tried %s: %v", ErrNoFont, strings.Join(rd.fontPaths, ", "), lastErr)
}

// page writes wrapped lines and remembers the first error.
type page struct {
	pdf *gopdf.GoPdf
	err error
}

func (p *page) br(h float64) {
	p.pdf.Br(h)
}

func (p *page) heading(size float64, s string) {
	p.text(size, s)
	p.br(4)
}

func (p *page) text(size float64, s string) {
	if p.err != nil || s == "" {
		return
	}
	if p.err = p.pdf.SetFont(fontFamily, "", size); p.err != nil {
		return
	}
	lines, err := p.pdf.SplitText(s, textWidth)
	if err != nil {
		p.err = err
		return
	}
	for _, line := range lines {
		if p.err = p.pdf.Cell(nil, line); p.err != nil {
			return
		}
		p.br(size + 4)
	}
}

func (p *page) list(title string, items []string, empty string) {
	p.heading(14, title)
	if len(items) == 0 {
		p.text(11, empty)
	}
	for _, item := range items {
		p.text(11, "- "+item)
	}
	p.br(10)
}
