// Package view renders the server-side HTML dashboard.
package view

import (
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"os"

	"github.com/rs/zerolog"

	"github.com/ecowatch/ecowatch/internal/dashboard"
)

//go:embed templates/*.html
var templateFS embed.FS

// PageConfig holds configuration for the dashboard page.
type PageConfig struct {
	// StylesheetPath is a CSS file inlined verbatim into every page.
	// Empty disables the stylesheet without a notice.
	StylesheetPath string

	// Logger for stylesheet problems.
	Logger zerolog.Logger
}

// Page renders the dashboard template.
type Page struct {
	tmpl           *template.Template
	stylesheetPath string
	readFile       func(string) ([]byte, error)
	logger         zerolog.Logger
}

// NewPage parses the embedded template.
func NewPage(cfg PageConfig) (*Page, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/dashboard.html")
	if err != nil {
		return nil, fmt.Errorf("parse dashboard template: %w", err)
	}
	return &Page{
		tmpl:           tmpl,
		stylesheetPath: cfg.StylesheetPath,
		readFile:       os.ReadFile,
		logger:         cfg.Logger,
	}, nil
}

type pageData struct {
	City             string
	Email            string
	Stylesheet       template.CSS
	StylesheetNotice string
	View             *dashboard.View
	Panels           *dashboard.Panels
	HeadlineStyle    template.CSS
	Trend            []Bar
	Fingerprint      []Bar
	Mix              []MixSegment
	WindMapURL       string
}

// Render writes the page for a render pass. The stylesheet is read on every
// call so edits show up without a restart; a missing file adds a notice
// and the page still renders.
func (p *Page) Render(w io.Writer, req dashboard.Request, v *dashboard.View) error {
	data := pageData{
		City:       req.City,
		Email:      req.Email,
		View:       v,
		WindMapURL: dashboard.WindMapURL,
	}
	if v != nil {
		data.City = v.City
		data.Panels = v.Panels
	}
	data.Stylesheet, data.StylesheetNotice = p.stylesheet()

	if panels := data.Panels; panels != nil {
		data.HeadlineStyle = template.CSS("background-color: " + panels.Band.Color)
		data.Trend = TrendChart(panels.Trend)
		data.Fingerprint = FingerprintChart(panels.Fingerprint)
		data.Mix = MixChart(panels.SourceMix)
	}

	return p.tmpl.ExecuteTemplate(w, "dashboard.html", data)
}

func (p *Page) stylesheet() (template.CSS, string) {
	if p.stylesheetPath == "" {
		return "", ""
	}
	css, err := p.readFile(p.stylesheetPath)
	if err == nil {
		// Operator-supplied file, inlined as-is.
		return template.CSS(css), ""
	}
	if errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Sprintf("CSS file '%s' not found. Please create it.", p.stylesheetPath)
	}
	p.logger.Warn().Err(err).Str("path", p.stylesheetPath).Msg("failed to read stylesheet")
	return "", fmt.Sprintf("CSS file '%s' could not be read.", p.stylesheetPath)
}

// Swatch is the inline style of the legend color box.
func (s MixSegment) Swatch() template.CSS {
	return template.CSS("background-color: " + s.Color)
}
