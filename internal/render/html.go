// Package render produces the HTML test report.
package render

import (
	"embed"
	"encoding/base64"
	"fmt"
	"html/template"
	"io"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/kamilpajak/trxreport/pkg/models"
)

//go:embed templates/report.html.tmpl
var templateFS embed.FS

var reportTemplate = template.Must(
	template.New("report.html.tmpl").
		Funcs(template.FuncMap{"borderColor": borderColor}).
		ParseFS(templateFS, "templates/report.html.tmpl"),
)

// DefaultTitle is used when the page has no title.
const DefaultTitle = "Test Results Report"

// Page contains all data needed for the report template.
type Page struct {
	Title       string
	GeneratedAt string
	ReportID    string
	Run         models.RunInfo
	Summary     models.Summary
	Tests       []Test
}

// Test is one result block. Screenshots are only shown for failed tests.
type Test struct {
	models.TestResult
	Screenshots []Image
}

// Image is a screenshot reference. Src and Href are built by ImageRef or
// EmbedImage and are trusted by the template.
type Image struct {
	Name string
	Src  template.URL
	Href template.URL
}

// NewPage builds a page with one test block per result, in order.
// screenshots is indexed like report.Results.
func NewPage(report *models.Report, screenshots map[int][]Image) Page {
	page := Page{
		Title:   DefaultTitle,
		Run:     report.Run,
		Summary: report.Summary,
		Tests:   make([]Test, len(report.Results)),
	}
	for i, r := range report.Results {
		page.Tests[i] = Test{TestResult: r, Screenshots: screenshots[i]}
	}
	return page
}

// Render writes the report HTML to w.
func Render(w io.Writer, page Page) error {
	if page.Title == "" {
		page.Title = DefaultTitle
	}
	if err := reportTemplate.Execute(w, page); err != nil {
		return fmt.Errorf("render html: %w", err)
	}
	return nil
}

// ImageRef returns a reference to a copied screenshot relative to the report:
// forward slashes and each segment URL-encoded, whatever the host OS.
func ImageRef(subdir, name string) Image {
	segments := strings.Split(filepath.ToSlash(subdir), "/")
	segments = append(segments, name)

	escaped := make([]string, 0, len(segments))
	for _, s := range segments {
		if s == "" || s == "." {
			continue
		}
		escaped = append(escaped, url.PathEscape(s))
	}

	ref := template.URL(path.Join(escaped...))
	return Image{Name: name, Src: ref, Href: ref}
}

// EmbedImage inlines the file as a base64 data URI. The link still points at
// the copied file so the full-size image opens in a new tab.
func EmbedImage(file, subdir string) (Image, error) {
	data, err := os.ReadFile(file) //#nosec G304 -- copied screenshot
	if err != nil {
		return Image{}, fmt.Errorf("failed to read screenshot: %w", err)
	}

	img := ImageRef(subdir, filepath.Base(file))
	img.Src = template.URL(fmt.Sprintf("data:%s;base64,%s", mimeType(file), base64.StdEncoding.EncodeToString(data)))
	return img, nil
}

func mimeType(file string) string {
	switch strings.ToLower(filepath.Ext(file)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".gif":
		return "image/gif"
	default:
		return "image/png"
	}
}

func borderColor(class string) template.CSS {
	switch class {
	case "passed":
		return "#4CAF50"
	case "failed":
		return "#f44336"
	default:
		return "#ff9800"
	}
}
