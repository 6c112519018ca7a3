package render

import (
	"bytes"
	"encoding/base64"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kamilpajak/trxreport/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func renderString(t *testing.T, page Page) string {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, Render(&buf, page))
	return buf.String()
}

func sampleReport() *models.Report {
	return &models.Report{
		Summary: models.Summary{Total: 3, Executed: 3, Passed: 1, Failed: 1},
		Results: []models.TestResult{
			{Name: "First.Passes", Outcome: models.OutcomePassed, Duration: "00:00:01", StartTime: "2026-01-20T05:49:22"},
			{Name: "Second.Fails", Outcome: models.OutcomeFailed, Duration: "00:00:02", StartTime: "2026-01-20T05:49:23", StdOut: "Starting Test: Second"},
			{Name: "Third.Skipped", Outcome: models.Outcome("NotExecuted"), Duration: "N/A", StartTime: "N/A"},
		},
	}
}

func TestRender_OneBlockPerResultInOrder(t *testing.T) {
	html := renderString(t, NewPage(sampleReport(), nil))

	assert.Equal(t, 3, strings.Count(html, `<div class="test" `))

	first := strings.Index(html, "First.Passes")
	second := strings.Index(html, "Second.Fails")
	third := strings.Index(html, "Third.Skipped")
	require.True(t, first > 0 && second > 0 && third > 0)
	assert.Less(t, first, second)
	assert.Less(t, second, third)
}

func TestRender_Summary(t *testing.T) {
	html := renderString(t, NewPage(sampleReport(), nil))

	assert.Contains(t, html, "<strong>Total Tests:</strong> 3")
	assert.Contains(t, html, "<strong>Executed:</strong> 3")
	assert.Contains(t, html, `<strong>Passed:</strong> <span class="passed">1</span>`)
	assert.Contains(t, html, `<strong>Failed:</strong> <span class="failed">1</span>`)
	assert.NotContains(t, html, "Errors:")
	assert.NotContains(t, html, "Inconclusive:")
}

func TestRender_SummaryErrorAndInconclusiveWhenNonzero(t *testing.T) {
	report := sampleReport()
	report.Summary.Error = 2
	report.Summary.Inconclusive = 4

	html := renderString(t, NewPage(report, nil))

	assert.Contains(t, html, `<strong>Errors:</strong> <span class="failed">2</span>`)
	assert.Contains(t, html, "<strong>Inconclusive:</strong> 4")
}

func TestRender_OutcomeStyles(t *testing.T) {
	html := renderString(t, NewPage(sampleReport(), nil))

	assert.Contains(t, html, "border-left-color: #4CAF50")
	assert.Contains(t, html, "border-left-color: #f44336")
	assert.Contains(t, html, "border-left-color: #ff9800")
	assert.Contains(t, html, `<span class="other">NotExecuted</span>`)
}

func TestRender_EscapesFreeText(t *testing.T) {
	report := &models.Report{
		Summary: models.Summary{Total: 1, Executed: 1, Failed: 1},
		Results: []models.TestResult{{
			Name:         `Name <script>alert(1)</script> & "quoted"`,
			Outcome:      models.OutcomeFailed,
			StdOut:       `<b>bold</b> & "x"`,
			ErrorMessage: `Expected <div> but got &nbsp;`,
		}},
	}
	shots := map[int][]Image{0: {ImageRef("screenshots", `evil"<img>.png`)}}

	html := renderString(t, NewPage(report, shots))

	assert.NotContains(t, html, "<script>alert(1)</script>")
	assert.NotContains(t, html, "<b>bold</b>")
	assert.NotContains(t, html, "Expected <div>")
	assert.Contains(t, html, "Name &lt;script&gt;alert(1)&lt;/script&gt; &amp; &#34;quoted&#34;")
	assert.Contains(t, html, "&lt;b&gt;bold&lt;/b&gt; &amp; &#34;x&#34;")
	assert.Contains(t, html, "Screenshot could not be loaded: evil&#34;&lt;img&gt;.png")
	assert.NotContains(t, html, `evil"<img>`)
}

func TestRender_ScreenshotsOnlyForFailed(t *testing.T) {
	report := sampleReport()
	shots := map[int][]Image{
		0: {ImageRef("screenshots", "ignored_for_passed.png")},
		1: {ImageRef("screenshots", "Second_20260120_054934.png")},
	}

	html := renderString(t, NewPage(report, shots))

	assert.Equal(t, 1, strings.Count(html, `<div class="screenshots">`))
	assert.Contains(t, html, `src="screenshots/Second_20260120_054934.png"`)
	assert.Contains(t, html, `href="screenshots/Second_20260120_054934.png"`)
	assert.NotContains(t, html, "ignored_for_passed.png")
	assert.NotContains(t, html, "No screenshots available")
	assert.Contains(t, html, "onerror=")
}

func TestRender_NoScreenshotsNotice(t *testing.T) {
	html := renderString(t, NewPage(sampleReport(), nil))

	assert.Equal(t, 1, strings.Count(html, "No screenshots available for this test."))
	assert.NotContains(t, html, `<div class="screenshots">`)
}

func TestRender_ErrorDetails(t *testing.T) {
	report := sampleReport()
	report.Results[1].ErrorMessage = "Element not found"
	report.Results[1].StackTrace = "at Second.Fails() line 3"

	html := renderString(t, NewPage(report, nil))
	assert.Contains(t, html, "<strong>Error:</strong> Element not found")
	assert.Contains(t, html, "at Second.Fails() line 3")
}

func TestRender_PlaceholderOutput(t *testing.T) {
	html := renderString(t, NewPage(sampleReport(), nil))
	assert.Contains(t, html, `<div class="output">No output</div>`)
	assert.Contains(t, html, `<div class="output">Starting Test: Second</div>`)
}

func TestRender_RunInfoAndFooter(t *testing.T) {
	report := sampleReport()
	report.Run = models.RunInfo{Name: "nightly", Start: "2026-01-20T05:49:21", Finish: "2026-01-20T05:49:40"}
	page := NewPage(report, nil)
	page.Title = "Nightly Portal Run"
	page.GeneratedAt = "2026-01-20 06:00:00"
	page.ReportID = "c0ffee"

	html := renderString(t, page)

	assert.Contains(t, html, "<title>Nightly Portal Run</title>")
	assert.Contains(t, html, "Run: nightly")
	assert.Contains(t, html, "Finished: 2026-01-20T05:49:40")
	assert.Contains(t, html, "Generated 2026-01-20 06:00:00")
	assert.Contains(t, html, "Report ID c0ffee")
}

func TestRender_DefaultTitle(t *testing.T) {
	html := renderString(t, Page{})
	assert.Contains(t, html, "<title>Test Results Report</title>")
}

func TestImageRef(t *testing.T) {
	tests := []struct {
		subdir string
		name   string
		want   string
	}{
		{"screenshots", "Search_for_pen_on_Google_20260120_054934.png", "screenshots/Search_for_pen_on_Google_20260120_054934.png"},
		{"screenshots", "with space#1?.png", "screenshots/with%20space%231%3F.png"},
		{"assets/shots", "a.png", "assets/shots/a.png"},
		{"", "a.png", "a.png"},
		{"./screenshots/", "a.png", "screenshots/a.png"},
	}
	for _, tt := range tests {
		img := ImageRef(tt.subdir, tt.name)
		assert.Equal(t, tt.want, string(img.Src), "%s + %s", tt.subdir, tt.name)
		assert.Equal(t, img.Src, img.Href)
		assert.Equal(t, tt.name, img.Name)
	}
}

func TestEmbedImage(t *testing.T) {
	file := filepath.Join(t.TempDir(), "shot.png")
	content := []byte("\x89PNG fake")
	require.NoError(t, os.WriteFile(file, content, 0644))

	img, err := EmbedImage(file, "screenshots")
	require.NoError(t, err)

	assert.Equal(t, "data:image/png;base64,"+base64.StdEncoding.EncodeToString(content), string(img.Src))
	assert.Equal(t, "screenshots/shot.png", string(img.Href))

	_, err = EmbedImage(filepath.Join(t.TempDir(), "missing.png"), "screenshots")
	assert.Error(t, err)
}

func TestMimeType(t *testing.T) {
	assert.Equal(t, "image/png", mimeType("a.png"))
	assert.Equal(t, "image/jpeg", mimeType("a.JPG"))
	assert.Equal(t, "image/jpeg", mimeType("a.jpeg"))
	assert.Equal(t, "image/gif", mimeType("a.gif"))
}
