// Package playwright opens a generated report in a headless browser and checks
// that it renders.
package playwright

import (
	"fmt"
	"path/filepath"

	"github.com/kamilpajak/trxreport/internal/server"
	"github.com/playwright-community/playwright-go"
)

// Verification is what the browser saw on the report page.
type Verification struct {
	URL          string   `json:"url"`
	Title        string   `json:"title"`
	Tests        int      `json:"tests"`
	FailedTests  int      `json:"failed_tests"`
	Images       int      `json:"images"`
	BrokenImages []string `json:"broken_images"`
}

// OK reports whether every screenshot on the page loaded.
func (v *Verification) OK() bool {
	return len(v.BrokenImages) == 0
}

// imageState is one <img> as reported by the page script.
type imageState struct {
	Src          string
	Complete     bool
	NaturalWidth int
}

const collectImages = `() => Array.from(document.querySelectorAll('.screenshots img')).map(img => ({
	src: img.getAttribute('src'),
	complete: img.complete,
	naturalWidth: img.naturalWidth,
}))`

// brokenImages returns the sources of images that finished loading without content.
func brokenImages(images []imageState) []string {
	broken := []string{}
	for _, img := range images {
		if img.Complete && img.NaturalWidth == 0 {
			broken = append(broken, img.Src)
		}
	}
	return broken
}

// decodeImages converts the Evaluate result into image states.
func decodeImages(raw any) []imageState {
	list, ok := raw.([]any)
	if !ok {
		return nil
	}
	images := make([]imageState, 0, len(list))
	for _, item := range list {
		m, ok := item.(map[string]any)
		if !ok {
			continue
		}
		img := imageState{}
		img.Src, _ = m["src"].(string)
		img.Complete, _ = m["complete"].(bool)
		switch w := m["naturalWidth"].(type) {
		case int:
			img.NaturalWidth = w
		case float64:
			img.NaturalWidth = int(w)
		}
		images = append(images, img)
	}
	return images
}

// Verify opens url in headless Chromium and inspects the report.
func Verify(url string) (*Verification, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("could not start playwright: %w", err)
	}
	defer pw.Stop()

	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("could not launch browser: %w", err)
	}
	defer browser.Close()

	page, err := browser.NewPage()
	if err != nil {
		return nil, fmt.Errorf("could not create page: %w", err)
	}

	if _, err = page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
	}); err != nil {
		return nil, fmt.Errorf("could not navigate: %w", err)
	}

	v := &Verification{URL: url}

	if v.Title, err = page.Title(); err != nil {
		return nil, fmt.Errorf("could not read title: %w", err)
	}
	if v.Tests, err = page.Locator("div.test").Count(); err != nil {
		return nil, fmt.Errorf("could not count tests: %w", err)
	}
	if v.FailedTests, err = page.Locator("div.test span.failed").Count(); err != nil {
		return nil, fmt.Errorf("could not count failed tests: %w", err)
	}

	raw, err := page.Evaluate(collectImages)
	if err != nil {
		return nil, fmt.Errorf("could not inspect images: %w", err)
	}
	images := decodeImages(raw)
	v.Images = len(images)
	v.BrokenImages = brokenImages(images)

	return v, nil
}

// VerifyReport serves the report's directory locally and verifies the report.
func VerifyReport(reportPath string) (*Verification, error) {
	if !IsAvailable() {
		return nil, fmt.Errorf("playwright not installed. Run: trxreport verify --install")
	}

	srv, err := server.Start(filepath.Dir(reportPath), "")
	if err != nil {
		return nil, fmt.Errorf("failed to start server: %w", err)
	}
	defer srv.Stop()

	v, err := Verify(srv.URL(filepath.Base(reportPath)))
	if err != nil {
		return nil, fmt.Errorf("failed to verify report: %w", err)
	}
	return v, nil
}

// Install installs playwright browsers
func Install() error {
	return playwright.Install(&playwright.RunOptions{Browsers: []string{"chromium"}})
}

// IsAvailable checks if playwright browsers are installed
func IsAvailable() bool {
	pw, err := playwright.Run()
	if err != nil {
		return false
	}
	pw.Stop()
	return true
}
