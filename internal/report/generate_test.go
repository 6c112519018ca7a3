package report

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/kamilpajak/trxreport/internal/config"
	"github.com/kamilpajak/trxreport/internal/parser"
	"github.com/kamilpajak/trxreport/internal/screenshot"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const onePassOneFail = `<?xml version="1.0" encoding="utf-8"?>
<TestRun id="r1" name="local" xmlns="http://microsoft.com/schemas/VisualStudio/TeamTest/2010">
  <Results>
    <UnitTestResult testName="PortalTests.VerifyLogin" duration="00:00:01" startTime="2026-01-20T05:49:20" outcome="Passed">
      <Output><StdOut>Starting Test: Verify login</StdOut></Output>
    </UnitTestResult>
    <UnitTestResult testName="GoogleSearchTest.SearchForPen" duration="00:00:05" startTime="2026-01-20T05:49:22" outcome="Failed">
      <Output>
        <StdOut>Starting Test: Search for 'pen' on Google</StdOut>
        <ErrorInfo><Message>Element not found</Message></ErrorInfo>
      </Output>
    </UnitTestResult>
  </Results>
</TestRun>`

const penShot = "Search_for_pen_on_Google_20260120_054934.png"

type fixture struct {
	root   string
	cfg    *config.Config
	shots  string
	output string
}

func newFixture(t *testing.T, trx string) *fixture {
	t.Helper()
	root := t.TempDir()

	cfg := config.Default()
	cfg.Input = filepath.Join(root, "TestResults", "TestResults.trx")
	cfg.OutputDir = filepath.Join(root, "TestResults", "html")
	cfg.Screenshots.Dir = filepath.Join(root, "TestResults", "screenshots")

	require.NoError(t, os.MkdirAll(filepath.Dir(cfg.Input), 0755))
	if trx != "" {
		require.NoError(t, os.WriteFile(cfg.Input, []byte(trx), 0644))
	}
	require.NoError(t, os.MkdirAll(cfg.Screenshots.Dir, 0755))

	return &fixture{root: root, cfg: cfg, shots: cfg.Screenshots.Dir, output: cfg.OutputDir}
}

func (f *fixture) addShot(t *testing.T, name, content string, modTime time.Time) string {
	t.Helper()
	path := filepath.Join(f.shots, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	require.NoError(t, os.Chtimes(path, modTime, modTime))
	return path
}

func readReport(t *testing.T, res *Result) string {
	t.Helper()
	data, err := os.ReadFile(res.ReportPath)
	require.NoError(t, err)
	return string(data)
}

type countingProgress struct{ n int }

func (p *countingProgress) Add(n int) error {
	p.n += n
	return nil
}

func TestRun_MissingInput(t *testing.T) {
	f := newFixture(t, "")

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.Error(t, err)
	assert.Nil(t, res)

	var nf *parser.NotFoundError
	require.True(t, errors.As(err, &nf))
	assert.Contains(t, err.Error(), f.cfg.Input)

	_, statErr := os.Stat(f.output)
	assert.True(t, os.IsNotExist(statErr), "output dir must not be created")
}

func TestRun_MalformedInputWritesNoReport(t *testing.T) {
	f := newFixture(t, "<TestRun><Results>")

	_, err := Run(context.Background(), Params{Config: f.cfg})

	var pe *parser.ParseError
	require.True(t, errors.As(err, &pe))
	assert.NoFileExists(t, f.cfg.ReportPath())
}

func TestRun_OnePassOneFail_NoScreenshots(t *testing.T) {
	f := newFixture(t, onePassOneFail)

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Summary.Total)
	assert.Equal(t, 1, res.Summary.Passed)
	assert.Equal(t, 1, res.Summary.Failed)
	assert.False(t, res.Summary.FromCounters)
	assert.Empty(t, res.Attached)
	assert.NotEmpty(t, res.ReportID)

	html := readReport(t, res)
	assert.Equal(t, 2, strings.Count(html, `<div class="test" `))
	assert.Equal(t, 1, strings.Count(html, "No screenshots available for this test."))
	assert.NotContains(t, html, `<div class="screenshots">`)

	_, statErr := os.Stat(f.cfg.ScreenshotOutputDir())
	assert.True(t, os.IsNotExist(statErr), "nothing copied")
}

func TestRun_ExactMatchIsCopiedAndLinked(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	src := f.addShot(t, penShot, "pen-bytes", time.Now().Add(-time.Hour))
	f.addShot(t, "Verify_logout_20260120_060000.png", "other", time.Now())

	progress := &countingProgress{}
	res, err := Run(context.Background(), Params{Config: f.cfg, Progress: progress})
	require.NoError(t, err)

	require.Len(t, res.Attached, 1)
	att := res.Attached[0]
	assert.Equal(t, "GoogleSearchTest.SearchForPen", att.Test)
	assert.Equal(t, screenshot.TierExact, att.Tier)
	assert.Equal(t, src, att.Source)
	assert.Equal(t, "screenshots/"+penShot, att.Ref)
	assert.Equal(t, 1, progress.n)

	copied, err := os.ReadFile(filepath.Join(f.cfg.ScreenshotOutputDir(), penShot))
	require.NoError(t, err)
	assert.Equal(t, "pen-bytes", string(copied))

	original, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "pen-bytes", string(original), "source untouched")

	html := readReport(t, res)
	assert.Equal(t, 1, strings.Count(html, `<div class="screenshots">`))
	assert.Contains(t, html, `src="screenshots/`+penShot+`"`)
	assert.NotContains(t, html, "Verify_logout")
	assert.NotContains(t, html, "No screenshots available")
}

func TestRun_FallbackLatest(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, "Unrelated_old_20260101_000000.png", "old", time.Now().Add(-2*time.Hour))
	f.addShot(t, "Unrelated_new_20260102_000000.png", "new", time.Now())

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)
	require.Len(t, res.Attached, 1)
	assert.Equal(t, screenshot.TierLatest, res.Attached[0].Tier)
	assert.Equal(t, "Unrelated_new_20260102_000000.png", filepath.Base(res.Attached[0].Dest))

	f.cfg.Screenshots.FallbackLatest = false
	res, err = Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)
	assert.Empty(t, res.Attached)
}

func TestRun_ScreenshotsDisabled(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, penShot, "pen-bytes", time.Now())
	f.cfg.Screenshots.Enabled = false

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)
	assert.Empty(t, res.Attached)
	assert.NoDirExists(t, f.cfg.ScreenshotOutputDir())
}

func TestRun_CopyFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, penShot, "pen-bytes", time.Now())

	// A file where the screenshot folder should go makes every copy fail.
	require.NoError(t, os.MkdirAll(f.output, 0755))
	require.NoError(t, os.WriteFile(f.cfg.ScreenshotOutputDir(), []byte("x"), 0644))

	logger, hook := test.NewNullLogger()
	res, err := Run(context.Background(), Params{Config: f.cfg, Logger: logger})
	require.NoError(t, err)

	assert.Equal(t, 1, res.CopyFailures)
	assert.Empty(t, res.Attached)

	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Data["file"] == penShot {
			warned = true
		}
	}
	assert.True(t, warned, "copy failure logged as warning")

	html := readReport(t, res)
	assert.Contains(t, html, "No screenshots available for this test.")
}

func TestRun_EmbedScreenshots(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, penShot, "pen-bytes", time.Now())
	f.cfg.Screenshots.Embed = true

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)
	require.Len(t, res.Attached, 1)

	html := readReport(t, res)
	assert.Contains(t, html, `src="data:image/png;base64,`)
	assert.Contains(t, html, `href="screenshots/`+penShot+`"`)
}

func TestRun_TitleAndTimestamp(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.cfg.Title = "Portal nightly"
	fixed := time.Date(2026, 1, 20, 6, 0, 0, 0, time.UTC)

	res, err := Run(context.Background(), Params{
		Config: f.cfg,
		Now:    func() time.Time { return fixed },
	})
	require.NoError(t, err)

	html := readReport(t, res)
	assert.Contains(t, html, "<title>Portal nightly</title>")
	assert.Contains(t, html, "Generated 2026-01-20 06:00:00")
	assert.Contains(t, html, res.ReportID)
}

func TestRun_OverwritesExistingReport(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	require.NoError(t, os.MkdirAll(f.output, 0755))
	require.NoError(t, os.WriteFile(f.cfg.ReportPath(), []byte("stale stale stale stale stale"), 0644))

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)

	html := readReport(t, res)
	assert.NotContains(t, html, "stale")
	assert.True(t, strings.HasPrefix(strings.TrimSpace(html), "<!DOCTYPE html>"))
}

func TestRun_CancelledContext(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, penShot, "pen-bytes", time.Now())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, Params{Config: f.cfg})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestWriteReport_FailedRenderKeepsPreviousReport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "TestReport.html")
	require.NoError(t, os.WriteFile(path, []byte("<html>previous</html>"), 0644))

	err := writeReport(path, func(w io.Writer) error {
		_, _ = io.WriteString(w, "<html><body>half")
		return errors.New("template failed")
	})
	require.Error(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "<html>previous</html>", string(data))
}

func TestRun_ClearsScreenshotsFromPreviousRun(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.addShot(t, penShot, "pen-bytes", time.Now())

	stale := filepath.Join(f.cfg.ScreenshotOutputDir(), "Old_run_20250101_000000.png")
	require.NoError(t, os.MkdirAll(filepath.Dir(stale), 0755))
	require.NoError(t, os.WriteFile(stale, []byte("old"), 0644))

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)

	require.Len(t, res.Attached, 1)
	assert.NoFileExists(t, stale)
	assert.FileExists(t, filepath.Join(f.cfg.ScreenshotOutputDir(), penShot))
}

func TestRun_ScreenshotSourceInsideOutputIsKept(t *testing.T) {
	f := newFixture(t, onePassOneFail)
	f.cfg.Screenshots.Dir = f.cfg.ScreenshotOutputDir()
	f.shots = f.cfg.Screenshots.Dir
	require.NoError(t, os.MkdirAll(f.shots, 0755))
	src := f.addShot(t, penShot, "pen-bytes", time.Now())

	res, err := Run(context.Background(), Params{Config: f.cfg})
	require.NoError(t, err)

	require.Len(t, res.Attached, 1)
	data, err := os.ReadFile(src)
	require.NoError(t, err)
	assert.Equal(t, "pen-bytes", string(data))
}
