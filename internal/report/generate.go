// Package report runs the generate pipeline: parse a TRX file, attach
// screenshots to failed tests and write the HTML report.
package report

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/kamilpajak/trxreport/internal/config"
	"github.com/kamilpajak/trxreport/internal/parser"
	"github.com/kamilpajak/trxreport/internal/render"
	"github.com/kamilpajak/trxreport/internal/screenshot"
	"github.com/kamilpajak/trxreport/pkg/models"
	"github.com/sirupsen/logrus"
)

// Progress receives one unit per failed test processed.
type Progress interface {
	Add(int) error
}

// Params configures a generate run.
type Params struct {
	Config   *config.Config
	Logger   logrus.FieldLogger
	Progress Progress
	// Now is used for the generation timestamp. Defaults to time.Now.
	Now func() time.Time
}

// Attachment is a screenshot copied next to the report for a failed test.
type Attachment struct {
	Test    string          `json:"test"`
	Source  string          `json:"source"`
	Dest    string          `json:"dest"`
	Ref     string          `json:"ref"`
	Tier    screenshot.Tier `json:"tier"`
	Segment bool            `json:"segment,omitempty"`
}

// Result describes a finished run.
type Result struct {
	ReportID     string         `json:"report_id"`
	ReportPath   string         `json:"report_path"`
	Summary      models.Summary `json:"summary"`
	Attached     []Attachment   `json:"attached"`
	CopyFailures int            `json:"copy_failures"`
}

// Run executes the generate pipeline. A missing input returns a
// *parser.NotFoundError before anything is written; a malformed input returns
// a *parser.ParseError and no report.
func Run(ctx context.Context, p Params) (*Result, error) {
	cfg := p.Config
	if cfg == nil {
		cfg = config.Default()
	}
	log := p.Logger
	if log == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		log = l
	}
	now := p.Now
	if now == nil {
		now = time.Now
	}

	if _, err := os.Stat(cfg.Input); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &parser.NotFoundError{Path: cfg.Input}
		}
		return nil, fmt.Errorf("failed to stat input: %w", err)
	}

	if err := os.MkdirAll(cfg.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output dir: %w", err)
	}

	log.WithField("input", cfg.Input).Debug("parsing test results")
	rep, err := (&parser.TRXParser{}).Parse(cfg.Input)
	if err != nil {
		return nil, err
	}

	if removed, err := screenshot.Clean(cfg.ScreenshotOutputDir(), cfg.Screenshots.Dir); err != nil {
		log.WithError(err).Warn("failed to clear old screenshots")
	} else if removed > 0 {
		log.WithField("files", removed).Debug("cleared old screenshots")
	}

	res := &Result{
		ReportID:   uuid.New().String(),
		ReportPath: cfg.ReportPath(),
		Summary:    rep.Summary,
		Attached:   []Attachment{},
	}

	var images map[int][]render.Image
	if cfg.Screenshots.Enabled && rep.HasFailures() {
		images, err = attach(ctx, cfg, rep, log, p.Progress, res)
		if err != nil {
			return nil, err
		}
	}

	page := render.NewPage(rep, images)
	if cfg.Title != "" {
		page.Title = cfg.Title
	}
	page.GeneratedAt = now().Format("2006-01-02 15:04:05")
	page.ReportID = res.ReportID

	if err := writeReport(res.ReportPath, func(w io.Writer) error { return render.Render(w, page) }); err != nil {
		return nil, err
	}

	log.WithFields(logrus.Fields{
		"report":      res.ReportPath,
		"screenshots": len(res.Attached),
	}).Debug("report written")

	return res, nil
}

// attach matches and copies screenshots for every failed result. The returned
// map is indexed like rep.Results.
func attach(ctx context.Context, cfg *config.Config, rep *models.Report, log logrus.FieldLogger, progress Progress, res *Result) (map[int][]render.Image, error) {
	candidates, err := screenshot.Scan(cfg.Screenshots.Dir)
	if err != nil {
		log.WithError(err).Warn("screenshots skipped")
		return nil, nil
	}
	if len(candidates) == 0 {
		log.WithField("dir", cfg.Screenshots.Dir).Debug("no screenshots found")
	}

	matcher := &screenshot.Matcher{
		StopWords:      cfg.Screenshots.StopWords,
		FallbackLatest: cfg.Screenshots.FallbackLatest,
		Logger:         log,
	}
	destDir := cfg.ScreenshotOutputDir()

	images := make(map[int][]render.Image)
	for i, r := range rep.Results {
		if !r.Failed() {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, m := range matcher.Match(r.SearchText(), candidates) {
			dest, err := screenshot.Copy(m.Path, destDir)
			if err != nil {
				res.CopyFailures++
				log.WithError(err).WithField("file", m.Name).Warn("failed to copy screenshot")
				continue
			}

			img := render.ImageRef(cfg.Screenshots.Subdir, m.Name)
			if cfg.Screenshots.Embed {
				if img, err = render.EmbedImage(dest, cfg.Screenshots.Subdir); err != nil {
					res.CopyFailures++
					log.WithError(err).WithField("file", m.Name).Warn("failed to embed screenshot")
					continue
				}
			}

			images[i] = append(images[i], img)
			res.Attached = append(res.Attached, Attachment{
				Test:    r.Name,
				Source:  m.Path,
				Dest:    dest,
				Ref:     string(img.Href),
				Tier:    m.Tier,
				Segment: m.Segment,
			})
		}

		if progress != nil {
			_ = progress.Add(1)
		}
	}
	return images, nil
}

// writeReport renders fully in memory first so a failed render never leaves a
// truncated report behind.
func writeReport(path string, renderFn func(io.Writer) error) error {
	var buf bytes.Buffer
	if err := renderFn(&buf); err != nil {
		return err
	}
	if err := os.WriteFile(path, buf.Bytes(), 0644); err != nil { //#nosec G306 -- report is meant to be shared
		return fmt.Errorf("failed to write report: %w", err)
	}
	return nil
}
