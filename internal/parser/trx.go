package parser

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"

	"github.com/kamilpajak/trxreport/pkg/models"
	"golang.org/x/net/html/charset"
)

// Namespace is the XML namespace of TRX documents.
const Namespace = "http://microsoft.com/schemas/VisualStudio/TeamTest/2010"

// TRXParser parses TRX (Visual Studio test results) files
type TRXParser struct{}

// unitTestResult is one UnitTestResult element. Data-driven tests nest their
// rows under InnerResults.
type unitTestResult struct {
	TestName     string           `xml:"testName,attr"`
	Outcome      string           `xml:"outcome,attr"`
	Duration     string           `xml:"duration,attr"`
	StartTime    string           `xml:"startTime,attr"`
	EndTime      string           `xml:"endTime,attr"`
	TestID       string           `xml:"testId,attr"`
	ExecutionID  string           `xml:"executionId,attr"`
	ComputerName string           `xml:"computerName,attr"`
	Output       *trxOutput       `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 Output"`
	InnerResults []unitTestResult `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 InnerResults>UnitTestResult"`
}

type trxOutput struct {
	StdOut    *string       `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 StdOut"`
	ErrorInfo *trxErrorInfo `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 ErrorInfo"`
}

type trxErrorInfo struct {
	Message    string `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 Message"`
	StackTrace string `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 StackTrace"`
}

type resultSummary struct {
	Outcome  string       `xml:"outcome,attr"`
	Counters *trxCounters `xml:"http://microsoft.com/schemas/VisualStudio/TeamTest/2010 Counters"`
}

// trxCounters keeps the raw attribute text so that absent counters can be
// told apart from zero.
type trxCounters struct {
	Total        string `xml:"total,attr"`
	Executed     string `xml:"executed,attr"`
	Passed       string `xml:"passed,attr"`
	Failed       string `xml:"failed,attr"`
	Error        string `xml:"error,attr"`
	Inconclusive string `xml:"inconclusive,attr"`
}

// rawReport is what the decoder collects before normalization.
type rawReport struct {
	results  []unitTestResult
	counters *trxCounters
	run      models.RunInfo
}

// Parse reads and parses a TRX file
func (p *TRXParser) Parse(path string) (*models.Report, error) {
	data, err := os.ReadFile(path) //#nosec G304 -- user-provided input file
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, fmt.Errorf("failed to read report: %w", err)
	}

	report, err := p.ParseBytes(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return report, nil
}

// ParseBytes parses a TRX document from raw bytes
func (p *TRXParser) ParseBytes(data []byte) (*models.Report, error) {
	raw, err := p.decode(bytes.NewReader(data))
	if err != nil {
		return nil, &ParseError{Err: err}
	}

	report, err := p.normalize(raw)
	if err != nil {
		return nil, &ParseError{Err: err}
	}
	return report, nil
}

// decode walks the token stream so that results are found at any depth,
// the way a descendant search would.
func (p *TRXParser) decode(r io.Reader) (*rawReport, error) {
	dec := xml.NewDecoder(r)
	dec.CharsetReader = charset.NewReaderLabel

	raw := &rawReport{}
	sawRoot := false
	depth := 0

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		var se xml.StartElement
		switch t := tok.(type) {
		case xml.CharData:
			if depth == 0 && len(bytes.TrimSpace(t)) > 0 {
				return nil, errors.New("text outside the document element")
			}
			continue
		case xml.EndElement:
			depth--
			continue
		case xml.StartElement:
			if depth == 0 && sawRoot {
				return nil, fmt.Errorf("junk after document element: <%s>", t.Name.Local)
			}
			sawRoot = true
			se = t
		default:
			continue
		}

		if se.Name.Space != Namespace {
			depth++
			continue
		}

		// DecodeElement consumes the matching end tag, so depth is unchanged.
		switch se.Name.Local {
		case "ResultSummary":
			var s resultSummary
			if err := dec.DecodeElement(&s, &se); err != nil {
				return nil, err
			}
			if raw.run.Outcome == "" {
				raw.run.Outcome = s.Outcome
			}
			if raw.counters == nil && s.Counters != nil {
				raw.counters = s.Counters
			}
			continue
		case "UnitTestResult":
			var res unitTestResult
			if err := dec.DecodeElement(&res, &se); err != nil {
				return nil, err
			}
			raw.results = appendFlattened(raw.results, res)
			continue
		case "TestRun":
			raw.run.ID = attr(se, "id")
			raw.run.Name = attr(se, "name")
		case "Times":
			raw.run.Start = attr(se, "start")
			raw.run.Finish = attr(se, "finish")
		}
		depth++
	}

	if !sawRoot {
		return nil, errors.New("no root element found")
	}
	return raw, nil
}

// appendFlattened appends a result followed by its inner results, depth first.
func appendFlattened(dst []unitTestResult, res unitTestResult) []unitTestResult {
	inner := res.InnerResults
	res.InnerResults = nil
	dst = append(dst, res)
	for _, r := range inner {
		dst = appendFlattened(dst, r)
	}
	return dst
}

func (p *TRXParser) normalize(raw *rawReport) (*models.Report, error) {
	report := &models.Report{
		Run:     raw.run,
		Results: make([]models.TestResult, 0, len(raw.results)),
	}

	for _, r := range raw.results {
		report.Results = append(report.Results, p.normalizeResult(r))
	}

	if raw.counters != nil {
		summary, err := raw.counters.summary(len(report.Results))
		if err != nil {
			return nil, err
		}
		report.Summary = summary
		return report, nil
	}

	report.Summary = countOutcomes(report.Results)
	return report, nil
}

func (p *TRXParser) normalizeResult(r unitTestResult) models.TestResult {
	tr := models.TestResult{
		Name:         orDefault(r.TestName, models.PlaceholderName),
		Outcome:      models.Outcome(orDefault(r.Outcome, string(models.OutcomeUnknown))),
		Duration:     orDefault(r.Duration, models.PlaceholderDuration),
		StartTime:    orDefault(r.StartTime, models.PlaceholderTime),
		EndTime:      r.EndTime,
		TestID:       r.TestID,
		ExecutionID:  r.ExecutionID,
		ComputerName: r.ComputerName,
	}

	if r.Output != nil {
		if r.Output.StdOut != nil {
			tr.StdOut = *r.Output.StdOut
		}
		if r.Output.ErrorInfo != nil {
			tr.ErrorMessage = r.Output.ErrorInfo.Message
			tr.StackTrace = r.Output.ErrorInfo.StackTrace
		}
	}

	return tr
}

// countOutcomes derives the summary when the file has no counters block.
// Only Passed and Failed are told apart; other outcomes only count toward the total.
func countOutcomes(results []models.TestResult) models.Summary {
	s := models.Summary{
		Total:    len(results),
		Executed: len(results),
	}
	for _, r := range results {
		switch r.Outcome {
		case models.OutcomePassed:
			s.Passed++
		case models.OutcomeFailed:
			s.Failed++
		}
	}
	return s
}

func (c *trxCounters) summary(resultCount int) (models.Summary, error) {
	s := models.Summary{FromCounters: true}

	fields := []struct {
		name  string
		value string
		def   int
		dst   *int
	}{
		{"total", c.Total, resultCount, &s.Total},
		{"executed", c.Executed, resultCount, &s.Executed},
		{"passed", c.Passed, 0, &s.Passed},
		{"failed", c.Failed, 0, &s.Failed},
		{"error", c.Error, 0, &s.Error},
		{"inconclusive", c.Inconclusive, 0, &s.Inconclusive},
	}

	for _, f := range fields {
		n, err := parseCounter(f.name, f.value, f.def)
		if err != nil {
			return models.Summary{}, err
		}
		*f.dst = n
	}
	return s, nil
}

func parseCounter(name, value string, def int) (int, error) {
	if value == "" {
		return def, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return 0, fmt.Errorf("invalid counter %s=%q", name, value)
	}
	if n < 0 {
		return 0, fmt.Errorf("negative counter %s=%d", name, n)
	}
	return n, nil
}

func attr(se xml.StartElement, local string) string {
	for _, a := range se.Attr {
		if a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
