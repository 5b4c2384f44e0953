// Package analytics parses traffic-analytics exports and diffs
// before/after snapshots per path.
package analytics

import (
	"encoding/csv"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/geekatyourspot/rankpilot/internal/model"
	"github.com/geekatyourspot/rankpilot/internal/platform/errs"
)

// ParseResult is one parsed snapshot: the validated rows plus the
// date-range comment, if the export carried one.
type ParseResult struct {
	Rows      []model.AnalyticsRow
	RowCount  int
	DateRange string
}

// columnAliases maps lowercased export headers to row fields. GA4 exports
// vary the wording between report types.
var columnAliases = map[string]string{
	"page path and screen class":              "path",
	"page path":                               "path",
	"views":                                   "views",
	"active users":                            "activeUsers",
	"average engagement time":                 "avgEngagementTime",
	"average engagement time per active user": "avgEngagementTime",
	"event count":                             "eventCount",
	"key events":                              "keyEvents",
	"conversions":                             "keyEvents",
	"total revenue":                           "totalRevenue",
}

var (
	dateRangePattern = regexp.MustCompile(`(?i)date range[:\s]+(.+)`)
	minutesPattern   = regexp.MustCompile(`(\d+)m`)
	secondsPattern   = regexp.MustCompile(`(\d+)s`)
	currencyCleaner  = strings.NewReplacer(",", "", "$", "")
)

// column binds a header position to the row field it populates.
type column struct {
	index int
	field string
}

func parseError(message string, cause error) error {
	return &errs.AppError{Kind: errs.ParsingFailed, Message: message, Cause: cause}
}

// Parse reads a delimited analytics export: optional leading comment lines
// (`#...`), a header row, then data rows. Rows failing strict validation
// are dropped; a parse yielding zero valid rows is an error, because
// comparison correctness depends on complete data.
func Parse(content string) (*ParseResult, error) {
	var dateRange string
	var dataLines []string

	for line := range strings.Lines(content) {
		line = strings.TrimRight(line, "\r\n")
		if strings.HasPrefix(line, "#") {
			if m := dateRangePattern.FindStringSubmatch(line); m != nil {
				dateRange = strings.TrimSpace(m[1])
			}
			continue
		}
		dataLines = append(dataLines, line)
	}

	data := strings.TrimSpace(strings.Join(dataLines, "\n"))
	if data == "" {
		return nil, parseError("CSV file is empty or contains only comments", nil)
	}

	reader := csv.NewReader(strings.NewReader(data))
	reader.FieldsPerRecord = -1 // exports pad rows unevenly
	records, err := reader.ReadAll()
	if err != nil {
		return nil, parseError("Failed to parse CSV content.", err)
	}

	if len(records) < 2 {
		return nil, parseError("CSV file must contain a header row and at least one data row", nil)
	}

	headerRow, dataRows := records[0], records[1:]

	var columns []column
	var headers []string
	for i, h := range headerRow {
		header := strings.ToLower(strings.TrimSpace(h))
		headers = append(headers, header)
		if field, ok := columnAliases[header]; ok {
			columns = append(columns, column{index: i, field: field})
		}
	}

	hasPath, hasViews := false, false
	for _, c := range columns {
		switch c.field {
		case "path":
			hasPath = true
		case "views":
			hasViews = true
		}
	}
	if !hasPath || !hasViews {
		return nil, parseError(fmt.Sprintf(
			`CSV must contain at least "Page path and screen class" and "Views" columns. Found columns: %s`,
			strings.Join(headers, ", ")), nil)
	}

	var rows []model.AnalyticsRow
	for _, record := range dataRows {
		var row model.AnalyticsRow
		for _, c := range columns {
			var raw string
			if c.index < len(record) {
				raw = strings.TrimSpace(record[c.index])
			}
			switch c.field {
			case "path":
				row.Path = raw
			case "views":
				row.Views = int(parseNumeric(raw))
			case "activeUsers":
				row.ActiveUsers = int(parseNumeric(raw))
			case "avgEngagementTime":
				row.AvgEngagementTime = ParseEngagementTime(raw)
			case "eventCount":
				row.EventCount = int(parseNumeric(raw))
			case "keyEvents":
				row.KeyEvents = int(parseNumeric(raw))
			case "totalRevenue":
				row.TotalRevenue = parseNumeric(raw)
			}
		}
		if validRow(row, record, columns) {
			rows = append(rows, row)
		}
	}

	if len(rows) == 0 {
		return nil, parseError("No valid data rows found in CSV", nil)
	}

	return &ParseResult{Rows: rows, RowCount: len(rows), DateRange: dateRange}, nil
}

// validRow enforces the row schema: non-empty path, every numeric field
// non-negative, and the count fields whole numbers in the raw input.
func validRow(row model.AnalyticsRow, record []string, columns []column) bool {
	if row.Path == "" {
		return false
	}
	if row.Views < 0 || row.ActiveUsers < 0 || row.AvgEngagementTime < 0 ||
		row.EventCount < 0 || row.KeyEvents < 0 || row.TotalRevenue < 0 {
		return false
	}
	for _, c := range columns {
		if c.index >= len(record) {
			continue
		}
		raw := strings.TrimSpace(record[c.index])
		switch c.field {
		case "views", "activeUsers", "eventCount", "keyEvents":
			v := parseNumeric(raw)
			if v != math.Trunc(v) || v < 0 {
				return false
			}
		}
	}
	return true
}

// parseNumeric strips currency symbols and thousands separators before
// parsing, defaulting to 0 when the field is empty or unparseable.
func parseNumeric(raw string) float64 {
	cleaned := currencyCleaner.Replace(raw)
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// ParseEngagementTime parses GA4 engagement durations: "Xm Ys", "Xm",
// "Ys", or a bare number of seconds. Unrecognized input yields 0.
func ParseEngagementTime(raw string) float64 {
	minMatch := minutesPattern.FindStringSubmatch(raw)
	secMatch := secondsPattern.FindStringSubmatch(raw)

	if minMatch == nil && secMatch == nil {
		v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return v
	}

	var seconds float64
	if minMatch != nil {
		m, _ := strconv.Atoi(minMatch[1])
		seconds += float64(m) * 60
	}
	if secMatch != nil {
		s, _ := strconv.Atoi(secMatch[1])
		seconds += float64(s)
	}
	return seconds
}
