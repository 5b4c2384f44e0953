package analytics

import (
	"errors"
	"strings"
	"testing"

	"github.com/geekatyourspot/rankpilot/internal/platform/errs"
)

func TestParse_GA4Export(t *testing.T) {
	content := `# All Users
# Date range: Jan 1 - Jan 31, 2026
Page path and screen class,Views,Active users,Average engagement time,Event count,Key events,Total revenue
/,1200,450,1m 30s,3400,12,"$1,250.00"
/pricing,830,310,45s,2100,8,0
/blog/composting-guide,410,190,2m 5s,980,3,0
`

	result, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if result.RowCount != 3 {
		t.Fatalf("RowCount = %d, want 3", result.RowCount)
	}
	if result.DateRange != "Jan 1 - Jan 31, 2026" {
		t.Errorf("DateRange = %q", result.DateRange)
	}

	home := result.Rows[0]
	if home.Path != "/" || home.Views != 1200 || home.ActiveUsers != 450 {
		t.Errorf("home row = %+v", home)
	}
	if home.AvgEngagementTime != 90 {
		t.Errorf("home engagement = %v, want 90", home.AvgEngagementTime)
	}
	if home.TotalRevenue != 1250 {
		t.Errorf("home revenue = %v, want 1250", home.TotalRevenue)
	}

	pricing := result.Rows[1]
	if pricing.AvgEngagementTime != 45 {
		t.Errorf("pricing engagement = %v, want 45", pricing.AvgEngagementTime)
	}
	if blog := result.Rows[2]; blog.AvgEngagementTime != 125 {
		t.Errorf("blog engagement = %v, want 125", blog.AvgEngagementTime)
	}
}

func TestParse_HeaderAliases(t *testing.T) {
	content := `Page path,Views,Conversions
/landing,300,7
`
	result, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Rows[0].KeyEvents != 7 {
		t.Errorf("KeyEvents = %d, want 7 (conversions alias)", result.Rows[0].KeyEvents)
	}
}

func TestParse_UnevenRowsTolerated(t *testing.T) {
	content := `Page path and screen class,Views,Active users
/short,100
/full,200,80
`
	result, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 2 {
		t.Fatalf("RowCount = %d, want 2", result.RowCount)
	}
	if result.Rows[0].ActiveUsers != 0 {
		t.Errorf("missing column should default to 0, got %d", result.Rows[0].ActiveUsers)
	}
}

func TestParse_DropsInvalidRows(t *testing.T) {
	content := `Page path and screen class,Views
,50
/negative,-3
/fractional,12.5
/ok,40
`
	result, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 1 || result.Rows[0].Path != "/ok" {
		t.Errorf("rows = %+v, want only /ok", result.Rows)
	}
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"empty", ""},
		{"comments only", "# report\n# Date range: whenever\n"},
		{"header only", "Page path and screen class,Views\n"},
		{"missing required columns", "Sessions,Bounce rate\n100,0.4\n"},
		{"all rows invalid", "Page path and screen class,Views\n,100\n,200\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Parse(tc.content)
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			var appErr *errs.AppError
			if !errors.As(err, &appErr) || appErr.Kind != errs.ParsingFailed {
				t.Errorf("error = %v, want ParsingFailed AppError", err)
			}
		})
	}
}

func TestParseEngagementTime(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"2m 30s", 150},
		{"1m", 60},
		{"45s", 45},
		{"45", 45},
		{"37.5", 37.5},
		{"", 0},
		{"garbage", 0},
	}

	for _, tc := range tests {
		if got := ParseEngagementTime(tc.raw); got != tc.want {
			t.Errorf("ParseEngagementTime(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParseNumeric(t *testing.T) {
	tests := []struct {
		raw  string
		want float64
	}{
		{"1200", 1200},
		{"1,200", 1200},
		{"$1,250.50", 1250.5},
		{"", 0},
		{"n/a", 0},
	}

	for _, tc := range tests {
		if got := parseNumeric(tc.raw); got != tc.want {
			t.Errorf("parseNumeric(%q) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestParse_CRLFInput(t *testing.T) {
	content := strings.Join([]string{
		"# Date range: Feb 2026",
		"Page path and screen class,Views",
		"/,500",
		"",
	}, "\r\n")

	result, err := Parse(content)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.RowCount != 1 || result.Rows[0].Views != 500 {
		t.Errorf("rows = %+v", result.Rows)
	}
}
