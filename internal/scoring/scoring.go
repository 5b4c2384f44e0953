// Package scoring turns a page's extracted signals into a weighted SEO
// score and an issue list. Scoring is a pure function of the signal: the
// same input always produces the same score.
package scoring

import (
	"fmt"
	"math"
	"strings"
	"unicode/utf8"

	"github.com/geekatyourspot/rankpilot/internal/model"
)

// Category weights. They sum to 100 so the overall score is a weighted
// mean of the per-category scores.
const (
	weightTitle           = 20
	weightMetaDescription = 15
	weightHeadings        = 10
	weightContent         = 20
	weightImages          = 10
	weightLinks           = 10
	weightMobile          = 10
	weightTechnical       = 5
)

// ScorePage scores one page. Each category starts at 100, loses fixed
// penalties for specific defects, and is floored at zero.
func ScorePage(page model.PageSignal) model.PageScore {
	var issues []model.Issue

	breakdown := model.ScoreBreakdown{
		Title:           scoreTitle(page, &issues),
		MetaDescription: scoreMetaDescription(page, &issues),
		Headings:        scoreHeadings(page, &issues),
		Content:         scoreContent(page, &issues),
		Images:          scoreImages(page, &issues),
		Links:           scoreLinks(page, &issues),
		Mobile:          scoreMobile(page, &issues),
		Technical:       scoreTechnical(page, &issues),
	}

	weighted := breakdown.Title*weightTitle +
		breakdown.MetaDescription*weightMetaDescription +
		breakdown.Headings*weightHeadings +
		breakdown.Content*weightContent +
		breakdown.Images*weightImages +
		breakdown.Links*weightLinks +
		breakdown.Mobile*weightMobile +
		breakdown.Technical*weightTechnical

	overall := int(math.Round(float64(weighted) / 100))

	return model.PageScore{
		Overall:   overall,
		Breakdown: breakdown,
		Issues:    issues,
	}
}

// SiteScore is the rounded arithmetic mean of all page scores, or zero
// when no pages were crawled.
func SiteScore(scores []model.PageScore) int {
	if len(scores) == 0 {
		return 0
	}
	total := 0
	for _, s := range scores {
		total += s.Overall
	}
	return int(math.Round(float64(total) / float64(len(scores))))
}

func scoreTitle(page model.PageSignal, issues *[]model.Issue) int {
	if page.Title == "" {
		*issues = append(*issues, model.Issue{
			Category: model.CategoryTitle,
			Severity: model.SeverityCritical,
			Message:  "Page is missing a title tag",
			Impact:   10,
		})
		return 0
	}

	score := 100
	// Search engines truncate on display width, so length limits count
	// characters, not bytes.
	length := utf8.RuneCountInString(page.Title)

	if length < 30 {
		score -= 30
		*issues = append(*issues, model.Issue{
			Category:     model.CategoryTitle,
			Severity:     model.SeverityWarning,
			Message:      fmt.Sprintf("Title tag is too short (%d characters). Recommended: 50-60 characters.", length),
			CurrentValue: page.Title,
			Impact:       6,
		})
	} else if length > 60 {
		score -= 20
		*issues = append(*issues, model.Issue{
			Category:     model.CategoryTitle,
			Severity:     model.SeverityWarning,
			Message:      fmt.Sprintf("Title tag is too long (%d characters). It may be truncated in search results. Recommended: 50-60 characters.", length),
			CurrentValue: page.Title,
			Impact:       4,
		})
	}

	lower := strings.ToLower(page.Title)
	if lower == "home" || lower == "untitled" {
		score -= 40
		*issues = append(*issues, model.Issue{
			Category:     model.CategoryTitle,
			Severity:     model.SeverityCritical,
			Message:      "Title tag is generic and not descriptive.",
			CurrentValue: page.Title,
			Impact:       8,
		})
	}

	return max(0, score)
}

func scoreMetaDescription(page model.PageSignal, issues *[]model.Issue) int {
	if page.MetaDescription == "" {
		*issues = append(*issues, model.Issue{
			Category: model.CategoryMetaDescription,
			Severity: model.SeverityCritical,
			Message:  "Page is missing a meta description.",
			Impact:   8,
		})
		return 0
	}

	score := 100
	length := utf8.RuneCountInString(page.MetaDescription)

	if length < 120 {
		score -= 25
		*issues = append(*issues, model.Issue{
			Category:     model.CategoryMetaDescription,
			Severity:     model.SeverityWarning,
			Message:      fmt.Sprintf("Meta description is too short (%d characters). Recommended: 150-160 characters.", length),
			CurrentValue: page.MetaDescription,
			Impact:       5,
		})
	} else if length > 160 {
		score -= 15
		*issues = append(*issues, model.Issue{
			Category:     model.CategoryMetaDescription,
			Severity:     model.SeverityInfo,
			Message:      fmt.Sprintf("Meta description is too long (%d characters). It may be truncated. Recommended: 150-160 characters.", length),
			CurrentValue: page.MetaDescription,
			Impact:       3,
		})
	}

	return max(0, score)
}

func scoreHeadings(page model.PageSignal, issues *[]model.Issue) int {
	score := 100

	if page.H1 == "" {
		score -= 50
		*issues = append(*issues, model.Issue{
			Category: model.CategoryHeadings,
			Severity: model.SeverityCritical,
			Message:  "Page is missing an H1 heading.",
			Impact:   7,
		})
	}

	if len(page.H2s) == 0 {
		score -= 20
		*issues = append(*issues, model.Issue{
			Category: model.CategoryHeadings,
			Severity: model.SeverityWarning,
			Message:  "Page has no H2 subheadings. Use H2s to structure content.",
			Impact:   4,
		})
	}

	return max(0, score)
}

func scoreContent(page model.PageSignal, issues *[]model.Issue) int {
	score := 100

	if page.WordCount < 100 {
		score -= 60
		*issues = append(*issues, model.Issue{
			Category: model.CategoryContent,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("Very thin content (%d words). Minimum recommended: 300 words.", page.WordCount),
			Impact:   9,
		})
	} else if page.WordCount < 300 {
		score -= 30
		*issues = append(*issues, model.Issue{
			Category: model.CategoryContent,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Content is thin (%d words). Recommended: 300+ words for better ranking.", page.WordCount),
			Impact:   6,
		})
	}

	return max(0, score)
}

func scoreImages(page model.PageSignal, issues *[]model.Issue) int {
	// No images is fine.
	if page.ImageCount == 0 {
		return 100
	}

	score := 100
	missingAltRatio := float64(page.ImagesWithoutAlt) / float64(page.ImageCount)

	if missingAltRatio > 0.5 {
		score -= 50
		*issues = append(*issues, model.Issue{
			Category: model.CategoryImages,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("%d of %d images are missing alt text.", page.ImagesWithoutAlt, page.ImageCount),
			Impact:   6,
		})
	} else if page.ImagesWithoutAlt > 0 {
		score -= 20
		*issues = append(*issues, model.Issue{
			Category: model.CategoryImages,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("%d of %d images are missing alt text.", page.ImagesWithoutAlt, page.ImageCount),
			Impact:   4,
		})
	}

	return max(0, score)
}

func scoreLinks(page model.PageSignal, issues *[]model.Issue) int {
	score := 100

	if page.InternalLinks == 0 {
		score -= 40
		*issues = append(*issues, model.Issue{
			Category: model.CategoryLinks,
			Severity: model.SeverityWarning,
			Message:  "Page has no internal links. Internal linking helps search engines discover and rank pages.",
			Impact:   5,
		})
	}

	return max(0, score)
}

func scoreMobile(page model.PageSignal, issues *[]model.Issue) int {
	score := 100

	if !page.HasViewportMeta {
		score -= 70
		*issues = append(*issues, model.Issue{
			Category: model.CategoryMobile,
			Severity: model.SeverityCritical,
			Message:  "Page is missing the viewport meta tag. This is required for mobile-friendly rendering.",
			Impact:   9,
		})
	}

	return max(0, score)
}

func scoreTechnical(page model.PageSignal, issues *[]model.Issue) int {
	score := 100

	if page.HTTPStatus >= 400 {
		score -= 80
		*issues = append(*issues, model.Issue{
			Category: model.CategoryTechnical,
			Severity: model.SeverityCritical,
			Message:  fmt.Sprintf("Page returned HTTP %d error.", page.HTTPStatus),
			Impact:   10,
		})
	} else if page.HTTPStatus >= 300 {
		score -= 20
		*issues = append(*issues, model.Issue{
			Category: model.CategoryTechnical,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Page has a redirect (HTTP %d).", page.HTTPStatus),
			Impact:   3,
		})
	}

	if len(page.RedirectChain) > 1 {
		score -= 15
		*issues = append(*issues, model.Issue{
			Category: model.CategoryTechnical,
			Severity: model.SeverityWarning,
			Message:  fmt.Sprintf("Page has a redirect chain of %d hops. Keep redirects to a single hop.", len(page.RedirectChain)),
			Impact:   4,
		})
	}

	if !page.IsIndexable {
		*issues = append(*issues, model.Issue{
			Category: model.CategoryTechnical,
			Severity: model.SeverityInfo,
			Message:  "Page is marked as noindex and will not appear in search results.",
			Impact:   1,
		})
	}

	return max(0, score)
}
