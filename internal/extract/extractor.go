// Package extract turns raw post text into structured knitting fields.
//
// Extraction is a cascade: for each field an ordered list of rules is
// evaluated and the first rule producing a non-empty value wins. The order
// encodes reliability, from brand-anchored clauses and explicit labels down
// to bare pattern matches. Extraction never fails; fields that no rule
// matches stay empty.
package extract

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/haeun-dev/knitcrawl/internal/pipeline"
)

const (
	maxYarnLen    = 200
	maxNeedleLen  = 100
	maxProjectLen = 100
)

// yarnBrands are shop/brand names commonly mentioned next to the yarn used.
// A clause containing one of these is the strongest yarn signal available.
var yarnBrands = []string{
	"라라뜨개",
	"솜솜뜨개",
	"니트러브",
	"앵콜스 뜨개실",
	"바늘이야기",
}

var (
	brandClauseRE = buildBrandClauseREs(yarnBrands)
	bracketTagRE  = regexp.MustCompile(`\[.*?\]`)
	// Boilerplate phrases that pollute brand clauses: diary headers, author
	// honorifics, pattern names, and garment-type words.
	boilerplateREs = []*regexp.Regexp{
		regexp.MustCompile(`뜨개일기`),
		regexp.MustCompile(`수민님?\s*`),
		regexp.MustCompile(`마들렌\s*자?켓`),
		regexp.MustCompile(`(?i)cardigan|자켓|조끼|가디건|베스트|스웨터`),
	}
	parenRE    = regexp.MustCompile(`\(([^)]+)\)`)
	needleSize = regexp.MustCompile(`\s*\d+\.?\d*\s*mm.*`)

	// The dot never crosses a newline in RE2, so these captures stop at the
	// end of the labeled line.
	yarnLabelRE = regexp.MustCompile(`(?i)yarn\s*[:：]\s*(.+)`)

	needleLabelRE       = regexp.MustCompile(`(?i)needle\s*[:：]\s*(.+)`)
	needleKoreanLabelRE = regexp.MustCompile(`바늘\s*[:：]\s*(.+?)(?:\n|사용|$)`)
	needleBareRE        = regexp.MustCompile(`([가-힣\s]*[\d.]+\s*mm)`)

	projectGarmentRE = regexp.MustCompile(`(?i)([가-힣]+(?:자켓|조끼|가디건|베스트|스웨터|cardigan|vest|sweater))`)
	projectFORE      = regexp.MustCompile(`(?i)FO[:\s]*([^\n]+)`)
)

func buildBrandClauseREs(brands []string) []*regexp.Regexp {
	res := make([]*regexp.Regexp, 0, len(brands))
	for _, brand := range brands {
		res = append(res, regexp.MustCompile(`([^.\n]*`+regexp.QuoteMeta(brand)+`[^.\n]*)`))
	}
	return res
}

// rule is one step of a cascade: apply returns the extracted value or empty.
type rule struct {
	name  string
	apply func(text string) string
}

var (
	yarnRules = []rule{
		{name: "brand-anchored", apply: yarnFromBrandClause},
		{name: "labeled-field", apply: yarnFromLabel},
	}
	needleRules = []rule{
		{name: "needle-label", apply: matcher(needleLabelRE, maxNeedleLen)},
		{name: "korean-label", apply: matcher(needleKoreanLabelRE, maxNeedleLen)},
		{name: "bare-mm", apply: matcher(needleBareRE, maxNeedleLen)},
	}
	projectRules = []rule{
		{name: "garment-suffix", apply: matcher(projectGarmentRE, maxProjectLen)},
		{name: "finished-object", apply: matcher(projectFORE, maxProjectLen)},
	}
)

// Record extracts the yarn, needle and project fields from raw post text.
func Record(text string) pipeline.ExtractedRecord {
	return pipeline.ExtractedRecord{
		Yarn:    firstMatch(yarnRules, text),
		Needle:  firstMatch(needleRules, text),
		Project: firstMatch(projectRules, text),
	}
}

func firstMatch(rules []rule, text string) string {
	for _, r := range rules {
		if v := r.apply(text); v != "" {
			return v
		}
	}
	return ""
}

// yarnFromBrandClause finds the clause around a known brand name and strips
// it down to the yarn description. Preference is given to a parenthesized
// span, which is where colorway names usually live.
func yarnFromBrandClause(text string) string {
	for _, re := range brandClauseRE {
		m := re.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		clause := truncateRunes(strings.TrimSpace(m[1]), maxYarnLen)

		clause = bracketTagRE.ReplaceAllString(clause, "")
		for _, boiler := range boilerplateREs {
			clause = boiler.ReplaceAllString(clause, "")
		}
		if paren := parenRE.FindStringSubmatch(clause); paren != nil {
			clause = strings.TrimSpace(paren[1])
		}
		clause = strings.TrimSpace(needleSize.ReplaceAllString(clause, ""))
		clause = strings.TrimSpace(strings.Trim(clause, "/ "))

		if clause != "" {
			return clause
		}
	}
	return ""
}

// yarnFromLabel reads an explicit "yarn :" line. A bare occurrence of 실 is
// deliberately not a signal here, it matches far too much unrelated text.
func yarnFromLabel(text string) string {
	m := yarnLabelRE.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	v := strings.TrimSpace(needleSize.ReplaceAllString(strings.TrimSpace(m[1]), ""))
	if utf8.RuneCountInString(v) <= 1 {
		return ""
	}
	return truncateRunes(v, maxYarnLen)
}

// matcher builds a rule from a single-capture regexp, trimming and capping
// the result.
func matcher(re *regexp.Regexp, max int) func(string) string {
	return func(text string) string {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return ""
		}
		return truncateRunes(strings.TrimSpace(m[1]), max)
	}
}

func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
