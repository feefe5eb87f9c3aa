// Package zpl checks and amends ZPL shipping labels.
package zpl

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	StartMarker = "^XA"
	EndMarker   = "^XZ"
)

var (
	printWidthRe  = regexp.MustCompile(`\^PW(\d+)`)
	labelLengthRe = regexp.MustCompile(`\^LL(\d+)`)
)

// Metadata holds what was parsed from a label. Nil means absent or unparseable.
type Metadata struct {
	StartIndex  *int `json:"startIndex"`
	EndIndex    *int `json:"endIndex"`
	PrintWidth  *int `json:"printWidth"`
	LabelLength *int `json:"labelLength"`
}

type ValidationResult struct {
	OK       bool     `json:"ok"`
	Errors   []string `json:"errors,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
	Meta     Metadata `json:"meta"`
}

// Validate checks label structure. Only Errors affect OK.
func Validate(label string) ValidationResult {
	var res ValidationResult

	if strings.TrimSpace(label) == "" {
		res.Errors = append(res.Errors, "payload is empty")
		return res
	}

	start := strings.Index(label, StartMarker)
	end := strings.LastIndex(label, EndMarker)
	if start >= 0 {
		res.Meta.StartIndex = &start
	}
	if end >= 0 {
		res.Meta.EndIndex = &end
	}

	if start < 0 {
		res.Errors = append(res.Errors, "missing start marker "+StartMarker)
	}
	if end < 0 {
		res.Errors = append(res.Errors, "missing end marker "+EndMarker)
	}
	if start >= 0 && end >= 0 && end < start {
		res.Errors = append(res.Errors, fmt.Sprintf("end marker %s precedes start marker %s", EndMarker, StartMarker))
	}

	if n := strings.Count(label, StartMarker); n > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("multiple start markers %s (%d)", StartMarker, n))
	}
	if n := strings.Count(label, EndMarker); n > 1 {
		res.Warnings = append(res.Warnings, fmt.Sprintf("multiple end markers %s (%d)", EndMarker, n))
	}
	if end >= 0 && strings.TrimSpace(label[end+len(EndMarker):]) != "" {
		res.Warnings = append(res.Warnings, "content after final end marker "+EndMarker)
	}

	res.Meta.PrintWidth = parseDeclaration(printWidthRe, label)
	if res.Meta.PrintWidth == nil {
		res.Warnings = append(res.Warnings, "print width ^PW missing or unparseable")
	}
	res.Meta.LabelLength = parseDeclaration(labelLengthRe, label)
	if res.Meta.LabelLength == nil {
		res.Warnings = append(res.Warnings, "label length ^LL missing or unparseable")
	}

	res.OK = len(res.Errors) == 0
	return res
}

func parseDeclaration(re *regexp.Regexp, label string) *int {
	m := re.FindStringSubmatch(label)
	if m == nil {
		return nil
	}
	v, err := strconv.Atoi(m[1])
	if err != nil {
		return nil
	}
	return &v
}
