package cleaning

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/casimage-etl/internal/config"
	"github.com/sells-group/casimage-etl/internal/markup"
	"github.com/sells-group/casimage-etl/internal/table"
)

// Age bounds accepted by every resolution rule.
const (
	MinAge = 0
	MaxAge = 120
)

// AgeRule is one entry of the ordered age-resolution list. Rules run in
// order; the first rule to return ok wins.
type AgeRule struct {
	Name    string
	Resolve func(r table.Row) (int, bool)
}

// SexRule is one entry of the ordered sex-resolution list.
type SexRule struct {
	Name    string
	Resolve func(r table.Row) (string, bool)
}

// Rules holds the compiled locale-specific inference rule set.
type Rules struct {
	Age []AgeRule
	Sex []SexRule

	narrative       []string
	technicalPrefix string
}

// Compile builds the rule set from locale configuration. Regex patterns
// come from config so the rule set is swappable per source language.
func Compile(loc config.LocaleConfig) (*Rules, error) {
	agePat, err := regexp.Compile("(?i)" + loc.AgePattern)
	if err != nil {
		return nil, eris.Wrap(err, "cleaning: compile age pattern")
	}

	exclude := make([]*regexp.Regexp, 0, len(loc.AgeExcludePatterns))
	for _, p := range loc.AgeExcludePatterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, eris.Wrapf(err, "cleaning: compile age exclude %q", p)
		}
		exclude = append(exclude, re)
	}

	male, err := compileAll(loc.MalePatterns)
	if err != nil {
		return nil, eris.Wrap(err, "cleaning: compile male patterns")
	}
	female, err := compileAll(loc.FemalePatterns)
	if err != nil {
		return nil, eris.Wrap(err, "cleaning: compile female patterns")
	}

	rules := &Rules{
		narrative:       loc.NarrativeColumns,
		technicalPrefix: loc.TechnicalPrefix,
	}

	rules.Age = []AgeRule{
		{Name: "direct_field", Resolve: rules.ageFromField},
		{Name: "narrative_regex", Resolve: rules.ageFromNarrative(agePat, exclude)},
		{Name: "birthdate_diff", Resolve: ageFromBirthdate},
	}

	rules.Sex = []SexRule{
		{Name: "direct_field", Resolve: sexFromField},
		{Name: "explicit_phrase", Resolve: rules.sexFromPatterns(male, female)},
		{Name: "anatomy_keyword", Resolve: rules.sexFromKeywords(loc.MaleKeywords, loc.FemaleKeywords)},
	}

	return rules, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			return nil, eris.Wrapf(err, "pattern %q", p)
		}
		out = append(out, re)
	}
	return out, nil
}

// ResolveAge runs the ordered age rules; ok is false when no rule fires.
func (rs *Rules) ResolveAge(r table.Row) (int, bool) {
	for _, rule := range rs.Age {
		if age, ok := rule.Resolve(r); ok {
			return age, true
		}
	}
	return 0, false
}

// ResolveSex runs the ordered sex rules; ok is false when no rule fires.
func (rs *Rules) ResolveSex(r table.Row) (string, bool) {
	for _, rule := range rs.Sex {
		if sex, ok := rule.Resolve(r); ok {
			return sex, true
		}
	}
	return "", false
}

func validAge(age int) bool { return age >= MinAge && age <= MaxAge }

func (rs *Rules) ageFromField(r table.Row) (int, bool) {
	v, ok := r.Get("Age")
	if !ok {
		return 0, false
	}
	age, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || !validAge(age) {
		return 0, false
	}
	return age, true
}

func (rs *Rules) ageFromNarrative(pat *regexp.Regexp, exclude []*regexp.Regexp) func(table.Row) (int, bool) {
	return func(r table.Row) (int, bool) {
		for _, col := range rs.narrative {
			text, ok := r.Get(col)
			if !ok {
				continue
			}
			text = strings.ToLower(markup.CleanText(text))

			if anyMatch(exclude, text) {
				continue
			}

			m := pat.FindStringSubmatch(text)
			if len(m) < 2 {
				continue
			}
			age, err := strconv.Atoi(strings.TrimSpace(m[1]))
			if err != nil || !validAge(age) {
				continue
			}
			return age, true
		}
		return 0, false
	}
}

// ageFromBirthdate computes the age in whole years between the birth
// date and the exam date.
func ageFromBirthdate(r table.Row) (int, bool) {
	birthRaw, okB := r.Get("Birthdate")
	examRaw, okE := r.Get("Date")
	if !okB || !okE {
		return 0, false
	}
	birth, okB := ParseDate(birthRaw)
	exam, okE := ParseDate(examRaw)
	if !okB || !okE || exam.Before(birth) {
		return 0, false
	}

	age := exam.Year() - birth.Year()
	if exam.Month() < birth.Month() ||
		(exam.Month() == birth.Month() && exam.Day() < birth.Day()) {
		age--
	}
	if !validAge(age) {
		return 0, false
	}
	return age, true
}

func sexFromField(r table.Row) (string, bool) {
	v, ok := r.Get("Sex")
	if !ok {
		return "", false
	}
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "M":
		return "M", true
	case "F":
		return "F", true
	}
	return "", false
}

func (rs *Rules) sexFromPatterns(male, female []*regexp.Regexp) func(table.Row) (string, bool) {
	return func(r table.Row) (string, bool) {
		for _, col := range rs.narrative {
			text, ok := r.Get(col)
			if !ok {
				continue
			}
			text = strings.ToLower(markup.CleanText(text))
			if anyMatch(male, text) {
				return "M", true
			}
			if anyMatch(female, text) {
				return "F", true
			}
		}
		return "", false
	}
}

func (rs *Rules) sexFromKeywords(male, female []string) func(table.Row) (string, bool) {
	return func(r table.Row) (string, bool) {
		for _, col := range rs.narrative {
			text, ok := r.Get(col)
			if !ok {
				continue
			}
			text = strings.ToLower(text)
			for _, kw := range male {
				if strings.Contains(text, kw) {
					return "M", true
				}
			}
			for _, kw := range female {
				if strings.Contains(text, kw) {
					return "F", true
				}
			}
		}
		return "", false
	}
}

func anyMatch(res []*regexp.Regexp, s string) bool {
	for _, re := range res {
		if re.MatchString(s) {
			return true
		}
	}
	return false
}

// dateLayouts are tried in order; legacy exports are day-first.
var dateLayouts = []string{
	"02/01/2006",
	"02-01-2006",
	"02.01.2006",
	"2006-01-02",
	"2006/01/02",
	"02/01/06",
}

// ParseDate parses a date string day-first, falling back to ISO order.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts, true
		}
	}
	return time.Time{}, false
}
