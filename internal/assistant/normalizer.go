package assistant

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Rule rewrites every whole-word, case-insensitive match of Pattern.
// Pattern is a regular expression fragment; word boundaries are added.
type Rule struct {
	Pattern     string `yaml:"pattern"`
	Replacement string `yaml:"replacement"`
}

type compiledRule struct {
	re   *regexp.Regexp
	repl string
}

// Normalizer rewrites known speech-recognition mistakes. Stages run in a
// fixed order: order homophones, mis-hearings, status words, numbers.
// Each stage only produces words no earlier stage matches, which keeps
// Normalize idempotent.
type Normalizer struct {
	stages [][]compiledRule
}

var spaces = regexp.MustCompile(`\s+`)

// DefaultMisHearings are the contextual corrections applied after "order"
// homophones have been resolved.
var DefaultMisHearings = []Rule{
	{Pattern: `depending`, Replacement: "pending"},
	{Pattern: `order (?:to|too|two)`, Replacement: "order 2"},
	{Pattern: `order (?:for|four)`, Replacement: "order 4"},
	{Pattern: `order won`, Replacement: "order 1"},
	{Pattern: `order ate`, Replacement: "order 8"},
}

var orderHomophones = []Rule{
	{Pattern: `(?:others|items|requests|jobs|audios)`, Replacement: "orders"},
	{Pattern: `(?:other|all the|item|request|job|audio|older)`, Replacement: "order"},
}

var statusWords = []Rule{
	{Pattern: `(?:finish|finished|complete|completed|ready|cooking|cooked|served)`, Replacement: "done"},
	{Pattern: `(?:stop|stopped|remove|removed|delete|deleted|void|voided|cancel|canceled)`, Replacement: "cancelled"},
	{Pattern: `(?:waiting|new|queue|queued)`, Replacement: "pending"},
}

var numberWords = []string{
	"one", "two", "three", "four", "five", "six", "seven", "eight", "nine", "ten",
	"eleven", "twelve", "thirteen", "fourteen", "fifteen", "sixteen", "seventeen",
	"eighteen", "nineteen", "twenty",
}

func numberRules() []Rule {
	rules := make([]Rule, len(numberWords))
	for i, w := range numberWords {
		rules[i] = Rule{Pattern: w, Replacement: fmt.Sprintf("%d", i+1)}
	}
	return rules
}

// NewNormalizer builds a normalizer whose contextual stage uses
// misHearings. A nil slice selects DefaultMisHearings.
func NewNormalizer(misHearings []Rule) (*Normalizer, error) {
	if misHearings == nil {
		misHearings = DefaultMisHearings
	}

	n := &Normalizer{}
	for _, stage := range [][]Rule{orderHomophones, misHearings, statusWords, numberRules()} {
		compiled := make([]compiledRule, 0, len(stage))
		for _, r := range stage {
			re, err := regexp.Compile(`(?i)\b(?:` + r.Pattern + `)\b`)
			if err != nil {
				return nil, fmt.Errorf("compile rule %q: %w", r.Pattern, err)
			}
			compiled = append(compiled, compiledRule{re: re, repl: r.Replacement})
		}
		n.stages = append(n.stages, compiled)
	}
	return n, nil
}

// DefaultNormalizer uses the built-in rules
func DefaultNormalizer() *Normalizer {
	n, err := NewNormalizer(nil)
	if err != nil {
		panic(err)
	}
	return n
}

// stageStatus is the index of the status-word stage
const stageStatus = 2

// Normalize lower-cases s, collapses whitespace and applies every rule
func (n *Normalizer) Normalize(s string) string {
	return n.normalizeBefore(s, len(n.stages))
}

// normalizeBefore applies the stages with an index below upto. With
// stageStatus, action verbs like "cancel" and "complete" are kept.
func (n *Normalizer) normalizeBefore(s string, upto int) string {
	out := strings.ToLower(strings.TrimSpace(spaces.ReplaceAllString(s, " ")))
	for _, stage := range n.stages[:upto] {
		for _, r := range stage {
			out = r.re.ReplaceAllLiteralString(out, r.repl)
		}
	}
	return out
}

type rulesFile struct {
	MisHearings []Rule `yaml:"mis_hearings"`
}

// LoadRules reads the mis-hearing list from a YAML file of the form
//
//	mis_hearings:
//	  - pattern: "order (?:to|too)"
//	    replacement: "order 2"
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}

	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules file %s: %w", path, err)
	}
	if f.MisHearings == nil {
		f.MisHearings = []Rule{}
	}
	for i, r := range f.MisHearings {
		if strings.TrimSpace(r.Pattern) == "" {
			return nil, fmt.Errorf("rules file %s: rule %d has an empty pattern", path, i)
		}
	}
	return f.MisHearings, nil
}
