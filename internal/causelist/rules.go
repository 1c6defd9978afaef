package causelist

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

//go:embed rules.yaml
var defaultRulesYAML []byte

//go:embed rules.schema.json
var rulesSchemaJSON []byte

// SectionRewrite replaces a suit-number prefix for records filed under one section.
type SectionRewrite struct {
	Section string `yaml:"section"`
	From    string `yaml:"from"`
	To      string `yaml:"to"`
}

// Rules is the table of known OCR corrections and vocabularies the parser consults.
// A Rules value is read-only once loaded and may be shared between goroutines.
type Rules struct {
	SuitPrefixRewrites  map[string]string `yaml:"suit_prefix_rewrites"`
	SectionSuitRewrites []SectionRewrite  `yaml:"section_suit_rewrites"`
	SinglePartyMarkers  []string          `yaml:"single_party_markers"`
	CompanySuffixes     []string          `yaml:"company_suffixes"`
	SectionHeadings     []string          `yaml:"section_headings"`
	SkipFragments       []string          `yaml:"skip_fragments"`
	RemarkCodes         []string          `yaml:"remark_codes"`

	skip       []*regexp.Regexp
	headings   map[string]string
	remarks    map[string]string
	remarkTail *regexp.Regexp
	markers    []*regexp.Regexp
	company    *regexp.Regexp
}

var defaultRules = sync.OnceValues(func() (*Rules, error) {
	return ParseRules(defaultRulesYAML)
})

// DefaultRules returns the embedded rule table.
func DefaultRules() *Rules {
	r, err := defaultRules()
	if err != nil {
		panic(fmt.Sprintf("embedded correction rules: %v", err))
	}
	return r
}

// LoadRules reads a rule table from path. An empty path yields the embedded table.
func LoadRules(path string) (*Rules, error) {
	if path == "" {
		return defaultRules()
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read correction rules: %w", err)
	}
	r, err := ParseRules(b)
	if err != nil {
		return nil, fmt.Errorf("correction rules %s: %w", path, err)
	}
	return r, nil
}

// ParseRules decodes a YAML rule table, validates it against the rules schema and
// compiles its patterns.
func ParseRules(data []byte) (*Rules, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode yaml: %w", err)
	}
	if err := validateRules(doc); err != nil {
		return nil, err
	}

	var r Rules
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("decode rules: %w", err)
	}
	if err := r.compile(); err != nil {
		return nil, err
	}
	return &r, nil
}

func validateRules(doc any) error {
	// round-trip through JSON so the validator sees JSON types
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("marshal rules: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("rules.schema.json", bytes.NewReader(rulesSchemaJSON)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("rules.schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("unmarshal rules: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("rules do not match schema: %w", err)
	}
	return nil
}

func (r *Rules) compile() error {
	for from, to := range r.SuitPrefixRewrites {
		if _, chained := r.SuitPrefixRewrites[to]; chained {
			return fmt.Errorf("suit prefix rewrite %s -> %s chains into another rewrite", from, to)
		}
	}
	for _, frag := range r.SkipFragments {
		re, err := regexp.Compile("(?i)" + frag)
		if err != nil {
			return fmt.Errorf("skip fragment %q: %w", frag, err)
		}
		r.skip = append(r.skip, re)
	}

	r.headings = make(map[string]string, len(r.SectionHeadings))
	for _, h := range r.SectionHeadings {
		r.headings[headingKey(h)] = strings.ToUpper(strings.TrimSpace(h))
	}

	r.remarks = make(map[string]string, len(r.RemarkCodes))
	codes := make([]string, 0, len(r.RemarkCodes))
	for _, c := range r.RemarkCodes {
		c = strings.ToUpper(strings.TrimSpace(c))
		r.remarks[remarkKey(c)] = strings.TrimRight(c, ".")
		codes = append(codes, regexp.QuoteMeta(c))
	}
	// longest first so "F/H" never shadows a longer code sharing its prefix
	sort.Slice(codes, func(i, j int) bool { return len(codes[i]) > len(codes[j]) })
	r.remarkTail = regexp.MustCompile(`(?i)\s+(` + strings.Join(codes, "|") + `)$`)

	markers := append([]string(nil), r.SinglePartyMarkers...)
	sort.Slice(markers, func(i, j int) bool { return len(markers[i]) > len(markers[j]) })
	for _, m := range markers {
		r.markers = append(r.markers, regexp.MustCompile(`(?i)(^|\s)`+regexp.QuoteMeta(strings.TrimSpace(m))+`(\s|$)`))
	}

	if len(r.CompanySuffixes) > 0 {
		parts := make([]string, len(r.CompanySuffixes))
		for i, s := range r.CompanySuffixes {
			parts[i] = regexp.QuoteMeta(strings.TrimSpace(s))
		}
		r.company = regexp.MustCompile(`(?i)\b(?:` + strings.Join(parts, "|") + `)\b\.?`)
	}
	return nil
}

// IsSkip reports whether line is page furniture rather than content.
func (r *Rules) IsSkip(line string) bool {
	for _, re := range r.skip {
		if re.MatchString(line) {
			return true
		}
	}
	return false
}

// Heading returns the canonical section name when line is a whitelisted heading.
func (r *Rules) Heading(line string) (string, bool) {
	h, ok := r.headings[headingKey(line)]
	return h, ok
}

// Remark returns the canonical code when line is exactly a remark code.
func (r *Rules) Remark(line string) (string, bool) {
	c, ok := r.remarks[remarkKey(line)]
	return c, ok
}

// SplitTrailingRemark removes a remark code at the end of text.
func (r *Rules) SplitTrailingRemark(text string) (string, string) {
	m := r.remarkTail.FindStringSubmatchIndex(text)
	if m == nil {
		return text, ""
	}
	code, _ := r.Remark(text[m[2]:m[3]])
	return strings.TrimSpace(text[:m[0]]), code
}

// RewriteSuitPrefix applies the first-segment rewrite table to a canonical suit number.
func (r *Rules) RewriteSuitPrefix(suit string) string {
	first, rest, ok := strings.Cut(suit, "/")
	if !ok {
		return suit
	}
	if to, found := r.SuitPrefixRewrites[first]; found {
		return to + "/" + rest
	}
	return suit
}

// RewriteForSection applies section-scoped suit corrections.
func (r *Rules) RewriteForSection(section, suit string) string {
	for _, rw := range r.SectionSuitRewrites {
		if !strings.EqualFold(rw.Section, section) {
			continue
		}
		if strings.HasPrefix(suit, rw.From) {
			return rw.To + strings.TrimPrefix(suit, rw.From)
		}
	}
	return suit
}

var headingPunct = regexp.MustCompile(`[^A-Z0-9 ]+`)

func headingKey(s string) string {
	s = strings.ToUpper(s)
	s = headingPunct.ReplaceAllString(strings.ReplaceAll(s, "-", " "), " ")
	return strings.Join(strings.Fields(s), " ")
}

func remarkKey(s string) string {
	s = strings.ToUpper(strings.TrimSpace(s))
	s = strings.Trim(s, ".,;:()[]")
	return strings.Join(strings.Fields(s), " ")
}
