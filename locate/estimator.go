// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package locate guesses which page a free-text message refers to when the
// caller has no explicit target.
package locate

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"slices"

	"github.com/poiesic/evidex/core"
)

const (
	// MatchScore is the score of an estimate produced by a matching rule.
	MatchScore = 10.0
	// DefaultScore is the score of the fallback estimate.
	DefaultScore = 1.0
)

// ErrInvalidRule is returned for a rule without a pattern or document, or
// with a non-positive page hint.
var ErrInvalidRule = errors.New("invalid estimation rule")

// Rule maps a topic pattern to a document and ordered page hints.
type Rule struct {
	Pattern   *regexp.Regexp
	Doc       core.DocumentID
	PageHints []int
}

// CompileRule builds a Rule from a regular expression.
func CompileRule(pattern string, doc core.DocumentID, hints ...int) (Rule, error) {
	re, err := regexp.Compile(pattern)
	if err != nil {
		return Rule{}, fmt.Errorf("%w: %w", ErrInvalidRule, err)
	}
	rule := Rule{Pattern: re, Doc: doc, PageHints: hints}
	return rule, rule.validate()
}

func (r Rule) validate() error {
	if r.Pattern == nil || r.Doc == "" {
		return fmt.Errorf("%w: pattern and document required", ErrInvalidRule)
	}
	for _, hint := range r.PageHints {
		if hint <= 0 {
			return fmt.Errorf("%w: page hint %d", ErrInvalidRule, hint)
		}
	}
	return nil
}

// Estimator applies rules in order; the first match wins.
type Estimator struct {
	docs   []core.DocumentID
	rules  []Rule
	logger *slog.Logger
}

// Option configures an Estimator.
type Option func(*Estimator)

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Estimator) {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger
	}
}

// NewEstimator creates an Estimator over the configured documents.
func NewEstimator(docs []core.DocumentID, rules []Rule, opts ...Option) (*Estimator, error) {
	for i, rule := range rules {
		if err := rule.validate(); err != nil {
			return nil, fmt.Errorf("rule %d: %w", i, err)
		}
	}
	e := &Estimator{
		docs:   slices.Clone(docs),
		rules:  slices.Clone(rules),
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// Estimate returns the page text most likely refers to. Without a matching
// rule it points at page 1 of the first document with a low score. It
// returns nil only when no documents are configured.
func (e *Estimator) Estimate(text string) *core.Estimate {
	if len(e.docs) == 0 {
		return nil
	}
	for _, rule := range e.rules {
		if !rule.Pattern.MatchString(text) {
			continue
		}
		page := 1
		if len(rule.PageHints) > 0 {
			page = rule.PageHints[0]
		}
		e.logger.Debug("estimated location", "pattern", rule.Pattern.String(), "doc", rule.Doc, "page", page)
		return &core.Estimate{
			Locator: core.Locator{Doc: rule.Doc, Page: page},
			Score:   MatchScore,
			Explanation: fmt.Sprintf("matched pattern %s; using first page hint %s p.%d",
				rule.Pattern.String(), rule.Doc, page),
		}
	}
	doc := e.docs[0]
	return &core.Estimate{
		Locator:     core.Locator{Doc: doc, Page: 1},
		Score:       DefaultScore,
		Explanation: fmt.Sprintf("no topic pattern matched; defaulting to %s p.1", doc),
	}
}
