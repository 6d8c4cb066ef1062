package service

import (
	"strings"

	"voice-aftercare/model"
)

// TypeClassify keyword router for the rule-based reply bucket
type TypeClassify struct {
	rules []model.FallbackRuleDef
}

func NewTypeClassify(defs []model.FallbackRuleDef) *TypeClassify {
	enabled := make([]model.FallbackRuleDef, 0, len(defs))
	for _, d := range defs {
		if d.Rule != "" && len(d.Keywords) > 0 {
			enabled = append(enabled, d)
		}
	}
	return &TypeClassify{rules: enabled}
}

// Classify first bucket with a matching keyword, general guidance otherwise
func (r *TypeClassify) Classify(text string) model.FallbackRule {
	for _, rule := range r.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(text, kw) {
				return rule.Rule
			}
		}
	}
	return model.RuleGeneral
}

// Keywords of one bucket, nil when the bucket is not configured
func (r *TypeClassify) Keywords(rule model.FallbackRule) []string {
	for _, d := range r.rules {
		if d.Rule == rule {
			return d.Keywords
		}
	}
	return nil
}
