package camp

import (
	"math"
	"strings"
	"unicode/utf8"
)

type Quality string

const (
	QualityExcellent  Quality = "excellent"
	QualityGood       Quality = "good"
	QualityBasic      Quality = "basic"
	QualityIncomplete Quality = "incomplete"
)

func (q Quality) IsValid() bool {
	switch q {
	case QualityExcellent, QualityGood, QualityBasic, QualityIncomplete:
		return true
	}
	return false
}

const minDescriptionLength = 100

type checklistItem struct {
	name string
	done func(c Camp) bool
}

var checklist = []checklistItem{
	{"description", func(c Camp) bool {
		return utf8.RuneCountInString(strings.TrimSpace(c.Description)) > minDescriptionLength
	}},
	{"image", func(c Camp) bool { return notBlank(c.ImageURL) }},
	{"video", func(c Camp) bool { return notBlank(c.VideoURL) }},
	{"gallery", func(c Camp) bool { return len(c.Gallery) > 0 }},
	{"highlights", func(c Camp) bool { return len(c.Highlights) > 0 }},
	{"amenities", func(c Camp) bool { return len(c.Amenities) > 0 }},
	{"faqs", func(c Camp) bool { return len(c.FAQs.V) > 0 }},
	{"cancellation_policy", func(c Camp) bool { return notBlank(c.CancellationPolicy) }},
	{"refund_policy", func(c Camp) bool { return notBlank(c.RefundPolicy) }},
	{"safety_info", func(c Camp) bool { return notBlank(c.SafetyInfo) }},
	{"requirements", func(c Camp) bool { return len(c.Requirements) > 0 }},
	{"what_to_bring", func(c Camp) bool { return len(c.WhatToBring) > 0 }},
}

// Completeness is how much of the content checklist a camp fills.
type Completeness struct {
	Score     int      `json:"score"` // 0 - 100
	Label     Quality  `json:"label"`
	Completed int      `json:"completed"`
	Total     int      `json:"total"`
	Missing   []string `json:"missing"`
}

// Score rates the content of c against the checklist.
func Score(c Camp) Completeness {
	res := Completeness{Total: len(checklist), Missing: []string{}}
	for _, item := range checklist {
		if item.done(c) {
			res.Completed++
		} else {
			res.Missing = append(res.Missing, item.name)
		}
	}
	res.Score = int(math.Round(float64(res.Completed) / float64(res.Total) * 100))
	res.Label = LabelFor(res.Score)
	return res
}

func LabelFor(score int) Quality {
	switch {
	case score >= 90:
		return QualityExcellent
	case score >= 70:
		return QualityGood
	case score >= 50:
		return QualityBasic
	default:
		return QualityIncomplete
	}
}

func notBlank(s string) bool { return strings.TrimSpace(s) != "" }
