package domain

import (
	"fmt"
	"math"
	"time"
)

// Score weights. They must sum to 1.0.
const (
	WeightSubscriberImpact = 0.4
	WeightViewVelocity     = 0.3
	WeightEngagement       = 0.2
	WeightFreshness        = 0.1
)

// RelevanceWindowDays is the age after which an item is no longer ranked.
const RelevanceWindowDays = 30

// Potential labels returned by Classify.
const (
	PotentialVeryHigh = "Very High - massive overperformance"
	PotentialHigh     = "High - strong early performance"
	PotentialMedium   = "Medium - engagement-driven"
	PotentialLow      = "Low - normal performance"
)

// ScoreExplanation carries human-readable figures behind a breakdown.
// It is display-only and never used for ranking.
type ScoreExplanation struct {
	SubscriberRatio string `json:"subscriberRatio"`
	ViewsPerDay     string `json:"viewsPerDay"`
	EngagementRate  string `json:"engagementRate"`
	AgeInDays       int    `json:"ageInDays"`
	Note            string `json:"note,omitempty"`
}

// ScoreBreakdown is the four-part viral score of one item.
type ScoreBreakdown struct {
	SubscriberImpact int              `json:"subscriberImpact"`
	ViewVelocity     int              `json:"viewVelocity"`
	EngagementScore  int              `json:"engagementScore"`
	FreshnessBonus   int              `json:"freshnessBonus"`
	TotalScore       int              `json:"totalScore"`
	Explanation      ScoreExplanation `json:"explanation"`
}

// ScoredItem is an item paired with its publisher and score.
// It is built once per request and only reordered or dropped afterwards.
type ScoredItem struct {
	Item
	Publisher      Publisher      `json:"channel"`
	ViralScore     int            `json:"viralScore"`
	Multiplier     float64        `json:"multiplier"`
	EngagementRate float64        `json:"engagementRate"`
	Breakdown      ScoreBreakdown `json:"scoreBreakdown"`
	Potential      string         `json:"viralPotential"`
}

// ScoreEngine computes viral scores relative to a clock.
type ScoreEngine struct {
	now func() time.Time
}

// NewScoreEngine returns a ScoreEngine using the wall clock.
func NewScoreEngine() *ScoreEngine {
	return &ScoreEngine{now: time.Now}
}

// NewScoreEngineAt returns a ScoreEngine reading time from now.
func NewScoreEngineAt(now func() time.Time) *ScoreEngine {
	return &ScoreEngine{now: now}
}

// Score computes the breakdown for an item and its publisher.
//
// Formula:
//
//	total = round(0.4*subscriberImpact + 0.3*viewVelocity + 0.2*engagementScore + 0.1*freshnessBonus)
//
// Items older than RelevanceWindowDays score zero on every component.
func (e *ScoreEngine) Score(item *Item, publisher *Publisher) ScoreBreakdown {
	days := item.AgeInDays(e.now())
	ratio := float64(item.Metrics.ViewCount) / math.Max(1, float64(publisher.Metrics.SubscriberCount))
	viewsPerDay := float64(item.Metrics.ViewCount) / math.Max(1, days)
	engagement := EngagementRate(item)

	explanation := ScoreExplanation{
		SubscriberRatio: fmt.Sprintf("%.1fx", ratio),
		ViewsPerDay:     fmt.Sprintf("%.0f", viewsPerDay),
		EngagementRate:  fmt.Sprintf("%.2f%%", engagement),
		AgeInDays:       int(days),
	}

	if days > RelevanceWindowDays {
		explanation.Note = fmt.Sprintf("older than %d days", RelevanceWindowDays)

		return ScoreBreakdown{Explanation: explanation}
	}

	b := ScoreBreakdown{
		SubscriberImpact: subscriberImpact(ratio),
		ViewVelocity:     viewVelocity(viewsPerDay),
		EngagementScore:  engagementScore(item.Metrics.ViewCount, engagement),
		FreshnessBonus:   freshnessBonus(days),
		Explanation:      explanation,
	}
	b.TotalScore = weightedTotal(b)

	return b
}

// Classify returns a human-readable viral potential label.
func (e *ScoreEngine) Classify(item *Item, publisher *Publisher) string {
	days := item.AgeInDays(e.now())
	multiplier := Multiplier(item, publisher)

	switch {
	case days > RelevanceWindowDays:
		return PotentialLow
	case multiplier >= 10:
		return PotentialVeryHigh
	case days <= 7 && multiplier >= 2:
		return PotentialHigh
	case EngagementRate(item) >= 5:
		return PotentialMedium
	default:
		return PotentialLow
	}
}

// NewScoredItem scores an item and assembles the result record.
func (e *ScoreEngine) NewScoredItem(item Item, publisher Publisher) ScoredItem {
	breakdown := e.Score(&item, &publisher)

	return ScoredItem{
		Item:           item,
		Publisher:      publisher,
		ViralScore:     breakdown.TotalScore,
		Multiplier:     Multiplier(&item, &publisher),
		EngagementRate: EngagementRate(&item),
		Breakdown:      breakdown,
		Potential:      e.Classify(&item, &publisher),
	}
}

// EngagementRate returns (likes + comments) / views as a percentage.
// Returns 0 when the item has no views.
func EngagementRate(item *Item) float64 {
	if item.Metrics.ViewCount == 0 {
		return 0
	}

	return float64(item.Metrics.LikeCount+item.Metrics.CommentCount) * 100 / float64(item.Metrics.ViewCount)
}

// Multiplier returns the raw views/subscribers ratio, or 0 without subscribers.
func Multiplier(item *Item, publisher *Publisher) float64 {
	if publisher.Metrics.SubscriberCount == 0 {
		return 0
	}

	return float64(item.Metrics.ViewCount) / float64(publisher.Metrics.SubscriberCount)
}

type bucket struct {
	min   float64
	score int
}

var (
	subscriberImpactBuckets = []bucket{
		{100, 100}, {50, 95}, {20, 90}, {10, 85}, {5, 75}, {2, 60}, {1, 40}, {0.5, 20},
	}
	viewVelocityBuckets = []bucket{
		{100000, 100}, {50000, 95}, {20000, 90}, {10000, 80}, {5000, 70},
		{2000, 60}, {1000, 50}, {500, 40}, {100, 30},
	}
	engagementBuckets = []bucket{
		{15, 100}, {10, 90}, {7, 80}, {5, 70}, {3, 60}, {2, 50}, {1, 40}, {0.5, 30},
	}
)

// lookup returns the score of the first bucket whose minimum v reaches.
// Buckets are ordered by descending minimum.
func lookup(buckets []bucket, v float64, fallback int) int {
	for _, b := range buckets {
		if v >= b.min {
			return b.score
		}
	}

	return fallback
}

func subscriberImpact(ratio float64) int {
	return lookup(subscriberImpactBuckets, ratio, 10)
}

func viewVelocity(viewsPerDay float64) int {
	return lookup(viewVelocityBuckets, viewsPerDay, 20)
}

func engagementScore(views int64, rate float64) int {
	if views == 0 {
		return 0
	}

	return lookup(engagementBuckets, rate, 20)
}

// freshnessBonus decays linearly from 100 at one day to 0 at thirty days.
func freshnessBonus(days float64) int {
	switch {
	case days <= 1:
		return 100
	case days >= RelevanceWindowDays:
		return 0
	default:
		return int(math.Round(100 * (1 - days/RelevanceWindowDays)))
	}
}

// weightedTotal sums the components in tenths so the single rounding step
// is exact (half rounds up).
func weightedTotal(b ScoreBreakdown) int {
	tenths := int(WeightSubscriberImpact*10)*b.SubscriberImpact +
		int(WeightViewVelocity*10)*b.ViewVelocity +
		int(WeightEngagement*10)*b.EngagementScore +
		int(WeightFreshness*10)*b.FreshnessBonus

	total := (tenths + 5) / 10
	if total < 0 {
		return 0
	}
	if total > 100 {
		return 100
	}

	return total
}
