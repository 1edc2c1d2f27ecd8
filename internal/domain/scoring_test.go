package domain

import (
	"testing"
	"time"
)

var fixedNow = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)

func newTestEngine() *ScoreEngine {
	return NewScoreEngineAt(func() time.Time { return fixedNow })
}

func testItem(views, likes, comments int64, age time.Duration) Item {
	return Item{
		ID:          "item-1",
		PublisherID: "pub-1",
		PublishedAt: fixedNow.Add(-age),
		Metrics: ItemMetrics{
			ViewCount:    views,
			LikeCount:    likes,
			CommentCount: comments,
		},
	}
}

func testPublisher(subs int64) Publisher {
	return Publisher{
		ID:      "pub-1",
		Metrics: PublisherMetrics{SubscriberCount: subs},
	}
}

const day = 24 * time.Hour

func TestScoreEngine_Score(t *testing.T) {
	tests := []struct {
		name      string
		item      Item
		publisher Publisher
		expected  ScoreBreakdown
	}{
		{
			name:      "small channel overperforming",
			item:      testItem(100000, 5000, 500, 2*day),
			publisher: testPublisher(1000),
			// ratio 100 -> 100, 50000/day -> 95, 5.5% -> 70, 2 days -> 93
			// 40 + 28.5 + 14 + 9.3 = 91.8
			expected: ScoreBreakdown{
				SubscriberImpact: 100,
				ViewVelocity:     95,
				EngagementScore:  70,
				FreshnessBonus:   93,
				TotalScore:       92,
			},
		},
		{
			name:      "publisher without subscribers counts as one",
			item:      testItem(50, 0, 0, 12*time.Hour),
			publisher: testPublisher(0),
			// ratio 50 -> 95, 50/day -> 20, 0% -> 20, fresh -> 100
			expected: ScoreBreakdown{
				SubscriberImpact: 95,
				ViewVelocity:     20,
				EngagementScore:  20,
				FreshnessBonus:   100,
				TotalScore:       58,
			},
		},
		{
			name:      "no views",
			item:      testItem(0, 0, 0, 10*day),
			publisher: testPublisher(10),
			// 4 + 6 + 0 + 6.7 = 16.7
			expected: ScoreBreakdown{
				SubscriberImpact: 10,
				ViewVelocity:     20,
				EngagementScore:  0,
				FreshnessBonus:   67,
				TotalScore:       17,
			},
		},
		{
			name:      "older than relevance window",
			item:      testItem(10000000, 900000, 10000, 31*day),
			publisher: testPublisher(100),
			expected:  ScoreBreakdown{},
		},
	}

	engine := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := engine.Score(&tt.item, &tt.publisher)
			got.Explanation = ScoreExplanation{}
			if got != tt.expected {
				t.Errorf("Score() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestScoreEngine_Score_OldItemNote(t *testing.T) {
	engine := newTestEngine()
	item := testItem(1000, 10, 1, 45*day)
	pub := testPublisher(10)

	got := engine.Score(&item, &pub)
	if got.Explanation.Note == "" {
		t.Error("expected explanation note for old item")
	}
	if got.Explanation.AgeInDays != 45 {
		t.Errorf("AgeInDays = %d, want 45", got.Explanation.AgeInDays)
	}
}

func TestScoreEngine_Score_Explanation(t *testing.T) {
	engine := newTestEngine()
	item := testItem(10000, 500, 100, 4*day)
	pub := testPublisher(2000)

	got := engine.Score(&item, &pub).Explanation
	want := ScoreExplanation{
		SubscriberRatio: "5.0x",
		ViewsPerDay:     "2500",
		EngagementRate:  "6.00%",
		AgeInDays:       4,
	}
	if got != want {
		t.Errorf("Explanation = %+v, want %+v", got, want)
	}
}

func TestScoreEngine_TotalMatchesWeightedBreakdown(t *testing.T) {
	engine := newTestEngine()
	views := []int64{0, 10, 999, 15000, 250000, 9000000}
	subs := []int64{0, 1, 50, 20000, 3000000}
	ages := []time.Duration{time.Hour, 3 * day, 11 * day, 29 * day}

	for _, v := range views {
		for _, s := range subs {
			for _, age := range ages {
				item := testItem(v, v/20, v/200, age)
				pub := testPublisher(s)
				b := engine.Score(&item, &pub)

				if b.TotalScore < 0 || b.TotalScore > 100 {
					t.Fatalf("TotalScore = %d out of range for views=%d subs=%d", b.TotalScore, v, s)
				}

				tenths := 4*b.SubscriberImpact + 3*b.ViewVelocity + 2*b.EngagementScore + b.FreshnessBonus
				if want := (tenths + 5) / 10; b.TotalScore != want {
					t.Errorf("TotalScore = %d, want %d (views=%d subs=%d age=%v)", b.TotalScore, want, v, s, age)
				}
			}
		}
	}
}

func TestScoreEngine_OldItemsScoreZero(t *testing.T) {
	engine := newTestEngine()
	for _, age := range []time.Duration{30*day + time.Minute, 31 * day, 365 * day} {
		item := testItem(5000000, 400000, 20000, age)
		pub := testPublisher(10)
		b := engine.Score(&item, &pub)

		if b.SubscriberImpact != 0 || b.ViewVelocity != 0 || b.EngagementScore != 0 ||
			b.FreshnessBonus != 0 || b.TotalScore != 0 {
			t.Errorf("age %v: Score() = %+v, want all zero", age, b)
		}
	}
}

func TestSubscriberImpact_NonIncreasingInSubscribers(t *testing.T) {
	engine := newTestEngine()
	item := testItem(100000, 0, 0, 2*day)

	prev := 101
	for _, subs := range []int64{0, 1, 100, 1000, 2000, 5000, 10000, 20000, 50000, 100000, 200000, 1000000, 10000000} {
		pub := testPublisher(subs)
		got := engine.Score(&item, &pub).SubscriberImpact
		if got > prev {
			t.Errorf("subscriberImpact increased to %d at %d subscribers (previous %d)", got, subs, prev)
		}
		prev = got
	}
}

func TestSubscriberImpact_Buckets(t *testing.T) {
	tests := []struct {
		ratio    float64
		expected int
	}{
		{150, 100}, {100, 100}, {50, 95}, {20, 90}, {10, 85}, {5, 75},
		{2, 60}, {1, 40}, {0.5, 20}, {0.49, 10}, {0, 10},
	}

	for _, tt := range tests {
		if got := subscriberImpact(tt.ratio); got != tt.expected {
			t.Errorf("subscriberImpact(%v) = %d, want %d", tt.ratio, got, tt.expected)
		}
	}
}

func TestViewVelocity_Buckets(t *testing.T) {
	tests := []struct {
		perDay   float64
		expected int
	}{
		{100000, 100}, {99999, 95}, {50000, 95}, {20000, 90}, {10000, 80}, {5000, 70},
		{2000, 60}, {1000, 50}, {500, 40}, {100, 30}, {99, 20}, {0, 20},
	}

	for _, tt := range tests {
		if got := viewVelocity(tt.perDay); got != tt.expected {
			t.Errorf("viewVelocity(%v) = %d, want %d", tt.perDay, got, tt.expected)
		}
	}
}

func TestEngagementScore_Buckets(t *testing.T) {
	tests := []struct {
		views    int64
		rate     float64
		expected int
	}{
		{1000, 15, 100}, {1000, 10, 90}, {1000, 7, 80}, {1000, 5, 70}, {1000, 3, 60},
		{1000, 2, 50}, {1000, 1, 40}, {1000, 0.5, 30}, {1000, 0.1, 20}, {0, 0, 0},
	}

	for _, tt := range tests {
		if got := engagementScore(tt.views, tt.rate); got != tt.expected {
			t.Errorf("engagementScore(%d, %v) = %d, want %d", tt.views, tt.rate, got, tt.expected)
		}
	}
}

func TestFreshnessBonus(t *testing.T) {
	tests := []struct {
		days     float64
		expected int
	}{
		{0, 100}, {0.5, 100}, {1, 100}, {3, 90}, {15, 50}, {29.9, 0}, {30, 0}, {45, 0},
	}

	for _, tt := range tests {
		if got := freshnessBonus(tt.days); got != tt.expected {
			t.Errorf("freshnessBonus(%v) = %d, want %d", tt.days, got, tt.expected)
		}
	}
}

func TestEngagementRate(t *testing.T) {
	item := testItem(10000, 500, 100, day)
	if got := EngagementRate(&item); got != 6.0 {
		t.Errorf("EngagementRate() = %v, want 6", got)
	}

	noViews := testItem(0, 10, 10, day)
	if got := EngagementRate(&noViews); got != 0 {
		t.Errorf("EngagementRate() with no views = %v, want 0", got)
	}
}

func TestMultiplier(t *testing.T) {
	item := testItem(30000, 0, 0, day)

	pub := testPublisher(1000)
	if got := Multiplier(&item, &pub); got != 30 {
		t.Errorf("Multiplier() = %v, want 30", got)
	}

	empty := testPublisher(0)
	if got := Multiplier(&item, &empty); got != 0 {
		t.Errorf("Multiplier() without subscribers = %v, want 0", got)
	}
}

func TestScoreEngine_Classify(t *testing.T) {
	tests := []struct {
		name     string
		item     Item
		subs     int64
		expected string
	}{
		{"massive overperformance", testItem(200000, 100, 10, 10*day), 10000, PotentialVeryHigh},
		{"strong early performance", testItem(30000, 100, 10, 3*day), 10000, PotentialHigh},
		{"early but below 2x", testItem(15000, 100, 10, 3*day), 10000, PotentialLow},
		{"engagement driven", testItem(30000, 1500, 300, 10*day), 10000, PotentialMedium},
		{"normal", testItem(10000, 100, 0, 10*day), 10000, PotentialLow},
		{"old item never ranks", testItem(5000000, 100, 0, 40*day), 1000, PotentialLow},
		{"no subscribers", testItem(5000, 100, 0, 2*day), 0, PotentialLow},
	}

	engine := newTestEngine()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := testPublisher(tt.subs)
			if got := engine.Classify(&tt.item, &pub); got != tt.expected {
				t.Errorf("Classify() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestScoreEngine_NewScoredItem(t *testing.T) {
	engine := newTestEngine()
	item := testItem(100000, 5000, 500, 2*day)
	pub := testPublisher(1000)

	scored := engine.NewScoredItem(item, pub)

	if scored.ID != item.ID {
		t.Errorf("ID = %q, want %q", scored.ID, item.ID)
	}
	if scored.ViralScore != scored.Breakdown.TotalScore {
		t.Errorf("ViralScore = %d, breakdown total %d", scored.ViralScore, scored.Breakdown.TotalScore)
	}
	if scored.ViralScore != 92 {
		t.Errorf("ViralScore = %d, want 92", scored.ViralScore)
	}
	if scored.Multiplier != 100 {
		t.Errorf("Multiplier = %v, want 100", scored.Multiplier)
	}
	if scored.EngagementRate != 5.5 {
		t.Errorf("EngagementRate = %v, want 5.5", scored.EngagementRate)
	}
	if scored.Potential != PotentialVeryHigh {
		t.Errorf("Potential = %q, want %q", scored.Potential, PotentialVeryHigh)
	}
}
