package dispatch

// Weights are the additive boosts used to pick spotlight stories.
type Weights struct {
	Coverage int `yaml:"coverage" json:"coverage"` // per extra outlet covering the story
	Priority int `yaml:"priority" json:"priority"`
	Verified int `yaml:"verified" json:"verified"`
}

// DefaultWeights keeps the 3/2/1 ratio the feed has always used.
func DefaultWeights() Weights {
	return Weights{Coverage: 3, Priority: 2, Verified: 1}
}

// OrDefault returns w, or DefaultWeights when every weight is zero.
func (w Weights) OrDefault() Weights {
	if w == (Weights{}) {
		return DefaultWeights()
	}
	return w
}

// Score returns the spotlight prominence of an item.
func (w Weights) Score(item NewsItem, verified bool) int {
	score := w.Coverage * len(item.MoreCoverage)
	if item.SourceType.Normalize() == SourcePriority {
		score += w.Priority
	}
	if verified {
		score += w.Verified
	}
	return score
}
