package domain

// Result is the payload the backend attaches to a completed mission.
type Result struct {
	Campaign Campaign `json:"campaign"`
	Videos   []Video  `json:"videos"`
	Analysis Analysis `json:"analysis"`
}

// Campaign is the generated marketing strategy.
type Campaign struct {
	OverallStrategy string         `json:"overall_strategy"`
	ClipStrategies  []ClipStrategy `json:"clip_strategies"`
}

// ClipStrategy holds the platform posts for one produced clip.
type ClipStrategy struct {
	ClipIndex       int            `json:"clip_index"`
	DurationSeconds int            `json:"duration_seconds"`
	Posts           []PlatformPost `json:"posts"`
}

// PlatformPost is the copy written for a single platform.
type PlatformPost struct {
	Platform string   `json:"platform"`
	Content  string   `json:"content"`
	Hashtags []string `json:"hashtags"`
}

// Video references a rendered clip.
type Video struct {
	URL  string `json:"url"`
	Hook string `json:"hook"`
}

// Analysis is the source material analysis report.
type Analysis struct {
	MainTopic       string         `json:"main_topic"`
	SuggestedTitles []string       `json:"suggested_titles"`
	Clips           []ClipAnalysis `json:"clips"`
}

// ClipAnalysis describes one candidate fragment and its viral score.
type ClipAnalysis struct {
	Start             string `json:"start"`
	End               string `json:"end"`
	VisualDescription string `json:"visual_description"`
	NarrativeHook     string `json:"narrative_hook"`
	Score             int    `json:"score"`
}

// PostsFor returns the posts written for the clip with the given 1-based index.
func (r *Result) PostsFor(clipIndex int) []PlatformPost {
	if r == nil {
		return nil
	}
	for _, cs := range r.Campaign.ClipStrategies {
		if cs.ClipIndex == clipIndex {
			return cs.Posts
		}
	}
	return nil
}

// ScoreFor returns the analysis score of the clip at position i (0-based).
func (r *Result) ScoreFor(i int) (int, bool) {
	if r == nil || i < 0 || i >= len(r.Analysis.Clips) {
		return 0, false
	}
	return r.Analysis.Clips[i].Score, true
}

// Clone deep-copies the result.
func (r Result) Clone() Result {
	out := Result{
		Campaign: Campaign{OverallStrategy: r.Campaign.OverallStrategy},
		Analysis: Analysis{MainTopic: r.Analysis.MainTopic},
	}
	if r.Videos != nil {
		out.Videos = append([]Video(nil), r.Videos...)
	}
	if r.Analysis.SuggestedTitles != nil {
		out.Analysis.SuggestedTitles = append([]string(nil), r.Analysis.SuggestedTitles...)
	}
	if r.Analysis.Clips != nil {
		out.Analysis.Clips = append([]ClipAnalysis(nil), r.Analysis.Clips...)
	}
	if r.Campaign.ClipStrategies != nil {
		out.Campaign.ClipStrategies = make([]ClipStrategy, len(r.Campaign.ClipStrategies))
		for i, cs := range r.Campaign.ClipStrategies {
			cp := cs
			if cs.Posts != nil {
				cp.Posts = make([]PlatformPost, len(cs.Posts))
				for j, p := range cs.Posts {
					pp := p
					if p.Hashtags != nil {
						pp.Hashtags = append([]string(nil), p.Hashtags...)
					}
					cp.Posts[j] = pp
				}
			}
			out.Campaign.ClipStrategies[i] = cp
		}
	}
	return out
}
