package analysis

// FewShotExample is a worked batch shown to the model before the real one.
type FewShotExample struct {
	Name    string
	Reviews []Review
	Output  Extraction
}

// DefaultExamples returns the built-in few-shot examples. Each call returns a fresh copy.
func DefaultExamples() []FewShotExample {
	return []FewShotExample{
		{
			Name: "multi-mention aggregation",
			Reviews: []Review{
				{ID: 101, Text: "The sound quality is fantastic! Love how crisp it is."},
				{ID: 102, Text: "The shuffle feature is completely useless."},
				{ID: 103, Text: "The audio is crystal clear, amazing clarity in music."},
				{ID: 104, Text: "The sound system is top-notch, really enjoying it."},
			},
			Output: Extraction{Entities: []EntityMention{
				{Name: "Audio Quality", Positive: []int{101, 103, 104}},
				{Name: "Shuffle Feature", Negative: []int{102}},
			}},
		},
		{
			Name: "synonym standardization",
			Reviews: []Review{
				{ID: 201, Text: "The app experience is smooth and intuitive."},
				{ID: 202, Text: "Navigating through the UI is frustrating, too many unnecessary steps.Worst app ever."},
				{ID: 203, Text: "The interface is clean and easy to use."},
				{ID: 204, Text: "The design and UX are just what I needed."},
			},
			Output: Extraction{Entities: []EntityMention{
				{Name: "Spotify App", Positive: []int{201}, Negative: []int{202}},
				{Name: "UI", Positive: []int{203, 204}, Negative: []int{202}},
			}},
		},
		{
			Name: "mixed sentiment",
			Reviews: []Review{
				{ID: 301, Text: "The music selection is fantastic, but the ads are too frequent."},
				{ID: 302, Text: "Love the app, but way too many ads."},
				{ID: 303, Text: "The ads are ruining my experience."},
				{ID: 304, Text: "They added new genres, which I really appreciate!"},
			},
			Output: Extraction{Entities: []EntityMention{
				{Name: "Music Selection", Positive: []int{301, 304}},
				{Name: "Ads", Negative: []int{301, 302, 303}},
			}},
		},
		{
			Name: "ambiguous and comparative",
			Reviews: []Review{
				{ID: 401, Text: "The app is slightly better now, but the shuffle feature is still useless."},
				{ID: 402, Text: "Not bad, but I still expected more."},
				{ID: 403, Text: "The latest update is much better than before!"},
				{ID: 404, Text: "The last version was way smoother than this update."},
			},
			Output: Extraction{Entities: []EntityMention{
				{Name: "Shuffle Feature", Negative: []int{401}},
				{Name: "Spotify App", Positive: []int{402, 403}, Negative: []int{404}},
			}},
		},
		{
			Name: "feature request as negative",
			Reviews: []Review{
				{ID: 501, Text: "Would be great if we had a dark mode option."},
				{ID: 502, Text: "Why is there still no offline lyrics support? Annoying!"},
				{ID: 503, Text: "Offline mode is so helpful when traveling."},
				{ID: 504, Text: "Missing a key feature: background playback on free accounts."},
			},
			Output: Extraction{Entities: []EntityMention{
				{Name: "Dark Mode", Negative: []int{501}},
				{Name: "Lyrics Support", Negative: []int{502}},
				{Name: "Offline Mode", Positive: []int{503}},
				{Name: "Background Playback", Negative: []int{504}},
			}},
		},
	}
}
