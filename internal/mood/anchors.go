package mood

import (
	"fmt"

	"github.com/isaac-evs/side-b/internal/model"
)

// AnchorVersion tags the seeded exemplar set.
const AnchorVersion = "v1"

var anchorTexts = map[string][]string{
	model.MoodJoy: {
		"I feel so happy and energetic today",
		"This is the best day ever, I am full of joy",
		"Celebrating a great success, feeling wonderful",
		"Dancing and laughing with friends",
		"Pure bliss and excitement",
		"Optimistic and cheerful",
		"Having a blast",
	},
	model.MoodSad: {
		"I am feeling very sad and lonely",
		"Heartbroken and crying",
		"Grieving the loss of someone dear",
		"Feeling depressed and hopeless",
		"A heavy heart and tears",
		"Melancholy and gloomy",
		"Missing someone badly",
	},
	model.MoodCalm: {
		"Relaxing and peaceful moment",
		"Meditating in silence",
		"A quiet evening with a book",
		"Feeling serene and tranquil",
		"Soft and gentle vibes",
		"Chilling and resting",
		"Mindfulness and breathing",
	},
	model.MoodStress: {
		"I am so stressed and angry",
		"Frustrated with everything going wrong",
		"Feeling aggressive and intense",
		"Need to release this rage",
		"Overwhelmed and anxious",
		"Furious and annoyed",
		"High pressure and tension",
	},
}

// Anchors returns the exemplar set in seeding order. Seq is global across moods and
// is the tie-breaker at classification time.
func Anchors() []model.MoodAnchor {
	var out []model.MoodAnchor
	for _, mood := range model.Moods {
		for i, text := range anchorTexts[mood] {
			out = append(out, model.MoodAnchor{
				AnchorID: fmt.Sprintf("%s_%d", mood, i),
				Mood:     mood,
				Text:     text,
				Seq:      len(out),
				Version:  AnchorVersion,
			})
		}
	}
	return out
}
