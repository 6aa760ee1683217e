package intent_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"pictochat/backend/internal/intent"
)

func TestClassify(t *testing.T) {
	testCases := []struct {
		name string
		text string
		want intent.Kind
	}{
		{"Plain question", "What is the capital of France?", intent.Text},
		{"Mixed case trigger", "Please DRAW a cat", intent.Image},
		{"Phrase inside a sentence", "can you show me a sunset over the sea", intent.Image},
		{"Substring of a longer word", "I need to withdraw money", intent.Image},
		{"Photosynthesis contains photo", "Explain photosynthesis", intent.Image},
		{"Empty string", "", intent.Text},
		{"Whitespace only", "   \n\t", intent.Text},
		{"Generate image phrase", "generate image of a robot", intent.Image},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, intent.Classify(tc.text))
		})
	}
}

func TestClassify_EveryPhraseTriggersImage(t *testing.T) {
	for _, p := range intent.Phrases() {
		t.Run(p, func(t *testing.T) {
			assert.Equal(t, intent.Image, intent.Classify("please "+strings.ToUpper(p)+" now"))
		})
	}
}

func TestPhrases_ReturnsCopy(t *testing.T) {
	first := intent.Phrases()
	first[0] = "mutated"
	assert.NotEqual(t, "mutated", intent.Phrases()[0])
}
