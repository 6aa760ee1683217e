// Package intent decides whether a user message asks for an image or for text.
package intent

import "strings"

// Kind is the classification result for one user message.
type Kind string

const (
	Text  Kind = "text"
	Image Kind = "image"
)

// phrases trigger image generation when any of them occurs in the message,
// case-insensitively. Matching is plain substring containment.
var phrases = []string{
	"generate image",
	"create image",
	"make image",
	"draw",
	"picture",
	"photo",
	"illustration",
	"artwork",
	"visual",
	"sketch",
	"painting",
	"show me",
	"create a picture",
	"generate a picture",
	"make a drawing",
}

// Classify returns Image when text contains any trigger phrase, Text otherwise.
// It is total: empty or whitespace input classifies as Text.
func Classify(text string) Kind {
	lower := strings.ToLower(text)
	for _, p := range phrases {
		if strings.Contains(lower, p) {
			return Image
		}
	}
	return Text
}

// Phrases returns a copy of the trigger phrases.
func Phrases() []string {
	return append([]string(nil), phrases...)
}
