// Package nlu turns an utterance into an Interpretation. Keyword is an
// offline interpreter built from a game's lexicon; Remote calls a hosted
// conversation-analysis service.
package nlu

import (
	"context"
	"strings"
	"unicode"

	"golang.org/x/text/cases"

	"github.com/nathoo/voicequest/types"
)

// NoneIntent is the top intent when nothing matched.
const NoneIntent = "None"

// Interpreter extracts an intent and entities from an utterance.
type Interpreter interface {
	Interpret(ctx context.Context, utterance string) (*types.Interpretation, error)
}

// token is a word of the utterance with its byte span in the original.
type token struct {
	text  string // case-folded
	start int
	end   int
}

// tokenize splits on anything that is not a letter, digit or apostrophe.
func tokenize(s string) []token {
	fold := cases.Fold()
	var toks []token
	start := -1
	flush := func(end int) {
		if start >= 0 {
			toks = append(toks, token{text: fold.String(s[start:end]), start: start, end: end})
			start = -1
		}
	}
	for i, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '\'' {
			if start < 0 {
				start = i
			}
			continue
		}
		flush(i)
	}
	flush(len(s))
	return toks
}

func words(toks []token) []string {
	out := make([]string, len(toks))
	for i, t := range toks {
		out[i] = t.text
	}
	return out
}

// stripArticles removes leading articles from every phrase position.
func stripArticles(ws []string) []string {
	out := ws[:0:0]
	for _, w := range ws {
		if w == "the" || w == "a" || w == "an" {
			continue
		}
		out = append(out, w)
	}
	return out
}

// normalize folds case, drops punctuation and articles and collapses spaces.
func normalize(s string) string {
	return strings.Join(stripArticles(words(tokenize(s))), " ")
}
