package nlu

import (
	"context"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/nathoo/voicequest/types"
)

// Keyword interprets utterances by matching lexicon patterns. Intent
// patterns are globs over the normalized utterance and match anywhere in
// it: "take * key" matches "please take the green key now".
type Keyword struct {
	intents  []intentMatcher
	entities []entityMatcher
}

type intentMatcher struct {
	name     string
	patterns []pattern
}

type pattern struct {
	g       glob.Glob
	literal int // pattern length without wildcards
}

type entityMatcher struct {
	category string
	values   []valueMatcher
	captures []capture
}

type valueMatcher struct {
	value   string
	phrases [][]string
}

type capture struct {
	prefix []string
	suffix []string
}

// NewKeyword compiles a lexicon.
func NewKeyword(lex types.Lexicon) (*Keyword, error) {
	k := &Keyword{}
	errb := oops.Code("LEXICON_INVALID")

	for _, def := range lex.Intents {
		m := intentMatcher{name: def.Name}
		for _, raw := range def.Patterns {
			p := strings.ReplaceAll(normalizePattern(raw), " * ", "*")
			if strings.Trim(p, "*? ") == "" {
				return nil, errb.With("intent", def.Name).Errorf("empty pattern %q", raw)
			}
			g, err := glob.Compile("* " + p + " *")
			if err != nil {
				return nil, errb.With("intent", def.Name).With("pattern", raw).Wrap(err)
			}
			lit := len(strings.NewReplacer("*", "", "?", "").Replace(p))
			m.patterns = append(m.patterns, pattern{g: g, literal: lit})
		}
		k.intents = append(k.intents, m)
	}

	for _, def := range lex.Entities {
		m := entityMatcher{category: def.Category}
		for _, v := range def.Values {
			vm := valueMatcher{value: v.Value}
			for _, phrase := range append([]string{v.Value}, v.Synonyms...) {
				ws := words(tokenize(phrase))
				if len(ws) == 0 {
					return nil, errb.With("category", def.Category).Errorf("empty synonym for %q", v.Value)
				}
				vm.phrases = append(vm.phrases, ws)
			}
			m.values = append(m.values, vm)
		}
		for _, raw := range def.Captures {
			before, after, ok := strings.Cut(raw, "{}")
			if !ok {
				return nil, errb.With("category", def.Category).Errorf("capture %q has no {} placeholder", raw)
			}
			m.captures = append(m.captures, capture{
				prefix: words(tokenize(before)),
				suffix: words(tokenize(after)),
			})
		}
		k.entities = append(k.entities, m)
	}
	return k, nil
}

// Interpret never fails; an utterance nothing recognizes has top intent None.
func (k *Keyword) Interpret(_ context.Context, utterance string) (*types.Interpretation, error) {
	toks := tokenize(utterance)
	text := strings.Join(stripArticles(words(toks)), " ")

	interp := &types.Interpretation{
		TopIntent:   NoneIntent,
		ProjectKind: "Conversation",
		Intents:     k.scoreIntents(text),
		Entities:    k.findEntities(utterance, toks),
	}
	if len(interp.Intents) == 0 {
		interp.Intents = []types.IntentScore{{Category: NoneIntent, ConfidenceScore: 1}}
	} else {
		interp.TopIntent = interp.Intents[0].Category
	}
	return interp, nil
}

func (k *Keyword) scoreIntents(text string) []types.IntentScore {
	if text == "" {
		return nil
	}
	padded := " " + text + " "
	var scores []types.IntentScore
	for _, m := range k.intents {
		best := 0.0
		for _, p := range m.patterns {
			if !p.g.Match(padded) {
				continue
			}
			score := min(1, float64(p.literal)/float64(len(text)))
			best = max(best, score)
		}
		if best > 0 {
			scores = append(scores, types.IntentScore{Category: m.name, ConfidenceScore: best})
		}
	}
	slices.SortStableFunc(scores, func(a, b types.IntentScore) int {
		switch {
		case a.ConfidenceScore > b.ConfidenceScore:
			return -1
		case a.ConfidenceScore < b.ConfidenceScore:
			return 1
		}
		return 0
	})
	return scores
}

func (k *Keyword) findEntities(utterance string, toks []token) []types.Entity {
	ws := words(toks)
	var out []types.Entity
	for _, m := range k.entities {
		var found []types.Entity
		for _, v := range m.values {
			for _, phrase := range v.phrases {
				for _, i := range occurrences(ws, phrase) {
					e := span(m.category, utterance, toks, i, i+len(phrase))
					e.ExtraInformation = []types.EntityInfo{{Kind: types.ListKeyInfo, Key: v.value}}
					found = append(found, e)
				}
			}
		}
		for _, c := range m.captures {
			if e, ok := c.match(m.category, utterance, toks); ok {
				found = append(found, e)
				break
			}
		}
		out = append(out, dedupe(found)...)
	}
	slices.SortStableFunc(out, func(a, b types.Entity) int { return a.Offset - b.Offset })
	return out
}

func (c capture) match(category, utterance string, toks []token) (types.Entity, bool) {
	ws := words(toks)
	starts := []int{0}
	if len(c.prefix) > 0 {
		starts = occurrences(ws, c.prefix)
	}
	for _, s := range starts {
		from := s + len(c.prefix)
		to := len(ws)
		if len(c.suffix) > 0 {
			ends := occurrences(ws[from:], c.suffix)
			if len(ends) == 0 {
				continue
			}
			to = from + ends[0]
		}
		if to > from {
			return span(category, utterance, toks, from, to), true
		}
	}
	return types.Entity{}, false
}

// span builds an entity over tokens [from, to) of the original utterance.
func span(category, utterance string, toks []token, from, to int) types.Entity {
	start, end := toks[from].start, toks[to-1].end
	return types.Entity{
		Category:        category,
		Text:            utterance[start:end],
		ConfidenceScore: 1,
		Offset:          start,
		Length:          end - start,
	}
}

// occurrences returns every index where phrase starts in ws.
func occurrences(ws, phrase []string) []int {
	var out []int
	for i := 0; i+len(phrase) <= len(ws); i++ {
		if slices.Equal(ws[i:i+len(phrase)], phrase) {
			out = append(out, i)
		}
	}
	return out
}

// dedupe drops entities of one category that lie inside a longer one.
func dedupe(es []types.Entity) []types.Entity {
	slices.SortStableFunc(es, func(a, b types.Entity) int {
		if a.Offset != b.Offset {
			return a.Offset - b.Offset
		}
		return b.Length - a.Length
	})
	var out []types.Entity
	end := -1
	for _, e := range es {
		if e.Offset+e.Length <= end {
			continue
		}
		out = append(out, e)
		end = e.Offset + e.Length
	}
	return out
}

// normalizePattern folds and strips a pattern the way utterances are,
// keeping its wildcards.
func normalizePattern(raw string) string {
	fields := strings.Fields(raw)
	var out []string
	for _, f := range fields {
		if f == "*" || f == "?" {
			out = append(out, f)
			continue
		}
		if n := normalize(f); n != "" {
			out = append(out, n)
		}
	}
	return strings.Join(out, " ")
}
