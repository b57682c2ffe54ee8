package ml

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"unicode"
)

const (
	defaultLeadSentences = 3
	defaultMaxKeywords   = 5
	minKeywordLength     = 4
	tagNameKeyword       = "keyword"
	bulletPrefix         = "- "
	noAnswerReply        = "None of the project's stories mention that."
)

// LocalSummarizer is an extractive summarizer that keeps the lead
// sentences of a text.
type LocalSummarizer struct {
	Sentences int
}

func NewLocalSummarizer() *LocalSummarizer {
	return &LocalSummarizer{Sentences: defaultLeadSentences}
}

func (s *LocalSummarizer) Summarize(ctx context.Context, text string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return "", fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}
	n := s.Sentences
	if n <= 0 {
		n = defaultLeadSentences
	}
	if len(sentences) > n {
		sentences = sentences[:n]
	}
	return strings.Join(sentences, " "), nil
}

// SummarizeMany lists the lead sentence of each text as a bullet.
func (s *LocalSummarizer) SummarizeMany(ctx context.Context, texts []string) (string, error) {
	var bullets []string
	for _, t := range texts {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		if sentences := splitSentences(t); len(sentences) > 0 {
			bullets = append(bullets, bulletPrefix+sentences[0])
		}
	}
	if len(bullets) == 0 {
		return "", fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}
	return strings.Join(bullets, "\n"), nil
}

func splitSentences(text string) []string {
	var out []string
	var b strings.Builder
	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			out = append(out, s)
		}
		b.Reset()
	}
	for _, r := range text {
		b.WriteRune(r)
		if r == '.' || r == '!' || r == '?' || r == '\n' {
			flush()
		}
	}
	flush()
	return out
}

// LocalTagger picks the most frequent non-stopword terms.
type LocalTagger struct {
	MaxKeywords int
}

func NewLocalTagger() *LocalTagger {
	return &LocalTagger{MaxKeywords: defaultMaxKeywords}
}

func (t *LocalTagger) ExtractTags(ctx context.Context, text string) ([]Tag, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	words := splitWords(text)
	if len(words) == 0 {
		return nil, fmt.Errorf(errNoTextToProcess, ErrBadInput)
	}

	counts := make(map[string]int)
	for _, w := range keepTerms(words) {
		counts[w]++
	}

	keywords := make([]string, 0, len(counts))
	for w := range counts {
		keywords = append(keywords, w)
	}
	sort.Slice(keywords, func(i, j int) bool {
		if counts[keywords[i]] != counts[keywords[j]] {
			return counts[keywords[i]] > counts[keywords[j]]
		}
		return keywords[i] < keywords[j]
	})

	limit := t.MaxKeywords
	if limit <= 0 {
		limit = defaultMaxKeywords
	}
	if len(keywords) > limit {
		keywords = keywords[:limit]
	}

	tags := make([]Tag, 0, len(keywords))
	for _, w := range keywords {
		tags = append(tags, Tag{Name: tagNameKeyword, Label: w})
	}
	return tags, nil
}

func splitWords(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && r != '\''
	})
}

// keepTerms drops stopwords and words too short to carry meaning.
func keepTerms(words []string) []string {
	out := words[:0]
	for _, w := range words {
		w = strings.Trim(w, "'")
		if len(w) < minKeywordLength || stopwords[w] {
			continue
		}
		out = append(out, w)
	}
	return out
}

// LocalChatter answers with the background sentences that share the most
// terms with the question.
type LocalChatter struct {
	Sentences int
}

func NewLocalChatter() *LocalChatter {
	return &LocalChatter{Sentences: defaultLeadSentences}
}

func (l *LocalChatter) Chat(ctx context.Context, background, message string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf(errNoMessage, ErrBadInput)
	}

	asked := make(map[string]bool)
	for _, w := range keepTerms(splitWords(message)) {
		asked[w] = true
	}

	type match struct {
		pos, score int
	}
	sentences := splitSentences(background)
	var matches []match
	for i, sentence := range sentences {
		seen := make(map[string]bool)
		for _, w := range keepTerms(splitWords(sentence)) {
			if asked[w] {
				seen[w] = true
			}
		}
		if len(seen) > 0 {
			matches = append(matches, match{pos: i, score: len(seen)})
		}
	}
	if len(matches) == 0 {
		return noAnswerReply, nil
	}

	sort.SliceStable(matches, func(i, j int) bool { return matches[i].score > matches[j].score })
	n := l.Sentences
	if n <= 0 {
		n = defaultLeadSentences
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	sort.Slice(matches, func(i, j int) bool { return matches[i].pos < matches[j].pos })

	picked := make([]string, 0, len(matches))
	for _, m := range matches {
		picked = append(picked, sentences[m.pos])
	}
	return strings.Join(picked, " "), nil
}

var stopwords = map[string]bool{
	"about": true, "after": true, "again": true, "also": true, "always": true,
	"because": true, "been": true, "before": true, "being": true, "could": true,
	"didn't": true, "does": true, "doing": true, "down": true, "each": true,
	"even": true, "every": true, "from": true, "have": true, "having": true,
	"here": true, "into": true, "just": true, "like": true, "made": true,
	"make": true, "many": true, "more": true, "most": true, "much": true,
	"never": true, "only": true, "other": true, "over": true, "really": true,
	"said": true, "same": true, "should": true, "some": true, "still": true,
	"such": true, "than": true, "that": true, "their": true, "them": true,
	"then": true, "there": true, "these": true, "they": true, "thing": true,
	"this": true, "those": true, "through": true, "time": true, "very": true,
	"want": true, "wasn't": true, "were": true, "what": true, "when": true,
	"where": true, "which": true, "while": true, "will": true, "with": true,
	"would": true, "your": true,
}
