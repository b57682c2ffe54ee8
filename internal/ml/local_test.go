package ml

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalSummarizerKeepsLeadSentences(t *testing.T) {
	s := NewLocalSummarizer()

	out, err := s.Summarize(context.Background(), "We moved in 1952. The mill closed. Work dried up! Everyone left? Only we stayed.")
	require.NoError(t, err)
	assert.Equal(t, "We moved in 1952. The mill closed. Work dried up!", out)

	out, err = s.Summarize(context.Background(), "no punctuation at all")
	require.NoError(t, err)
	assert.Equal(t, "no punctuation at all", out)

	_, err = s.Summarize(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestLocalSummarizerSummarizeMany(t *testing.T) {
	s := NewLocalSummarizer()

	out, err := s.SummarizeMany(context.Background(), []string{"First story. More.", "", "Second story."})
	require.NoError(t, err)
	assert.Equal(t, "- First story.\n- Second story.", out)

	_, err = s.SummarizeMany(context.Background(), nil)
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestLocalTaggerRanksByFrequency(t *testing.T) {
	tg := &LocalTagger{MaxKeywords: 2}

	tags, err := tg.ExtractTags(context.Background(), "The river flooded. The river rose and the farm flooded, the river again.")
	require.NoError(t, err)
	assert.Equal(t, []Tag{{Name: "keyword", Label: "river"}, {Name: "keyword", Label: "flooded"}}, tags)

	_, err = tg.ExtractTags(context.Background(), "123 456")
	assert.ErrorIs(t, err, ErrBadInput)
}

func TestLocalStrategiesHonorCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLocalSummarizer().Summarize(ctx, "text.")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewLocalTagger().ExtractTags(ctx, "text")
	assert.ErrorIs(t, err, context.Canceled)
	_, err = NewLocalChatter().Chat(ctx, "text.", "question")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLocalChatterQuotesMatchingSentences(t *testing.T) {
	c := &LocalChatter{Sentences: 2}
	background := "We worked at the cannery. The cannery whistle blew at six.\n\nMy father fished the harbor. Winters were hard."

	out, err := c.Chat(context.Background(), background, "When did the cannery whistle blow?")
	require.NoError(t, err)
	assert.Equal(t, "We worked at the cannery. The cannery whistle blew at six.", out)

	out, err = c.Chat(context.Background(), "", "Who fished the harbor?")
	require.NoError(t, err)
	assert.Equal(t, noAnswerReply, out)

	_, err = c.Chat(context.Background(), background, "  ")
	assert.ErrorIs(t, err, ErrBadInput)
}
