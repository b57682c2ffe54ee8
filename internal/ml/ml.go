// Package ml holds the transcription, tagging, summarization and chat
// backends and the task processors that apply their output to stories and projects.
// Each capability has a local heuristic and a remote API variant behind one
// interface.
package ml

import (
	"context"
	"errors"
)

var (
	// ErrBackendUnavailable covers transport failures, timeouts, 5xx answers
	// and backends that are not configured.
	ErrBackendUnavailable = errors.New("ml backend unavailable")
	// ErrBadInput means the backend rejected the input or there was nothing
	// to process.
	ErrBadInput = errors.New("ml input rejected")
)

// AudioInput points a transcriber at audio it can fetch itself.
type AudioInput struct {
	URL string
}

// Tag is one extracted entity. Name is the category (PER, LOC, keyword)
// and Label the matched text.
type Tag struct {
	Name  string `json:"name"`
	Label string `json:"label"`
}

type Transcriber interface {
	Transcribe(ctx context.Context, audio AudioInput) (string, error)
}

type Tagger interface {
	ExtractTags(ctx context.Context, text string) ([]Tag, error)
}

// Chatter answers a question using only the supplied background text.
type Chatter interface {
	Chat(ctx context.Context, background, message string) (string, error)
}

type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
	// SummarizeMany condenses several texts into one collective overview.
	SummarizeMany(ctx context.Context, texts []string) (string, error)
}

const (
	errBackendStatusFmt      = "%w: %s answered %d"
	errBackendRejectedFmt    = "%w: %s answered %d: %s"
	errBackendRequestFmt     = "%w: %s: %v"
	errBackendDecodeFmt      = "%w: %s returned an unreadable body: %v"
	errBackendEmptyFmt       = "%w: %s returned no result"
	errBackendNotConfigured  = "%w: %s is not configured"
	errNoTextToProcess       = "%w: no text to process"
	errNoMessage             = "%w: no message to answer"
	errNoAudioFmt            = "%w: story %d has no audio"
	errNoStoriesFmt          = "%w: project %d has no stories"
	errFailedLoadStoryFmt    = "failed to load story %d: %w"
	errFailedLoadStoriesFmt  = "failed to load stories for project %d: %w"
	errFailedSaveStoryFmt    = "failed to save story %d: %w"
	errFailedSaveInsightFmt  = "failed to save insight for project %d: %w"
	errFailedPresignAudioFmt = "failed to presign audio for story %d: %w"
	errFailedAttachTagsFmt   = "failed to attach tags to story %d: %w"
	errMissingScopeFmt       = "%w: %s task has no %s id"
)
