package core

import "context"

// ChatService generates a single assistant reply from an ordered message
// window. Implementations call a hosted language model and must honor
// context cancellation.
type ChatService interface {
	Complete(ctx context.Context, messages []Message) (string, error)
}

// TranscriptionService converts recorded audio into text. The filename is
// a hint for container/format detection (extension matters to some
// providers); the audio bytes are otherwise opaque.
type TranscriptionService interface {
	Transcribe(ctx context.Context, audio []byte, filename string) (string, error)
}

// SynthesisService converts text into encoded audio (MP3).
type SynthesisService interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}
