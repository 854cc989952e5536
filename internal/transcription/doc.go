// Package transcription defines the provider interface and common types
// for interacting with speech-to-text backends, plus the ordered fallback
// chain that tries backends in priority order until one succeeds.
//
// # Backends
//
//   - transcription/groq: Groq Whisper (whisper-large-v3)
//   - transcription/openai: OpenAI speech-to-text
//   - transcription/gemini: Google Gemini audio transcription
//
// # Usage
//
//	chain := transcription.NewChain([]transcription.Provider{groq, openai, gemini})
//	result, err := chain.Transcribe(ctx, transcription.Request{AudioPath: path})
package transcription
