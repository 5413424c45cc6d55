// Package elevenlabs implements the provider adapter for ElevenLabs'
// audio API, covering speech synthesis and transcription. Credentials
// are verified against the free GET /v1/user endpoint.
package elevenlabs
