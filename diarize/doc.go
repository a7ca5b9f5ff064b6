// Package diarize splits a call recording into its distinct voices.
//
// A Diarizer decodes the recording, asks an ai.EmbeddingExtractor for
// per-segment voice embeddings and clusters the segments. Each cluster
// becomes one core.SpeakerResult whose embedding is the normalized mean of
// its members and whose confidence is their mean similarity to it.
package diarize
