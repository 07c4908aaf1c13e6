// Package voiceprint implements the speaker identification engine:
// binding audio samples to named identities (enrollment) and deciding
// which of a set of candidate identities produced a sample
// (identification).
//
// # Architecture
//
// The pipeline processes one request in four stages:
//
//  1. normalize.Normalize: raw WAV bytes → canonical 16kHz clip
//  2. Gate.Embed: canonical clip → dense float32 embedding
//  3. Store.Fetch: candidate identity keys → stored embeddings
//  4. BestMatch: cosine similarity + threshold → Verdict
//
// The [Service] type orchestrates these stages and owns the cleanup
// contract: every temporary audio artifact is released before a
// request returns, on success and on every failure path.
//
// # Concurrency
//
// Requests run concurrently. The embedding model is the single
// non-reentrant resource in the system; [Gate] serializes access to
// it. Everything else (decoding, resampling, similarity math, storage
// I/O) runs in parallel across requests.
package voiceprint
