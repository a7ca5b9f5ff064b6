// Package voice matches speaker embeddings against persisted voice profiles.
//
// A Matcher compares an embedding with every profile centroid using cosine
// similarity and attributes it to the most similar profile when the
// similarity reaches the match threshold. Otherwise a new profile is seeded
// from the embedding. Matched centroids move toward the new sample as a
// running average weighted by how many recordings the profile already has.
//
// Matching runs inside a storage transaction through storage.ProfileTx, so
// profile updates commit together with the recording they belong to.
package voice
