// Package dispatch implements the outbound send pipeline: per-conversation
// sequence assignment, minimum-interval rate limiting, duplicate suppression,
// bounded admission control, and retry classification, coordinated per send
// by the Coordinator and swept by a background janitor.
//
// All per-conversation state is keyed by message.ConversationKey and guarded
// per key, so unrelated conversations never serialize on each other.
package dispatch
