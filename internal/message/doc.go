// Package message defines the outbound message model shared by the dispatch
// core and the platform transport: message types, conversation keys, outcomes,
// and the error taxonomy used for retry classification.
package message
