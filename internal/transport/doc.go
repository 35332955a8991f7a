// Package transport delivers prepared messages to the QQ bot open API over
// HTTP and classifies each failure as transient or permanent for the dispatch
// layer's retry decision.
package transport
