// Package chat persists agent conversations per owner and session so that a
// conversation can be replayed into the model on the next turn.
package chat
