// package sink applies resolved events to a TMDB account.
//
// Each event kind maps to one remote mutation. Lists are created lazily on first use
// and remembered in the list cache so later runs add to the same list.
package sink
