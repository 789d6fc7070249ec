// package resolver maps source references to TMDB identities.
//
// Letterboxd film URLs are resolved by reading the TMDB link off the film page,
// with outcomes kept in the resolve cache. IMDb ids go through TMDB's find endpoint
// and are never cached.
package resolver
