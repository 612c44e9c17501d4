// Package orderbook implements the continuous double auction for a single
// property: two red-black trees of FIFO price levels (bids descending,
// asks ascending) with price-time priority matching.
//
// The book is a single-writer structure owned by its market organizer.
// Mutation (Insert, Erase) is deliberately separated from settlement
// (Match, MatchQueue) so batch-arrival callers decide when to match.
package orderbook
