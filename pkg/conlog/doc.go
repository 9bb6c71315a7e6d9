// Package conlog defines the program model shared by every solving
// strategy: nodes and their operations, the immutable program graph,
// the transition function, and the Solution values strategies produce.
//
// A program is an undirected graph with one Initial node and one
// Terminal node. A solution is a walk from Initial to Terminal whose
// forward replay, starting from the free assignment and the fixed
// values declared at Initial, arrives at Terminal with every variable
// equal to zero.
//
// Operations are used as values; pointer operations are not supported.
package conlog
