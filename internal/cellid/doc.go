/*
Package cellid provides the stable identifier assigned to every notebook cell.

An identifier has the canonical form `c<N>` where N is a positive decimal
number, e.g. `c1`, `c42`. Identifiers are handed out by an Allocator and are
never reused within a document, even after the cell that carried one has been
deleted.
*/
package cellid
