// Package lesson loads practice lessons and normalizes them into a single
// structure regardless of the document format they were written in.
//
// Two formats are understood: the JSON lesson document and a legacy XML
// dialect. Parse sniffs the content and dispatches to the matching Source.
package lesson
