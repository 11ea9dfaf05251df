// Package file provides a durable session storage backend that keeps one
// file per session in a directory.
//
// Layout:
//
//	<dir>/<prefix><identifier>   JSON {"data": <envelope>, "time": <float seconds>}
//
// Writes go to a hidden temp file in the same directory and are renamed into
// place, so readers never observe a partial record. Sweeps only consider
// files carrying the prefix, which lets the directory be shared with other
// tools.
package file
