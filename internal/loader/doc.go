// Package loader provides the host's file collaborators.
//
// LoadText reads a local document and converts it to UTF-8; any failure is
// logged and reported as "no file selected". Fetch downloads a document over
// HTTP with retries, and List finds the documents under a directory for the
// open dialog.
package loader
