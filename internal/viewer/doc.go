// Package viewer is the rendering logic that runs inside the surface.
//
// It listens on the "markdown" channel, renders each document and keeps the
// latest one as State for subscribers. Files dropped onto the surface are
// shown locally and reported to the host on the "dropfile" channel.
package viewer
