// Package platform contains OS integration: the default download folder,
// the native folder picker, revealing folders in the file manager and
// locating the yt-dlp executable.
package platform
