// Package media turns local video inputs (files, camera devices) into H.264
// sample streams for a WebRTC local track. It runs ffmpeg as a subprocess,
// parses the Annex-B output into NAL units, and writes them to a pion
// TrackLocalStaticSample.
package media
