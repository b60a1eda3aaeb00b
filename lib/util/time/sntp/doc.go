// Package sntp provides the clock used to timestamp outgoing packets.
//
// SystemClock reports the local wall clock. NTPClock queries a set of NTP
// servers, discards responses that fail sanity checks, and applies the median
// clock offset of the rest. Until a sync succeeds it reports system time.
package sntp
