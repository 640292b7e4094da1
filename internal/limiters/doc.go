// Package limiters holds the brute-force lockout guard. It tracks failed
// authentication attempts per normalized identity on the windowed counter
// and blocks further attempts once the configured threshold is reached.
package limiters
