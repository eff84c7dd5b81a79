// Package service is the market-depth distribution hub.
//
// The Hub owns every subscriber Session, the single upstream feed
// connection and the buffer pools. It decides, per session and per publish,
// whether a depth update may go out incrementally or whether the session
// first needs a full snapshot for that symbol.
//
// All Hub and Session methods must run on the reactor loop.
package service
