// Package browser drives Instagram through a real Chrome instance over
// the DevTools Protocol.
//
// It is deliberately a thin, replaceable adapter layer: the engine
// depends only on engine.ActionCapability and engine.Session, and this
// package keeps every selector, fallback strategy and login quirk on its
// side of that boundary.
//
// Attach Chrome with:
//
//	google-chrome --remote-debugging-port=9222
//
// The client speaks raw CDP over a gorilla/websocket connection - the
// three commands this tool needs (Page.navigate, Runtime.evaluate and
// cookie management) don't justify a protocol binding dependency.
package browser
