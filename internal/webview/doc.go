// Package webview provides the rendering context the host talks to.
//
// A WebView owns one goja runtime and a single event loop goroutine. Every
// script, timer callback, and bridge entry point runs on that loop, so the
// state it touches needs no locking. The host injects code with RunScript;
// scripts post back through window.webkit.messageHandlers[name].postMessage,
// which reaches the handlers registered with RegisterMessageHandler.
//
// Globals:
//   - handleIPCMessage, handleIPCMessageBegin, handleIPCMessageChunk,
//     handleIPCMessageEnd: forwarded to the attached Dispatcher
//   - webkit.messageHandlers: registered host handlers
//   - console.log/info/warn/error: captured and logged at debug level
//   - setTimeout/clearTimeout: scheduled on the loop
package webview
