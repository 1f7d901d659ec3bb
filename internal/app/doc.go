// Package app is the host side of the viewer window.
//
// Manager wires a webview surface (goja runtime, surface bridge, viewer) to a
// host bridge and exposes the window operations: opening files and URLs,
// simulated drops, reload and the window title.
//
// Example Usage:
//
//	manager, err := app.NewManager(ctx, app.Options{
//	    WebView: webview.DefaultConfig(),
//	    Loader:  loader.DefaultConfig(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer manager.Close()
//	manager.OpenFile(ctx, "README.md")
package app
