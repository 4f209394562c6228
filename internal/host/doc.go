// Package host declares the collaborators the interceptors need from the
// host application.
//
// The host is closed and versioned. Its public objects (App, Workspace,
// Commands) are described by stable interfaces. Everything reached through
// App.Internals is undocumented and may change shape between host versions;
// the surfaces declared here for it (PluginSurface, HotkeySurface) are only
// ever probed through the private package, never asserted directly.
package host
