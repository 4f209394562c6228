// Package hostkit is a small in-process host application.
//
// It implements every collaborator declared by package host: a plugin
// registry whose plugins are Lua scripts, a hotkey manager with default and
// custom tables and a compiler, a workspace with windows and open/close
// events, and a command registry. The interceptors are exercised against it
// in tests and in the interpose demo.
//
// The interceptable methods (the registry's loadPlugin, the hotkey
// manager's bake and each plugin's run) are patch slots, and every
// internal caller goes through them.
package hostkit
