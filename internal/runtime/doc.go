// Package runtime provides the execution context for upsync commands.
//
// It carries what every command needs once flags and settings have been
// resolved: the logger, the settings, and a way to build a sync engine
// configured from them.
package runtime
