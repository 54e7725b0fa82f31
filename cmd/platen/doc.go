// Command platen is the CLI for the platen conversion daemon. It can run the
// daemon in the foreground, submit and inspect conversion jobs over the
// daemon's localhost API, and manage configuration.
package main
