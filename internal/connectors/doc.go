// Package connectors holds the built-in data source connectors and the
// HTTP plumbing they share: a preconfigured client, per-request retry with
// exponential backoff, and upstream status mapping onto the error taxonomy.
//
// Each connector lives in its own subpackage and implements
// driven.Connector. Connectors are registered at startup by the serve
// command; clients address their tools as <connector>/<tool>.
package connectors
