// Package datasource resolves configured data sources to provider instances and
// lists their tradable symbols.
//
// A provider type (the "class" of a datasources.<name> config entry) maps to a
// Factory in a Registry. The factory builds a Terminal, the provider's own client
// with an explicit Connect/Disconnect lifecycle. Source wraps a Terminal with the
// datasource name and the market-watch-only filter.
package datasource
