// Package mta fetches and parses MTA GTFS-Realtime feeds.
//
// The Source interface is the capability contract consumed by the rest
// of the system: Client implements it against the live feed endpoints
// with per-partition caching and exponential backoff, SyntheticClient
// implements it with generated scenario data. NewSource selects the
// implementation from explicit configuration.
package mta
