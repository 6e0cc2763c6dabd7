// Package ingest turns upstream sources into stored events. Source
// connectors (a synthetic generator, GitHub releases, RSS feeds)
// normalize items into events; the poller groups enabled subscriptions
// so each distinct source is fetched once per cycle, deduplicates by
// external id, and hands admitted events to the notification fan-out.
package ingest
