// Package adharvest harvests vehicle classified-ad listings from a paginated
// listings site. It walks a fixed crawl space of regions, categories and
// pages, renders each results page, fetches and parses every listing it
// links to, and appends the surviving records to a durable store while
// persisting a checkpoint that survives crashes and restarts.
//
// This package contains domain types and interfaces following Ben Johnson's
// Standard Package Layout. Implementations live in subdirectories named
// after their primary dependency (e.g., rod/, goquery/, sqlite/, github/).
package adharvest
