// Package models defines the core domain models for POIMapper.
//
// # Models
//
//   - POI: a single named, geolocated point of interest
//
// A POI is identified solely by its ID. The ID and CreatedAt are assigned once
// by NewPOI and never change; every other field may be replaced by an update.
//
// # Design Principles
//
// 1. **Caller-built records**: the repository never assigns IDs, NewPOI does
// 2. **Plain values**: POI is copied by value so snapshots cannot alias repository state
// 3. **No validation**: coordinates outside the usual ranges are stored unchanged
package models
