// Package filtering selects which enumerated resources a connector catalogs.
//
// A connector may declare include and exclude rules on resource names and on
// resource attributes. Exclude rules take precedence over include rules, and a
// record must pass both the name and the attribute rules to be cataloged.
//
// # Name Filtering
//
// Name filtering uses glob patterns. Unlike filepath.Match, '*' also matches
// across '/' so that nested names can be selected with a single pattern:
//
//   - "orders-*" matches "orders-eu", "orders-us"
//   - "db?" matches "db1", "db2" but not "database"
//   - "raw/*" matches "raw/2026/03"
//
// # Attribute Filtering
//
// Attribute filters are written as "key=value" and match a record attribute
// exactly. A bare "key" matches any record carrying that attribute.
//
// A record dropped by a filter is handled like a resource that disappeared
// from the source: its catalog element, if any, receives the removal policy.
package filtering
