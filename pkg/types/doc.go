// Package types holds the shared data model for casefile: entity
// records, decision traces, entity links, trail operations, and the
// configuration surface. Storage and transport packages depend on it;
// it depends on nothing inside the module.
package types
