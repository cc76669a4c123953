// Package dbcapabilities provides a shared registry describing the backends
// supported by PineMCP. The factory and connection manager import this package
// to resolve free-form backend names and to make decisions based on uniform
// metadata (paradigm, native transactions, query language).
package dbcapabilities

import "strings"

// DatabaseID is the canonical identifier for a supported backend.
type DatabaseID string

const (
	PostgreSQL DatabaseID = "postgres"
	Redis      DatabaseID = "redis"
	MongoDB    DatabaseID = "mongodb"
)

// DataParadigm enumerates the structural paradigms a backend exposes.
type DataParadigm string

const (
	ParadigmRelational DataParadigm = "relational" // tables, schemas, SQL
	ParadigmKeyValue   DataParadigm = "keyvalue"   // flat command vocabulary
	ParadigmDocument   DataParadigm = "document"   // collections, documents
)

// Capability describes what a backend supports in a way the adapter layer can
// consume uniformly.
type Capability struct {
	// Human-friendly vendor or product name, e.g., "PostgreSQL".
	Name string `json:"name"`

	// Canonical ID used across the codebase, e.g., "postgres".
	ID DatabaseID `json:"id"`

	// Primary data paradigm.
	Paradigm DataParadigm `json:"paradigm"`

	// Default port used when the connection config leaves it unset.
	DefaultPort int `json:"defaultPort"`

	// Whether the backend has native multi-statement transactions with
	// rollback. Backends without it still satisfy the transaction contract
	// through queued-command batching.
	NativeTransactions bool `json:"nativeTransactions"`

	// Whether the backend exposes a real schema catalog. Backends without one
	// synthesize structure from observed data.
	SchemaCatalog bool `json:"schemaCatalog"`

	// Common aliases (driver names, env labels) that map to this backend.
	Aliases []string `json:"aliases,omitempty"`
}

// All is a registry of capabilities keyed by the canonical database ID.
var All = map[DatabaseID]Capability{
	PostgreSQL: {
		Name:               "PostgreSQL",
		ID:                 PostgreSQL,
		Paradigm:           ParadigmRelational,
		DefaultPort:        5432,
		NativeTransactions: true,
		SchemaCatalog:      true,
		Aliases:            []string{"postgresql", "pgsql"},
	},
	Redis: {
		Name:               "Redis",
		ID:                 Redis,
		Paradigm:           ParadigmKeyValue,
		DefaultPort:        6379,
		NativeTransactions: false,
		SchemaCatalog:      false,
		Aliases:            []string{"keyvalue", "valkey"},
	},
	MongoDB: {
		Name:               "MongoDB",
		ID:                 MongoDB,
		Paradigm:           ParadigmDocument,
		DefaultPort:        27017,
		NativeTransactions: true,
		SchemaCatalog:      false,
		Aliases:            []string{"mongo", "documentdb"},
	},
}

// nameToID is a normalized lookup index from any known name/alias to the canonical DatabaseID.
var nameToID map[string]DatabaseID

func init() {
	nameToID = make(map[string]DatabaseID, len(All)*2)
	for id, cap := range All {
		nameToID[strings.ToLower(string(id))] = id
		if cap.Name != "" {
			nameToID[strings.ToLower(cap.Name)] = id
		}
		for _, a := range cap.Aliases {
			if a == "" {
				continue
			}
			nameToID[strings.ToLower(a)] = id
		}
	}
}

// ParseID attempts to resolve an arbitrary backend name (canonical id, alias,
// or product name) to a canonical DatabaseID. Returns false if unknown.
func ParseID(name string) (DatabaseID, bool) {
	n := strings.ToLower(strings.TrimSpace(name))
	if n == "" {
		return "", false
	}
	id, ok := nameToID[n]
	return id, ok
}

// Get returns capabilities for the given ID and a boolean indicating existence.
func Get(id DatabaseID) (Capability, bool) {
	c, ok := All[id]
	return c, ok
}

// MustGet returns capabilities for the given ID and panics if not found.
func MustGet(id DatabaseID) Capability {
	c, ok := Get(id)
	if !ok {
		panic("dbcapabilities: unknown database id: " + string(id))
	}
	return c
}

// GetByName returns the Capability by looking up using a free-form name (id or alias).
func GetByName(name string) (Capability, bool) {
	if id, ok := ParseID(name); ok {
		return Get(id)
	}
	return Capability{}, false
}

// IDs returns the list of all known database IDs.
func IDs() []DatabaseID {
	out := make([]DatabaseID, 0, len(All))
	for id := range All {
		out = append(out, id)
	}
	return out
}

// HasParadigm reports whether the backend exposes the given data paradigm.
func HasParadigm(id DatabaseID, p DataParadigm) bool {
	c, ok := Get(id)
	return ok && c.Paradigm == p
}
