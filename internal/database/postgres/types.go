package postgres

import "fmt"

// oidTypeNames maps the numeric type identifiers reported by the wire
// protocol to stable type names. Covers the types the catalog commonly hands
// back; anything else gets a deterministic placeholder via typeNameForOID.
var oidTypeNames = map[uint32]string{
	16:   "boolean",
	17:   "bytea",
	18:   "char",
	19:   "name",
	20:   "bigint",
	21:   "smallint",
	23:   "integer",
	25:   "text",
	26:   "oid",
	114:  "json",
	142:  "xml",
	600:  "point",
	700:  "real",
	701:  "double precision",
	790:  "money",
	869:  "inet",
	1042: "character",
	1043: "character varying",
	1082: "date",
	1083: "time",
	1114: "timestamp",
	1184: "timestamptz",
	1186: "interval",
	1560: "bit",
	1700: "numeric",
	2950: "uuid",
	3802: "jsonb",
	1000: "boolean[]",
	1007: "integer[]",
	1009: "text[]",
	1015: "character varying[]",
	1016: "bigint[]",
	1021: "real[]",
	1022: "double precision[]",
}

// typeNameForOID resolves an OID to a type name, never failing: unknown
// identifiers map to a placeholder embedding the numeric value.
func typeNameForOID(oid uint32) string {
	if name, ok := oidTypeNames[oid]; ok {
		return name
	}
	return fmt.Sprintf("oid(%d)", oid)
}
