package geocode

import "log/slog"

// Dialect is a dialect-group code: a small fixed set grouping linguistically
// similar cantons.
type Dialect string

const (
	DialectZH      Dialect = "ZH"
	DialectNW      Dialect = "NW"
	DialectCE      Dialect = "CE"
	DialectGR      Dialect = "GR"
	DialectBE      Dialect = "BE"
	DialectVS      Dialect = "VS"
	DialectEA      Dialect = "EA"
	DialectRO      Dialect = "RO"
	DialectUnknown Dialect = "Unknown"
)

// Cantons enumerates the 26 Swiss cantons with the spelling the geocoding
// service responds with.
var Cantons = []string{
	"Aargau", "Appenzell Ausserrhoden", "Appenzell Innerrhoden",
	"Basel-City", "Basel-Landschaft", "Bern", "Fribourg", "Geneva",
	"Glarus", "Grisons", "Jura", "Luzern", "Neuchâtel", "Nidwalden",
	"Obwalden", "Sankt Gallen", "Schaffhausen", "Schwyz", "Solothurn",
	"Thurgau", "Ticino", "Uri", "Valais/Wallis", "Vaud", "Zug", "Zurich",
}

// stateToCode maps canton names to the two-letter canton code. A few spelling
// variants returned by the service map to the same code.
var stateToCode = map[string]string{
	"Zurich":                 "ZH",
	"Zürich":                 "ZH",
	"Bern":                   "BE",
	"Luzern":                 "LU",
	"Aargau":                 "AG",
	"Solothurn":              "SO",
	"Basel-City":             "BS",
	"Basel-stadt":            "BS",
	"Basel-Stadt":            "BS",
	"Grisons":                "GR",
	"Graubünden":             "GR",
	"Zug":                    "ZG",
	"Sankt Gallen":           "SG",
	"St. Gallen":             "SG",
	"Basel-Landschaft":       "BL",
	"Thurgau":                "TG",
	"Valais/Wallis":          "VS",
	"Valais":                 "VS",
	"Wallis":                 "VS",
	"Obwalden":               "OW",
	"Appenzell Ausserrhoden": "AR",
	"Ticino":                 "TI",
	"Appenzell Innerrhoden":  "AI",
	"Schwyz":                 "SZ",
	"Nidwalden":              "NW",
	"Fribourg":               "FR",
	"Freiburg":               "FR",
	"Schaffhausen":           "SH",
	"Jura":                   "JU",
	"Uri":                    "UR",
	"Glarus":                 "GL",
	"Vaud":                   "VD",
	"Neuchâtel":              "NE",
	"Geneva":                 "GE",
	"Genève":                 "GE",
}

// codeToDialect groups canton codes into dialect regions.
var codeToDialect = map[string]Dialect{
	"ZH": DialectZH, "AG": DialectZH,
	"BS": DialectNW, "BL": DialectNW,
	"OW": DialectCE, "NW": DialectCE, "LU": DialectCE, "UR": DialectCE,
	"SZ": DialectCE, "ZG": DialectCE, "GL": DialectCE,
	"GR": DialectGR,
	"BE": DialectBE, "SO": DialectBE,
	"VS": DialectVS,
	"AR": DialectEA, "AI": DialectEA, "SG": DialectEA, "TG": DialectEA,
	"SH": DialectEA,
	"FR": DialectRO,
}

// StateCode converts a canton name to its two-letter code.
func StateCode(state string) (string, bool) {
	code, ok := stateToCode[state]
	return code, ok
}

// CantonToDialect maps a canton name to its dialect group. Names outside the
// table yield DialectUnknown and are logged: an unexpected Swiss-German
// canton spelling here means the table needs a new alias, which is a data
// quality signal for the operator, never a failure.
func CantonToDialect(canton string) Dialect {
	if canton == "" {
		return DialectUnknown
	}
	code, ok := stateToCode[canton]
	if !ok {
		slog.Warn("canton name not in mapping table", "canton", canton)
		return DialectUnknown
	}
	dialect, ok := codeToDialect[code]
	if !ok {
		// french/italian-speaking cantons have no dialect group
		return DialectUnknown
	}
	return dialect
}
