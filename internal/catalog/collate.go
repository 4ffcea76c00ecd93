package catalog

import (
	"database/sql/driver"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"modernc.org/sqlite"
)

// The catalog matches and orders text with Unicode case folding, not
// ASCII-only lowercasing: titles and authors are routinely Cyrillic.
// UNI_NOCASE compares case-folded strings by code point, which keeps
// ordering deterministic and locale-independent. UNI_LOWER is the matching
// scalar function for LIKE and equality comparisons in SQL.

func fold(s string) string {
	// cases.Caser carries state and must not be shared between goroutines.
	return cases.Fold().String(s)
}

func init() {
	if err := sqlite.RegisterCollationUtf8("UNI_NOCASE", func(a, b string) int {
		return strings.Compare(fold(a), fold(b))
	}); err != nil {
		panic(fmt.Sprintf("catalog: register UNI_NOCASE: %v", err))
	}

	sqlite.MustRegisterDeterministicScalarFunction("uni_lower", 1,
		func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
			switch v := args[0].(type) {
			case nil:
				return "", nil
			case string:
				return fold(v), nil
			default:
				return fold(fmt.Sprint(v)), nil
			}
		})
}
