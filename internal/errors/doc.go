// Package errors provides structured, actionable errors for the optilist
// command line and configuration loader.
//
// Each error has a code (e.g., "E102") that maps to a category, a short
// message, and a longer explanation. Errors can carry the file location
// they refer to, a fix suggestion, and an example:
//
//	err := errors.New("E102").
//	    WithLocation("optilist.yaml", 4, 3).
//	    WithSuggestion("Indent nested keys with spaces, not tabs")
//
//	fmt.Print(err.Format())
//	// ERROR E102: Config parse failed
//	//
//	//   optilist.yaml:4:3
//	//
//	//      2 │ server:
//	//      3 │   address: ":8080"
//	//   →  4 │ 	store: memory
//	//        │   ^
//	//      5 │ log:
//	//      6 │   level: debug
//	//
//	//   Hint: Indent nested keys with spaces, not tabs
package errors
