// Package errors reports problems found while loading and validating
// condition libraries.
//
// Every problem carries a type, the location of the offending node in the
// library file, and optionally the surrounding source lines and a
// suggested fix. Loaders accumulate problems in an ErrorList so that one
// pass reports every mistake in a file:
//
//	list := errors.NewErrorList()
//	list.AddError(errors.ErrorTypeStructural, "age condition requires 'quantity'", loc)
//	if list.HasErrors() {
//	    return list.ToError()
//	}
//
// A formatted error looks like:
//
//	[structural] unknown condition_type "Agee"
//	  --> modules/logic.yaml:12:21
//	  |
//	  11 |   ageLt40Test:
//	  -> 12 |     condition_type: Agee
//	  |
//	  = suggestion: Did you mean 'Age'?
package errors
