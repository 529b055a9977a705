// Package parser builds condition trees from module descriptions.
//
// A library file is YAML or JSON:
//
//	name: logic
//	conditions:
//	  ageLt40Test:
//	    condition_type: Age
//	    operator: "<"
//	    quantity: 40
//	    unit: years
//	  hasDiabetesObservation:
//	    condition_type: Observation
//	    referenced_by_attribute: Diabetes Test Performed
//	    operator: is not nil
//
// condition_type is matched ignoring case, spaces and underscores, so
// "Active Condition" and "active_condition" name the same type. Every
// node keeps the line and column it was read from; problems across the
// whole file are reported together in an errors.ErrorList.
//
// Some module forms have no node of their own and are rewritten:
//
//   - Date with any operator becomes DateBefore, DateAfter or a
//     combination of both.
//   - Attribute with a numeric value becomes AttributeCompare; with
//     "is nil"/"is not nil" it becomes AttributeNil/AttributeNotNil; "!="
//     on text becomes Not(AttributeEqual).
//   - Race without a 'race' value becomes RaceExists.
package parser
