// Carepath evaluates clinical-pathway conditions against simulated patients.
//
// It loads condition libraries (module descriptions in JSON or YAML), checks
// them, and evaluates their conditions for patient fixtures at a given
// simulation time, optionally recording every evaluation in an audit trail.
//
// Usage:
//
//	# Validate library files
//	carepath lint modules/
//
//	# Run condition test cases
//	carepath test --library modules/diabetes.yaml --tests diabetes_tests.yaml
//
//	# Evaluate one condition for a patient
//	carepath eval --library modules/ --module diabetes --condition prediabetic \
//	    --patient patient.yaml --time 2015-06-01
//
//	# Query the audit trail
//	carepath audit query --patient p-1 --outcome error
//
//	# Show version information
//	carepath version
package main

func main() {
	Execute()
}
