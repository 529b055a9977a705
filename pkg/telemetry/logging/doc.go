// Package logging builds the structured loggers used across carepath.
//
// # Overview
//
// The logging package configures Go's standard log/slog package with:
//   - JSON or text output
//   - Configurable log levels (debug, info, warn, error)
//   - Redaction of protected health information in log attributes
//   - Evaluation fields carried on a context (patient, library, condition)
//
// # Usage
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	if err != nil {
//	    return err
//	}
//
//	logger.Info("patient loaded",
//	    "patient_id", "p-17",
//	    "patient_name", "Jane Doe", // Logged as "[REDACTED]"
//	)
//
//	ctx = logging.WithPatientID(ctx, "p-17")
//	logging.FromContext(ctx, logger).Info("evaluating") // Includes patient_id
//
// # PHI Redaction
//
// With RedactPHI enabled, attributes whose key matches a configured key
// (case-insensitive, default patient_name, ssn and address) are replaced
// with "[REDACTED]", including attributes nested in groups. String values
// that look like US social security numbers are masked whatever their key.
package logging
