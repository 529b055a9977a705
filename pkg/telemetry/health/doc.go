// Package health serves liveness and readiness endpoints next to the
// metrics endpoint of a long-running carepath process.
//
// # Endpoints
//
//   - /health: liveness, 200 while the process runs
//   - /ready: readiness, 200 when every registered check passes, else 503
//   - /version: build information
//
// # Checks
//
// Readiness checks run concurrently, each bounded by the checker timeout.
// Two carepath checks are provided:
//
//   - LibraryCheck fails while no condition library is loaded.
//   - StorageCheck fails when the audit storage cannot be queried.
//
// # Usage
//
//	checker := health.New(cfg.Telemetry.Health.CheckTimeout)
//	checker.RegisterCheck("libraries", health.LibraryCheck(registry))
//	checker.RegisterCheck("audit", health.StorageCheck(store))
//
//	mux := http.NewServeMux()
//	health.Register(mux, checker, version, commit, buildDate)
package health
