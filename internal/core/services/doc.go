// Package services implements the core pipeline logic: the coarse-to-fine
// selection funnel, structured rating, summarisation and run orchestration.
// Services contain the business logic and orchestrate calls to driven ports
// (adapters).
package services
