// Package logsvc implements the logging collaborator of the service
// substrate: a specially-bootstrapped service that receives log records
// asynchronously on its own pool and fans them out to registered printer
// consumers. The registry shuts it down after every other service, behind a
// grace delay, so shutdown progress can still be recorded.
package logsvc
