// Package component defines the lifecycle interface shared by the
// long-running parts of a demandflow application: execution contexts,
// pipeline runners and the status server.
//
// Components are started in registration order and stopped in reverse order
// by Registry, which bootstrap.App drives.
package component
