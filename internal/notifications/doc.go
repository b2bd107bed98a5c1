// Package notifications delivers pass outcomes to an ntfy topic.
//
// Each message kind (pass summary, group failure, batch failure) can be
// switched off in config.toml; with no topic configured the service is a
// no-op so the pipeline never has to check.
package notifications
