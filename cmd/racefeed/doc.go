// Command racefeed publishes revised race submissions from the work queue
// sheet to the storefront.
//
// `racefeed run` executes one pass and exits; `racefeed daemon` keeps passes
// on a schedule and serves the HTTP API that `status`, `trigger` and
// `history --remote` talk to. `groups` previews how the sheet will be grouped
// without publishing anything.
package main
