// Package fetch downloads race websites and regulation links.
//
// HTML pages are reduced to their visible text. PDF links, Google Drive file
// links and any response served as application/pdf are returned as raw
// documents so they can be archived and handed to the generation backend.
package fetch
