package orichalcum

// Version is the release of the module, reported by the CLI and the HTTP API.
const Version = "0.4.0"
