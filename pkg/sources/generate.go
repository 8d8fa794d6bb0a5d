//go:generate gomarkdoc -e -f github -o README.md . --repository.url https://github.com/agentstation/tasklink --repository.default-branch master --repository.path /pkg/sources

// Package sources defines how tasklink reads records from the two remote
// task systems. A Source lists the records of a container in bulk and
// fetches the discussion items of a single record on demand.
package sources
