// Package errs registers the error codes used by the proxy-herd core
// components, following the code-range convention of the errors package
// (each package reserves a MinPkgXxx base and offsets from it).
package errs

import (
	liberr "github.com/nabbar/proxyherd/errors"
)

const minPkgProxyHerd = liberr.MinAvailable + 100

const (
	// CodeUnknownServerID is raised by server.New when given a server id not
	// present in the topology.
	CodeUnknownServerID liberr.CodeError = minPkgProxyHerd + iota

	// CodeInvalidTopology is raised when the compiled-in or overridden
	// topology fails validation (dangling neighbor reference, unknown port).
	CodeInvalidTopology

	// CodeListenFailed is raised when the session listener cannot bind its port.
	CodeListenFailed

	// CodePlacesClientFailed is raised when the places client cannot be
	// constructed (empty API key).
	CodePlacesClientFailed
)

func init() {
	liberr.RegisterIdFctMessage(minPkgProxyHerd, message)
}

func message(code liberr.CodeError) string {
	switch code {
	case CodeUnknownServerID:
		return "unknown server id"
	case CodeInvalidTopology:
		return "invalid topology configuration"
	case CodeListenFailed:
		return "failed to start listener"
	case CodePlacesClientFailed:
		return "failed to build places client"
	default:
		return liberr.UnknownMessage
	}
}
