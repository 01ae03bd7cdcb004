package commands

import "errors"

// UpdateConfirmation is the question asked before the binary is replaced.
const UpdateConfirmation = "This will delete the current binary and download the latest version. Continue?"

var (
	// ErrGatewayRunning rejects an update while the gateway runs.
	ErrGatewayRunning = errors.New("gateway is running")
	// ErrUnknownCommand is returned by Execute for unrecognized command IDs.
	ErrUnknownCommand = errors.New("unknown command")
)
