//go:build windows || nacl || plan9
// +build windows nacl plan9

package zerologger

import (
	"errors"
	"io"
)

func ConnectSyslog(outputParam, tag string) (io.Writer, error) {
	return nil, errors.New("syslog output is not supported on this platform")
}
