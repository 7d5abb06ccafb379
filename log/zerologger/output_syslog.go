//go:build !windows && !nacl && !plan9
// +build !windows,!nacl,!plan9

package zerologger

import (
	"io"
	"log/syslog"
	"regexp"

	"github.com/rs/zerolog"
)

const defaultSyslogPriority = syslog.LOG_LOCAL0 | syslog.LOG_DEBUG

const DefaultSyslogNetwork = "udp"

var addrRegex = regexp.MustCompile(`^((ip|tcp|udp)(|4|6)|unix|unixgram|unixpacket):`)

func toNetworkAndAddress(s string) (string, string) {
	indexes := addrRegex.FindStringSubmatchIndex(s)
	if len(indexes) == 0 {
		return DefaultSyslogNetwork, s
	}
	return s[:indexes[3]], s[indexes[3]+1:]
}

// ConnectSyslog dials the local syslog daemon for "" or "localhost", a remote one otherwise.
// The returned writer maps zerolog levels onto syslog severities.
func ConnectSyslog(outputParam, tag string) (io.Writer, error) {
	var (
		w   *syslog.Writer
		err error
	)
	if len(outputParam) == 0 || outputParam == "localhost" {
		w, err = syslog.New(defaultSyslogPriority, tag)
	} else {
		nw, addr := toNetworkAndAddress(outputParam)
		w, err = syslog.Dial(nw, addr, defaultSyslogPriority, tag)
	}
	if err != nil {
		return nil, err
	}

	return zerolog.SyslogLevelWriter(w), nil
}
