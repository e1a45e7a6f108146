package server

import (
	"net"
	"time"
)

// keepAliveListener sets TCP keep-alive on every accepted connection.
type keepAliveListener struct {
	*net.TCPListener
}

func (ln *keepAliveListener) Accept() (net.Conn, error) {
	tc, err := ln.AcceptTCP()
	if err != nil {
		return nil, err
	}
	tc.SetKeepAlive(true)
	tc.SetKeepAlivePeriod(3 * time.Minute)
	return tc, nil
}
