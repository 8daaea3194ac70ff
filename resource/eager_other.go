//go:build !unix

package resource

import "net"

const eagerSupported = false

func tryRead(*net.TCPConn, []byte) (int, bool, error)       { return 0, false, nil }
func tryWrite(*net.TCPConn, []byte) (int, bool, error)      { return 0, false, nil }
func tryAccept(*net.TCPListener) (*net.TCPConn, bool, error) { return nil, false, nil }
