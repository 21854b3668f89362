// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package certio

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	x509certs "github.com/H0llyW00dzZ/x509-cert-manager/src/internal/x509/certs"
	"github.com/H0llyW00dzZ/x509-cert-manager/src/logger"
)

// ErrNoPeerCertificates indicates a TLS server that presented no certificate.
var ErrNoPeerCertificates = errors.New("certio: no certificates received from server")

// ReadServer establishes a TLS connection to the target host and returns the
// certificates presented during the handshake, leaf first, as CRT objects.
//
// The server's chain is not verified; it is read so that it can be imported
// and inspected.
//
// Parameters:
//   - ctx: Cancels the dial and handshake
//   - host: Server host name or address, also sent as SNI
//   - port: Server port
//   - timeout: Dial timeout; zero means none beyond ctx
//   - log: Destination of the object store's warnings; nil discards them
//
// Returns:
//   - *x509certs.ObjectStore: The presented certificates
//   - error: Error if the connection or handshake fails, or [ErrNoPeerCertificates]
func ReadServer(ctx context.Context, host string, port int, timeout time.Duration, log logger.Logger) (*x509certs.ObjectStore, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{Timeout: timeout},
		// only the chain is wanted, not a verified connection
		Config: &tls.Config{InsecureSkipVerify: true, ServerName: host},
	}

	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("certio: failed to connect to %s: %w", addr, err)
	}
	defer conn.Close()

	peerCerts := conn.(*tls.Conn).ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrNoPeerCertificates, addr)
	}

	store := x509certs.NewObjectStore(log)
	for _, cert := range peerCerts {
		store.AddCRT("", cert)
	}
	return store, nil
}
