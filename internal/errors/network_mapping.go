package errors

import (
	"context"
	"crypto/x509"
	stderrors "errors"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// MapNetworkError maps a transport failure (no HTTP response) to an APIError.
// None of these carry a capacity status, so they classify as Fatal.
func MapNetworkError(err error) *APIError {
	if err == nil {
		return nil
	}
	msg := err.Error()

	var dnsErr *net.DNSError
	var netErr net.Error
	var unknownCA x509.UnknownAuthorityError
	var hostErr x509.HostnameError
	var certErr x509.CertificateInvalidError

	switch {
	case stderrors.Is(err, context.Canceled):
		return New(http.StatusRequestTimeout, "request_canceled", "timeout_error", "Request was canceled: "+msg)
	case stderrors.Is(err, context.DeadlineExceeded),
		stderrors.As(err, &netErr) && netErr.Timeout():
		return New(http.StatusGatewayTimeout, "timeout", "timeout_error", "Request timeout: "+msg)
	case stderrors.As(err, &dnsErr):
		return New(http.StatusBadGateway, "dns_error", "server_error", "DNS resolution error: "+msg)
	case stderrors.Is(err, syscall.ECONNREFUSED):
		return New(http.StatusBadGateway, "connection_error", "server_error", "Connection refused: "+msg)
	case stderrors.Is(err, io.EOF), stderrors.Is(err, io.ErrUnexpectedEOF), stderrors.Is(err, syscall.ECONNRESET):
		return New(http.StatusBadGateway, "connection_error", "server_error", "Connection error: "+msg)
	case stderrors.As(err, &unknownCA), stderrors.As(err, &hostErr), stderrors.As(err, &certErr),
		strings.Contains(msg, "tls:"):
		return New(http.StatusBadGateway, "tls_error", "server_error", "TLS/Certificate error: "+msg)
	default:
		return New(http.StatusBadGateway, "network_error", "server_error", "Network error: "+msg)
	}
}
