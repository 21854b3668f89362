// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package x509store

import (
	"crypto/x509"
	"time"
)

// CRL status values.
const (
	StatusGood         = "Good"
	StatusRevoked      = "Revoked"
	StatusNotAvailable = "Not Available"
)

// RevocationStatus is the revocation state of a certificate as published by
// its issuer's CRL in the store.
type RevocationStatus struct {
	CRLStatus    string
	SerialNumber string
	RevokedAt    time.Time
	// ReasonCode is the CRL entry reason code, or 0 when absent.
	ReasonCode int
}

// checkCRLStatus looks cert up in the CRL held by issuer.
//
// Parameters:
//   - cert: Certificate to check
//   - issuer: Entry that issued cert
//
// Returns:
//   - RevocationStatus: [StatusNotAvailable] when the issuer has no CRL or
//     the CRL is not signed by the issuer's certificate
func checkCRLStatus(cert *x509.Certificate, issuer *Entry) RevocationStatus {
	status := RevocationStatus{CRLStatus: StatusNotAvailable, SerialNumber: cert.SerialNumber.String()}
	if issuer == nil || issuer.crl == nil || issuer.crt == nil {
		return status
	}
	if err := issuer.crl.CheckSignatureFrom(issuer.crt); err != nil {
		return status
	}

	status.CRLStatus = StatusGood
	for _, rc := range issuer.crl.RevokedCertificateEntries {
		if rc.SerialNumber != nil && rc.SerialNumber.Cmp(cert.SerialNumber) == 0 {
			status.CRLStatus = StatusRevoked
			status.RevokedAt = rc.RevocationTime
			status.ReasonCode = rc.ReasonCode
			break
		}
	}
	return status
}
