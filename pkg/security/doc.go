// Copyright (c) 2024 SIROS Foundation
// SPDX-License-Identifier: BSD-2-Clause

/*
Package security implements enveloped XML digital signatures for provider
notifications.

# Verification

A Verifier pins one or more trusted certificates. Certificates embedded in the
document's KeyInfo are never trusted on their own.

	v, err := security.NewVerifier(providerCert)
	signed, err := v.Verify(body)

Verify returns the XML covered by the signature, not the input. Callers must
only read data from the returned document: content outside the signed
reference could have been added after signing.

# Signing

RSASigner produces the same signature shape the provider uses, which is
useful for fixtures and integration tests:
  - Reference URI="" with the enveloped-signature transform
  - Exclusive XML Canonicalization
  - RSA with SHA-256 (SHA-384 and SHA-512 optional)
  - the signing certificate in KeyInfo/X509Data

Signing a document:

	signer, err := security.NewRSASigner(key, cert, crypto.SHA256)
	signedXML, err := signer.Sign(doc)

# Key material

LoadCertificate and LoadPrivateKey read PEM files. CheckValidity reports
certificates outside their validity window.

# References

  - XML Signature Syntax and Processing: https://www.w3.org/TR/xmldsig-core1/
  - Exclusive XML Canonicalization: https://www.w3.org/TR/xml-exc-c14n/
*/
package security
