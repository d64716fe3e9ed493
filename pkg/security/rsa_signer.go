package security

import (
	"crypto"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/beevik/etree"
	"github.com/leifj/signedxml"
)

const (
	NamespaceDSig = "http://www.w3.org/2000/09/xmldsig#"

	AlgorithmExcC14N     = "http://www.w3.org/2001/10/xml-exc-c14n#"
	AlgorithmEnveloped   = "http://www.w3.org/2000/09/xmldsig#enveloped-signature"
	AlgorithmSHA256      = "http://www.w3.org/2001/04/xmlenc#sha256"
	AlgorithmSHA384      = "http://www.w3.org/2001/04/xmldsig-more#sha384"
	AlgorithmSHA512      = "http://www.w3.org/2001/04/xmlenc#sha512"
	AlgorithmRSASHA256   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha256"
	AlgorithmRSASHA384   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha384"
	AlgorithmRSASHA512   = "http://www.w3.org/2001/04/xmldsig-more#rsa-sha512"
	signaturePlaceholder = "placeholder"
)

var (
	ErrNoPrivateKey   = errors.New("private key is required")
	ErrNoCertificate  = errors.New("certificate is required")
	ErrNotRSA         = errors.New("certificate does not contain an RSA public key")
	ErrKeyMismatch    = errors.New("private key does not match certificate")
	ErrAlreadySigned  = errors.New("document already carries a signature")
	ErrUnsupportedAlg = errors.New("unsupported hash algorithm")
)

// RSASigner creates enveloped signatures over whole documents.
type RSASigner struct {
	privateKey *rsa.PrivateKey
	cert       *x509.Certificate
	hashAlgo   crypto.Hash
}

// NewRSASigner creates a signer. A zero hashAlgo selects SHA-256.
func NewRSASigner(privateKey *rsa.PrivateKey, cert *x509.Certificate, hashAlgo crypto.Hash) (*RSASigner, error) {
	if privateKey == nil {
		return nil, ErrNoPrivateKey
	}
	if cert == nil {
		return nil, ErrNoCertificate
	}
	publicKey, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return nil, ErrNotRSA
	}
	if !publicKey.Equal(&privateKey.PublicKey) {
		return nil, ErrKeyMismatch
	}

	if hashAlgo == 0 {
		hashAlgo = crypto.SHA256
	}
	switch hashAlgo {
	case crypto.SHA256, crypto.SHA384, crypto.SHA512:
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlg, hashAlgo)
	}

	return &RSASigner{privateKey: privateKey, cert: cert, hashAlgo: hashAlgo}, nil
}

// Certificate returns the signing certificate.
func (s *RSASigner) Certificate() *x509.Certificate { return s.cert }

// Sign appends a ds:Signature to the root element of doc covering the whole
// document.
func (s *RSASigner) Sign(doc []byte) ([]byte, error) {
	tree := etree.NewDocument()
	if err := tree.ReadFromBytes(doc); err != nil {
		return nil, fmt.Errorf("failed to parse XML: %w", err)
	}
	root := tree.Root()
	if root == nil {
		return nil, fmt.Errorf("no root element found")
	}
	if findSignature(root) != nil {
		return nil, ErrAlreadySigned
	}

	sig := root.CreateElement("ds:Signature")
	sig.CreateAttr("xmlns:ds", NamespaceDSig)

	signedInfo := sig.CreateElement("ds:SignedInfo")
	signedInfo.CreateElement("ds:CanonicalizationMethod").CreateAttr("Algorithm", AlgorithmExcC14N)
	signedInfo.CreateElement("ds:SignatureMethod").CreateAttr("Algorithm", s.signatureAlgorithmURI())

	ref := signedInfo.CreateElement("ds:Reference")
	ref.CreateAttr("URI", "")
	transforms := ref.CreateElement("ds:Transforms")
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgorithmEnveloped)
	transforms.CreateElement("ds:Transform").CreateAttr("Algorithm", AlgorithmExcC14N)
	ref.CreateElement("ds:DigestMethod").CreateAttr("Algorithm", s.digestAlgorithmURI())
	ref.CreateElement("ds:DigestValue").SetText(signaturePlaceholder)

	sig.CreateElement("ds:SignatureValue").SetText(signaturePlaceholder)

	x509Data := sig.CreateElement("ds:KeyInfo").CreateElement("ds:X509Data")
	x509Data.CreateElement("ds:X509Certificate").SetText(base64.StdEncoding.EncodeToString(s.cert.Raw))

	xmlStr, err := tree.WriteToString()
	if err != nil {
		return nil, fmt.Errorf("failed to write XML: %w", err)
	}

	signer, err := signedxml.NewSigner(xmlStr)
	if err != nil {
		return nil, fmt.Errorf("failed to create signer: %w", err)
	}
	signed, err := signer.Sign(s.privateKey)
	if err != nil {
		return nil, fmt.Errorf("failed to sign: %w", err)
	}
	return []byte(signed), nil
}

func (s *RSASigner) signatureAlgorithmURI() string {
	switch s.hashAlgo {
	case crypto.SHA384:
		return AlgorithmRSASHA384
	case crypto.SHA512:
		return AlgorithmRSASHA512
	default:
		return AlgorithmRSASHA256
	}
}

func (s *RSASigner) digestAlgorithmURI() string {
	switch s.hashAlgo {
	case crypto.SHA384:
		return AlgorithmSHA384
	case crypto.SHA512:
		return AlgorithmSHA512
	default:
		return AlgorithmSHA256
	}
}

// findSignature returns the first XML-DSig Signature element below el.
func findSignature(el *etree.Element) *etree.Element {
	for _, sig := range el.FindElements(".//Signature") {
		if sig.NamespaceURI() == NamespaceDSig {
			return sig
		}
	}
	return nil
}
