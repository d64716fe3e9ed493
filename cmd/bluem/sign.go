package main

import (
	"crypto"
	"crypto/x509"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	bluemconfig "github.com/sirosfoundation/go-bluem/pkg/config"
	"github.com/sirosfoundation/go-bluem/pkg/security"
	"github.com/sirosfoundation/go-bluem/pkg/webhook"
)

var hashes = map[string]crypto.Hash{
	"sha256": crypto.SHA256,
	"sha384": crypto.SHA384,
	"sha512": crypto.SHA512,
}

// signCmd produces signed notifications, for exercising a webhook receiver.
func (a *app) signCmd() *cobra.Command {
	var keyPath, certPath, in, out, hash string

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a status update the way the provider signs notifications",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			h, ok := hashes[hash]
			if !ok {
				return fmt.Errorf("unsupported hash %q", hash)
			}
			key, err := security.LoadPrivateKey(keyPath)
			if err != nil {
				return err
			}
			cert, err := security.LoadCertificate(certPath)
			if err != nil {
				return err
			}
			signer, err := security.NewRSASigner(key, cert, h)
			if err != nil {
				return err
			}

			doc, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			signed, err := signer.Sign(doc)
			if err != nil {
				return err
			}
			return writeOutput(cmd, out, signed)
		},
	}
	cmd.Flags().StringVar(&keyPath, "key", "", "PEM private key (PKCS#1 or PKCS#8 RSA)")
	cmd.Flags().StringVar(&certPath, "cert", "", "PEM certificate matching the key")
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input document, - for stdin")
	cmd.Flags().StringVarP(&out, "out", "o", "-", "Output document, - for stdout")
	cmd.Flags().StringVar(&hash, "hash", "sha256", "Digest: sha256, sha384 or sha512")
	_ = cmd.MarkFlagRequired("key")
	_ = cmd.MarkFlagRequired("cert")
	return cmd
}

func (a *app) verifyCmd() *cobra.Command {
	var certPaths []string
	var in, env string

	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify a signed notification as the webhook endpoint would",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := bluemconfig.ParseEnvironment(env)
			if err != nil {
				return err
			}
			certs := make([]*x509.Certificate, 0, len(certPaths))
			for _, p := range certPaths {
				cert, err := security.LoadCertificate(p)
				if err != nil {
					return err
				}
				certs = append(certs, cert)
			}

			doc, err := readInput(cmd, in)
			if err != nil {
				return err
			}
			n, err := webhook.NewVerifier(webhook.NewStaticKeys(certs...), e).Verify(http.MethodPost, doc)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			if n.Probe {
				fmt.Fprintln(w, "Empty notification (liveness probe)")
				return nil
			}
			fmt.Fprintf(w, "%-20s %s\n", "Kind:", n.Kind)
			fmt.Fprintf(w, "%-20s %s\n", "Code:", n.Code)
			for _, f := range fields(n.Update) {
				if f.value != "" {
					fmt.Fprintf(w, "%-20s %s\n", f.name+":", f.value)
				}
			}
			fmt.Fprintf(w, "%-20s %s\n", "Entrance code:", n.EntranceCode())
			return nil
		},
	}
	cmd.Flags().StringSliceVar(&certPaths, "cert", nil, "Trusted PEM certificate; repeat for key rollover")
	cmd.Flags().StringVarP(&in, "in", "i", "-", "Input document, - for stdin")
	cmd.Flags().StringVar(&env, "env", string(bluemconfig.Test), "Environment the notification was sent from")
	_ = cmd.MarkFlagRequired("cert")
	return cmd
}

func readInput(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func writeOutput(cmd *cobra.Command, path string, data []byte) error {
	if path == "-" {
		_, err := cmd.OutOrStdout().Write(data)
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
